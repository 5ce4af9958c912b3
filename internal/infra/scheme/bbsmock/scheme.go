// Package bbsmock is a stand-in for a real anonymous-credential scheme
// (BBS+ or equivalent) behind domain.SignatureScheme. Issuer signatures are
// real ed25519; proof derivation produces a deterministic, nonce-bound
// envelope whose session tag is keyed from the credential signature, so
// proofs for different nonces carry no common value. It is not sound
// zero-knowledge cryptography and exists so the protocol around it can be.
package bbsmock

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"privaseal/internal/domain"
	"privaseal/internal/infra/canonicaljson"
)

const schemeVersion = "bbs-mock-v1"

type Scheme struct{}

func New() *Scheme {
	return &Scheme{}
}

func (s *Scheme) GenerateKeyPair() ([]byte, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// NewKeyPairFromSeed derives a deterministic issuer keypair, used when the
// process is configured with ISSUER_SEED_HEX.
func NewKeyPairFromSeed(seed []byte) ([]byte, []byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv, nil
}

func (s *Scheme) Sign(credentialID string, attrs domain.AttributeSet, privateKey []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length: %d", len(privateKey))
	}
	payload, err := signingPayload(credentialID, attrs)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(ed25519.PrivateKey(privateKey), payload), nil
}

// envelope is the wire form of mock proof material.
type envelope struct {
	V               string            `json:"v"`
	Tag             string            `json:"tag"`
	Revealed        map[string]string `json:"revealed"`
	PredicateResult bool              `json:"predicate_result"`
	Witness         string            `json:"witness"`
	MAC             string            `json:"mac"`
}

func (s *Scheme) DeriveProof(cred domain.Credential, revealSet []string, predicateResult bool, nonce string) ([]byte, error) {
	if nonce == "" {
		return nil, fmt.Errorf("nonce is required")
	}
	if len(cred.Signature) == 0 {
		return nil, fmt.Errorf("credential is unsigned")
	}
	if len(cred.IssuerPublicKey) == 0 {
		return nil, fmt.Errorf("credential carries no issuer public key")
	}

	revealed := make(map[string]string, len(revealSet))
	for _, name := range revealSet {
		value, ok := cred.Attributes.Get(name)
		if !ok {
			return nil, fmt.Errorf("attribute %q not in credential", name)
		}
		revealed[name] = value
	}

	// Session tag keyed by the signature: pseudorandom per nonce, stable
	// for the same nonce, and uncomputable without the credential.
	tag := hmacHex(cred.Signature, []byte(nonce))
	witness := domain.BlindWitness(domain.RevocationWitnessKey(cred.ID), nonce)

	env := envelope{
		V:               schemeVersion,
		Tag:             tag,
		Revealed:        revealed,
		PredicateResult: predicateResult,
		Witness:         witness,
	}
	return sealEnvelope(env, nonce, cred.IssuerPublicKey)
}

func (s *Scheme) VerifyProof(material []byte, nonce string, issuerPublicKey []byte) (domain.ProofPayload, error) {
	var env envelope
	if err := json.Unmarshal(material, &env); err != nil {
		return domain.ProofPayload{}, fmt.Errorf("%w: %v", domain.ErrProofMalformed, err)
	}
	if env.V != schemeVersion {
		return domain.ProofPayload{}, fmt.Errorf("%w: unsupported version %q", domain.ErrProofMalformed, env.V)
	}
	if env.MAC == "" || env.Tag == "" {
		return domain.ProofPayload{}, domain.ErrProofMalformed
	}
	expected, err := envelopeMAC(env, nonce, issuerPublicKey)
	if err != nil {
		return domain.ProofPayload{}, fmt.Errorf("%w: %v", domain.ErrProofMalformed, err)
	}
	if !hmac.Equal([]byte(expected), []byte(env.MAC)) {
		return domain.ProofPayload{}, domain.ErrSignatureInvalid
	}
	revealed := env.Revealed
	if revealed == nil {
		revealed = map[string]string{}
	}
	return domain.ProofPayload{
		Revealed:          revealed,
		PredicateResult:   env.PredicateResult,
		RevocationWitness: env.Witness,
	}, nil
}

var _ domain.SignatureScheme = (*Scheme)(nil)

func signingPayload(credentialID string, attrs domain.AttributeSet) ([]byte, error) {
	items := make([]any, 0, len(attrs))
	for _, a := range attrs {
		items = append(items, map[string]any{"name": a.Name, "value": a.Value})
	}
	return canonicaljson.CanonicalizeAny(map[string]any{
		"v":             schemeVersion,
		"credential_id": credentialID,
		"attributes":    items,
	})
}

func sealEnvelope(env envelope, nonce string, issuerPublicKey []byte) ([]byte, error) {
	mac, err := envelopeMAC(env, nonce, issuerPublicKey)
	if err != nil {
		return nil, err
	}
	env.MAC = mac
	return canonicaljson.CanonicalizeAny(map[string]any{
		"v":                env.V,
		"tag":              env.Tag,
		"revealed":         env.Revealed,
		"predicate_result": env.PredicateResult,
		"witness":          env.Witness,
		"mac":              env.MAC,
	})
}

func envelopeMAC(env envelope, nonce string, issuerPublicKey []byte) (string, error) {
	core, err := canonicaljson.CanonicalizeAny(map[string]any{
		"v":                env.V,
		"tag":              env.Tag,
		"revealed":         env.Revealed,
		"predicate_result": env.PredicateResult,
		"witness":          env.Witness,
	})
	if err != nil {
		return "", err
	}
	keyMaterial := sha256.Sum256(append(append([]byte{}, issuerPublicKey...), []byte(nonce)...))
	return hmacHex(keyMaterial[:], core), nil
}

func hmacHex(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
