package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Proof is what a holder presents to a verifier. It never carries the
// credential ID, the holder ID, or any attribute outside the reveal set.
// ProofMaterial is opaque to everything except the signature scheme.
type Proof struct {
	RequestID          string            `json:"request_id"`
	IssuerID           string            `json:"issuer_id"`
	RevealedAttributes map[string]string `json:"revealed_attributes"`
	PredicateResult    bool              `json:"predicate_result"`
	ProofMaterial      []byte            `json:"proof_material"`
}

// Fingerprint is the audit-safe identifier for a proof: a hash of the
// material, never the material itself.
func (p Proof) Fingerprint() string {
	sum := sha256.Sum256(p.ProofMaterial)
	return hex.EncodeToString(sum[:])
}

// ProofPayload is what a signature scheme recovers from valid proof material.
type ProofPayload struct {
	Revealed          map[string]string
	PredicateResult   bool
	RevocationWitness string
}

// SignatureScheme abstracts the anonymous-credential primitive. The mock
// implementation lives in infra/scheme; a real BBS+ implementation slots in
// here without touching the request state machine.
type SignatureScheme interface {
	// GenerateKeyPair returns an issuer keypair.
	GenerateKeyPair() (publicKey, privateKey []byte, err error)

	// Sign produces the issuer signature over the credential ID and the
	// full ordered attribute set.
	Sign(credentialID string, attrs AttributeSet, privateKey []byte) ([]byte, error)

	// DeriveProof derives proof material revealing only revealSet, bound to
	// nonce. Deterministic per (credential, revealSet, predicateResult,
	// nonce); unlinkable across nonces.
	DeriveProof(cred Credential, revealSet []string, predicateResult bool, nonce string) ([]byte, error)

	// VerifyProof checks material against the issuer public key and the
	// binding nonce, returning the disclosed payload.
	VerifyProof(material []byte, nonce string, issuerPublicKey []byte) (ProofPayload, error)
}

// RevocationWitnessKey derives the per-credential key the revocation
// registry records on revoke. Stands in for an accumulator witness.
func RevocationWitnessKey(credentialID string) string {
	sum := sha256.Sum256([]byte("privaseal/revocation/" + credentialID))
	return hex.EncodeToString(sum[:])
}

// BlindWitness blinds a witness key with the request nonce. A proof carries
// only the blinded value, so two proofs from the same credential carry
// unrelated witnesses; the registry re-blinds its revoked keys with the same
// nonce to test membership.
func BlindWitness(witnessKey, nonce string) string {
	mac := hmac.New(sha256.New, []byte(witnessKey))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
