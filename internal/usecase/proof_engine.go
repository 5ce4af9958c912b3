package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"privaseal/internal/domain"
)

// ProofEngine is the holder-side deriver. Prove is a pure function of its
// inputs: the same credential and nonce yield identical proof bytes, and
// different nonces yield unlinkable ones. Nothing is persisted here.
type ProofEngine struct {
	Credentials CredentialRepository
	IssuerKeys  IssuerKeyRepository
	Scheme      domain.SignatureScheme
	Clock       Clock
}

func (e *ProofEngine) Prove(ctx context.Context, credentialID string, revealSet []string, predicate *domain.Predicate, requestID string) (domain.Proof, error) {
	if e == nil || e.Credentials == nil || e.Scheme == nil {
		return domain.Proof{}, errors.New("proof engine not configured")
	}
	if requestID == "" {
		return domain.Proof{}, fmt.Errorf("%w: binding nonce is required", domain.ErrProofMalformed)
	}
	cred, err := e.Credentials.GetByID(ctx, credentialID)
	if err != nil {
		return domain.Proof{}, err
	}
	if cred == nil {
		return domain.Proof{}, domain.ErrNotFound
	}
	if cred.ExpiredAt(e.now()) {
		return domain.Proof{}, domain.ErrCredentialExpired
	}

	for _, name := range revealSet {
		if _, ok := cred.Attributes.Get(name); !ok {
			return domain.Proof{}, fmt.Errorf("%w: %s", domain.ErrAttributeNotPresent, name)
		}
	}

	predicateResult := false
	if predicate != nil {
		for _, name := range predicate.Attributes() {
			if _, ok := cred.Attributes.Get(name); !ok {
				return domain.Proof{}, fmt.Errorf("%w: %s", domain.ErrAttributeNotPresent, name)
			}
		}
		// Evaluated over the full attribute set; referenced attributes
		// stay hidden unless they are also in the reveal set.
		predicateResult = predicate.Evaluate(cred.Attributes.Map())
	}

	revealed := make(map[string]string, len(revealSet))
	for _, name := range revealSet {
		value, _ := cred.Attributes.Get(name)
		revealed[name] = value
	}

	material, err := e.Scheme.DeriveProof(*cred, revealSet, predicateResult, requestID)
	if err != nil {
		return domain.Proof{}, fmt.Errorf("derive proof: %w", err)
	}
	return domain.Proof{
		RequestID:          requestID,
		IssuerID:           cred.IssuerID,
		RevealedAttributes: revealed,
		PredicateResult:    predicateResult,
		ProofMaterial:      material,
	}, nil
}

// VerifyLocal is a holder-side sanity check on freshly derived material.
// The verifier's pipeline is the authority; this only answers "would my own
// issuer key accept this".
func (e *ProofEngine) VerifyLocal(ctx context.Context, proof domain.Proof) bool {
	if e == nil || e.IssuerKeys == nil || e.Scheme == nil {
		return false
	}
	key, err := e.IssuerKeys.Get(ctx, proof.IssuerID)
	if err != nil || key == nil {
		return false
	}
	payload, err := e.Scheme.VerifyProof(proof.ProofMaterial, proof.RequestID, key.PublicKey)
	if err != nil {
		return false
	}
	if payload.PredicateResult != proof.PredicateResult {
		return false
	}
	if len(payload.Revealed) != len(proof.RevealedAttributes) {
		return false
	}
	for name, value := range proof.RevealedAttributes {
		if payload.Revealed[name] != value {
			return false
		}
	}
	return true
}

func (e *ProofEngine) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
