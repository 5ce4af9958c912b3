package domain

import "errors"

var (
	ErrInvalidAttributeSet    = errors.New("invalid attribute set")
	ErrAttributeNotPresent    = errors.New("attribute not present")
	ErrCredentialExpired      = errors.New("credential expired")
	ErrCredentialRevoked      = errors.New("credential revoked")
	ErrRequestNotFound        = errors.New("request not found")
	ErrRequestExpired         = errors.New("request expired")
	ErrRequestAlreadyResolved = errors.New("request already resolved")
	ErrPredicateNotSatisfied  = errors.New("predicate not satisfied")
	ErrProofMalformed         = errors.New("proof malformed")
	ErrSignatureInvalid       = errors.New("signature invalid")
	ErrUnknownPredicate       = errors.New("unknown predicate")
	ErrIssuerUnknown          = errors.New("issuer unknown")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
)
