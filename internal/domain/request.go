package domain

import (
	"fmt"
	"time"
)

type RequestStatus string

const (
	RequestCreated       RequestStatus = "created"
	RequestAwaitingProof RequestStatus = "awaiting_proof"
	RequestProofReceived RequestStatus = "proof_received"
	RequestVerifying     RequestStatus = "verifying"
	RequestVerified      RequestStatus = "verified"
	RequestFailed        RequestStatus = "failed"
	RequestExpired       RequestStatus = "expired"
	RequestCancelled     RequestStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal requests are
// immutable; further submissions observe RequestAlreadyResolved.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestVerified, RequestFailed, RequestExpired, RequestCancelled:
		return true
	}
	return false
}

// FailureReason is the coarse outcome attached to a Failed request. Reasons
// that would let a verifier terminal probe credential structure collapse
// into ReasonProofRejected.
type FailureReason string

const (
	ReasonCredentialRevoked     FailureReason = "credential_revoked"
	ReasonPredicateNotSatisfied FailureReason = "predicate_not_satisfied"
	ReasonProofRejected         FailureReason = "proof_rejected"
)

type VerificationResult struct {
	Verified bool          `json:"verified"`
	Reason   FailureReason `json:"reason,omitempty"`
}

// VerificationRequest is the verifier-side lifecycle record. Only the state
// machine mutates it; holders interact purely through proof submission.
type VerificationRequest struct {
	ID           string    `json:"id"`
	VerifierID   string    `json:"verifier_id"`
	PredicateKey string    `json:"predicate_key"`
	Predicate    Predicate `json:"predicate"`

	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`

	VerifiedAt       *time.Time          `json:"verified_at,omitempty"`
	Result           *VerificationResult `json:"result,omitempty"`
	ProofFingerprint string              `json:"proof_fingerprint,omitempty"`

	// Version backs the optimistic compare-and-transition in stores.
	Version int64 `json:"-"`
}

func (r VerificationRequest) ExpiredAt(now time.Time) bool {
	if r.Status.Terminal() {
		return false
	}
	return now.After(r.ExpiresAt)
}

// BindingURI renders the QR-transported reference. It carries the request ID
// and nothing else; the predicate is fetched over the request channel.
func (r VerificationRequest) BindingURI(scheme string) string {
	if scheme == "" {
		scheme = "privaseal"
	}
	return fmt.Sprintf("%s://verify?req=%s", scheme, r.ID)
}
