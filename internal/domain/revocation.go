package domain

import "time"

// Revocation marks a credential revoked. Presence in the registry is the
// sole authority; absence means not revoked regardless of any cached status.
type Revocation struct {
	CredentialID string    `json:"credential_id"`
	WitnessKey   string    `json:"-"`
	Reason       string    `json:"reason,omitempty"`
	RevokedAt    time.Time `json:"revoked_at"`
}
