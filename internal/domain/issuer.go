package domain

import "time"

// IssuerKey is the registered verification key for an issuing authority.
// Proofs reference an issuer ID; the verifier resolves it here.
type IssuerKey struct {
	IssuerID  string
	Alg       string
	PublicKey []byte
	// PrivateKey stays inside the issuing process; it is never serialized
	// onto any interface.
	PrivateKey []byte
	CreatedAt  time.Time
}
