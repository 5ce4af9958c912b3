package domain

import "time"

type CredentialStatus string

const (
	CredentialActive  CredentialStatus = "active"
	CredentialRevoked CredentialStatus = "revoked"
	CredentialExpired CredentialStatus = "expired"
)

// Attribute is a single named value inside a credential. Attribute order is
// fixed at issuance and is part of what the issuer signs.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AttributeSet []Attribute

func (s AttributeSet) Get(name string) (string, bool) {
	for _, a := range s {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (s AttributeSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, a := range s {
		names = append(names, a.Name)
	}
	return names
}

func (s AttributeSet) Map() map[string]string {
	out := make(map[string]string, len(s))
	for _, a := range s {
		out[a.Name] = a.Value
	}
	return out
}

// Validate enforces the issuance contract: at least one attribute, no empty
// names, no duplicate names.
func (s AttributeSet) Validate() error {
	if len(s) == 0 {
		return ErrInvalidAttributeSet
	}
	seen := make(map[string]struct{}, len(s))
	for _, a := range s {
		if a.Name == "" {
			return ErrInvalidAttributeSet
		}
		if _, dup := seen[a.Name]; dup {
			return ErrInvalidAttributeSet
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}

func AttributeSetFromMap(attrs map[string]string, order []string) AttributeSet {
	set := make(AttributeSet, 0, len(attrs))
	for _, name := range order {
		if value, ok := attrs[name]; ok {
			set = append(set, Attribute{Name: name, Value: value})
		}
	}
	return set
}

// Credential is an issuer-signed attribute set. Attributes are immutable after
// issuance; any change requires a new credential with a new ID.
type Credential struct {
	ID             string       `json:"id"`
	HolderID       string       `json:"holder_id"`
	IssuerID       string       `json:"issuer_id"`
	CredentialType string       `json:"credential_type"`
	Attributes     AttributeSet `json:"attributes"`
	Signature      []byte       `json:"signature"`
	// IssuerPublicKey travels with the credential so the holder can derive
	// and locally check proofs without a registry round-trip.
	IssuerPublicKey []byte     `json:"issuer_public_key,omitempty"`
	IssuedAt        time.Time  `json:"issued_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func (c Credential) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
