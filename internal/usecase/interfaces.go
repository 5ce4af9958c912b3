package usecase

import (
	"context"
	"time"

	"privaseal/internal/domain"
)

type Clock func() time.Time

type CredentialRepository interface {
	Create(ctx context.Context, cred domain.Credential) error
	GetByID(ctx context.Context, credentialID string) (*domain.Credential, error)
	ListByHolder(ctx context.Context, holderID string) ([]domain.Credential, error)
	ListByIssuer(ctx context.Context, issuerID string) ([]domain.Credential, error)
}

type IssuerKeyRepository interface {
	Get(ctx context.Context, issuerID string) (*domain.IssuerKey, error)
	Put(ctx context.Context, key domain.IssuerKey) error
}

// RequestFilter narrows request listings; zero values mean no filter.
type RequestFilter struct {
	Status       domain.RequestStatus
	PredicateKey string
	Page         int
	PerPage      int
}

type RequestRepository interface {
	Create(ctx context.Context, req domain.VerificationRequest) error
	GetByID(ctx context.Context, requestID string) (*domain.VerificationRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.VerificationRequest, int64, error)

	// UpdateStatusFrom persists req only if the stored status still equals
	// from. This is the single compare-and-transition primitive behind the
	// at-most-one-resolution invariant. Returns false when the guard
	// fails; the caller reloads and reinterprets.
	UpdateStatusFrom(ctx context.Context, req domain.VerificationRequest, from domain.RequestStatus) (bool, error)
}

type RevocationRepository interface {
	// Revoke records the entry; created is false when the credential was
	// already revoked (idempotent no-op).
	Revoke(ctx context.Context, rev domain.Revocation) (created bool, err error)
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
	// ListWitnessKeys exposes the revoked set for witness matching during
	// verification. Point-in-time read, never cached by callers.
	ListWitnessKeys(ctx context.Context) ([]string, error)
}

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
	ListByScope(ctx context.Context, scopeID string) ([]domain.AuditEvent, error)
}

// AuditSink mirrors committed audit events to an external transport (AMQP).
// Best-effort; the repository append is the durable record.
type AuditSink interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// AttributeValidator checks an attribute set against the schema registered
// for a credential type at issuance time.
type AttributeValidator interface {
	Validate(credentialType string, attrs map[string]string) error
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}
