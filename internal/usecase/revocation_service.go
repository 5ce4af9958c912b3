package usecase

import (
	"context"
	"errors"
	"time"

	"privaseal/internal/domain"
)

// RevocationService owns the registry writes. Revoke is idempotent: the
// second call for the same credential is a no-op success that reports
// AlreadyRevoked informationally.
type RevocationService struct {
	Revocations RevocationRepository
	Credentials CredentialRepository
	Audit       *AuditEmitter
	Clock       Clock
}

func NewRevocationService(revocations RevocationRepository, credentials CredentialRepository) *RevocationService {
	return &RevocationService{
		Revocations: revocations,
		Credentials: credentials,
	}
}

type RevokeOutcome struct {
	CredentialID   string    `json:"credential_id"`
	AlreadyRevoked bool      `json:"already_revoked"`
	RevokedAt      time.Time `json:"revoked_at"`
}

func (s *RevocationService) Revoke(ctx context.Context, credentialID, reason string) (RevokeOutcome, error) {
	if s == nil || s.Revocations == nil {
		return RevokeOutcome{}, errors.New("revocation repository is required")
	}
	var issuerID string
	if s.Credentials != nil {
		cred, err := s.Credentials.GetByID(ctx, credentialID)
		if err != nil {
			return RevokeOutcome{}, err
		}
		if cred == nil {
			return RevokeOutcome{}, domain.ErrNotFound
		}
		issuerID = cred.IssuerID
	}

	now := s.now().UTC()
	rev := domain.Revocation{
		CredentialID: credentialID,
		WitnessKey:   domain.RevocationWitnessKey(credentialID),
		Reason:       reason,
		RevokedAt:    now,
	}
	created, err := s.Revocations.Revoke(ctx, rev)
	if err != nil {
		return RevokeOutcome{}, err
	}
	if created && s.Audit != nil {
		if err := s.Audit.EmitCredentialRevoked(ctx, issuerID, credentialID, reason); err != nil {
			return RevokeOutcome{}, err
		}
	}
	return RevokeOutcome{
		CredentialID:   credentialID,
		AlreadyRevoked: !created,
		RevokedAt:      now,
	}, nil
}

func (s *RevocationService) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	if s == nil || s.Revocations == nil {
		return false, errors.New("revocation repository is required")
	}
	return s.Revocations.IsRevoked(ctx, credentialID)
}

func (s *RevocationService) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}
