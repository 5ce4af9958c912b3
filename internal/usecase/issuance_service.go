package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"privaseal/internal/domain"

	"github.com/google/uuid"
)

// IssuanceService is the issuer-side entry point: it validates an attribute
// set, signs it through the pluggable scheme, and stores the resulting
// credential. Credentials are immutable once created.
type IssuanceService struct {
	Credentials CredentialRepository
	IssuerKeys  IssuerKeyRepository
	Revocations RevocationRepository
	Scheme      domain.SignatureScheme
	Validator   AttributeValidator
	Audit       *AuditEmitter
	Clock       Clock
}

type IssueRequest struct {
	HolderID       string
	IssuerID       string
	CredentialType string
	Attributes     domain.AttributeSet
	ExpiresAt      *time.Time
}

func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest) (domain.Credential, error) {
	if s == nil || s.Credentials == nil || s.IssuerKeys == nil || s.Scheme == nil {
		return domain.Credential{}, errors.New("issuance service not configured")
	}
	if req.HolderID == "" || req.IssuerID == "" {
		return domain.Credential{}, fmt.Errorf("%w: holder and issuer are required", domain.ErrInvalidAttributeSet)
	}
	if err := req.Attributes.Validate(); err != nil {
		return domain.Credential{}, err
	}
	if s.Validator != nil && req.CredentialType != "" {
		if err := s.Validator.Validate(req.CredentialType, req.Attributes.Map()); err != nil {
			return domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrInvalidAttributeSet, err)
		}
	}

	key, err := s.IssuerKeys.Get(ctx, req.IssuerID)
	if err != nil {
		return domain.Credential{}, err
	}
	if key == nil {
		return domain.Credential{}, domain.ErrIssuerUnknown
	}

	cred := domain.Credential{
		ID:             uuid.NewString(),
		HolderID:       req.HolderID,
		IssuerID:       req.IssuerID,
		CredentialType: req.CredentialType,
		Attributes:     req.Attributes,
		IssuedAt:       s.now().UTC(),
		ExpiresAt:      req.ExpiresAt,
	}
	signature, err := s.Scheme.Sign(cred.ID, cred.Attributes, key.PrivateKey)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("sign credential: %w", err)
	}
	cred.Signature = signature
	cred.IssuerPublicKey = key.PublicKey

	if err := s.Credentials.Create(ctx, cred); err != nil {
		return domain.Credential{}, err
	}
	if s.Audit != nil {
		if err := s.Audit.EmitCredentialIssued(ctx, cred.IssuerID, cred.ID, cred.CredentialType, len(cred.Attributes), attributesHash(cred.Attributes)); err != nil {
			return domain.Credential{}, err
		}
	}
	return cred, nil
}

// EnsureIssuer registers an issuer keypair if one does not exist yet.
// Idempotent; returns the stored key either way.
func (s *IssuanceService) EnsureIssuer(ctx context.Context, issuerID string) (domain.IssuerKey, error) {
	if issuerID == "" {
		return domain.IssuerKey{}, domain.ErrIssuerUnknown
	}
	existing, err := s.IssuerKeys.Get(ctx, issuerID)
	if err != nil && !errors.Is(err, domain.ErrIssuerUnknown) && !errors.Is(err, domain.ErrNotFound) {
		return domain.IssuerKey{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	pub, priv, err := s.Scheme.GenerateKeyPair()
	if err != nil {
		return domain.IssuerKey{}, err
	}
	key := domain.IssuerKey{
		IssuerID:   issuerID,
		Alg:        "bbs-mock",
		PublicKey:  pub,
		PrivateKey: priv,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.IssuerKeys.Put(ctx, key); err != nil {
		return domain.IssuerKey{}, err
	}
	return key, nil
}

func (s *IssuanceService) Get(ctx context.Context, credentialID string) (domain.Credential, error) {
	cred, err := s.Credentials.GetByID(ctx, credentialID)
	if err != nil {
		return domain.Credential{}, err
	}
	if cred == nil {
		return domain.Credential{}, domain.ErrNotFound
	}
	return *cred, nil
}

// Status derives the credential status: Expired from expires_at, Revoked
// from the registry, never from a stored field.
func (s *IssuanceService) Status(ctx context.Context, credentialID string) (domain.CredentialStatus, error) {
	cred, err := s.Get(ctx, credentialID)
	if err != nil {
		return "", err
	}
	if s.Revocations != nil {
		revoked, err := s.Revocations.IsRevoked(ctx, credentialID)
		if err != nil {
			return "", err
		}
		if revoked {
			return domain.CredentialRevoked, nil
		}
	}
	if cred.ExpiredAt(s.now()) {
		return domain.CredentialExpired, nil
	}
	return domain.CredentialActive, nil
}

type IssuerStats struct {
	TotalIssued int            `json:"total_issued"`
	Revoked     int            `json:"revoked"`
	ByType      map[string]int `json:"by_type"`
}

func (s *IssuanceService) Stats(ctx context.Context, issuerID string) (IssuerStats, error) {
	creds, err := s.Credentials.ListByIssuer(ctx, issuerID)
	if err != nil {
		return IssuerStats{}, err
	}
	stats := IssuerStats{ByType: map[string]int{}}
	for _, cred := range creds {
		stats.TotalIssued++
		if cred.CredentialType != "" {
			stats.ByType[cred.CredentialType]++
		}
		if s.Revocations != nil {
			revoked, err := s.Revocations.IsRevoked(ctx, cred.ID)
			if err != nil {
				return IssuerStats{}, err
			}
			if revoked {
				stats.Revoked++
			}
		}
	}
	return stats, nil
}

func (s *IssuanceService) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// attributesHash is the privacy-preserving digest logged instead of the
// attribute values: sha256 over the sorted name=value lines.
func attributesHash(attrs domain.AttributeSet) string {
	lines := make([]string, 0, len(attrs))
	for _, a := range attrs {
		lines = append(lines, a.Name+"="+a.Value)
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
