package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"

	"gorm.io/gorm"
)

type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, cred domain.Credential) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := credentialModelFromDomain(cred)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *CredentialRepository) GetByID(ctx context.Context, credentialID string) (*domain.Credential, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model CredentialModel
	err := r.db.WithContext(ctx).Where("id = ?", credentialID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cred, err := credentialFromModel(model)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepository) ListByHolder(ctx context.Context, holderID string) ([]domain.Credential, error) {
	return r.list(ctx, "holder_id = ?", holderID)
}

func (r *CredentialRepository) ListByIssuer(ctx context.Context, issuerID string) ([]domain.Credential, error) {
	return r.list(ctx, "issuer_id = ?", issuerID)
}

func (r *CredentialRepository) list(ctx context.Context, query string, arg string) ([]domain.Credential, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CredentialModel
	if err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("issued_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Credential, 0, len(models))
	for _, model := range models {
		cred, err := credentialFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, nil
}

func credentialModelFromDomain(cred domain.Credential) (CredentialModel, error) {
	attrsJSON, err := json.Marshal(cred.Attributes)
	if err != nil {
		return CredentialModel{}, fmt.Errorf("encode attributes: %w", err)
	}
	return CredentialModel{
		ID:              cred.ID,
		HolderID:        cred.HolderID,
		IssuerID:        cred.IssuerID,
		CredentialType:  cred.CredentialType,
		AttributesJSON:  attrsJSON,
		Signature:       cred.Signature,
		IssuerPublicKey: cred.IssuerPublicKey,
		IssuedAt:        cred.IssuedAt.UTC(),
		ExpiresAt:       cred.ExpiresAt,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

var _ usecase.CredentialRepository = (*CredentialRepository)(nil)

func credentialFromModel(model CredentialModel) (domain.Credential, error) {
	var attrs domain.AttributeSet
	if err := json.Unmarshal(model.AttributesJSON, &attrs); err != nil {
		return domain.Credential{}, fmt.Errorf("decode attributes: %w", err)
	}
	return domain.Credential{
		ID:              model.ID,
		HolderID:        model.HolderID,
		IssuerID:        model.IssuerID,
		CredentialType:  model.CredentialType,
		Attributes:      attrs,
		Signature:       model.Signature,
		IssuerPublicKey: model.IssuerPublicKey,
		IssuedAt:        model.IssuedAt.UTC(),
		ExpiresAt:       model.ExpiresAt,
	}, nil
}
