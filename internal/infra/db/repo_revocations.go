package db

import (
	"context"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevocationRepository struct {
	db *gorm.DB
}

func NewRevocationRepository(db *gorm.DB) *RevocationRepository {
	return &RevocationRepository{db: db}
}

// Revoke inserts the entry if absent. ON CONFLICT DO NOTHING makes the
// second revoke a silent no-op; rows-affected tells the caller which case
// it was.
func (r *RevocationRepository) Revoke(ctx context.Context, rev domain.Revocation) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	model := RevocationModel{
		CredentialID: rev.CredentialID,
		WitnessKey:   rev.WitnessKey,
		Reason:       rev.Reason,
		RevokedAt:    rev.RevokedAt.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *RevocationRepository) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RevocationModel{}).
		Where("credential_id = ?", credentialID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RevocationRepository) ListWitnessKeys(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&RevocationModel{}).
		Pluck("witness_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

var _ usecase.RevocationRepository = (*RevocationRepository)(nil)
