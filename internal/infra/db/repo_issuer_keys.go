package db

import (
	"context"
	"errors"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IssuerKeyRepository struct {
	db *gorm.DB
}

func NewIssuerKeyRepository(db *gorm.DB) *IssuerKeyRepository {
	return &IssuerKeyRepository{db: db}
}

func (r *IssuerKeyRepository) Get(ctx context.Context, issuerID string) (*domain.IssuerKey, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model IssuerKeyModel
	err := r.db.WithContext(ctx).Where("issuer_id = ?", issuerID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrIssuerUnknown
		}
		return nil, err
	}
	key := issuerKeyFromModel(model)
	return &key, nil
}

// Put is first-writer-wins. Concurrent EnsureIssuer calls race to insert
// and every caller ends up reading the same stored key.
func (r *IssuerKeyRepository) Put(ctx context.Context, key domain.IssuerKey) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if key.IssuerID == "" {
		return errors.New("issuer_id is required")
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	model := IssuerKeyModel{
		IssuerID:   key.IssuerID,
		Alg:        key.Alg,
		PublicKey:  key.PublicKey,
		PrivateKey: key.PrivateKey,
		CreatedAt:  key.CreatedAt.UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}

var _ usecase.IssuerKeyRepository = (*IssuerKeyRepository)(nil)

func issuerKeyFromModel(model IssuerKeyModel) domain.IssuerKey {
	return domain.IssuerKey{
		IssuerID:   model.IssuerID,
		Alg:        model.Alg,
		PublicKey:  model.PublicKey,
		PrivateKey: model.PrivateKey,
		CreatedAt:  model.CreatedAt.UTC(),
	}
}
