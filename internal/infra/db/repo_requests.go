package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"

	"gorm.io/gorm"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req domain.VerificationRequest) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := requestModelFromDomain(req)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID string) (*domain.VerificationRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model RequestModel
	err := r.db.WithContext(ctx).Where("id = ?", requestID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	req, err := requestFromModel(model)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) List(ctx context.Context, filter usecase.RequestFilter) ([]domain.VerificationRequest, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Model(&RequestModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.PredicateKey != "" {
		query = query.Where("predicate_key = ?", filter.PredicateKey)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PerPage).Limit(filter.PerPage)
	}
	var models []RequestModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.VerificationRequest, 0, len(models))
	for _, model := range models {
		req, err := requestFromModel(model)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, nil
}

// UpdateStatusFrom is the compare-and-transition: a single conditional
// UPDATE guarded by the current status (and version, against ABA on
// same-status rewrites). Rows-affected decides the winner.
func (r *RequestRepository) UpdateStatusFrom(ctx context.Context, req domain.VerificationRequest, from domain.RequestStatus) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	resultJSON, err := encodeResult(req.Result)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Model(&RequestModel{}).
		Where("id = ? AND status = ? AND version = ?", req.ID, string(from), req.Version).
		Updates(map[string]any{
			"status":            string(req.Status),
			"verified_at":       req.VerifiedAt,
			"result_json":       resultJSON,
			"proof_fingerprint": req.ProofFingerprint,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

var _ usecase.RequestRepository = (*RequestRepository)(nil)

func requestModelFromDomain(req domain.VerificationRequest) (RequestModel, error) {
	predicateJSON, err := json.Marshal(req.Predicate)
	if err != nil {
		return RequestModel{}, fmt.Errorf("encode predicate: %w", err)
	}
	resultJSON, err := encodeResult(req.Result)
	if err != nil {
		return RequestModel{}, err
	}
	return RequestModel{
		ID:               req.ID,
		VerifierID:       req.VerifierID,
		PredicateKey:     req.PredicateKey,
		PredicateJSON:    predicateJSON,
		Status:           string(req.Status),
		CreatedAt:        req.CreatedAt.UTC(),
		ExpiresAt:        req.ExpiresAt.UTC(),
		VerifiedAt:       req.VerifiedAt,
		ResultJSON:       resultJSON,
		ProofFingerprint: req.ProofFingerprint,
		Version:          req.Version,
	}, nil
}

func requestFromModel(model RequestModel) (domain.VerificationRequest, error) {
	var predicate domain.Predicate
	if err := json.Unmarshal(model.PredicateJSON, &predicate); err != nil {
		return domain.VerificationRequest{}, fmt.Errorf("decode predicate: %w", err)
	}
	var result *domain.VerificationResult
	if len(model.ResultJSON) > 0 {
		result = &domain.VerificationResult{}
		if err := json.Unmarshal(model.ResultJSON, result); err != nil {
			return domain.VerificationRequest{}, fmt.Errorf("decode result: %w", err)
		}
	}
	return domain.VerificationRequest{
		ID:               model.ID,
		VerifierID:       model.VerifierID,
		PredicateKey:     model.PredicateKey,
		Predicate:        predicate,
		Status:           domain.RequestStatus(model.Status),
		CreatedAt:        model.CreatedAt.UTC(),
		ExpiresAt:        model.ExpiresAt.UTC(),
		VerifiedAt:       model.VerifiedAt,
		Result:           result,
		ProofFingerprint: model.ProofFingerprint,
		Version:          model.Version,
	}, nil
}

func encodeResult(result *domain.VerificationResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return encoded, nil
}
