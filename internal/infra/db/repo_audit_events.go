package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/infra/auditchain"
	"privaseal/internal/infra/canonicaljson"
	"privaseal/internal/usecase"

	"gorm.io/gorm"
)

// AuditEventRepository is append-only. Events chain per scope: each entry
// hashes its predecessor, and the per-scope sequence is advanced under a
// row lock so two appends cannot share a link.
type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.ID == "" {
		id, err := newUUID()
		if err != nil {
			return domain.AuditEvent{}, err
		}
		event.ID = id
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ScopeID == "" {
		event.ScopeID = domain.AuditSystemScopeID
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	payloadJSON, payloadHash, err := auditchain.HashPayload(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.PayloadHash = payloadHash

	var out domain.AuditEvent
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, prevHash, err := nextAuditSeq(ctx, tx, event.ScopeID)
		if err != nil {
			return err
		}
		event.Seq = seq
		event.PrevEventHash = prevHash

		eventHash, err := auditchain.EventHash(event)
		if err != nil {
			return err
		}
		event.EventHash = eventHash

		model := auditEventModelFromDomain(event, payloadJSON)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		out = event
		return nil
	})
	if err != nil {
		return domain.AuditEvent{}, err
	}
	return out, nil
}

func (r *AuditEventRepository) ListByScope(ctx context.Context, scopeID string) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if scopeID == "" {
		scopeID = domain.AuditSystemScopeID
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		canonical, err := canonicaljson.CanonicalizeJSON(model.PayloadJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, auditEventFromModel(model, canonical))
	}
	return out, nil
}

func auditEventModelFromDomain(event domain.AuditEvent, payloadJSON []byte) AuditEventModel {
	return AuditEventModel{
		ID:            event.ID,
		ScopeID:       event.ScopeID,
		Seq:           event.Seq,
		EventType:     string(event.EventType),
		PayloadJSON:   payloadJSON,
		PayloadHash:   event.PayloadHash,
		ActorType:     string(event.ActorType),
		ActorIDHash:   stringPtrIfNotEmpty(event.ActorIDHash),
		TargetType:    string(event.TargetType),
		TargetID:      stringPtrIfNotEmpty(event.TargetID),
		Result:        string(event.Result),
		ErrorCode:     stringPtrIfNotEmpty(event.ErrorCode),
		PrevEventHash: event.PrevEventHash,
		EventHash:     event.EventHash,
		CreatedAt:     event.CreatedAt.UTC(),
	}
}

func auditEventFromModel(model AuditEventModel, payloadJSON []byte) domain.AuditEvent {
	return domain.AuditEvent{
		ID:            model.ID,
		ScopeID:       model.ScopeID,
		Seq:           model.Seq,
		EventType:     domain.AuditEventType(model.EventType),
		Payload:       json.RawMessage(payloadJSON),
		PayloadHash:   model.PayloadHash,
		ActorType:     domain.AuditActorType(model.ActorType),
		ActorIDHash:   stringValue(model.ActorIDHash),
		TargetType:    domain.AuditTargetType(model.TargetType),
		TargetID:      stringValue(model.TargetID),
		Result:        domain.AuditResult(model.Result),
		ErrorCode:     stringValue(model.ErrorCode),
		PrevEventHash: model.PrevEventHash,
		EventHash:     model.EventHash,
		CreatedAt:     model.CreatedAt.UTC(),
	}
}

func nextAuditSeq(ctx context.Context, tx *gorm.DB, scopeID string) (int64, string, error) {
	if scopeID == "" {
		return 0, "", errors.New("scope_id is required")
	}
	if err := tx.WithContext(ctx).Exec(
		"INSERT INTO audit_scope_seq (scope_id, seq) VALUES (?, 0) ON CONFLICT (scope_id) DO NOTHING",
		scopeID,
	).Error; err != nil {
		return 0, "", err
	}

	var currentSeq int64
	if err := tx.WithContext(ctx).Raw(
		"SELECT seq FROM audit_scope_seq WHERE scope_id = ? FOR UPDATE",
		scopeID,
	).Scan(&currentSeq).Error; err != nil {
		return 0, "", err
	}
	nextSeq := currentSeq + 1
	if err := tx.WithContext(ctx).Exec(
		"UPDATE audit_scope_seq SET seq = ? WHERE scope_id = ?",
		nextSeq,
		scopeID,
	).Error; err != nil {
		return 0, "", err
	}

	prevHash := auditchain.ZeroHash
	if currentSeq > 0 {
		var prev AuditEventModel
		if err := tx.WithContext(ctx).
			Where("scope_id = ? AND seq = ?", scopeID, currentSeq).
			Take(&prev).Error; err != nil {
			return 0, "", err
		}
		prevHash = prev.EventHash
	}
	if prevHash == "" {
		return 0, "", fmt.Errorf("missing previous event hash for scope %s", scopeID)
	}
	return nextSeq, prevHash, nil
}

var _ usecase.AuditEventRepository = (*AuditEventRepository)(nil)
