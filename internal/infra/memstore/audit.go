package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/infra/auditchain"
	"privaseal/internal/usecase"

	"github.com/google/uuid"
)

// AuditEvents keeps a per-scope hash chain in memory. The single mutex
// plays the role the row lock on the sequence table plays in postgres.
type AuditEvents struct {
	mu     sync.Mutex
	scopes map[string][]domain.AuditEvent
}

func NewAuditEvents() *AuditEvents {
	return &AuditEvents{scopes: make(map[string][]domain.AuditEvent)}
}

func (s *AuditEvents) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ScopeID == "" {
		event.ScopeID = domain.AuditSystemScopeID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	canonical, payloadHash, err := auditchain.HashPayload(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.Payload = json.RawMessage(canonical)
	event.PayloadHash = payloadHash

	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.scopes[event.ScopeID]
	event.Seq = int64(len(chain)) + 1
	event.PrevEventHash = auditchain.ZeroHash
	if len(chain) > 0 {
		event.PrevEventHash = chain[len(chain)-1].EventHash
	}
	eventHash, err := auditchain.EventHash(event)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.EventHash = eventHash
	s.scopes[event.ScopeID] = append(chain, event)
	return event, nil
}

func (s *AuditEvents) ListByScope(ctx context.Context, scopeID string) ([]domain.AuditEvent, error) {
	if scopeID == "" {
		scopeID = domain.AuditSystemScopeID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.scopes[scopeID]
	out := make([]domain.AuditEvent, len(chain))
	copy(out, chain)
	return out, nil
}

var _ usecase.AuditEventRepository = (*AuditEvents)(nil)
