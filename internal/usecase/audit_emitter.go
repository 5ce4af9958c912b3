package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"privaseal/internal/domain"
)

// AuditEmitter appends protocol events to the audit trail and optionally
// mirrors them to an external sink. Payloads carry identifiers, counts and
// hashes only.
type AuditEmitter struct {
	Repo  AuditEventRepository
	Sink  AuditSink
	Clock Clock
}

func NewAuditEmitter(repo AuditEventRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Clock: clock}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEvent{}, errors.New("audit repository required")
	}
	if event.EventType == "" || event.TargetType == "" || event.Result == "" || event.ActorType == "" {
		return domain.AuditEvent{}, errors.New("audit event missing required fields")
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	appended, err := e.Repo.Append(ctx, event)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	if e.Sink != nil {
		if err := e.Sink.Publish(ctx, appended); err != nil {
			log.Printf("audit sink publish failed: %v", err)
		}
	}
	return appended, nil
}

func (e *AuditEmitter) EmitCredentialIssued(ctx context.Context, issuerID, credentialID, credentialType string, attributeCount int, attributesHash string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:     issuerID,
		ActorType:   domain.AuditActorIssuer,
		ActorIDHash: hashString(issuerID),
		EventType:   domain.AuditEventCredentialIssued,
		Payload: map[string]any{
			"credential_id":   credentialID,
			"credential_type": credentialType,
			"attribute_count": attributeCount,
			"attributes_hash": attributesHash,
		},
		TargetType: domain.AuditTargetCredential,
		TargetID:   credentialID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitCredentialRevoked(ctx context.Context, issuerID, credentialID, reason string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:     issuerID,
		ActorType:   domain.AuditActorIssuer,
		ActorIDHash: hashString(issuerID),
		EventType:   domain.AuditEventCredentialRevoked,
		Payload: map[string]any{
			"credential_id": credentialID,
			"reason":        reason,
		},
		TargetType: domain.AuditTargetCredential,
		TargetID:   credentialID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitRequestCreated(ctx context.Context, verifierID, requestID, predicateKey string, expiresAt time.Time) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:     domain.AuditSystemScopeID,
		ActorType:   domain.AuditActorVerifier,
		ActorIDHash: hashString(verifierID),
		EventType:   domain.AuditEventRequestCreated,
		Payload: map[string]any{
			"request_id":    requestID,
			"predicate_key": predicateKey,
			"expires_at":    expiresAt.UTC().Format(time.RFC3339),
		},
		TargetType: domain.AuditTargetRequest,
		TargetID:   requestID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitProofSubmitted(ctx context.Context, requestID, proofFingerprint string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:   domain.AuditSystemScopeID,
		ActorType: domain.AuditActorHolder,
		EventType: domain.AuditEventProofSubmitted,
		Payload: map[string]any{
			"request_id":        requestID,
			"proof_fingerprint": proofFingerprint,
		},
		TargetType: domain.AuditTargetRequest,
		TargetID:   requestID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitRequestResolved(ctx context.Context, requestID string, result domain.VerificationResult, proofFingerprint string) error {
	auditResult := domain.AuditResultSuccess
	errorCode := ""
	if !result.Verified {
		auditResult = domain.AuditResultFailure
		errorCode = string(result.Reason)
	}
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:   domain.AuditSystemScopeID,
		ActorType: domain.AuditActorSystem,
		EventType: domain.AuditEventRequestResolved,
		Payload: map[string]any{
			"request_id":        requestID,
			"verified":          result.Verified,
			"proof_fingerprint": proofFingerprint,
		},
		TargetType: domain.AuditTargetRequest,
		TargetID:   requestID,
		Result:     auditResult,
		ErrorCode:  errorCode,
	})
	return err
}

func (e *AuditEmitter) EmitRequestExpired(ctx context.Context, requestID string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:    domain.AuditSystemScopeID,
		ActorType:  domain.AuditActorSystem,
		EventType:  domain.AuditEventRequestExpired,
		Payload:    map[string]any{"request_id": requestID},
		TargetType: domain.AuditTargetRequest,
		TargetID:   requestID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitRequestCancelled(ctx context.Context, verifierID, requestID string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:     domain.AuditSystemScopeID,
		ActorType:   domain.AuditActorVerifier,
		ActorIDHash: hashString(verifierID),
		EventType:   domain.AuditEventRequestCancelled,
		Payload:     map[string]any{"request_id": requestID},
		TargetType:  domain.AuditTargetRequest,
		TargetID:    requestID,
		Result:      domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func hashString(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
