package domain

import "time"

type AuditActorType string

const (
	// AuditSystemScopeID is the reserved scope for events not tied to a
	// specific issuer chain.
	AuditSystemScopeID = "__system__"
	AuditChainVersion  = "audit_chain_v0"

	AuditActorSystem   AuditActorType = "system"
	AuditActorIssuer   AuditActorType = "issuer"
	AuditActorHolder   AuditActorType = "holder"
	AuditActorVerifier AuditActorType = "verifier"
)

type AuditEventType string

const (
	AuditEventCredentialIssued  AuditEventType = "credential_issued"
	AuditEventCredentialRevoked AuditEventType = "credential_revoked"
	AuditEventRequestCreated    AuditEventType = "request_created"
	AuditEventProofSubmitted    AuditEventType = "proof_submitted"
	AuditEventRequestResolved   AuditEventType = "request_resolved"
	AuditEventRequestExpired    AuditEventType = "request_expired"
	AuditEventRequestCancelled  AuditEventType = "request_cancelled"
)

type AuditTargetType string

const (
	AuditTargetCredential AuditTargetType = "credential"
	AuditTargetRequest    AuditTargetType = "request"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditEvent is one link in the append-only, hash-chained trail. Payloads
// carry identifiers and hashes only, never raw attribute values.
type AuditEvent struct {
	ID            string
	ScopeID       string
	Seq           int64
	EventType     AuditEventType
	Payload       any
	PayloadHash   string
	ActorType     AuditActorType
	ActorIDHash   string
	TargetType    AuditTargetType
	TargetID      string
	Result        AuditResult
	ErrorCode     string
	PrevEventHash string
	EventHash     string
	CreatedAt     time.Time
}
