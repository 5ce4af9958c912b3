package db

import "time"

type CredentialModel struct {
	ID              string     `gorm:"type:uuid;primaryKey"`
	HolderID        string     `gorm:"index;not null"`
	IssuerID        string     `gorm:"index;not null"`
	CredentialType  string     `gorm:"index"`
	AttributesJSON  []byte     `gorm:"type:jsonb;not null"`
	Signature       []byte     `gorm:"type:bytea;not null"`
	IssuerPublicKey []byte     `gorm:"type:bytea;not null"`
	IssuedAt        time.Time  `gorm:"not null"`
	ExpiresAt       *time.Time
	CreatedAt       time.Time  `gorm:"not null"`
}

func (CredentialModel) TableName() string { return "credentials" }

type IssuerKeyModel struct {
	IssuerID   string    `gorm:"primaryKey"`
	Alg        string    `gorm:"not null"`
	PublicKey  []byte    `gorm:"type:bytea;not null"`
	PrivateKey []byte    `gorm:"type:bytea;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (IssuerKeyModel) TableName() string { return "issuer_keys" }

type RequestModel struct {
	ID               string     `gorm:"type:uuid;primaryKey"`
	VerifierID       string     `gorm:"index"`
	PredicateKey     string     `gorm:"index"`
	PredicateJSON    []byte     `gorm:"type:jsonb;not null"`
	Status           string     `gorm:"index;not null"`
	CreatedAt        time.Time  `gorm:"not null"`
	ExpiresAt        time.Time  `gorm:"not null"`
	VerifiedAt       *time.Time
	ResultJSON       []byte     `gorm:"type:jsonb"`
	ProofFingerprint string
	Version          int64 `gorm:"not null;default:0"`
}

func (RequestModel) TableName() string { return "verification_requests" }

type RevocationModel struct {
	CredentialID string `gorm:"primaryKey"`
	WitnessKey   string `gorm:"uniqueIndex;not null"`
	Reason       string
	RevokedAt    time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (RevocationModel) TableName() string { return "revocations" }

type AuditEventModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	ScopeID       string `gorm:"index;not null"`
	Seq           int64  `gorm:"index;not null"`
	EventType     string `gorm:"index;not null"`
	PayloadJSON   []byte `gorm:"type:jsonb;not null"`
	PayloadHash   string `gorm:"not null"`
	ActorType     string `gorm:"not null"`
	ActorIDHash   *string
	TargetType    string `gorm:"not null"`
	TargetID      *string
	Result        string `gorm:"not null"`
	ErrorCode     *string
	PrevEventHash string    `gorm:"not null"`
	EventHash     string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }

type AuditSeqModel struct {
	ScopeID string `gorm:"primaryKey"`
	Seq     int64  `gorm:"not null"`
}

func (AuditSeqModel) TableName() string { return "audit_scope_seq" }
