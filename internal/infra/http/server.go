package http

import (
	"context"
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"privaseal/internal/config"
	"privaseal/internal/domain"
	"privaseal/internal/infra/credschema"
	"privaseal/internal/infra/db"
	"privaseal/internal/infra/memstore"
	"privaseal/internal/infra/policy"
	"privaseal/internal/infra/queue"
	"privaseal/internal/infra/ratelimit"
	"privaseal/internal/infra/scheme/bbsmock"
	"privaseal/internal/usecase"

	"github.com/gin-gonic/gin"
)

// defaultIssuerID is the issuer registered from ISSUER_SEED_HEX at startup.
const defaultIssuerID = "default"

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	issuance     *usecase.IssuanceService
	proofs       *usecase.ProofEngine
	verification *usecase.VerificationService
	revocation   *usecase.RevocationService
	audit        *usecase.AuditEmitter
	auditRepo    usecase.AuditEventRepository

	adminAPIKey string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Issuance     *usecase.IssuanceService
	Proofs       *usecase.ProofEngine
	Verification *usecase.VerificationService
	Revocation   *usecase.RevocationService
	Audit        *usecase.AuditEmitter
	AuditRepo    usecase.AuditEventRepository
	AdminAPIKey  string
	RateLimiter  domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:          cfg,
		r:            r,
		issuance:     deps.Issuance,
		proofs:       deps.Proofs,
		verification: deps.Verification,
		revocation:   deps.Revocation,
		audit:        deps.Audit,
		auditRepo:    deps.AuditRepo,
		adminAPIKey:  deps.AdminAPIKey,
	}
	if s.auditRepo == nil && deps.Audit != nil {
		s.auditRepo = deps.Audit.Repo
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	scheme := bbsmock.New()

	var (
		credRepo  usecase.CredentialRepository
		keyRepo   usecase.IssuerKeyRepository
		reqRepo   usecase.RequestRepository
		revRepo   usecase.RevocationRepository
		auditRepo usecase.AuditEventRepository
	)
	if s.store != nil && s.store.DB != nil {
		credRepo = db.NewCredentialRepository(s.store.DB)
		keyRepo = db.NewIssuerKeyRepository(s.store.DB)
		reqRepo = db.NewRequestRepository(s.store.DB)
		revRepo = db.NewRevocationRepository(s.store.DB)
		auditRepo = db.NewAuditEventRepository(s.store.DB)
	} else {
		credRepo = memstore.NewCredentials()
		keyRepo = memstore.NewIssuerKeys()
		reqRepo = memstore.NewRequests()
		revRepo = memstore.NewRevocations()
		auditRepo = memstore.NewAuditEvents()
	}
	s.auditRepo = auditRepo

	var sink usecase.AuditSink
	if s.cfg.AMQPURL != "" {
		publisher, err := queue.NewPublisher(s.cfg.AMQPURL, s.cfg.AMQPExchange, s.cfg.AMQPQueue, s.cfg.AMQPRoutingKey)
		if err != nil {
			log.Printf("audit sink unavailable: %v", err)
		} else {
			sink = publisher
		}
	}
	s.audit = &usecase.AuditEmitter{Repo: auditRepo, Sink: sink}

	var validator usecase.AttributeValidator
	if v, err := credschema.NewValidator(); err != nil {
		log.Printf("credential schema validator unavailable: %v", err)
	} else {
		validator = v
	}

	var policyEngine usecase.PolicyEngine
	if s.cfg.PredicatePolicyBundle != "" {
		engine, err := policy.NewEngineFromBundlePath(context.Background(), s.cfg.PredicatePolicyBundle, "verify-policy")
		if err != nil {
			log.Fatalf("load policy bundle: %v", err)
		}
		policyEngine = engine
	}

	s.issuance = &usecase.IssuanceService{
		Credentials: credRepo,
		IssuerKeys:  keyRepo,
		Revocations: revRepo,
		Scheme:      scheme,
		Validator:   validator,
		Audit:       s.audit,
	}
	s.proofs = &usecase.ProofEngine{
		Credentials: credRepo,
		IssuerKeys:  keyRepo,
		Scheme:      scheme,
	}
	s.verification = &usecase.VerificationService{
		Requests:    reqRepo,
		IssuerKeys:  keyRepo,
		Revocations: revRepo,
		Scheme:      scheme,
		Policy:      policyEngine,
		Audit:       s.audit,
		TTL:         s.cfg.RequestTTL(),
		QRScheme:    s.cfg.QRScheme,
	}
	s.revocation = &usecase.RevocationService{
		Revocations: revRepo,
		Credentials: credRepo,
		Audit:       s.audit,
	}

	if s.cfg.IssuerSeedHex != "" {
		if err := s.registerSeededIssuer(keyRepo); err != nil {
			log.Fatalf("register seeded issuer: %v", err)
		}
	}

	s.initRateLimit(nil)
}

// registerSeededIssuer installs a deterministic keypair for the default
// issuer so restarts keep verifying credentials issued before them.
func (s *Server) registerSeededIssuer(keys usecase.IssuerKeyRepository) error {
	seed, err := hex.DecodeString(s.cfg.IssuerSeedHex)
	if err != nil {
		return err
	}
	pub, priv, err := bbsmock.NewKeyPairFromSeed(seed)
	if err != nil {
		return err
	}
	return keys.Put(context.Background(), domain.IssuerKey{
		IssuerID:   defaultIssuerID,
		Alg:        "bbs-mock",
		PublicKey:  pub,
		PrivateKey: priv,
		CreatedAt:  time.Now().UTC(),
	})
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/issuers/:issuer_id", s.handleEnsureIssuer)
		v1.POST("/credentials", s.handleIssueCredential)
		v1.GET("/credentials", s.handleListCredentials)
		v1.GET("/credentials/:credential_id", s.handleGetCredential)
		v1.GET("/credentials/:credential_id/status", s.handleCredentialStatus)
		v1.POST("/credentials/:credential_id/revoke", s.handleRevokeCredential)
		v1.GET("/issuer/stats", s.handleIssuerStats)

		v1.POST("/proofs", s.handleProve)

		v1.POST("/requests", s.handleCreateRequest)
		v1.GET("/requests", s.handleListRequests)
		v1.GET("/requests/:request_id", s.handleGetRequest)
		v1.POST("/requests/:request_id/proof", s.handleSubmitProof)
		v1.POST("/requests/:request_id/cancel", s.handleCancelRequest)
		v1.GET("/verifier/stats", s.handleVerifierStats)
		v1.GET("/predicates", s.handleListPredicates)

		v1.GET("/audit/:scope_id", s.handleListAuditEvents)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
