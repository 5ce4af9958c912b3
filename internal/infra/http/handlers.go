package http

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type issueCredentialRequest struct {
	HolderID       string            `json:"holder_id"`
	IssuerID       string            `json:"issuer_id"`
	CredentialType string            `json:"credential_type"`
	Attributes     map[string]string `json:"attributes"`
	ExpiresAt      string            `json:"expires_at,omitempty"`
}

type revokeCredentialRequest struct {
	Reason string `json:"reason,omitempty"`
}

type proveRequest struct {
	CredentialID string            `json:"credential_id"`
	Reveal       []string          `json:"reveal"`
	Predicate    *domain.Predicate `json:"predicate,omitempty"`
	PredicateKey string            `json:"predicate_key,omitempty"`
	RequestID    string            `json:"request_id"`
}

type createRequestRequest struct {
	VerifierID   string            `json:"verifier_id"`
	PredicateKey string            `json:"predicate_key"`
	Predicate    *domain.Predicate `json:"predicate,omitempty"`
}

type cancelRequestRequest struct {
	VerifierID string `json:"verifier_id,omitempty"`
}

type issuerKeyResponse struct {
	IssuerID  string `json:"issuer_id"`
	Alg       string `json:"alg"`
	PublicKey string `json:"public_key"`
	CreatedAt string `json:"created_at"`
}

type requestListResponse struct {
	Requests []domain.VerificationRequest `json:"requests"`
	Total    int64                        `json:"total"`
	Page     int                          `json:"page"`
	PerPage  int                          `json:"per_page"`
}

type auditEventResponse struct {
	ID            string `json:"id"`
	ScopeID       string `json:"scope_id"`
	Seq           int64  `json:"seq"`
	EventType     string `json:"event_type"`
	Payload       any    `json:"payload"`
	PayloadHash   string `json:"payload_hash"`
	ActorType     string `json:"actor_type"`
	ActorIDHash   string `json:"actor_id_hash,omitempty"`
	TargetType    string `json:"target_type"`
	TargetID      string `json:"target_id,omitempty"`
	Result        string `json:"result"`
	ErrorCode     string `json:"error_code,omitempty"`
	PrevEventHash string `json:"prev_event_hash"`
	EventHash     string `json:"event_hash"`
	CreatedAt     string `json:"created_at"`
}

func (s *Server) handleEnsureIssuer(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.issuance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	issuerID := c.Param("issuer_id")
	key, err := s.issuance.EnsureIssuer(c.Request.Context(), issuerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, issuerKeyResponse{
		IssuerID:  key.IssuerID,
		Alg:       key.Alg,
		PublicKey: base64.StdEncoding.EncodeToString(key.PublicKey),
		CreatedAt: key.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIssueCredential(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.issuance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req issueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	names := make([]string, 0, len(req.Attributes))
	for name := range req.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	attrs := domain.AttributeSetFromMap(req.Attributes, names)
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ATTRIBUTE_SET", "invalid expires_at")
			return
		}
		parsed = parsed.UTC()
		expiresAt = &parsed
	}
	cred, err := s.issuance.Issue(c.Request.Context(), usecase.IssueRequest{
		HolderID:       req.HolderID,
		IssuerID:       req.IssuerID,
		CredentialType: req.CredentialType,
		Attributes:     attrs,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cred)
}

func (s *Server) handleListCredentials(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.issuance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	holderID := c.Query("holder_id")
	issuerID := c.Query("issuer_id")
	var (
		creds []domain.Credential
		err   error
	)
	switch {
	case holderID != "":
		creds, err = s.issuance.Credentials.ListByHolder(c.Request.Context(), holderID)
	case issuerID != "":
		creds, err = s.issuance.Credentials.ListByIssuer(c.Request.Context(), issuerID)
	default:
		writeErrorCode(c, http.StatusBadRequest, "INVALID_QUERY", "holder_id or issuer_id is required")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}

func (s *Server) handleGetCredential(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.issuance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	cred, err := s.issuance.Get(c.Request.Context(), c.Param("credential_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (s *Server) handleCredentialStatus(c *gin.Context) {
	if s.issuance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	status, err := s.issuance.Status(c.Request.Context(), c.Param("credential_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"credential_id": c.Param("credential_id"),
		"status":        status,
	})
}

func (s *Server) handleRevokeCredential(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.revocation == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	// Body is optional; reason defaults to empty.
	var req revokeCredentialRequest
	_ = c.ShouldBindJSON(&req)
	outcome, err := s.revocation.Revoke(c.Request.Context(), c.Param("credential_id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleIssuerStats(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.issuance == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	issuerID := c.Query("issuer_id")
	if issuerID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_QUERY", "issuer_id is required")
		return
	}
	stats, err := s.issuance.Stats(c.Request.Context(), issuerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleProve(c *gin.Context) {
	if s.proofs == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req proveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	predicate, err := s.resolveProvePredicate(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	proof, err := s.proofs.Prove(c.Request.Context(), req.CredentialID, req.Reveal, predicate, req.RequestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proof)
}

// resolveProvePredicate picks the predicate for a proof: inline wins, then a
// catalog key, then the predicate bound to the target request.
func (s *Server) resolveProvePredicate(c *gin.Context, req proveRequest) (*domain.Predicate, error) {
	if req.Predicate != nil {
		return req.Predicate, nil
	}
	if req.PredicateKey != "" {
		catalog := domain.DefaultPredicates()
		if s.verification != nil {
			catalog = s.verification.ListPredicates()
		}
		for _, named := range catalog {
			if named.Key == req.PredicateKey {
				p := named.Predicate
				return &p, nil
			}
		}
		return nil, domain.ErrUnknownPredicate
	}
	if req.RequestID != "" && s.verification != nil {
		verReq, err := s.verification.GetRequest(c.Request.Context(), req.RequestID)
		if err != nil {
			return nil, err
		}
		p := verReq.Predicate
		return &p, nil
	}
	return nil, nil
}

func (s *Server) handleCreateRequest(c *gin.Context) {
	if !s.enforceRateLimit(c, "requests:create") {
		return
	}
	if s.verification == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	out, err := s.verification.CreateRequest(c.Request.Context(), usecase.CreateRequestInput{
		VerifierID:   req.VerifierID,
		PredicateKey: req.PredicateKey,
		Predicate:    req.Predicate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) handleListRequests(c *gin.Context) {
	if s.verification == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	filter := usecase.RequestFilter{
		Status:       domain.RequestStatus(c.Query("status")),
		PredicateKey: c.Query("predicate_key"),
		Page:         queryInt(c, "page", 1),
		PerPage:      queryInt(c, "per_page", 20),
	}
	reqs, total, err := s.verification.ListRequests(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requestListResponse{
		Requests: reqs,
		Total:    total,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	})
}

func (s *Server) handleGetRequest(c *gin.Context) {
	if s.verification == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	req, err := s.verification.GetRequest(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) handleSubmitProof(c *gin.Context) {
	if !s.enforceRateLimit(c, "requests:proof") {
		return
	}
	if s.verification == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var proof domain.Proof
	if err := c.ShouldBindJSON(&proof); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	requestID := c.Param("request_id")
	if proof.RequestID == "" {
		proof.RequestID = requestID
	}
	req, err := s.verification.SubmitProof(c.Request.Context(), requestID, proof)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) handleCancelRequest(c *gin.Context) {
	if s.verification == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	// Body is optional; an absent verifier_id only blanks the audit actor.
	var req cancelRequestRequest
	_ = c.ShouldBindJSON(&req)
	out, err := s.verification.CancelRequest(c.Request.Context(), c.Param("request_id"), req.VerifierID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleVerifierStats(c *gin.Context) {
	if s.verification == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	stats, err := s.verification.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListPredicates(c *gin.Context) {
	catalog := domain.DefaultPredicates()
	if s.verification != nil {
		catalog = s.verification.ListPredicates()
	}
	c.JSON(http.StatusOK, gin.H{"predicates": catalog})
}

func (s *Server) handleListAuditEvents(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.auditRepo == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	events, err := s.auditRepo.ListByScope(c.Request.Context(), c.Param("scope_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, auditEventResponse{
			ID:            event.ID,
			ScopeID:       event.ScopeID,
			Seq:           event.Seq,
			EventType:     string(event.EventType),
			Payload:       event.Payload,
			PayloadHash:   event.PayloadHash,
			ActorType:     string(event.ActorType),
			ActorIDHash:   event.ActorIDHash,
			TargetType:    string(event.TargetType),
			TargetID:      event.TargetID,
			Result:        string(event.Result),
			ErrorCode:     event.ErrorCode,
			PrevEventHash: event.PrevEventHash,
			EventHash:     event.EventHash,
			CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return def
	}
	return parsed
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidAttributeSet):
		status, code = http.StatusBadRequest, "INVALID_ATTRIBUTE_SET"
	case errors.Is(err, domain.ErrAttributeNotPresent):
		status, code = http.StatusBadRequest, "ATTRIBUTE_NOT_PRESENT"
	case errors.Is(err, domain.ErrCredentialExpired):
		status, code = http.StatusBadRequest, "CREDENTIAL_EXPIRED"
	case errors.Is(err, domain.ErrCredentialRevoked):
		status, code = http.StatusBadRequest, "CREDENTIAL_REVOKED"
	case errors.Is(err, domain.ErrProofMalformed):
		status, code = http.StatusBadRequest, "PROOF_MALFORMED"
	case errors.Is(err, domain.ErrSignatureInvalid):
		status, code = http.StatusBadRequest, "SIGNATURE_INVALID"
	case errors.Is(err, domain.ErrUnknownPredicate):
		status, code = http.StatusBadRequest, "UNKNOWN_PREDICATE"
	case errors.Is(err, domain.ErrIssuerUnknown):
		status, code = http.StatusBadRequest, "ISSUER_UNKNOWN"
	case errors.Is(err, domain.ErrRequestNotFound):
		status, code = http.StatusNotFound, "REQUEST_NOT_FOUND"
	case errors.Is(err, domain.ErrRequestExpired):
		status, code = http.StatusGone, "REQUEST_EXPIRED"
	case errors.Is(err, domain.ErrRequestAlreadyResolved):
		status, code = http.StatusConflict, "REQUEST_ALREADY_RESOLVED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
