package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"privaseal/internal/domain"

	"github.com/google/uuid"
)

// VerificationService drives the verifier-side request lifecycle:
//
//	created → awaiting_proof → proof_received → verifying → verified|failed
//
// with expired and cancelled as parallel terminals. Every transition out of
// awaiting_proof goes through the repository's compare-and-transition, so at
// most one submission resolves a request no matter how many race.
type VerificationService struct {
	Requests    RequestRepository
	IssuerKeys  IssuerKeyRepository
	Revocations RevocationRepository
	Scheme      domain.SignatureScheme
	Policy      PolicyEngine
	Audit       *AuditEmitter
	Clock       Clock

	TTL        time.Duration
	QRScheme   string
	Predicates []domain.NamedPredicate
}

type CreateRequestInput struct {
	VerifierID   string
	PredicateKey string
	// Predicate, when set, overrides the catalog entry for PredicateKey.
	Predicate *domain.Predicate
}

type CreateRequestOutput struct {
	Request    domain.VerificationRequest `json:"request"`
	BindingURI string                     `json:"binding_uri"`
}

func (s *VerificationService) CreateRequest(ctx context.Context, input CreateRequestInput) (CreateRequestOutput, error) {
	if s == nil || s.Requests == nil {
		return CreateRequestOutput{}, errors.New("request repository is required")
	}
	predicate, err := s.resolvePredicate(input)
	if err != nil {
		return CreateRequestOutput{}, err
	}

	now := s.now().UTC()
	req := domain.VerificationRequest{
		ID:           uuid.NewString(),
		VerifierID:   input.VerifierID,
		PredicateKey: input.PredicateKey,
		Predicate:    predicate,
		Status:       domain.RequestAwaitingProof,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl()),
	}
	if err := s.Requests.Create(ctx, req); err != nil {
		return CreateRequestOutput{}, err
	}
	if s.Audit != nil {
		if err := s.Audit.EmitRequestCreated(ctx, req.VerifierID, req.ID, req.PredicateKey, req.ExpiresAt); err != nil {
			return CreateRequestOutput{}, err
		}
	}
	return CreateRequestOutput{
		Request:    req,
		BindingURI: req.BindingURI(s.QRScheme),
	}, nil
}

// GetRequest returns a snapshot. Reads never block on in-flight
// verification; the only write a read can cause is the lazy expiry
// transition.
func (s *VerificationService) GetRequest(ctx context.Context, requestID string) (domain.VerificationRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	return s.expireLazily(ctx, req)
}

// SubmitProof accepts at most one proof per request. The winning submission
// claims the request with a compare-and-transition out of awaiting_proof;
// every other caller observes RequestAlreadyResolved.
func (s *VerificationService) SubmitProof(ctx context.Context, requestID string, proof domain.Proof) (domain.VerificationRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	req, err = s.expireLazily(ctx, req)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if req.Status == domain.RequestExpired {
		return req, domain.ErrRequestExpired
	}
	if req.Status.Terminal() || req.Status == domain.RequestProofReceived || req.Status == domain.RequestVerifying {
		return req, domain.ErrRequestAlreadyResolved
	}

	claimed := req
	claimed.Status = domain.RequestProofReceived
	ok, err := s.Requests.UpdateStatusFrom(ctx, claimed, domain.RequestAwaitingProof)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if !ok {
		// Lost the race: a concurrent submission or expiry got there first.
		current, loadErr := s.load(ctx, requestID)
		if loadErr != nil {
			return domain.VerificationRequest{}, loadErr
		}
		if current.Status == domain.RequestExpired {
			return current, domain.ErrRequestExpired
		}
		return current, domain.ErrRequestAlreadyResolved
	}
	claimed.Version++

	// Once claimed, the request belongs to this submission; expiry and
	// cancellation only act on awaiting_proof, so these transitions cannot
	// lose a race.
	verifying := claimed
	verifying.Status = domain.RequestVerifying
	ok, err = s.Requests.UpdateStatusFrom(ctx, verifying, domain.RequestProofReceived)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if !ok {
		return domain.VerificationRequest{}, errors.New("verification transition conflict")
	}
	verifying.Version++

	fingerprint := proof.Fingerprint()
	if s.Audit != nil {
		if err := s.Audit.EmitProofSubmitted(ctx, requestID, fingerprint); err != nil {
			return domain.VerificationRequest{}, err
		}
	}

	result := s.evaluate(ctx, verifying, proof)

	resolved := verifying
	resolved.Result = &result
	if result.Verified {
		resolved.Status = domain.RequestVerified
		now := s.now().UTC()
		resolved.VerifiedAt = &now
		resolved.ProofFingerprint = fingerprint
	} else {
		resolved.Status = domain.RequestFailed
	}
	ok, err = s.Requests.UpdateStatusFrom(ctx, resolved, domain.RequestVerifying)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if !ok {
		return domain.VerificationRequest{}, errors.New("verification transition conflict")
	}
	resolved.Version++
	if s.Audit != nil {
		if err := s.Audit.EmitRequestResolved(ctx, requestID, result, fingerprint); err != nil {
			return domain.VerificationRequest{}, err
		}
	}
	return resolved, nil
}

// CancelRequest is the verifier-initiated terminal, kept distinct from
// expiry so the audit trail records who ended the request.
func (s *VerificationService) CancelRequest(ctx context.Context, requestID, verifierID string) (domain.VerificationRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	req, err = s.expireLazily(ctx, req)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if req.Status != domain.RequestAwaitingProof {
		return req, domain.ErrRequestAlreadyResolved
	}
	cancelled := req
	cancelled.Status = domain.RequestCancelled
	ok, err := s.Requests.UpdateStatusFrom(ctx, cancelled, domain.RequestAwaitingProof)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if !ok {
		current, loadErr := s.load(ctx, requestID)
		if loadErr != nil {
			return domain.VerificationRequest{}, loadErr
		}
		return current, domain.ErrRequestAlreadyResolved
	}
	if s.Audit != nil {
		if err := s.Audit.EmitRequestCancelled(ctx, verifierID, requestID); err != nil {
			return domain.VerificationRequest{}, err
		}
	}
	return cancelled, nil
}

func (s *VerificationService) ListRequests(ctx context.Context, filter RequestFilter) ([]domain.VerificationRequest, int64, error) {
	reqs, total, err := s.Requests.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.VerificationRequest, 0, len(reqs))
	for _, req := range reqs {
		expired, err := s.expireLazily(ctx, req)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, expired)
	}
	return out, total, nil
}

type VerifierStats struct {
	TotalRequests int     `json:"total_requests"`
	Verified      int     `json:"verified"`
	Failed        int     `json:"failed"`
	Pending       int     `json:"pending"`
	SuccessRate   float64 `json:"success_rate"`
}

func (s *VerificationService) Stats(ctx context.Context) (VerifierStats, error) {
	reqs, _, err := s.Requests.List(ctx, RequestFilter{})
	if err != nil {
		return VerifierStats{}, err
	}
	stats := VerifierStats{}
	for _, req := range reqs {
		req, err := s.expireLazily(ctx, req)
		if err != nil {
			return VerifierStats{}, err
		}
		stats.TotalRequests++
		switch req.Status {
		case domain.RequestVerified:
			stats.Verified++
		case domain.RequestFailed:
			stats.Failed++
		case domain.RequestAwaitingProof, domain.RequestProofReceived, domain.RequestVerifying:
			stats.Pending++
		}
	}
	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.Verified) / float64(stats.TotalRequests) * 100
	}
	return stats, nil
}

func (s *VerificationService) ListPredicates() []domain.NamedPredicate {
	if len(s.Predicates) > 0 {
		return s.Predicates
	}
	return domain.DefaultPredicates()
}

// evaluate runs the verification pipeline for a claimed request. Checks on
// the proof's content reduce to a coarse failure reason; only revocation and
// predicate outcomes are distinguishable, and which cryptographic check
// failed is never exposed.
func (s *VerificationService) evaluate(ctx context.Context, req domain.VerificationRequest, proof domain.Proof) domain.VerificationResult {
	rejected := domain.VerificationResult{Verified: false, Reason: domain.ReasonProofRejected}

	// Nonce binding: a proof derived for another request is a replay.
	if proof.RequestID != req.ID {
		return rejected
	}
	if s.IssuerKeys == nil || s.Scheme == nil {
		return rejected
	}
	key, err := s.IssuerKeys.Get(ctx, proof.IssuerID)
	if err != nil || key == nil {
		return rejected
	}
	payload, err := s.Scheme.VerifyProof(proof.ProofMaterial, req.ID, key.PublicKey)
	if err != nil {
		return rejected
	}
	if payload.PredicateResult != proof.PredicateResult || len(payload.Revealed) != len(proof.RevealedAttributes) {
		return rejected
	}
	for name, value := range proof.RevealedAttributes {
		if payload.Revealed[name] != value {
			return rejected
		}
	}

	// Revocation is consulted inside every verification, never cached.
	// Errors fail closed.
	if s.Revocations != nil {
		witnessKeys, err := s.Revocations.ListWitnessKeys(ctx)
		if err != nil {
			return rejected
		}
		for _, witnessKey := range witnessKeys {
			if domain.BlindWitness(witnessKey, req.ID) == payload.RevocationWitness {
				return domain.VerificationResult{Verified: false, Reason: domain.ReasonCredentialRevoked}
			}
		}
	}

	// Re-evaluate the predicate over revealed values when they cover it;
	// otherwise trust the scheme-authenticated predicate result.
	result := payload.PredicateResult
	if covered(req.Predicate, payload.Revealed) {
		result = req.Predicate.Evaluate(payload.Revealed)
	}
	if !result {
		return domain.VerificationResult{Verified: false, Reason: domain.ReasonPredicateNotSatisfied}
	}

	if s.Policy != nil {
		eval, err := s.Policy.Evaluate(ctx, domain.PolicyInput{
			IssuerID:        proof.IssuerID,
			PredicateKey:    req.PredicateKey,
			RevealedNames:   revealedNames(payload.Revealed),
			PredicateResult: result,
		})
		if err != nil || !eval.Result.Allow {
			return rejected
		}
	}

	return domain.VerificationResult{Verified: true}
}

func (s *VerificationService) resolvePredicate(input CreateRequestInput) (domain.Predicate, error) {
	if input.Predicate != nil {
		return *input.Predicate, nil
	}
	for _, named := range s.ListPredicates() {
		if named.Key == input.PredicateKey {
			return named.Predicate, nil
		}
	}
	return domain.Predicate{}, fmt.Errorf("%w: %s", domain.ErrUnknownPredicate, input.PredicateKey)
}

func (s *VerificationService) load(ctx context.Context, requestID string) (domain.VerificationRequest, error) {
	req, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.VerificationRequest{}, domain.ErrRequestNotFound
		}
		return domain.VerificationRequest{}, err
	}
	if req == nil {
		return domain.VerificationRequest{}, domain.ErrRequestNotFound
	}
	return *req, nil
}

// expireLazily fires the expiry transition at most once: the compare-and-
// transition decides the winner, and only the winner appends the audit
// entry. Only awaiting_proof expires; a request already claimed by a
// submission resolves on that submission's terms.
func (s *VerificationService) expireLazily(ctx context.Context, req domain.VerificationRequest) (domain.VerificationRequest, error) {
	if req.Status != domain.RequestAwaitingProof || !req.ExpiredAt(s.now()) {
		return req, nil
	}
	expired := req
	expired.Status = domain.RequestExpired
	ok, err := s.Requests.UpdateStatusFrom(ctx, expired, domain.RequestAwaitingProof)
	if err != nil {
		return domain.VerificationRequest{}, err
	}
	if !ok {
		return s.load(ctx, req.ID)
	}
	if s.Audit != nil {
		if err := s.Audit.EmitRequestExpired(ctx, req.ID); err != nil {
			return domain.VerificationRequest{}, err
		}
	}
	return expired, nil
}

func (s *VerificationService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 10 * time.Minute
}

func (s *VerificationService) now() time.Time {
	if s != nil && s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func covered(p domain.Predicate, revealed map[string]string) bool {
	names := p.Attributes()
	if len(names) == 0 {
		return false
	}
	for _, name := range names {
		if _, ok := revealed[name]; !ok {
			return false
		}
	}
	return true
}

func revealedNames(revealed map[string]string) []string {
	names := make([]string, 0, len(revealed))
	for name := range revealed {
		names = append(names, name)
	}
	return names
}
