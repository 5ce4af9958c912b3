// Package memstore provides in-memory repository implementations backing the
// no-database mode and the test suites. Semantics mirror the postgres
// repositories, including the compare-and-transition guard on requests and
// the per-scope audit hash chain.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"
)

type Credentials struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

func NewCredentials() *Credentials {
	return &Credentials{creds: make(map[string]domain.Credential)}
}

func (s *Credentials) Create(ctx context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.ID] = cloneCredential(cred)
	return nil
}

func (s *Credentials) GetByID(ctx context.Context, credentialID string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[credentialID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneCredential(cred)
	return &out, nil
}

func (s *Credentials) ListByHolder(ctx context.Context, holderID string) ([]domain.Credential, error) {
	return s.list(func(c domain.Credential) bool { return c.HolderID == holderID })
}

func (s *Credentials) ListByIssuer(ctx context.Context, issuerID string) ([]domain.Credential, error) {
	return s.list(func(c domain.Credential) bool { return c.IssuerID == issuerID })
}

func (s *Credentials) list(match func(domain.Credential) bool) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Credential, 0)
	for _, cred := range s.creds {
		if match(cred) {
			out = append(out, cloneCredential(cred))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func cloneCredential(cred domain.Credential) domain.Credential {
	out := cred
	out.Attributes = append(domain.AttributeSet(nil), cred.Attributes...)
	out.Signature = append([]byte(nil), cred.Signature...)
	out.IssuerPublicKey = append([]byte(nil), cred.IssuerPublicKey...)
	if cred.ExpiresAt != nil {
		t := *cred.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

type IssuerKeys struct {
	mu   sync.RWMutex
	keys map[string]domain.IssuerKey
}

func NewIssuerKeys() *IssuerKeys {
	return &IssuerKeys{keys: make(map[string]domain.IssuerKey)}
}

func (s *IssuerKeys) Get(ctx context.Context, issuerID string) (*domain.IssuerKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[issuerID]
	if !ok {
		return nil, domain.ErrIssuerUnknown
	}
	out := key
	return &out, nil
}

// Put keeps the first key registered for an issuer, matching the
// ON CONFLICT DO NOTHING insert in the postgres repository.
func (s *IssuerKeys) Put(ctx context.Context, key domain.IssuerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.IssuerID]; ok {
		return nil
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	s.keys[key.IssuerID] = key
	return nil
}

type Requests struct {
	mu   sync.Mutex
	reqs map[string]domain.VerificationRequest
}

func NewRequests() *Requests {
	return &Requests{reqs: make(map[string]domain.VerificationRequest)}
}

func (s *Requests) Create(ctx context.Context, req domain.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs[req.ID] = cloneRequest(req)
	return nil
}

func (s *Requests) GetByID(ctx context.Context, requestID string) (*domain.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneRequest(req)
	return &out, nil
}

func (s *Requests) List(ctx context.Context, filter usecase.RequestFilter) ([]domain.VerificationRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]domain.VerificationRequest, 0)
	for _, req := range s.reqs {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.PredicateKey != "" && req.PredicateKey != filter.PredicateKey {
			continue
		}
		matched = append(matched, cloneRequest(req))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return []domain.VerificationRequest{}, total, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Requests) UpdateStatusFrom(ctx context.Context, req domain.VerificationRequest, from domain.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.reqs[req.ID]
	if !ok {
		return false, nil
	}
	if current.Status != from || current.Version != req.Version {
		return false, nil
	}
	next := cloneRequest(req)
	next.Version = current.Version + 1
	s.reqs[req.ID] = next
	return true, nil
}

func cloneRequest(req domain.VerificationRequest) domain.VerificationRequest {
	out := req
	if req.VerifiedAt != nil {
		t := *req.VerifiedAt
		out.VerifiedAt = &t
	}
	if req.Result != nil {
		r := *req.Result
		out.Result = &r
	}
	return out
}

type Revocations struct {
	mu      sync.RWMutex
	revoked map[string]domain.Revocation
}

func NewRevocations() *Revocations {
	return &Revocations{revoked: make(map[string]domain.Revocation)}
}

func (s *Revocations) Revoke(ctx context.Context, rev domain.Revocation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[rev.CredentialID]; ok {
		return false, nil
	}
	s.revoked[rev.CredentialID] = rev
	return true, nil
}

func (s *Revocations) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[credentialID]
	return ok, nil
}

func (s *Revocations) ListWitnessKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.revoked))
	for _, rev := range s.revoked {
		out = append(out, rev.WitnessKey)
	}
	sort.Strings(out)
	return out, nil
}

var (
	_ usecase.CredentialRepository = (*Credentials)(nil)
	_ usecase.IssuerKeyRepository  = (*IssuerKeys)(nil)
	_ usecase.RequestRepository    = (*Requests)(nil)
	_ usecase.RevocationRepository = (*Revocations)(nil)
)
