package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"
)

func newRequest(id string, status domain.RequestStatus, createdAt time.Time) domain.VerificationRequest {
	return domain.VerificationRequest{
		ID:           id,
		VerifierID:   "verifier-1",
		PredicateKey: "age_gt_21",
		Status:       status,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(10 * time.Minute),
	}
}

func TestRequestsUpdateStatusFromGuards(t *testing.T) {
	ctx := context.Background()
	store := NewRequests()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := newRequest("req-1", domain.RequestAwaitingProof, base)
	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	claimed := req
	claimed.Status = domain.RequestProofReceived
	ok, err := store.UpdateStatusFrom(ctx, claimed, domain.RequestAwaitingProof)
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}

	// Same guard again: the stored status and version have both moved on.
	ok, err = store.UpdateStatusFrom(ctx, claimed, domain.RequestAwaitingProof)
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if ok {
		t.Fatalf("stale transition succeeded")
	}

	stored, err := store.GetByID(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.RequestProofReceived || stored.Version != 1 {
		t.Fatalf("stored = status %s version %d", stored.Status, stored.Version)
	}

	// Missing rows are a failed guard, not an error.
	ghost := newRequest("ghost", domain.RequestExpired, base)
	ok, err = store.UpdateStatusFrom(ctx, ghost, domain.RequestAwaitingProof)
	if err != nil || ok {
		t.Fatalf("missing row: ok=%v err=%v", ok, err)
	}
}

func TestRequestsGetByIDNotFound(t *testing.T) {
	store := NewRequests()
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRequestsListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewRequests()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := domain.RequestAwaitingProof
		if i%2 == 1 {
			status = domain.RequestVerified
		}
		req := newRequest(fmt.Sprintf("req-%d", i), status, base.Add(time.Duration(i)*time.Minute))
		if err := store.Create(ctx, req); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	verified, total, err := store.List(ctx, usecase.RequestFilter{Status: domain.RequestVerified})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(verified) != 2 {
		t.Fatalf("total=%d len=%d, want 2 and 2", total, len(verified))
	}

	page, total, err := store.List(ctx, usecase.RequestFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("total=%d len=%d, want 5 and 2", total, len(page))
	}
	// Newest first: page 2 of 2-per-page holds req-2 and req-1.
	if page[0].ID != "req-2" || page[1].ID != "req-1" {
		t.Fatalf("page = [%s %s]", page[0].ID, page[1].ID)
	}
}

func TestRevocationsIdempotentAndWitnessKeys(t *testing.T) {
	ctx := context.Background()
	store := NewRevocations()
	rev := domain.Revocation{
		CredentialID: "cred-1",
		WitnessKey:   domain.RevocationWitnessKey("cred-1"),
		RevokedAt:    time.Now().UTC(),
	}

	created, err := store.Revoke(ctx, rev)
	if err != nil || !created {
		t.Fatalf("first revoke: created=%v err=%v", created, err)
	}
	created, err = store.Revoke(ctx, rev)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if created {
		t.Fatalf("second revoke reported created")
	}

	revoked, err := store.IsRevoked(ctx, "cred-1")
	if err != nil || !revoked {
		t.Fatalf("IsRevoked: revoked=%v err=%v", revoked, err)
	}
	keys, err := store.ListWitnessKeys(ctx)
	if err != nil {
		t.Fatalf("ListWitnessKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != rev.WitnessKey {
		t.Fatalf("keys = %v", keys)
	}
}

func TestIssuerKeysFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewIssuerKeys()
	first := domain.IssuerKey{IssuerID: "issuer-1", Alg: "bbs-mock", PublicKey: []byte{1}}
	second := domain.IssuerKey{IssuerID: "issuer-1", Alg: "bbs-mock", PublicKey: []byte{2}}

	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	key, err := store.Get(ctx, "issuer-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(key.PublicKey) != 1 || key.PublicKey[0] != 1 {
		t.Fatalf("second Put replaced the key")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrIssuerUnknown) {
		t.Fatalf("err = %v, want ErrIssuerUnknown", err)
	}
}
