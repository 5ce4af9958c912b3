package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"
)

func TestIssueRejectsInvalidAttributeSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]domain.AttributeSet{
		"empty set":      {},
		"empty name":     {{Name: "", Value: "x"}},
		"duplicate name": {{Name: "age", Value: "30"}, {Name: "age", Value: "31"}},
	}
	for name, attrs := range cases {
		_, err := f.issuance.Issue(ctx, usecase.IssueRequest{
			HolderID:   "holder-1",
			IssuerID:   "issuer-1",
			Attributes: attrs,
		})
		if !errors.Is(err, domain.ErrInvalidAttributeSet) {
			t.Fatalf("%s: err = %v, want ErrInvalidAttributeSet", name, err)
		}
	}
}

func TestIssueUnknownIssuer(t *testing.T) {
	f := newFixture(t)
	_, err := f.issuance.Issue(context.Background(), usecase.IssueRequest{
		HolderID:   "holder-1",
		IssuerID:   "nobody",
		Attributes: domain.AttributeSet{{Name: "age", Value: "30"}},
	})
	if !errors.Is(err, domain.ErrIssuerUnknown) {
		t.Fatalf("err = %v, want ErrIssuerUnknown", err)
	}
}

func TestEnsureIssuerIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.issuance.EnsureIssuer(ctx, "issuer-2")
	if err != nil {
		t.Fatalf("EnsureIssuer: %v", err)
	}
	second, err := f.issuance.EnsureIssuer(ctx, "issuer-2")
	if err != nil {
		t.Fatalf("EnsureIssuer: %v", err)
	}
	if !bytes.Equal(first.PublicKey, second.PublicKey) {
		t.Fatalf("repeated EnsureIssuer rotated the key")
	}
}

func TestCredentialStatusDerivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.issueAgeCredential(t, "34")
	status, err := f.issuance.Status(ctx, active.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != domain.CredentialActive {
		t.Fatalf("status = %s, want active", status)
	}

	expiresAt := f.clock.Now().Add(time.Hour)
	expiring, err := f.issuance.Issue(ctx, usecase.IssueRequest{
		HolderID:   "holder-1",
		IssuerID:   "issuer-1",
		Attributes: domain.AttributeSet{{Name: "age", Value: "34"}},
		ExpiresAt:  &expiresAt,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	status, err = f.issuance.Status(ctx, expiring.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != domain.CredentialExpired {
		t.Fatalf("status = %s, want expired", status)
	}

	// Revocation wins over expiry.
	if _, err := f.revocation.Revoke(ctx, expiring.ID, "superseded"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	status, err = f.issuance.Status(ctx, expiring.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != domain.CredentialRevoked {
		t.Fatalf("status = %s, want revoked", status)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred := f.issueAgeCredential(t, "34")

	first, err := f.revocation.Revoke(ctx, cred.ID, "lost")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if first.AlreadyRevoked {
		t.Fatalf("first revoke reported AlreadyRevoked")
	}
	second, err := f.revocation.Revoke(ctx, cred.ID, "lost again")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !second.AlreadyRevoked {
		t.Fatalf("second revoke not reported as AlreadyRevoked")
	}

	events, err := f.audits.ListByScope(ctx, "issuer-1")
	if err != nil {
		t.Fatalf("ListByScope: %v", err)
	}
	if n := eventTypes(events)[domain.AuditEventCredentialRevoked]; n != 1 {
		t.Fatalf("credential_revoked appeared %d times, want 1", n)
	}
}

func TestIssuerStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.issueAgeCredential(t, "34")
	f.issueAgeCredential(t, "28")
	if _, err := f.issuance.Issue(ctx, usecase.IssueRequest{
		HolderID:       "holder-2",
		IssuerID:       "issuer-1",
		CredentialType: "vaccination",
		Attributes: domain.AttributeSet{
			{Name: "name", Value: "Bob"},
			{Name: "vaccine", Value: "mRNA-X"},
			{Name: "dose_number", Value: "2"},
			{Name: "date_administered", Value: "2025-11-02"},
		},
	}); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := f.revocation.Revoke(ctx, a.ID, "reissued"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	stats, err := f.issuance.Stats(ctx, "issuer-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalIssued != 3 || stats.Revoked != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByType["age_verification"] != 2 || stats.ByType["vaccination"] != 1 {
		t.Fatalf("by_type = %v", stats.ByType)
	}
}

func TestProveHidesUnrevealedAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred := f.issueAgeCredential(t, "34")

	proof, err := f.proofs.Prove(ctx, cred.ID, []string{"name"}, nil, "req-x")
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(proof.RevealedAttributes) != 1 || proof.RevealedAttributes["name"] != "Alice" {
		t.Fatalf("revealed = %v, want only name", proof.RevealedAttributes)
	}
	if !f.proofs.VerifyLocal(ctx, proof) {
		t.Fatalf("VerifyLocal rejected freshly derived proof")
	}
}

func TestProveUnknownRevealAttribute(t *testing.T) {
	f := newFixture(t)
	cred := f.issueAgeCredential(t, "34")
	_, err := f.proofs.Prove(context.Background(), cred.ID, []string{"passport"}, nil, "req-x")
	if !errors.Is(err, domain.ErrAttributeNotPresent) {
		t.Fatalf("err = %v, want ErrAttributeNotPresent", err)
	}
}

func TestProveExpiredCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expiresAt := f.clock.Now().Add(time.Minute)
	cred, err := f.issuance.Issue(ctx, usecase.IssueRequest{
		HolderID:   "holder-1",
		IssuerID:   "issuer-1",
		Attributes: domain.AttributeSet{{Name: "age", Value: "34"}},
		ExpiresAt:  &expiresAt,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	f.clock.Advance(2 * time.Minute)
	if _, err := f.proofs.Prove(ctx, cred.ID, nil, nil, "req-x"); !errors.Is(err, domain.ErrCredentialExpired) {
		t.Fatalf("err = %v, want ErrCredentialExpired", err)
	}
}
