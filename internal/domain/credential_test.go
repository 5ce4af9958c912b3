package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAttributeSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     AttributeSet
		wantErr bool
	}{
		{"valid", AttributeSet{{Name: "age", Value: "25"}, {Name: "name", Value: "A"}}, false},
		{"empty set", AttributeSet{}, true},
		{"empty name", AttributeSet{{Name: "", Value: "x"}}, true},
		{"duplicate name", AttributeSet{{Name: "age", Value: "25"}, {Name: "age", Value: "26"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidAttributeSet) {
				t.Fatalf("expected ErrInvalidAttributeSet, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCredentialExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if (Credential{}).ExpiredAt(now) {
		t.Fatal("credential without expires_at never expires")
	}
	if (Credential{ExpiresAt: &future}).ExpiredAt(now) {
		t.Fatal("credential expiring in the future is not expired")
	}
	if !(Credential{ExpiresAt: &past}).ExpiredAt(now) {
		t.Fatal("credential past expires_at is expired")
	}
}

func TestRequestExpiredAtAndTerminal(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := VerificationRequest{Status: RequestAwaitingProof, ExpiresAt: now.Add(-time.Second)}
	if !req.ExpiredAt(now) {
		t.Fatal("request past expires_at should report expired")
	}

	terminals := []RequestStatus{RequestVerified, RequestFailed, RequestExpired, RequestCancelled}
	for _, status := range terminals {
		if !status.Terminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []RequestStatus{RequestCreated, RequestAwaitingProof, RequestProofReceived, RequestVerifying} {
		if status.Terminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}

func TestBindingURICarriesOnlyRequestID(t *testing.T) {
	req := VerificationRequest{ID: "req-123", PredicateKey: "age_gt_21"}
	uri := req.BindingURI("privaseal")
	if uri != "privaseal://verify?req=req-123" {
		t.Fatalf("unexpected binding uri: %s", uri)
	}
}
