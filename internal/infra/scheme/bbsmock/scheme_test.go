package bbsmock

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"privaseal/internal/domain"
)

func testCredential(t *testing.T, s *Scheme) (domain.Credential, []byte) {
	t.Helper()
	pub, priv, err := s.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	cred := domain.Credential{
		ID:             "cred-1",
		HolderID:       "holder-1",
		IssuerID:       "issuer-1",
		CredentialType: "age_verification",
		Attributes: domain.AttributeSet{
			{Name: "name", Value: "Alice"},
			{Name: "age", Value: "34"},
			{Name: "date_of_birth", Value: "1992-01-15"},
		},
		IssuerPublicKey: pub,
		IssuedAt:        time.Now().UTC(),
	}
	sig, err := s.Sign(cred.ID, cred.Attributes, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	cred.Signature = sig
	return cred, pub
}

func TestDeriveAndVerify(t *testing.T) {
	s := New()
	cred, pub := testCredential(t, s)

	material, err := s.DeriveProof(cred, []string{"name"}, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	payload, err := s.VerifyProof(material, "req-1", pub)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if len(payload.Revealed) != 1 || payload.Revealed["name"] != "Alice" {
		t.Fatalf("revealed = %v, want only name=Alice", payload.Revealed)
	}
	if !payload.PredicateResult {
		t.Fatalf("predicate result lost in transit")
	}
	want := domain.BlindWitness(domain.RevocationWitnessKey(cred.ID), "req-1")
	if payload.RevocationWitness != want {
		t.Fatalf("witness = %q, want %q", payload.RevocationWitness, want)
	}
}

func TestDeriveEmptyRevealSet(t *testing.T) {
	s := New()
	cred, pub := testCredential(t, s)

	material, err := s.DeriveProof(cred, nil, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	payload, err := s.VerifyProof(material, "req-1", pub)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if len(payload.Revealed) != 0 {
		t.Fatalf("revealed = %v, want empty", payload.Revealed)
	}
}

func TestDeriveUnknownAttribute(t *testing.T) {
	s := New()
	cred, _ := testCredential(t, s)

	if _, err := s.DeriveProof(cred, []string{"passport_number"}, true, "req-1"); err == nil {
		t.Fatalf("expected error for attribute outside credential")
	}
}

func TestDeriveRequiresNonce(t *testing.T) {
	s := New()
	cred, _ := testCredential(t, s)

	if _, err := s.DeriveProof(cred, nil, true, ""); err == nil {
		t.Fatalf("expected error for empty nonce")
	}
}

func TestDeriveDeterministicPerNonce(t *testing.T) {
	s := New()
	cred, _ := testCredential(t, s)

	a, err := s.DeriveProof(cred, []string{"age"}, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	b, err := s.DeriveProof(cred, []string{"age"}, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same inputs produced different material")
	}
}

func TestUnlinkableAcrossNonces(t *testing.T) {
	s := New()
	cred, _ := testCredential(t, s)

	a, err := s.DeriveProof(cred, nil, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	b, err := s.DeriveProof(cred, nil, true, "req-2")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}

	var envA, envB map[string]any
	if err := json.Unmarshal(a, &envA); err != nil {
		t.Fatalf("unmarshal a: %v", err)
	}
	if err := json.Unmarshal(b, &envB); err != nil {
		t.Fatalf("unmarshal b: %v", err)
	}
	for _, field := range []string{"tag", "witness", "mac"} {
		if envA[field] == envB[field] {
			t.Fatalf("field %q is identical across nonces: %v", field, envA[field])
		}
	}
}

func TestVerifyWrongNonce(t *testing.T) {
	s := New()
	cred, pub := testCredential(t, s)

	material, err := s.DeriveProof(cred, nil, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	if _, err := s.VerifyProof(material, "req-2", pub); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyWrongIssuerKey(t *testing.T) {
	s := New()
	cred, _ := testCredential(t, s)
	otherPub, _, err := s.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	material, err := s.DeriveProof(cred, nil, true, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	if _, err := s.VerifyProof(material, "req-1", otherPub); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyTamperedEnvelope(t *testing.T) {
	s := New()
	cred, pub := testCredential(t, s)

	material, err := s.DeriveProof(cred, nil, false, "req-1")
	if err != nil {
		t.Fatalf("DeriveProof: %v", err)
	}
	tampered := bytes.Replace(material, []byte(`"predicate_result":false`), []byte(`"predicate_result":true`), 1)
	if bytes.Equal(tampered, material) {
		t.Fatalf("tampering had no effect on material")
	}
	if _, err := s.VerifyProof(tampered, "req-1", pub); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyMalformedMaterial(t *testing.T) {
	s := New()
	_, pub := testCredential(t, s)

	cases := map[string][]byte{
		"not json":      []byte("not-json"),
		"wrong version": []byte(`{"v":"bbs-mock-v0","tag":"t","mac":"m"}`),
		"missing mac":   []byte(`{"v":"bbs-mock-v1","tag":"t"}`),
		"missing tag":   []byte(`{"v":"bbs-mock-v1","mac":"m"}`),
	}
	for name, material := range cases {
		if _, err := s.VerifyProof(material, "req-1", pub); !errors.Is(err, domain.ErrProofMalformed) {
			t.Fatalf("%s: err = %v, want ErrProofMalformed", name, err)
		}
	}
}

func TestKeyPairFromSeed(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	pub1, priv1, err := NewKeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("NewKeyPairFromSeed: %v", err)
	}
	pub2, priv2, err := NewKeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("NewKeyPairFromSeed: %v", err)
	}
	if !bytes.Equal(pub1, pub2) || !bytes.Equal(priv1, priv2) {
		t.Fatalf("same seed produced different keypairs")
	}
	if _, _, err := NewKeyPairFromSeed(seed[:16]); err == nil {
		t.Fatalf("expected error for short seed")
	}
}
