package policy

import (
	"context"
	"testing"

	"privaseal/internal/domain"
)

const testModule = `package privaseal.verify

import rego.v1

default result := {"allow": false, "deny": [{"code": "default_deny"}]}

result := {"allow": true, "deny": []} if {
	count(deny) == 0
}

result := {"allow": false, "deny": deny} if {
	count(deny) > 0
}

trusted_issuers := {"issuer-1", "issuer-2"}

deny contains {"code": "issuer_not_trusted", "message": input.issuer_id} if {
	not trusted_issuers[input.issuer_id]
}

deny contains {"code": "predicate_not_satisfied"} if {
	not input.predicate_result
}
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngineFromModule(context.Background(), testModule, "test-bundle")
	if err != nil {
		t.Fatalf("NewEngineFromModule: %v", err)
	}
	return engine
}

func TestEvaluateAllow(t *testing.T) {
	engine := newTestEngine(t)
	eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		IssuerID:        "issuer-1",
		PredicateKey:    "age_gt_21",
		RevealedNames:   []string{},
		PredicateResult: true,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !eval.Result.Allow {
		t.Fatalf("result = %+v, want allow", eval.Result)
	}
	if eval.BundleID != "test-bundle" || eval.BundleHash == "" {
		t.Fatalf("bundle metadata missing: %+v", eval)
	}
}

func TestEvaluateDeniesUntrustedIssuer(t *testing.T) {
	engine := newTestEngine(t)
	eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		IssuerID:        "issuer-evil",
		PredicateResult: true,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Result.Allow {
		t.Fatalf("untrusted issuer allowed")
	}
	if len(eval.Result.Deny) != 1 || eval.Result.Deny[0].Code != "issuer_not_trusted" {
		t.Fatalf("deny = %+v", eval.Result.Deny)
	}
}

func TestEvaluateDenyReasonsAreSorted(t *testing.T) {
	engine := newTestEngine(t)
	eval, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		IssuerID:        "issuer-evil",
		PredicateResult: false,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(eval.Result.Deny) != 2 {
		t.Fatalf("deny = %+v, want two reasons", eval.Result.Deny)
	}
	if eval.Result.Deny[0].Code != "issuer_not_trusted" || eval.Result.Deny[1].Code != "predicate_not_satisfied" {
		t.Fatalf("deny order = %+v", eval.Result.Deny)
	}
}

func TestBundleHashStablePerModule(t *testing.T) {
	a := newTestEngine(t)
	b := newTestEngine(t)
	if a.BundleHash() != b.BundleHash() {
		t.Fatalf("hashes differ for identical modules")
	}
}
