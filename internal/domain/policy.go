package domain

// PolicyInput is what the verification pipeline hands to an optional policy
// engine before resolving a request. It carries protocol metadata only:
// revealed attribute names, never values.
type PolicyInput struct {
	IssuerID        string   `json:"issuer_id"`
	PredicateKey    string   `json:"predicate_key"`
	RevealedNames   []string `json:"revealed_names"`
	PredicateResult bool     `json:"predicate_result"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
