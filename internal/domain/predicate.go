package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type PredicateType string

const (
	PredicateEqual        PredicateType = "EQUAL"
	PredicateNotEqual     PredicateType = "NOT_EQUAL"
	PredicateGreaterThan  PredicateType = "GREATER_THAN"
	PredicateLessThan     PredicateType = "LESS_THAN"
	PredicateGreaterEqual PredicateType = "GREATER_EQUAL"
	PredicateLessEqual    PredicateType = "LESS_EQUAL"
	PredicateBetween      PredicateType = "BETWEEN"
	PredicateIn           PredicateType = "IN"
	PredicateNotIn        PredicateType = "NOT_IN"
	PredicateAnd          PredicateType = "AND"
	PredicateOr           PredicateType = "OR"
	PredicateNot          PredicateType = "NOT"
)

// Predicate is a structured assertion over credential attributes. Leaf
// predicates compare one attribute against a value; AND/OR/NOT compose them.
type Predicate struct {
	Type      PredicateType `json:"type"`
	Attribute string        `json:"attribute,omitempty"`
	Value     any           `json:"value,omitempty"`
	Min       any           `json:"min,omitempty"`
	Max       any           `json:"max,omitempty"`

	Predicates []Predicate `json:"predicates,omitempty"`
	Operand    *Predicate  `json:"predicate,omitempty"`
}

// Attributes returns every attribute name the predicate references,
// deduplicated, in first-reference order.
func (p Predicate) Attributes() []string {
	var names []string
	seen := map[string]struct{}{}
	p.walk(func(leaf Predicate) {
		if leaf.Attribute == "" {
			return
		}
		if _, ok := seen[leaf.Attribute]; ok {
			return
		}
		seen[leaf.Attribute] = struct{}{}
		names = append(names, leaf.Attribute)
	})
	return names
}

func (p Predicate) walk(fn func(leaf Predicate)) {
	switch p.Type {
	case PredicateAnd, PredicateOr:
		for _, sub := range p.Predicates {
			sub.walk(fn)
		}
	case PredicateNot:
		if p.Operand != nil {
			p.Operand.walk(fn)
		}
	default:
		fn(p)
	}
}

// Evaluate runs the predicate against a flat attribute map. A missing
// attribute or a value that cannot be coerced to the comparison type
// evaluates to false rather than erroring; absence of evidence is failure.
func (p Predicate) Evaluate(attrs map[string]string) bool {
	switch p.Type {
	case PredicateAnd:
		for _, sub := range p.Predicates {
			if !sub.Evaluate(attrs) {
				return false
			}
		}
		return len(p.Predicates) > 0
	case PredicateOr:
		for _, sub := range p.Predicates {
			if sub.Evaluate(attrs) {
				return true
			}
		}
		return false
	case PredicateNot:
		if p.Operand == nil {
			return false
		}
		return !p.Operand.Evaluate(attrs)
	}

	value, ok := attrs[p.Attribute]
	if !ok || p.Attribute == "" {
		return false
	}

	switch p.Type {
	case PredicateEqual, PredicateNotEqual, PredicateGreaterThan,
		PredicateLessThan, PredicateGreaterEqual, PredicateLessEqual:
		cmp, ok := compareCoerced(value, p.Value)
		if !ok {
			return false
		}
		switch p.Type {
		case PredicateEqual:
			return cmp == 0
		case PredicateNotEqual:
			return cmp != 0
		case PredicateGreaterThan:
			return cmp > 0
		case PredicateLessThan:
			return cmp < 0
		case PredicateGreaterEqual:
			return cmp >= 0
		case PredicateLessEqual:
			return cmp <= 0
		}
		return false
	case PredicateBetween:
		lower, okMin := compareCoerced(value, p.Min)
		upper, okMax := compareCoerced(value, p.Max)
		return okMin && okMax && lower >= 0 && upper <= 0
	case PredicateIn:
		return containsCoerced(value, p.Value)
	case PredicateNotIn:
		return !containsCoerced(value, p.Value)
	}
	return false
}

// compareCoerced compares a string attribute against a target value of
// arbitrary JSON type, coercing the attribute to the target's type. Returns
// -1/0/1 and whether the coercion succeeded.
func compareCoerced(value string, target any) (int, bool) {
	switch t := target.(type) {
	case float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		switch {
		case v < t:
			return -1, true
		case v > t:
			return 1, true
		}
		return 0, true
	case int:
		return compareCoerced(value, float64(t))
	case int64:
		return compareCoerced(value, float64(t))
	case bool:
		v := strings.EqualFold(value, "true")
		if v == t {
			return 0, true
		}
		return 1, true
	case string:
		return strings.Compare(value, t), true
	case nil:
		return 0, false
	default:
		return strings.Compare(value, fmt.Sprintf("%v", t)), true
	}
}

func containsCoerced(value string, target any) bool {
	list, ok := target.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if cmp, ok := compareCoerced(value, item); ok && cmp == 0 {
			return true
		}
	}
	return false
}

// NamedPredicate is a verifier-facing predicate definition selectable by key.
type NamedPredicate struct {
	Key            string    `json:"key"`
	Label          string    `json:"label"`
	Description    string    `json:"description"`
	CredentialType string    `json:"credential_type"`
	Predicate      Predicate `json:"predicate"`
}

// DefaultPredicates is the built-in predicate catalog. Entries may be
// extended or overridden by a policy bundle at the verification layer.
func DefaultPredicates() []NamedPredicate {
	return []NamedPredicate{
		{
			Key:            "age_gt_18",
			Label:          "Age > 18",
			Description:    "Proves the holder is over 18 without revealing exact age",
			CredentialType: "age_verification",
			Predicate:      Predicate{Type: PredicateGreaterThan, Attribute: "age", Value: float64(18)},
		},
		{
			Key:            "age_gt_21",
			Label:          "Age > 21",
			Description:    "Proves the holder is over 21 for age-restricted services",
			CredentialType: "age_verification",
			Predicate:      Predicate{Type: PredicateGreaterThan, Attribute: "age", Value: float64(21)},
		},
		{
			Key:            "vaccinated",
			Label:          "Vaccinated",
			Description:    "Proves the holder has a valid vaccination record",
			CredentialType: "vaccination",
			Predicate:      Predicate{Type: PredicateGreaterEqual, Attribute: "dose_number", Value: float64(1)},
		},
		{
			Key:            "prescription_valid",
			Label:          "Prescription Valid",
			Description:    "Proves the holder has an active prescription",
			CredentialType: "prescription",
			Predicate:      Predicate{Type: PredicateEqual, Attribute: "status", Value: "active"},
		},
	}
}
