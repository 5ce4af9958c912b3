// Package credschema validates attribute sets against per-credential-type
// JSON Schemas at issuance time. Types without a registered schema pass
// through; the attribute set's own structural rules still apply upstream.
package credschema

import (
	"fmt"
	"strings"

	"privaseal/internal/domain"

	"github.com/xeipuuv/gojsonschema"
)

const vaccinationSchema = `{
	"type": "object",
	"required": ["name", "vaccine", "dose_number", "date_administered"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"vaccine": {"type": "string", "minLength": 1},
		"dose_number": {"type": "string", "pattern": "^[0-9]+$"},
		"date_administered": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"batch": {"type": "string"}
	}
}`

const prescriptionSchema = `{
	"type": "object",
	"required": ["medication", "status", "prescriber"],
	"properties": {
		"medication": {"type": "string", "minLength": 1},
		"status": {"type": "string", "enum": ["active", "expired", "cancelled"]},
		"prescriber": {"type": "string", "minLength": 1},
		"refills": {"type": "string", "pattern": "^[0-9]+$"}
	}
}`

const ageVerificationSchema = `{
	"type": "object",
	"required": ["name", "age", "date_of_birth"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age": {"type": "string", "pattern": "^[0-9]+$"},
		"date_of_birth": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"document_number": {"type": "string"}
	}
}`

type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles the built-in schemas. Compilation failures are
// programming errors and surface immediately.
func NewValidator() (*Validator, error) {
	sources := map[string]string{
		"vaccination":      vaccinationSchema,
		"prescription":     prescriptionSchema,
		"age_verification": ageVerificationSchema,
	}
	schemas := make(map[string]*gojsonschema.Schema, len(sources))
	for credentialType, source := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", credentialType, err)
		}
		schemas[credentialType] = schema
	}
	return &Validator{schemas: schemas}, nil
}

func (v *Validator) Validate(credentialType string, attrs map[string]string) error {
	schema, ok := v.schemas[credentialType]
	if !ok {
		return nil
	}
	doc := make(map[string]any, len(attrs))
	for name, value := range attrs {
		doc[name] = value
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAttributeSet, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAttributeSet, describeErrors(result))
	}
	return nil
}

func describeErrors(result *gojsonschema.Result) string {
	parts := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		parts = append(parts, desc.String())
	}
	return strings.Join(parts, "; ")
}
