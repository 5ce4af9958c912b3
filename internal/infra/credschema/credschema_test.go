package credschema

import (
	"errors"
	"testing"

	"privaseal/internal/domain"
)

func TestValidate(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	cases := []struct {
		name           string
		credentialType string
		attrs          map[string]string
		wantErr        bool
	}{
		{
			name:           "valid vaccination",
			credentialType: "vaccination",
			attrs: map[string]string{
				"name":              "Alice",
				"vaccine":           "mRNA-X",
				"dose_number":       "2",
				"date_administered": "2025-11-02",
			},
		},
		{
			name:           "vaccination missing dose",
			credentialType: "vaccination",
			attrs: map[string]string{
				"name":              "Alice",
				"vaccine":           "mRNA-X",
				"date_administered": "2025-11-02",
			},
			wantErr: true,
		},
		{
			name:           "vaccination non-numeric dose",
			credentialType: "vaccination",
			attrs: map[string]string{
				"name":              "Alice",
				"vaccine":           "mRNA-X",
				"dose_number":       "two",
				"date_administered": "2025-11-02",
			},
			wantErr: true,
		},
		{
			name:           "valid prescription",
			credentialType: "prescription",
			attrs: map[string]string{
				"medication": "amoxicillin",
				"status":     "active",
				"prescriber": "Dr. Lin",
			},
		},
		{
			name:           "prescription bad status",
			credentialType: "prescription",
			attrs: map[string]string{
				"medication": "amoxicillin",
				"status":     "pending",
				"prescriber": "Dr. Lin",
			},
			wantErr: true,
		},
		{
			name:           "valid age verification",
			credentialType: "age_verification",
			attrs: map[string]string{
				"name":          "Alice",
				"age":           "34",
				"date_of_birth": "1992-01-15",
			},
		},
		{
			name:           "age verification bad date",
			credentialType: "age_verification",
			attrs: map[string]string{
				"name":          "Alice",
				"age":           "34",
				"date_of_birth": "Jan 15 1992",
			},
			wantErr: true,
		},
		{
			name:           "unregistered type passes",
			credentialType: "library_card",
			attrs:          map[string]string{"member_id": "m-1"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.credentialType, tc.attrs)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidAttributeSet) {
					t.Fatalf("err = %v, want ErrInvalidAttributeSet", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}
