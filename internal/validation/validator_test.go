package validation

import (
	"testing"

	"github.com/crm-lead-import-api/internal/models"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestValidateLead(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		lead       *models.CandidateLead
		wantErrors int
		wantFields []string
	}{
		{
			name: "valid lead with all fields",
			lead: &models.CandidateLead{
				Name:           "John Doe",
				Email:          "john@example.com",
				Phone:          "+1-555-0123",
				Company:        "Acme Corp",
				EstimatedValue: floatPtr(15000),
				Status:         models.LeadStatusNew,
				Source:         "Website",
				OrganizationID: "org-1",
			},
			wantErrors: 0,
		},
		{
			name: "valid lead with only name",
			lead: &models.CandidateLead{
				Name:           "Jane Smith",
				Status:         models.LeadStatusNew,
				OrganizationID: "org-1",
			},
			wantErrors: 0,
		},
		{
			name: "zero estimated value is allowed",
			lead: &models.CandidateLead{
				Name:           "Jane Smith",
				EstimatedValue: floatPtr(0),
				Status:         models.LeadStatusMeeting,
				OrganizationID: "org-1",
			},
			wantErrors: 0,
		},
		{
			name: "missing name",
			lead: &models.CandidateLead{
				Status:         models.LeadStatusNew,
				OrganizationID: "org-1",
			},
			wantErrors: 1,
			wantFields: []string{"name"},
		},
		{
			name: "invalid email format",
			lead: &models.CandidateLead{
				Name:           "John Doe",
				Email:          "not-an-email",
				Status:         models.LeadStatusNew,
				OrganizationID: "org-1",
			},
			wantErrors: 1,
			wantFields: []string{"email"},
		},
		{
			name: "negative estimated value",
			lead: &models.CandidateLead{
				Name:           "John Doe",
				EstimatedValue: floatPtr(-10),
				Status:         models.LeadStatusNew,
				OrganizationID: "org-1",
			},
			wantErrors: 1,
			wantFields: []string{"estimatedValue"},
		},
		{
			name: "unknown status",
			lead: &models.CandidateLead{
				Name:           "John Doe",
				Status:         "archived",
				OrganizationID: "org-1",
			},
			wantErrors: 1,
			wantFields: []string{"status"},
		},
		{
			name: "multiple validation errors",
			lead: &models.CandidateLead{
				Name:           "",
				Email:          "invalid",
				EstimatedValue: floatPtr(-1),
				Status:         models.LeadStatusNew,
			},
			wantErrors: 4,
			wantFields: []string{"name", "email", "estimatedValue", "organizationId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := validator.ValidateLead(tt.lead)
			if len(errors) != tt.wantErrors {
				t.Errorf("ValidateLead() got %d errors, want %d. Errors: %v", len(errors), tt.wantErrors, errors)
			}

			for _, wantField := range tt.wantFields {
				found := false
				for _, err := range errors {
					if err.Field == wantField {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Expected error for field '%s' but not found", wantField)
				}
			}
		})
	}
}

func TestValidationErrorMessages(t *testing.T) {
	validator := NewValidator()

	lead := &models.CandidateLead{
		Name:           "",
		Email:          "bad@",
		EstimatedValue: floatPtr(-5),
		Status:         models.LeadStatusNew,
		OrganizationID: "org-1",
	}

	want := map[string]string{
		"name":           "Name is required",
		"email":          "Invalid email",
		"estimatedValue": "Estimated value must be greater than or equal to 0",
	}

	errors := validator.ValidateLead(lead)
	if len(errors) != len(want) {
		t.Fatalf("Expected %d errors, got %d: %v", len(want), len(errors), errors)
	}
	for _, e := range errors {
		if want[e.Field] != e.Message {
			t.Errorf("Field %s: expected message %q, got %q", e.Field, want[e.Field], e.Message)
		}
	}
}

func TestValidationErrorOrder(t *testing.T) {
	validator := NewValidator()

	errors := validator.ValidateLead(&models.CandidateLead{
		Email:          "nope",
		EstimatedValue: floatPtr(-1),
		Status:         models.LeadStatusNew,
		OrganizationID: "org-1",
	})

	order := []string{"name", "email", "estimatedValue"}
	if len(errors) != len(order) {
		t.Fatalf("Expected %d errors, got %d", len(order), len(errors))
	}
	for i, field := range order {
		if errors[i].Field != field {
			t.Errorf("Error %d: expected field %s, got %s", i, field, errors[i].Field)
		}
	}
}

func TestValidationErrorValues(t *testing.T) {
	validator := NewValidator()

	errors := validator.ValidateLead(&models.CandidateLead{
		Name:           "",
		EstimatedValue: floatPtr(-3),
		Status:         models.LeadStatusNew,
		OrganizationID: "org-1",
	})

	for _, e := range errors {
		switch e.Field {
		case "name":
			if e.Value != nil {
				t.Errorf("Expected no value for missing name, got %v", e.Value)
			}
		case "estimatedValue":
			if e.Value != -3.0 {
				t.Errorf("Expected value -3, got %v", e.Value)
			}
		}
	}
}

func TestValidateLead_EmailFormats(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		email string
		want  bool
	}{
		{"john@example.com", true},
		{"first.last+tag@sub.example.io", true},
		{"not-an-email", false},
		{"missing@", false},
		{"@example.com", false},
	}

	for _, tt := range tests {
		errs := validator.ValidateLead(&models.CandidateLead{
			Name:           "John Doe",
			Email:          tt.email,
			Status:         models.LeadStatusNew,
			OrganizationID: "org-1",
		})
		if got := len(errs) == 0; got != tt.want {
			t.Errorf("ValidateLead with email %q valid = %v, want %v (errors: %v)", tt.email, got, tt.want, errs)
		}
	}
}

func BenchmarkValidateLead(b *testing.B) {
	validator := NewValidator()
	lead := &models.CandidateLead{
		Name:           "John Doe",
		Email:          "john@example.com",
		Company:        "Acme Corp",
		EstimatedValue: floatPtr(15000),
		Status:         models.LeadStatusNew,
		OrganizationID: "org-1",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		validator.ValidateLead(lead)
	}
}
