package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// fieldMessages maps "<json field>.<tag>" to the message shown to operators.
var fieldMessages = map[string]string{
	"name.required":           "Name is required",
	"organizationId.required": "Organization is required",
	"email.email":             "Invalid email",
	"estimatedValue.gte":      "Estimated value must be greater than or equal to 0",
	"status.required":         "Invalid status",
	"status.leadstatus":       "Invalid status",
}

// Validator checks leads against the lead schema
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()

	// Report fields by their JSON names so errors line up with import columns
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("leadstatus", func(fl validator.FieldLevel) bool {
		return models.ValidLeadStatuses[models.LeadStatus(fl.Field().String())]
	})

	return &Validator{validate: v}
}

// ValidateLead validates a candidate lead, returning one error per failing field
func (v *Validator) ValidateLead(lead *models.CandidateLead) []ValidationError {
	err := v.validate.Struct(lead)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}

	errors := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errors = append(errors, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Value:   valueOf(fe),
		})
	}
	return errors
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// valueOf drops zero values so "missing" errors don't echo an empty string
func valueOf(fe validator.FieldError) interface{} {
	switch val := fe.Value().(type) {
	case string:
		if val == "" {
			return nil
		}
		return val
	case models.LeadStatus:
		if val == "" {
			return nil
		}
		return string(val)
	case *float64:
		if val == nil {
			return nil
		}
		return *val
	default:
		return val
	}
}
