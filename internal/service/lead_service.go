package service

import (
	"context"
	"strings"
	"time"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
	"github.com/crm-lead-import-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxListLimit = 500

// LeadValidationError carries the field errors of a rejected lead
type LeadValidationError struct {
	Errors []validation.ValidationError
}

func (e *LeadValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "invalid lead"
	}
	return "invalid lead: " + e.Errors[0].Message
}

// leadService is the concrete implementation of LeadService
type leadService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

func newLeadService(repos *repository.Repositories, log zerolog.Logger) *leadService {
	return &leadService{
		repos:     repos,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "lead").Logger(),
	}
}

// CreateLead validates and stores a single lead
func (s *leadService) CreateLead(ctx context.Context, organizationID string, req *models.CreateLeadRequest) (*models.Lead, error) {
	status := models.LeadStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "" {
		status = models.LeadStatusNew
	}

	candidate := &models.CandidateLead{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Company:        strings.TrimSpace(req.Company),
		EstimatedValue: req.EstimatedValue,
		Status:         status,
		Source:         strings.TrimSpace(req.Source),
		Notes:          req.Notes,
		OrganizationID: organizationID,
	}
	if errs := s.validator.ValidateLead(candidate); len(errs) > 0 {
		return nil, &LeadValidationError{Errors: errs}
	}

	lead := candidate.ToLead(uuid.New().String(), time.Now())
	lead.AssignedToID = strings.TrimSpace(req.AssignedToID)

	if err := s.repos.Lead.Create(ctx, lead); err != nil {
		return nil, err
	}

	s.log.Info().Str("lead_id", lead.ID).Str("organization_id", organizationID).Msg("Lead created")
	return lead, nil
}

// GetLead retrieves a lead by ID
func (s *leadService) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.repos.Lead.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// ListLeads returns one page of an organization's leads and the total count
func (s *leadService) ListLeads(ctx context.Context, organizationID string, limit, offset int) ([]*models.Lead, int, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	leads, err := s.repos.Lead.ListByOrganization(ctx, organizationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Lead.Count(ctx, organizationID)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}
