package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LeadHandler handles lead endpoints
type LeadHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(services *service.Services, log zerolog.Logger) *LeadHandler {
	return &LeadHandler{
		services: services,
		log:      log.With().Str("handler", "lead").Logger(),
	}
}

// CreateLead handles POST /v1/organizations/:org_id/leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req models.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: name is required"})
		return
	}

	lead, err := h.services.Lead.CreateLead(c.Request.Context(), c.Param("org_id"), &req)
	if err != nil {
		var vErr *service.LeadValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "errors": vErr.Errors})
			return
		}
		h.log.Error().Err(err).Msg("Failed to create lead")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create lead"})
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// GetLead handles GET /v1/leads/:lead_id
func (h *LeadHandler) GetLead(c *gin.Context) {
	leadID := c.Param("lead_id")

	lead, err := h.services.Lead.GetLead(c.Request.Context(), leadID)
	if errors.Is(err, service.ErrLeadNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("lead_id", leadID).Msg("Failed to get lead")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get lead"})
		return
	}

	c.JSON(http.StatusOK, lead)
}

// ListLeads handles GET /v1/organizations/:org_id/leads?limit=&offset=
func (h *LeadHandler) ListLeads(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	leads, total, err := h.services.Lead.ListLeads(c.Request.Context(), c.Param("org_id"), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list leads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leads":  leads,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
