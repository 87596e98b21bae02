package api

import (
	"net/http"

	"github.com/crm-lead-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/organizations/:org_id/exports?format=ndjson|json|csv
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := c.Param("org_id")

	format := c.DefaultQuery("format", "ndjson")
	if format != "ndjson" && format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, json, csv"})
		return
	}

	h.log.Info().
		Str("organization_id", orgID).
		Str("format", format).
		Msg("Starting streaming export")

	if err := h.services.Export.StreamLeads(ctx, c.Writer, orgID, format); err != nil {
		h.log.Error().Err(err).Str("organization_id", orgID).Msg("Export failed")
		// Can't return error JSON after streaming has started
		return
	}
}
