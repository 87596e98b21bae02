package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/leadimport"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// multipartOverhead is allowed on top of the file size for form boundaries and headers
const multipartOverhead = 1 << 20

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
	".csv":  true,
	".tsv":  true,
	".txt":  true,
}

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/organizations/:org_id/imports
// Parses the uploaded file and stores a previewed job; nothing is committed yet.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()
	orgID := c.Param("org_id")

	// Get idempotency key from header
	idempotencyKey := c.GetHeader("Idempotency-Key")

	// Check for existing job with same idempotency key
	if idempotencyKey != "" {
		existingJob, err := h.services.Job.GetJobByIdempotencyKey(ctx, orgID, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existingJob != nil {
			h.log.Info().Str("job_id", existingJob.ID).Msg("Returning existing job for idempotency key")
			c.JSON(http.StatusOK, existingJob)
			return
		}
	}

	maxSize := h.cfg.Import.MaxUploadSize
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLargeMessage(maxSize)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required (multipart field \"file\")"})
		return
	}
	defer file.Close()

	// Validate file size
	if header.Size > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLargeMessage(maxSize)})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, upload an Excel (.xlsx) or CSV file"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}
	if int64(len(data)) > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": tooLargeMessage(maxSize)})
		return
	}

	req := &models.ImportRequest{
		OrganizationID: orgID,
		IdempotencyKey: idempotencyKey,
	}

	job, err := h.services.Import.PreviewImport(ctx, req, header.Filename, data)
	if err != nil {
		h.log.Error().Err(err).Str("organization_id", orgID).Msg("Failed to preview import")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process import file"})
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("organization_id", orgID).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Msg("Import previewed")

	c.JSON(http.StatusCreated, job)
}

// GetImportStatus handles GET /v1/imports/:job_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	job, err := h.services.Job.GetJob(ctx, jobID)
	if err != nil {
		h.respondError(c, err, jobID, "failed to get job status")
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetImportErrors handles GET /v1/imports/:job_id/errors?kind=validation|commit&format=json|csv
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	kind := models.JobErrorKind(c.Query("kind"))
	if kind != "" && kind != models.JobErrorValidation && kind != models.JobErrorCommit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be one of: validation, commit"})
		return
	}

	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, csv"})
		return
	}

	errs, err := h.services.Job.GetJobErrors(ctx, jobID, kind)
	if err != nil {
		h.respondError(c, err, jobID, "failed to get errors")
		return
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", jobID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"line", "kind", "field", "message", "value"})
		for _, e := range errs {
			value := ""
			if e.Value != nil {
				value = fmt.Sprintf("%v", e.Value)
			}
			writer.Write([]string{strconv.Itoa(e.Line), string(e.Kind), e.Field, e.Message, value})
		}
		writer.Flush()
		return
	}

	if errs == nil {
		errs = []models.JobError{}
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"error_count": len(errs),
		"errors":      errs,
	})
}

// CommitImport handles POST /v1/imports/:job_id/commit
func (h *ImportHandler) CommitImport(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	job, err := h.services.Import.CommitImport(ctx, jobID)
	if err != nil {
		h.respondError(c, err, jobID, "failed to commit import")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Import committed and queued for processing",
	})
}

// CancelImport handles DELETE /v1/imports/:job_id
func (h *ImportHandler) CancelImport(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	job, err := h.services.Import.CancelImport(ctx, jobID)
	if err != nil {
		h.respondError(c, err, jobID, "failed to cancel import")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// DownloadTemplate handles GET /v1/templates/leads?format=xlsx|csv
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	switch c.DefaultQuery("format", "xlsx") {
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=lead-import-template.xlsx")
		if err := leadimport.WriteTemplate(c.Writer); err != nil {
			h.log.Error().Err(err).Msg("Failed to write template")
		}
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=lead-import-template.csv")
		if err := leadimport.WriteTemplateCSV(c.Writer); err != nil {
			h.log.Error().Err(err).Msg("Failed to write template")
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: xlsx, csv"})
	}
}

func (h *ImportHandler) respondError(c *gin.Context, err error, jobID, message string) {
	status := jobErrorStatus(err)
	switch status {
	case http.StatusNotFound:
		c.JSON(status, gin.H{"error": "job not found"})
	case http.StatusConflict:
		c.JSON(status, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("job_id", jobID).Msg(message)
		c.JSON(status, gin.H{"error": message})
	}
}

func tooLargeMessage(maxSize int64) string {
	return fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024))
}
