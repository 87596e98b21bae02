package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/crm-lead-import-api/internal/leadimport"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// flushEvery is how many records are written between explicit flushes
const flushEvery = 100

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamLeads streams an organization's leads in the specified format
func (s *exportService) StreamLeads(ctx context.Context, w http.ResponseWriter, organizationID, format string) error {
	s.log.Info().Str("format", format).Str("organization_id", organizationID).Msg("Starting leads export")

	var count int
	var err error
	switch format {
	case "ndjson":
		count, err = s.streamNDJSON(ctx, w, organizationID)
	case "json":
		count, err = s.streamJSON(ctx, w, organizationID)
	case "csv":
		count, err = s.streamCSV(ctx, w, organizationID)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	s.log.Info().Int("count", count).Str("organization_id", organizationID).Msg("Leads export completed")
	return err
}

// GetCount returns the number of leads an export would contain
func (s *exportService) GetCount(ctx context.Context, organizationID string) (int, error) {
	return s.repos.Lead.Count(ctx, organizationID)
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, organizationID string) (int, error) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=leads.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Lead.StreamByOrganization(ctx, organizationID, func(lead *models.Lead) error {
		data, err := json.Marshal(lead)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		if count%flushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return count, err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter, organizationID string) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=leads.json")

	w.Write([]byte("["))
	count := 0

	err := s.repos.Lead.StreamByOrganization(ctx, organizationID, func(lead *models.Lead) error {
		if count > 0 {
			w.Write([]byte(","))
		}

		data, err := json.Marshal(lead)
		if err != nil {
			return err
		}
		w.Write(data)
		count++
		return nil
	})

	w.Write([]byte("]"))
	return count, err
}

// streamCSV writes the import template columns first so an export can be
// re-imported as is
func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter, organizationID string) (int, error) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=leads.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := append(append([]string{}, leadimport.TemplateHeaders...), "ID", "Assigned To", "Created At")
	if err := writer.Write(header); err != nil {
		return 0, err
	}

	count := 0
	err := s.repos.Lead.StreamByOrganization(ctx, organizationID, func(lead *models.Lead) error {
		value := ""
		if lead.EstimatedValue != nil {
			value = strconv.FormatFloat(*lead.EstimatedValue, 'f', -1, 64)
		}
		count++
		return writer.Write([]string{
			lead.Name,
			lead.Email,
			lead.Phone,
			lead.Company,
			value,
			string(lead.Status),
			lead.Source,
			lead.Notes,
			lead.ID,
			lead.AssignedToID,
			lead.CreatedAt.UTC().Format(time.RFC3339),
		})
	})
	return count, err
}
