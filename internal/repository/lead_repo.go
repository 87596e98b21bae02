package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/crm-lead-import-api/internal/database"
	"github.com/crm-lead-import-api/internal/models"
)

const leadColumns = `id, organization_id, assigned_to_id, name, email, phone, company,
	estimated_value, status, source, notes, created_at, updated_at`

// leadRepo is the concrete implementation of LeadRepository
type leadRepo struct {
	db *database.DB
}

// NewLeadRepo creates a new lead repository
func NewLeadRepo(db *database.DB) LeadRepository {
	return &leadRepo{db: db}
}

// Create inserts a new lead
func (r *leadRepo) Create(ctx context.Context, lead *models.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = time.Now()
	}
	var value sql.NullFloat64
	if lead.EstimatedValue != nil {
		value = sql.NullFloat64{Float64: *lead.EstimatedValue, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.OrganizationID, nullString(lead.AssignedToID), lead.Name,
		nullString(lead.Email), nullString(lead.Phone), nullString(lead.Company),
		value, lead.Status, nullString(lead.Source), nullString(lead.Notes),
		lead.CreatedAt, lead.UpdatedAt,
	)
	return err
}

// GetByID retrieves a lead by ID
func (r *leadRepo) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// ListByOrganization retrieves leads in creation order. This order is the
// snapshot order used by external duplicate detection.
func (r *leadRepo) ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE organization_id = $1 ORDER BY created_at, id`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2 OFFSET $3", organizationID, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, query, organizationID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Count returns the number of leads
func (r *leadRepo) Count(ctx context.Context, organizationID string) (int, error) {
	var count int
	if organizationID == "" {
		err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&count)
		return count, err
	}
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads WHERE organization_id = $1", organizationID).Scan(&count)
	return count, err
}

// StreamByOrganization streams leads for export (memory efficient)
func (r *leadRepo) StreamByOrganization(ctx context.Context, organizationID string, callback func(*models.Lead) error) error {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE organization_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return err
		}
		if err := callback(lead); err != nil {
			return err
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var lead models.Lead
	var assignedTo, email, phone, company, source, notes sql.NullString
	var value sql.NullFloat64

	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &assignedTo, &lead.Name, &email, &phone, &company,
		&value, &lead.Status, &source, &notes, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.AssignedToID = assignedTo.String
	lead.Email = email.String
	lead.Phone = phone.String
	lead.Company = company.String
	lead.Source = source.String
	lead.Notes = notes.String
	if value.Valid {
		v := value.Float64
		lead.EstimatedValue = &v
	}
	return &lead, nil
}
