package models

import (
	"time"
)

// LeadStatus is the pipeline stage of a lead
type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "new"
	LeadStatusContacted  LeadStatus = "contacted"
	LeadStatusInterested LeadStatus = "interested"
	LeadStatusMeeting    LeadStatus = "meeting"
	LeadStatusConverted  LeadStatus = "converted"
	LeadStatusClosed     LeadStatus = "closed"
)

// ValidLeadStatuses defines allowed lead statuses
var ValidLeadStatuses = map[LeadStatus]bool{
	LeadStatusNew:        true,
	LeadStatusContacted:  true,
	LeadStatusInterested: true,
	LeadStatusMeeting:    true,
	LeadStatusConverted:  true,
	LeadStatusClosed:     true,
}

// DefaultLeadSource is assigned to imported leads that carry no source column
const DefaultLeadSource = "Excel Import"

// Lead represents a persisted lead
type Lead struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	AssignedToID   string     `json:"assignedToId,omitempty" db:"assigned_to_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email,omitempty" db:"email"`
	Phone          string     `json:"phone,omitempty" db:"phone"`
	Company        string     `json:"company,omitempty" db:"company"`
	EstimatedValue *float64   `json:"estimatedValue,omitempty" db:"estimated_value"`
	Status         LeadStatus `json:"status" db:"status"`
	Source         string     `json:"source,omitempty" db:"source"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// CandidateLead is a lead that passed schema validation but is not persisted yet
type CandidateLead struct {
	Name           string     `json:"name" validate:"required"`
	Email          string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string     `json:"phone,omitempty"`
	Company        string     `json:"company,omitempty"`
	EstimatedValue *float64   `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	Status         LeadStatus `json:"status" validate:"required,leadstatus"`
	Source         string     `json:"source,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	OrganizationID string     `json:"organizationId" validate:"required"`
	// Row is the 1-based file row the lead came from; 0 for leads not read from a file
	Row int `json:"row,omitempty"`
}

// ToLead converts the candidate into a Lead ready for insertion
func (c *CandidateLead) ToLead(id string, now time.Time) *Lead {
	return &Lead{
		ID:             id,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Company:        c.Company,
		EstimatedValue: c.EstimatedValue,
		Status:         c.Status,
		Source:         c.Source,
		Notes:          c.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ExistingLead is the subset of a stored lead used for duplicate detection
type ExistingLead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// Snapshot projects a stored lead onto the fields duplicate detection reads
func (l *Lead) Snapshot() ExistingLead {
	return ExistingLead{
		ID:      l.ID,
		Name:    l.Name,
		Email:   l.Email,
		Phone:   l.Phone,
		Company: l.Company,
	}
}

// CreateLeadRequest is the body of POST /v1/organizations/:org_id/leads
type CreateLeadRequest struct {
	Name           string   `json:"name" binding:"required"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Company        string   `json:"company"`
	EstimatedValue *float64 `json:"estimatedValue"`
	Status         string   `json:"status"`
	Source         string   `json:"source"`
	Notes          string   `json:"notes"`
	AssignedToID   string   `json:"assignedToId"`
}
