package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FLRADraft     = "draft"
	FLRASubmitted = "submitted"
)

// FLRADocument is the whole multi-step field-level risk assessment. Every
// step of the form writes into the same document.
type FLRADocument struct {
	Assessment AssessmentDetails `json:"assessment"`
	Road       map[string]bool   `json:"road,omitempty"`
	Weather    map[string]bool   `json:"weather,omitempty"`
	Scope      map[string]bool   `json:"scope,omitempty"`
	Hazards    []HazardRating    `json:"hazards,omitempty"`
	TCPRows    []TCPRow          `json:"tcp_rows,omitempty"`
	SignOffs   []CrewSignOff     `json:"sign_offs,omitempty"`
	Comments   string            `json:"comments,omitempty"`
}

type AssessmentDetails struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	Location       string `json:"location"`
	CompanyContact string `json:"company_contact"`
	SiteContact    string `json:"site_contact"`
	SitePhone      string `json:"site_phone"`
	Supervisor     string `json:"supervisor"`
	Description    string `json:"description"`
}

// HazardRating scores one hazard category (1 low .. 3 high).
type HazardRating struct {
	Category string `json:"category"`
	Hazard   string `json:"hazard"`
	Risk     int    `json:"risk"`
	Control  string `json:"control,omitempty"`
}

type TCPRow struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Equipment  string `json:"equipment,omitempty"`
	SetupTime  string `json:"setup_time,omitempty"`
	TakedownBy string `json:"takedown_by,omitempty"`
}

type CrewSignOff struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
}

type FLRA struct {
	Base
	JobID           string                           `gorm:"size:36;index;not null" json:"job_id"`
	Status          string                           `gorm:"not null;default:draft;index" json:"status"`
	Document        datatypes.JSONType[FLRADocument] `json:"document"`
	Signature       string                           `json:"signature,omitempty"`
	DiagramURL      string                           `json:"diagram_url,omitempty"`
	DiagramPublicID string                           `json:"diagram_public_id,omitempty"`
	IdempotencyKey  *string                          `gorm:"size:64;uniqueIndex" json:"-"`
	CreatedBy       string                           `gorm:"size:36" json:"created_by"`
	SubmittedBy     *string                          `gorm:"size:36" json:"submitted_by,omitempty"`
	SubmittedAt     *time.Time                       `json:"submitted_at,omitempty"`
}
