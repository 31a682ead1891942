package models

import "time"

const (
	TelusDaily  = "daily"
	TelusWeekly = "weekly"

	TelusDraft    = "draft"
	TelusReviewed = "reviewed"
	TelusSending  = "sending"
	TelusSent     = "sent"
)

type TelusReport struct {
	Base
	Type       string           `gorm:"not null;index" json:"type"`
	StartDate  time.Time        `gorm:"index" json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	Status     string           `gorm:"not null;default:draft;index" json:"status"`
	Rows       []TelusReportRow `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"rows"`
	CreatedBy  string           `gorm:"size:36" json:"created_by"`
	ReviewedBy *string          `gorm:"size:36" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"`
	SentBy     *string          `gorm:"size:36" json:"sent_by,omitempty"`
	SentAt     *time.Time       `json:"sent_at,omitempty"`
	SentTo     string           `json:"sent_to,omitempty"`
}

type TelusReportRow struct {
	Base
	ReportID      string    `gorm:"size:36;index;not null" json:"report_id"`
	JobID         string    `gorm:"size:36" json:"job_id"`
	JobNumber     string    `json:"job_number"`
	WorkDate      time.Time `json:"work_date"`
	SiteAddress   string    `json:"site_address"`
	Region        string    `json:"region"`
	NetworkNumber string    `json:"network_number"`
	Approver      string    `json:"approver"`
	WorkerCount   int       `json:"worker_count"`
	Hours         float64   `json:"hours"`
	VehicleCount  int       `json:"vehicle_count"`
	Notes         string    `json:"notes"`
}
