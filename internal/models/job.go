package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	JobDraft      = "draft"
	JobPending    = "pending"
	JobReady      = "ready"
	JobInProgress = "in-progress"
	JobCompleted  = "completed"
	JobCancelled  = "cancelled"

	WorkerPending  = "pending"
	WorkerAccepted = "accepted"
	WorkerRejected = "rejected"
)

var JobStatuses = []string{JobDraft, JobPending, JobReady, JobInProgress, JobCompleted, JobCancelled}

var WorkerStatuses = []string{WorkerPending, WorkerAccepted, WorkerRejected}

type Job struct {
	Base
	JobNumber   string                      `gorm:"uniqueIndex;not null" json:"job_number"`
	ClientID    string                      `gorm:"size:36;index;not null" json:"client_id"`
	Client      *Client                     `json:"client,omitempty"`
	CompanyName string                      `json:"company_name"`
	SiteAddress string                      `json:"site_address"`
	StartTime   time.Time                   `gorm:"index" json:"start_time"`
	EndTime     time.Time                   `json:"end_time"`
	Status      string                      `gorm:"not null;default:draft;index" json:"status"`
	Overdue     bool                        `json:"overdue"`
	Open        bool                        `gorm:"index" json:"open"`
	Notes       string                      `json:"notes"`
	Equipment   datatypes.JSONSlice[string] `json:"equipment"`
	Workers     []JobWorker                 `gorm:"constraint:OnDelete:CASCADE" json:"workers"`
	Vehicles    []JobVehicle                `gorm:"constraint:OnDelete:CASCADE" json:"vehicles"`
}

type JobWorker struct {
	Base
	JobID     string    `gorm:"size:36;index;not null" json:"job_id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	User      *User     `json:"user,omitempty"`
	Position  string    `json:"position"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `gorm:"not null;default:pending" json:"status"`
}

type JobVehicle struct {
	Base
	JobID      string   `gorm:"size:36;index;not null" json:"job_id"`
	VehicleID  string   `gorm:"size:36;not null" json:"vehicle_id"`
	Vehicle    *Vehicle `json:"vehicle,omitempty"`
	OperatorID *string  `gorm:"size:36" json:"operator_id,omitempty"`
}
