package job

import (
	"time"
	"trafficdesk/internal/models"
)

type Level string

const (
	LevelNone    Level = "none"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Reason string

const (
	ReasonUrgent                   Reason = "urgent"
	ReasonOverdueWithRejections    Reason = "overdue_with_rejections"
	ReasonOverdue                  Reason = "overdue"
	ReasonRunningWithoutAcceptance Reason = "running_without_acceptance"
	ReasonDraft                    Reason = "draft_needs_notification"
)

// UrgentWindow is how far ahead a not-yet-ready job counts as urgent.
const UrgentWindow = 24 * time.Hour

var messages = map[Reason]string{
	ReasonUrgent:                   "Job starts within 24 hours and is not ready",
	ReasonOverdueWithRejections:    "Job has ended with rejected workers",
	ReasonOverdue:                  "Job is overdue",
	ReasonRunningWithoutAcceptance: "Job is running without worker acceptance",
	ReasonDraft:                    "Draft job: workers have not been notified",
}

const genericErrorMessage = "Job needs attention"

// messageOrder is the priority used to pick the single message shown.
var messageOrder = []Reason{
	ReasonUrgent,
	ReasonOverdueWithRejections,
	ReasonOverdue,
	ReasonRunningWithoutAcceptance,
}

type Attention struct {
	Level   Level    `json:"level"`
	Reasons []Reason `json:"reasons,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Evaluate derives a job's highlight from its times, status and worker
// responses. Nothing is stored; callers evaluate on every read.
func Evaluate(j models.Job, now time.Time) Attention {
	var reasons []Reason
	if isUrgent(j, now) {
		reasons = append(reasons, ReasonUrgent)
	}
	overdueWithRejections := now.After(j.EndTime) && hasRejection(j)
	if overdueWithRejections {
		reasons = append(reasons, ReasonOverdueWithRejections)
	}
	if j.Overdue {
		reasons = append(reasons, ReasonOverdue)
	}
	if isRunningWithoutAcceptance(j, now) {
		reasons = append(reasons, ReasonRunningWithoutAcceptance)
	}
	if len(reasons) > 0 {
		return Attention{Level: LevelError, Reasons: reasons, Message: pickMessage(reasons)}
	}
	if j.Status == models.JobDraft && !j.Overdue && !overdueWithRejections {
		return Attention{Level: LevelWarning, Reasons: []Reason{ReasonDraft}, Message: messages[ReasonDraft]}
	}
	return Attention{Level: LevelNone}
}

func pickMessage(reasons []Reason) string {
	for _, want := range messageOrder {
		for _, r := range reasons {
			if r == want {
				return messages[r]
			}
		}
	}
	return genericErrorMessage
}

// isUrgent only considers jobs that have not started yet.
func isUrgent(j models.Job, now time.Time) bool {
	if !j.StartTime.After(now) || j.StartTime.Sub(now) > UrgentWindow {
		return false
	}
	switch j.Status {
	case models.JobReady, models.JobCompleted, models.JobCancelled:
		return false
	}
	return true
}

func isRunningWithoutAcceptance(j models.Job, now time.Time) bool {
	if now.Before(j.StartTime) || !now.Before(j.EndTime) {
		return false
	}
	return j.Status == models.JobPending || j.Status == models.JobDraft
}

func hasRejection(j models.Job) bool {
	for _, w := range j.Workers {
		if w.Status == models.WorkerRejected {
			return true
		}
	}
	return false
}
