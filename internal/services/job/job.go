// Package job holds the job board, attention and crew rules.
package job

import (
	"fmt"
	"html"
	"strings"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/models"
	"trafficdesk/internal/util"
	"trafficdesk/internal/validation"
)

func Validate(j models.Job) validation.Violations {
	v := validation.Violations{}
	validation.Required("job_number", j.JobNumber, v)
	validation.Required("client_id", j.ClientID, v)
	validation.OneOf("status", j.Status, models.JobStatuses, v)
	if j.StartTime.IsZero() {
		v["start_time"] = "required"
	}
	if j.EndTime.IsZero() {
		v["end_time"] = "required"
	} else {
		validation.NotBefore("end_time", j.EndTime, j.StartTime, v)
	}
	validateCrew(j.Workers, j.Vehicles, v)
	return v
}

// ValidateCrew checks a quick-edit payload on its own.
func ValidateCrew(workers []models.JobWorker, vehicles []models.JobVehicle) validation.Violations {
	v := validation.Violations{}
	validateCrew(workers, vehicles, v)
	return v
}

func validateCrew(workers []models.JobWorker, vehicles []models.JobVehicle, v validation.Violations) {
	seen := map[string]bool{}
	for i, w := range workers {
		field := fmt.Sprintf("workers[%d]", i)
		validation.Required(field+".user_id", w.UserID, v)
		validation.OneOf(field+".status", w.Status, models.WorkerStatuses, v)
		if !w.StartTime.IsZero() && !w.EndTime.IsZero() {
			validation.NotBefore(field+".end_time", w.EndTime, w.StartTime, v)
		}
		if w.UserID != "" && seen[w.UserID] {
			v[field+".user_id"] = "duplicate"
		}
		seen[w.UserID] = true
	}
	for i, veh := range vehicles {
		validation.Required(fmt.Sprintf("vehicles[%d].vehicle_id", i), veh.VehicleID, v)
	}
}

// NormalizeCrew fills worker defaults from the job: pending status and the
// job's time window when none is given.
func NormalizeCrew(j *models.Job) {
	for i := range j.Workers {
		w := &j.Workers[i]
		w.JobID = j.ID
		if w.Status == "" {
			w.Status = models.WorkerPending
		}
		if w.StartTime.IsZero() {
			w.StartTime = j.StartTime
		}
		if w.EndTime.IsZero() {
			w.EndTime = j.EndTime
		}
	}
	for i := range j.Vehicles {
		j.Vehicles[i].JobID = j.ID
	}
}

// Notification builds the assignment email for one worker.
func Notification(j models.Job, w models.JobWorker, u models.User) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(firstNonEmpty(u.Name, u.Email)))
	fmt.Fprintf(&b, "<p>You have been assigned to job <b>%s</b> as %s.</p>", html.EscapeString(j.JobNumber), html.EscapeString(firstNonEmpty(w.Position, "crew")))
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Site: %s</li>", html.EscapeString(j.SiteAddress))
	fmt.Fprintf(&b, "<li>Start: %s</li>", util.FormatDateTime(w.StartTime))
	fmt.Fprintf(&b, "<li>End: %s</li>", util.FormatDateTime(w.EndTime))
	if j.Notes != "" {
		fmt.Fprintf(&b, "<li>Notes: %s</li>", html.EscapeString(j.Notes))
	}
	b.WriteString("</ul><p>Please accept or reject the assignment in the app.</p>")
	return mailer.Message{
		To:       []string{u.Email},
		Subject:  fmt.Sprintf("Job %s assignment - %s", j.JobNumber, util.FormatDate(w.StartTime)),
		HTMLBody: b.String(),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
