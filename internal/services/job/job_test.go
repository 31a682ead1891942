package job

import (
	"testing"
	"time"
	"trafficdesk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateJob(t *testing.T) {
	start := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)
	j := models.Job{JobNumber: "J-1", ClientID: "c", Status: models.JobPending, StartTime: start, EndTime: start.Add(-time.Hour)}
	v := Validate(j)
	assert.Equal(t, "before_reference", v["end_time"])

	j.EndTime = start.Add(8 * time.Hour)
	j.Workers = []models.JobWorker{{UserID: "u1", Status: models.WorkerPending}, {UserID: "u1", Status: "maybe"}}
	j.Vehicles = []models.JobVehicle{{}}
	v = Validate(j)
	assert.Equal(t, "duplicate", v["workers[1].user_id"])
	assert.Equal(t, "invalid_value", v["workers[1].status"])
	assert.Equal(t, "required", v["vehicles[0].vehicle_id"])

	j.Workers = j.Workers[:1]
	j.Vehicles = []models.JobVehicle{{VehicleID: "v1"}}
	assert.True(t, Validate(j).Empty())

	j.Status = "archived"
	assert.Equal(t, "invalid_value", Validate(j)["status"])
}

func TestNormalizeCrewDefaults(t *testing.T) {
	start := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)
	j := models.Job{StartTime: start, EndTime: start.Add(8 * time.Hour)}
	j.ID = "job-1"
	custom := start.Add(time.Hour)
	j.Workers = []models.JobWorker{{UserID: "u1"}, {UserID: "u2", StartTime: custom, EndTime: custom.Add(time.Hour), Status: models.WorkerAccepted}}
	j.Vehicles = []models.JobVehicle{{VehicleID: "v1"}}
	NormalizeCrew(&j)

	assert.Equal(t, models.WorkerPending, j.Workers[0].Status)
	assert.Equal(t, start, j.Workers[0].StartTime)
	assert.Equal(t, j.EndTime, j.Workers[0].EndTime)
	assert.Equal(t, custom, j.Workers[1].StartTime)
	assert.Equal(t, models.WorkerAccepted, j.Workers[1].Status)
	assert.Equal(t, "job-1", j.Workers[1].JobID)
	assert.Equal(t, "job-1", j.Vehicles[0].JobID)
}

func TestNotificationEscapesAndAddresses(t *testing.T) {
	start := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)
	j := models.Job{JobNumber: "J-77", SiteAddress: "1 Main <St>", Notes: "bring cones"}
	w := models.JobWorker{Position: "Flagger", StartTime: start, EndTime: start.Add(time.Hour)}
	msg := Notification(j, w, models.User{Email: "pat@crew.example"})

	assert.Equal(t, []string{"pat@crew.example"}, msg.To)
	assert.Equal(t, "Job J-77 assignment - Oct 15, 2026", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Hi pat@crew.example")
	assert.Contains(t, msg.HTMLBody, "1 Main &lt;St&gt;")
	assert.Contains(t, msg.HTMLBody, "as Flagger")
	assert.Contains(t, msg.HTMLBody, "bring cones")
}
