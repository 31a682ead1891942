package handlers

import (
	"errors"
	"net/http"
	"time"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/job"
	"trafficdesk/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type jobReq struct {
	JobNumber   string              `json:"job_number"`
	ClientID    string              `json:"client_id"`
	CompanyName string              `json:"company_name"`
	SiteAddress string              `json:"site_address"`
	StartTime   time.Time           `json:"start_time"`
	EndTime     time.Time           `json:"end_time"`
	Status      string              `json:"status"`
	Overdue     bool                `json:"overdue"`
	Open        bool                `json:"open"`
	Notes       string              `json:"notes"`
	Equipment   []string            `json:"equipment"`
	Workers     []models.JobWorker  `json:"workers"`
	Vehicles    []models.JobVehicle `json:"vehicles"`
}

type crewReq struct {
	Workers  []models.JobWorker  `json:"workers"`
	Vehicles []models.JobVehicle `json:"vehicles"`
}

func (req jobReq) applyTo(j *models.Job) {
	j.JobNumber = req.JobNumber
	j.ClientID = req.ClientID
	j.CompanyName = req.CompanyName
	j.SiteAddress = req.SiteAddress
	j.StartTime = req.StartTime
	j.EndTime = req.EndTime
	j.Status = req.Status
	if j.Status == "" {
		j.Status = models.JobDraft
	}
	j.Overdue = req.Overdue
	j.Open = req.Open
	j.Notes = req.Notes
	j.Equipment = datatypes.JSONSlice[string](req.Equipment)
	setCrew(j, req.Workers, req.Vehicles)
}

// setCrew installs a fresh crew on j. Incoming ids are discarded so the
// arrays are always replaced, never merged.
func setCrew(j *models.Job, workers []models.JobWorker, vehicles []models.JobVehicle) {
	j.Workers = make([]models.JobWorker, 0, len(workers))
	for _, w := range workers {
		w.Base = models.Base{}
		w.User = nil
		j.Workers = append(j.Workers, w)
	}
	j.Vehicles = make([]models.JobVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		v.Base = models.Base{}
		v.Vehicle = nil
		j.Vehicles = append(j.Vehicles, v)
	}
	job.NormalizeCrew(j)
}

// replaceCrew swaps the stored worker and vehicle rows for j's.
func replaceCrew(tx *gorm.DB, j *models.Job) error {
	if err := tx.Where("job_id = ?", j.ID).Delete(&models.JobWorker{}).Error; err != nil {
		return err
	}
	if err := tx.Where("job_id = ?", j.ID).Delete(&models.JobVehicle{}).Error; err != nil {
		return err
	}
	if len(j.Workers) > 0 {
		if err := tx.Create(&j.Workers).Error; err != nil {
			return err
		}
	}
	if len(j.Vehicles) > 0 {
		if err := tx.Create(&j.Vehicles).Error; err != nil {
			return err
		}
	}
	return nil
}

func withCrew(db *gorm.DB) *gorm.DB {
	return db.Preload("Client").Preload("Workers").Preload("Workers.User").Preload("Vehicles").Preload("Vehicles.Vehicle")
}

func loadJob(db *gorm.DB, id string) (models.Job, error) {
	var j models.Job
	err := withCrew(db).First(&j, "id = ?", id).Error
	return j, err
}

func writeJobError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) bool {
	if err == nil {
		return true
	}
	var v validation.Violations
	if errors.As(err, &v) {
		respondInvalid(w, v)
		return false
	}
	serverError(w, lg, "job save failed", err)
	return false
}

// ListJobs returns jobs starting in [from, to). Dates are YYYY-MM-DD read in
// the tz parameter's zone.
func ListJobs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := location(r)
		if err != nil {
			http.Error(w, "invalid tz", http.StatusBadRequest)
			return
		}
		q := withCrew(db).Order("start_time asc")
		if s := r.URL.Query().Get("from"); s != "" {
			from, err := parseDay(s, loc)
			if err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
			q = q.Where("start_time >= ?", from)
		}
		if s := r.URL.Query().Get("to"); s != "" {
			to, err := parseDay(s, loc)
			if err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
			q = q.Where("start_time < ?", to)
		}
		if s := r.URL.Query().Get("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		out := []models.Job{}
		if err := q.Find(&out).Error; err != nil {
			serverError(w, lg, "list jobs failed", err)
			return
		}
		respondJSON(w, out)
	}
}

func OpenJobs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := []models.Job{}
		if err := withCrew(db).Where("open = ?", true).Order("start_time asc").Find(&out).Error; err != nil {
			serverError(w, lg, "list open jobs failed", err)
			return
		}
		respondJSON(w, out)
	}
}

func GetJob(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := loadJob(db, chi.URLParam(r, "id"))
		if err != nil {
			notFoundOr500(w, lg, "get job failed", err)
			return
		}
		respondJSON(w, map[string]any{"job": j, "attention": job.Evaluate(j, time.Now())})
	}
}

func CreateJob(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		j := models.Job{Base: models.Base{ID: uuid.NewString()}}
		req.applyTo(&j)
		if v := job.Validate(j); !v.Empty() {
			respondInvalid(w, v)
			return
		}
		if err := db.Create(&j).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		audit(db, r, "job", j.ID, "JOB_CREATE", map[string]any{"job_number": j.JobNumber, "workers": len(j.Workers)})
		respondStatus(w, http.StatusCreated, j)
	}
}

// saveJob applies req to the stored job and rewrites it with its crew in one
// transaction.
func saveJob(db *gorm.DB, id string, req jobReq) (models.Job, error) {
	j, err := loadJob(db, id)
	if err != nil {
		return j, err
	}
	j.Client = nil
	req.applyTo(&j)
	if v := job.Validate(j); !v.Empty() {
		return j, v
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Client", "Workers", "Vehicles").Save(&j).Error; err != nil {
			return err
		}
		return replaceCrew(tx, &j)
	})
	return j, err
}

func UpdateJob(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		j, err := saveJob(db, chi.URLParam(r, "id"), req)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if !writeJobError(w, lg, err) {
			return
		}
		audit(db, r, "job", j.ID, "JOB_UPDATE", map[string]any{"status": j.Status})
		respondJSON(w, j)
	}
}

// UpdateCrew is the quick edit: the full worker and vehicle arrays replace
// the stored ones atomically.
func UpdateCrew(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req crewReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		j, err := loadJob(db, chi.URLParam(r, "id"))
		if err != nil {
			notFoundOr500(w, lg, "get job failed", err)
			return
		}
		setCrew(&j, req.Workers, req.Vehicles)
		if v := job.ValidateCrew(j.Workers, j.Vehicles); !v.Empty() {
			respondInvalid(w, v)
			return
		}
		if err := db.Transaction(func(tx *gorm.DB) error { return replaceCrew(tx, &j) }); err != nil {
			serverError(w, lg, "crew update failed", err)
			return
		}
		audit(db, r, "job", j.ID, "JOB_CREW_UPDATE", map[string]any{"workers": len(j.Workers), "vehicles": len(j.Vehicles)})
		respondJSON(w, j)
	}
}

type notifyFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// SaveWithNotifications saves the job, then emails each assigned worker.
// Delivery failures are reported but never undo the save.
func SaveWithNotifications(db *gorm.DB, mail mailer.Mailer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		j, err := saveJob(db, chi.URLParam(r, "id"), req)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if !writeJobError(w, lg, err) {
			return
		}

		notified := []string{}
		failed := []notifyFailure{}
		for _, wk := range j.Workers {
			var u models.User
			if err := db.First(&u, "id = ?", wk.UserID).Error; err != nil {
				failed = append(failed, notifyFailure{UserID: wk.UserID, Error: "user not found"})
				continue
			}
			if err := mail.Send(r.Context(), job.Notification(j, wk, u)); err != nil {
				lg.Warnw("job notification failed", "job_id", j.ID, "user_id", u.ID, "error", err)
				failed = append(failed, notifyFailure{UserID: u.ID, Error: err.Error()})
				continue
			}
			notified = append(notified, u.ID)
		}
		audit(db, r, "job", j.ID, "JOB_NOTIFY", map[string]any{"notified": notified, "failed": len(failed)})
		respondJSON(w, map[string]any{"job": j, "notified": notified, "failed": failed})
	}
}

func DeleteJob(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("job_id = ?", id).Delete(&models.JobWorker{}).Error; err != nil {
				return err
			}
			if err := tx.Where("job_id = ?", id).Delete(&models.JobVehicle{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&models.Job{}, "id = ?", id)
			if res.Error == nil && res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return res.Error
		})
		if err != nil {
			notFoundOr500(w, lg, "job delete failed", err)
			return
		}
		audit(db, r, "job", id, "JOB_DELETE", nil)
		respondJSON(w, map[string]any{"deleted": true})
	}
}
