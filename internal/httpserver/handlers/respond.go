package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/models"
	"trafficdesk/internal/validation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondStatus(w, http.StatusOK, v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// respondInvalid writes the 422 envelope with one code per failing field.
func respondInvalid(w http.ResponseWriter, v validation.Violations) {
	respondStatus(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Details: v})
}

func serverError(w http.ResponseWriter, lg *zap.SugaredLogger, msg string, err error) {
	lg.Errorw(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func notFoundOr500(w http.ResponseWriter, lg *zap.SugaredLogger, msg string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	serverError(w, lg, msg, err)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func audit(db *gorm.DB, r *http.Request, entity, entityID, action string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	uid := auth.Subject(r.Context())
	var user *string
	if uid != "" {
		user = &uid
	}
	_ = db.WithContext(r.Context()).Create(&models.AuditLog{
		UserID:   user,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Metadata: models.MustJSON(meta),
	}).Error
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}

// parseDay accepts YYYY-MM-DD or RFC3339. A bare date is read in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// location reads the tz query parameter; the server zone is the fallback.
func location(r *http.Request) (*time.Location, error) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}
