package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/telus"
	"trafficdesk/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func writeTelusError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, telus.ErrNotFound), errors.Is(err, telus.ErrRowNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, telus.ErrInvalidTransition), errors.Is(err, telus.ErrReportSent):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, telus.ErrClientNotFound):
		respondInvalid(w, validation.Violations{"client": "not_found"})
	case errors.Is(err, mailer.ErrNoRecipients):
		respondInvalid(w, validation.Violations{"to": "required"})
	case errors.Is(err, telus.ErrUnknownFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		serverError(w, lg, "telus request failed", err)
	}
}

func ListTelusReports(svc *telus.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.List(r.Context(), r.URL.Query().Get("type"), r.URL.Query().Get("status"))
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		if out == nil {
			out = []models.TelusReport{}
		}
		respondJSON(w, out)
	}
}

func GetTelusReport(svc *telus.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		respondJSON(w, rep)
	}
}

// GenerateTelusReport drafts a daily or weekly report for the body's date
// (YYYY-MM-DD, default today) in the tz parameter's zone.
func GenerateTelusReport(svc *telus.Service, kind string, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Date string `json:"date"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		loc, err := location(r)
		if err != nil {
			http.Error(w, "invalid tz", http.StatusBadRequest)
			return
		}
		date := time.Now().In(loc)
		if req.Date != "" {
			if date, err = parseDay(req.Date, loc); err != nil {
				respondInvalid(w, validation.Violations{"date": "invalid_value"})
				return
			}
		}
		var rep *models.TelusReport
		if kind == models.TelusWeekly {
			rep, err = svc.GenerateWeekly(r.Context(), date, auth.Subject(r.Context()))
		} else {
			rep, err = svc.GenerateDaily(r.Context(), date, auth.Subject(r.Context()))
		}
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, rep)
	}
}

func UpdateTelusRow(svc *telus.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch telus.RowPatch
		if err := decodeJSON(r, &patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v := validation.Violations{}
		if patch.Hours != nil {
			validation.NonNegative("hours", *patch.Hours, v)
		}
		if patch.WorkerCount != nil {
			validation.NonNegative("worker_count", float64(*patch.WorkerCount), v)
		}
		if patch.VehicleCount != nil {
			validation.NonNegative("vehicle_count", float64(*patch.VehicleCount), v)
		}
		if !v.Empty() {
			respondInvalid(w, v)
			return
		}
		row, err := svc.UpdateRow(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "rowID"), patch)
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		respondJSON(w, row)
	}
}

func ReviewTelusReport(svc *telus.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Review(r.Context(), chi.URLParam(r, "id"), auth.Subject(r.Context()))
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		respondJSON(w, rep)
	}
}

// SendTelusReport emails the report; an empty "to" uses the configured
// recipients.
func SendTelusReport(svc *telus.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To []string `json:"to"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		v := validation.Violations{}
		for i, addr := range req.To {
			validation.Email(fmt.Sprintf("to[%d]", i), addr, v)
		}
		if !v.Empty() {
			respondInvalid(w, v)
			return
		}
		rep, err := svc.Send(r.Context(), chi.URLParam(r, "id"), auth.Subject(r.Context()), req.To)
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		respondJSON(w, rep)
	}
}

func ExportTelusReport(svc *telus.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		format := r.URL.Query().Get("format")
		body, ct, err := telus.Export(*rep, format)
		if err != nil {
			writeTelusError(w, lg, err)
			return
		}
		ext := "json"
		if format == telus.FormatExcel || format == "xlsx" {
			ext = "xlsx"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", telus.Filename(*rep, ext)))
		_, _ = w.Write(body)
	}
}
