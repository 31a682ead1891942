package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/flra"
	"trafficdesk/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxDiagramBytes = 10 << 20

func writeFLRAError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, flra.ErrSignatureRequired):
		respondInvalid(w, validation.Violations{"signature": "required"})
	case errors.Is(err, flra.ErrNotFound), errors.Is(err, flra.ErrJobNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, flra.ErrDiagramType):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, flra.ErrAlreadySubmitted), errors.Is(err, flra.ErrJobMismatch):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		serverError(w, lg, "flra request failed", err)
	}
}

func ListFLRA(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.List(r.Context(), r.URL.Query().Get("job_id"), r.URL.Query().Get("status"))
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		if out == nil {
			out = []models.FLRA{}
		}
		respondJSON(w, out)
	}
}

func GetFLRA(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		respondJSON(w, f)
	}
}

type flraDraftReq struct {
	JobID     string              `json:"job_id"`
	Document  models.FLRADocument `json:"document"`
	Signature *string             `json:"signature"`
}

func CreateFLRADraft(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req flraDraftReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, err := svc.CreateDraft(r.Context(), req.JobID, auth.Subject(r.Context()), req.Document)
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		respondStatus(w, http.StatusCreated, f)
	}
}

func UpdateFLRADraft(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req flraDraftReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, err := svc.UpdateDraft(r.Context(), chi.URLParam(r, "id"), req.Document, req.Signature)
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		respondJSON(w, f)
	}
}

// UploadFLRADiagram attaches the multipart "file" image to a draft.
func UploadFLRADiagram(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDiagramBytes)
		file, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		f, err := svc.AttachDiagram(r.Context(), chi.URLParam(r, "id"), flra.Diagram{ContentType: hdr.Header.Get("Content-Type"), Body: file})
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		respondJSON(w, f)
	}
}

type previewReq struct {
	JobID     string              `json:"job_id"`
	Document  models.FLRADocument `json:"document"`
	Signature string              `json:"signature"`
}

// PreviewFLRA renders an unsaved assessment. The signature gate runs before
// anything is loaded.
func PreviewFLRA(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previewReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pdf, err := svc.Preview(r.Context(), req.JobID, req.Document, req.Signature)
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		writePDF(w, "flra-preview.pdf", pdf)
	}
}

// SubmitFLRA accepts either JSON or multipart with fields document (JSON),
// signature, job_id, draft_id and an optional diagram file. The
// Idempotency-Key header makes retries safe.
func SubmitFLRA(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := flra.SubmitInput{
			UserID:         auth.Subject(r.Context()),
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		}
		ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if ct == "multipart/form-data" {
			r.Body = http.MaxBytesReader(w, r.Body, maxDiagramBytes)
			if err := r.ParseMultipartForm(maxDiagramBytes); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			in.DraftID = r.FormValue("draft_id")
			in.JobID = r.FormValue("job_id")
			in.Signature = r.FormValue("signature")
			if in.IdempotencyKey == "" {
				in.IdempotencyKey = r.FormValue("idempotency_key")
			}
			if doc := r.FormValue("document"); doc != "" {
				if err := json.Unmarshal([]byte(doc), &in.Document); err != nil {
					http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
					return
				}
			}
			if file, hdr, err := r.FormFile("diagram"); err == nil {
				defer file.Close()
				in.Diagram = &flra.Diagram{ContentType: hdr.Header.Get("Content-Type"), Body: file}
			}
		} else {
			var req struct {
				DraftID        string              `json:"draft_id"`
				JobID          string              `json:"job_id"`
				Document       models.FLRADocument `json:"document"`
				Signature      string              `json:"signature"`
				IdempotencyKey string              `json:"idempotency_key"`
			}
			if err := decodeJSON(r, &req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			in.DraftID, in.JobID, in.Document, in.Signature = req.DraftID, req.JobID, req.Document, req.Signature
			if in.IdempotencyKey == "" {
				in.IdempotencyKey = req.IdempotencyKey
			}
		}
		f, err := svc.Submit(r.Context(), in)
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		respondJSON(w, f)
	}
}

func FLRAPDF(svc *flra.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		pdf, err := svc.PDF(r.Context(), id)
		if err != nil {
			writeFLRAError(w, lg, err)
			return
		}
		writePDF(w, fmt.Sprintf("flra-%s.pdf", id), pdf)
	}
}

func writePDF(w http.ResponseWriter, name string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	_, _ = w.Write(pdf)
}
