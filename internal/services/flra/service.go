// Package flra manages field-level risk assessments: drafts, the single
// submit operation and the PDF rendering.
package flra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"trafficdesk/internal/media"
	"trafficdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("flra: not found")
	ErrJobNotFound      = errors.New("flra: job not found")
	ErrAlreadySubmitted = errors.New("flra: already submitted")
	ErrJobMismatch      = errors.New("flra: draft belongs to another job")
	ErrDiagramType      = errors.New("flra: diagram must be a png, jpeg, gif or webp image")
)

const diagramFolder = "flra/diagrams"

type Service struct {
	db    *gorm.DB
	store media.Store
	lg    *zap.SugaredLogger
	now   func() time.Time
}

func NewService(db *gorm.DB, store media.Store, lg *zap.SugaredLogger) *Service {
	return &Service{db: db, store: store, lg: lg, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*models.FLRA, error) {
	var f models.FLRA
	if err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *Service) List(ctx context.Context, jobID, status string) ([]models.FLRA, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if jobID != "" {
		q = q.Where("job_id = ?", jobID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.FLRA
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreateDraft(ctx context.Context, jobID, userID string, doc models.FLRADocument) (*models.FLRA, error) {
	if err := s.requireJob(ctx, s.db, jobID); err != nil {
		return nil, err
	}
	f := models.FLRA{
		JobID:     jobID,
		Status:    models.FLRADraft,
		Document:  datatypes.NewJSONType(doc),
		CreatedBy: userID,
	}
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return nil, fmt.Errorf("create flra draft: %w", err)
	}
	return &f, nil
}

// UpdateDraft replaces the document and, when given, the signature. All
// form steps share one document so there is no per-step state.
func (s *Service) UpdateDraft(ctx context.Context, id string, doc models.FLRADocument, signature *string) (*models.FLRA, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == models.FLRASubmitted {
		return nil, ErrAlreadySubmitted
	}
	f.Document = datatypes.NewJSONType(doc)
	if signature != nil {
		f.Signature = *signature
	}
	if err := s.db.WithContext(ctx).Save(f).Error; err != nil {
		return nil, fmt.Errorf("update flra draft: %w", err)
	}
	return f, nil
}

type Diagram struct {
	ContentType string
	Body        io.Reader
}

type SubmitInput struct {
	DraftID        string
	JobID          string
	UserID         string
	IdempotencyKey string
	Document       models.FLRADocument
	Signature      string
	Diagram        *Diagram
}

// Submit validates, stores the diagram and writes the submitted assessment
// in one transaction. If the write fails the uploaded diagram is removed.
// Repeating a call with the same idempotency key returns the stored record
// without uploading again.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.FLRA, error) {
	if err := CheckSignature(in.Signature); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.JobID) == "" {
		return nil, ErrJobNotFound
	}
	if in.Diagram != nil && !media.AllowedImage(in.Diagram.ContentType) {
		return nil, ErrDiagramType
	}
	if in.IdempotencyKey != "" {
		var prior models.FLRA
		err := s.db.WithContext(ctx).First(&prior, "idempotency_key = ?", in.IdempotencyKey).Error
		if err == nil {
			return &prior, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if err := s.requireJob(ctx, s.db, in.JobID); err != nil {
		return nil, err
	}

	var uploaded *media.Object
	if in.Diagram != nil {
		obj, err := s.store.Save(ctx, diagramFolder, in.Diagram.ContentType, in.Diagram.Body)
		if err != nil {
			return nil, fmt.Errorf("upload diagram: %w", err)
		}
		uploaded = &obj
	}

	var (
		out        models.FLRA
		oldDiagram string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.DraftID != "" {
			if err := tx.First(&out, "id = ?", in.DraftID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			if out.Status == models.FLRASubmitted {
				return ErrAlreadySubmitted
			}
			if out.JobID != in.JobID {
				return ErrJobMismatch
			}
		} else {
			out = models.FLRA{JobID: in.JobID, CreatedBy: in.UserID}
		}
		now := s.now()
		out.Status = models.FLRASubmitted
		out.Document = datatypes.NewJSONType(in.Document)
		out.Signature = strings.TrimSpace(in.Signature)
		out.SubmittedBy = &in.UserID
		out.SubmittedAt = &now
		if in.IdempotencyKey != "" {
			key := in.IdempotencyKey
			out.IdempotencyKey = &key
		}
		if uploaded != nil {
			oldDiagram = out.DiagramPublicID
			out.DiagramURL = uploaded.URL
			out.DiagramPublicID = uploaded.PublicID
		}
		if err := tx.Save(&out).Error; err != nil {
			return fmt.Errorf("save flra: %w", err)
		}
		uid := in.UserID
		return tx.Create(&models.AuditLog{
			UserID:   &uid,
			Entity:   "flra",
			EntityID: out.ID,
			Action:   "FLRA_SUBMIT",
			Metadata: models.MustJSON(map[string]any{"job_id": out.JobID, "diagram": out.DiagramPublicID}),
		}).Error
	})
	if err != nil {
		if uploaded != nil {
			if derr := s.store.Delete(context.WithoutCancel(ctx), uploaded.PublicID); derr != nil {
				s.lg.Errorw("orphaned flra diagram", "public_id", uploaded.PublicID, "error", derr)
			}
		}
		// A concurrent submit with the same key may have won the unique index.
		if in.IdempotencyKey != "" {
			var prior models.FLRA
			if s.db.WithContext(ctx).First(&prior, "idempotency_key = ?", in.IdempotencyKey).Error == nil {
				return &prior, nil
			}
		}
		return nil, err
	}
	if oldDiagram != "" && oldDiagram != out.DiagramPublicID {
		if derr := s.store.Delete(ctx, oldDiagram); derr != nil && !errors.Is(derr, media.ErrNotFound) {
			s.lg.Warnw("stale flra diagram not removed", "public_id", oldDiagram, "error", derr)
		}
	}
	s.lg.Infow("flra submitted", "flra_id", out.ID, "job_id", out.JobID)
	return &out, nil
}

// AttachDiagram stores a diagram on a draft, replacing any previous one.
func (s *Service) AttachDiagram(ctx context.Context, id string, d Diagram) (*models.FLRA, error) {
	if !media.AllowedImage(d.ContentType) {
		return nil, ErrDiagramType
	}
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == models.FLRASubmitted {
		return nil, ErrAlreadySubmitted
	}
	obj, err := s.store.Save(ctx, diagramFolder, d.ContentType, d.Body)
	if err != nil {
		return nil, fmt.Errorf("upload diagram: %w", err)
	}
	old := f.DiagramPublicID
	f.DiagramURL, f.DiagramPublicID = obj.URL, obj.PublicID
	if err := s.db.WithContext(ctx).Save(f).Error; err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), obj.PublicID); derr != nil {
			s.lg.Errorw("orphaned flra diagram not removed", "public_id", obj.PublicID, "error", derr)
		}
		return nil, fmt.Errorf("save flra: %w", err)
	}
	if old != "" {
		if derr := s.store.Delete(ctx, old); derr != nil && !errors.Is(derr, media.ErrNotFound) {
			s.lg.Warnw("stale flra diagram not removed", "public_id", old, "error", derr)
		}
	}
	return f, nil
}

// PDF renders a stored assessment together with its job and diagram.
func (s *Service) PDF(ctx context.Context, id string) ([]byte, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var job models.Job
	if err := s.db.WithContext(ctx).Preload("Client").First(&job, "id = ?", f.JobID).Error; err != nil {
		return nil, ErrJobNotFound
	}
	var diagram []byte
	if f.DiagramPublicID != "" {
		rc, _, err := s.store.Open(ctx, f.DiagramPublicID)
		if err == nil {
			diagram, _ = io.ReadAll(rc)
			_ = rc.Close()
		} else {
			s.lg.Warnw("flra diagram unavailable for pdf", "public_id", f.DiagramPublicID, "error", err)
		}
	}
	return RenderPDF(*f, job, diagram)
}

// Preview renders an unsaved assessment once the signature gate passes.
func (s *Service) Preview(ctx context.Context, jobID string, doc models.FLRADocument, signature string) ([]byte, error) {
	if err := CheckSignature(signature); err != nil {
		return nil, err
	}
	var job models.Job
	if err := s.db.WithContext(ctx).Preload("Client").First(&job, "id = ?", jobID).Error; err != nil {
		return nil, ErrJobNotFound
	}
	f := models.FLRA{JobID: jobID, Status: models.FLRADraft, Document: datatypes.NewJSONType(doc), Signature: signature}
	return RenderPDF(f, job, nil)
}

func (s *Service) requireJob(ctx context.Context, db *gorm.DB, jobID string) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrJobNotFound
	}
	return nil
}
