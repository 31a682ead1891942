// Package telus builds the recurring daily and weekly work reports sent to
// the TELUS account and drives their draft, reviewed, sent lifecycle.
package telus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/models"
	"trafficdesk/internal/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("telus: report not found")
	ErrRowNotFound       = errors.New("telus: row not found")
	ErrClientNotFound    = errors.New("telus: client not configured")
	ErrInvalidTransition = errors.New("telus: invalid status transition")
	ErrReportSent        = errors.New("telus: report already sent")
)

type Service struct {
	db         *gorm.DB
	mail       mailer.Mailer
	lg         *zap.SugaredLogger
	clientName string
	recipients []string
	now        func() time.Time
}

func NewService(db *gorm.DB, mail mailer.Mailer, lg *zap.SugaredLogger, clientName string, recipients []string) *Service {
	return &Service{db: db, mail: mail, lg: lg, clientName: clientName, recipients: recipients, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id string) (*models.TelusReport, error) {
	var r models.TelusReport
	err := s.db.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB { return db.Order("work_date asc, job_number asc") }).
		First(&r, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *Service) List(ctx context.Context, reportType, status string) ([]models.TelusReport, error) {
	q := s.db.WithContext(ctx).Order("start_date desc, created_at desc")
	if reportType != "" {
		q = q.Where("type = ?", reportType)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.TelusReport
	return out, q.Find(&out).Error
}

// GenerateDaily drafts a report covering the calendar day of date.
func (s *Service) GenerateDaily(ctx context.Context, date time.Time, userID string) (*models.TelusReport, error) {
	start := util.StartOfDay(date)
	return s.generate(ctx, models.TelusDaily, start, start.AddDate(0, 0, 1), userID)
}

// GenerateWeekly drafts a report covering the Monday to Sunday week that
// contains day.
func (s *Service) GenerateWeekly(ctx context.Context, day time.Time, userID string) (*models.TelusReport, error) {
	start := util.StartOfWeek(day)
	return s.generate(ctx, models.TelusWeekly, start, start.AddDate(0, 0, 7), userID)
}

func (s *Service) generate(ctx context.Context, kind string, start, end time.Time, userID string) (*models.TelusReport, error) {
	var client models.Client
	err := s.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(s.clientName)).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	var jobs []models.Job
	err = s.db.WithContext(ctx).
		Preload("Workers").Preload("Vehicles").
		Where("client_id = ? AND status <> ? AND start_time >= ? AND start_time < ?", client.ID, models.JobCancelled, start, end).
		Order("start_time asc").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("load telus jobs: %w", err)
	}

	report := models.TelusReport{
		Type:      kind,
		StartDate: start,
		EndDate:   end.AddDate(0, 0, -1),
		Status:    models.TelusDraft,
		CreatedBy: userID,
		Rows:      RowsFor(jobs, client.Region, start.Location()),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		uid := userID
		return tx.Create(&models.AuditLog{
			UserID:   &uid,
			Entity:   "telus_report",
			EntityID: report.ID,
			Action:   "TELUS_GENERATE",
			Metadata: models.MustJSON(map[string]any{"type": kind, "start": start.Format("2006-01-02"), "rows": len(report.Rows)}),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create telus report: %w", err)
	}
	s.lg.Infow("telus report generated", "report_id", report.ID, "type", kind, "rows", len(report.Rows))
	return &report, nil
}

// RowsFor prefills one report row per job. Work dates are calendar days in
// loc, the zone the report window was built in. Network number and approver
// are left for the reviewer.
func RowsFor(jobs []models.Job, region string, loc *time.Location) []models.TelusReportRow {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]models.TelusReportRow, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, models.TelusReportRow{
			JobID:        j.ID,
			JobNumber:    j.JobNumber,
			WorkDate:     util.StartOfDay(j.StartTime.In(loc)),
			SiteAddress:  j.SiteAddress,
			Region:       region,
			WorkerCount:  len(j.Workers),
			VehicleCount: len(j.Vehicles),
			Hours:        hours(j.StartTime, j.EndTime),
			Notes:        j.Notes,
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if !rows[a].WorkDate.Equal(rows[b].WorkDate) {
			return rows[a].WorkDate.Before(rows[b].WorkDate)
		}
		return rows[a].JobNumber < rows[b].JobNumber
	})
	return rows
}

func hours(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	return math.Round(end.Sub(start).Hours()*100) / 100
}

// RowPatch carries the editable columns of a report row. Nil fields are
// left unchanged.
type RowPatch struct {
	Region        *string  `json:"region"`
	NetworkNumber *string  `json:"network_number"`
	Approver      *string  `json:"approver"`
	WorkerCount   *int     `json:"worker_count"`
	Hours         *float64 `json:"hours"`
	VehicleCount  *int     `json:"vehicle_count"`
	Notes         *string  `json:"notes"`
}

func (p RowPatch) apply(r *models.TelusReportRow) {
	if p.Region != nil {
		r.Region = *p.Region
	}
	if p.NetworkNumber != nil {
		r.NetworkNumber = *p.NetworkNumber
	}
	if p.Approver != nil {
		r.Approver = *p.Approver
	}
	if p.WorkerCount != nil {
		r.WorkerCount = *p.WorkerCount
	}
	if p.Hours != nil {
		r.Hours = *p.Hours
	}
	if p.VehicleCount != nil {
		r.VehicleCount = *p.VehicleCount
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
}

func (s *Service) UpdateRow(ctx context.Context, reportID, rowID string, patch RowPatch) (*models.TelusReportRow, error) {
	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == models.TelusSent || report.Status == models.TelusSending {
		return nil, ErrReportSent
	}
	var row models.TelusReportRow
	if err := s.db.WithContext(ctx).First(&row, "id = ? AND report_id = ?", rowID, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	patch.apply(&row)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, fmt.Errorf("update telus row: %w", err)
	}
	return &row, nil
}

func (s *Service) Review(ctx context.Context, id, userID string) (*models.TelusReport, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.TelusDraft {
		return nil, ErrInvalidTransition
	}
	now := s.now()
	report.Status = models.TelusReviewed
	report.ReviewedBy = &userID
	report.ReviewedAt = &now
	if err := s.saveStatus(ctx, report, userID, "TELUS_REVIEW", nil); err != nil {
		return nil, err
	}
	return report, nil
}

// Send emails the Excel export of a reviewed report. The report is only
// marked sent once delivery succeeds.
func (s *Service) Send(ctx context.Context, id, userID string, to []string) (*models.TelusReport, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.TelusReviewed {
		return nil, ErrInvalidTransition
	}
	if len(to) == 0 {
		to = s.recipients
	}
	if len(to) == 0 {
		return nil, mailer.ErrNoRecipients
	}
	xlsx, err := Excel(*report)
	if err != nil {
		return nil, err
	}
	msg := mailer.Message{
		To:          to,
		Subject:     Subject(*report),
		HTMLBody:    emailBody(*report),
		Attachments: []mailer.Attachment{{Filename: Filename(*report, "xlsx"), Content: xlsx}},
	}
	if err := s.claim(ctx, id, models.TelusReviewed, models.TelusSending); err != nil {
		return nil, err
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.lg.Errorw("telus report email failed", "report_id", id, "error", err)
		if rerr := s.claim(context.WithoutCancel(ctx), id, models.TelusSending, models.TelusReviewed); rerr != nil {
			s.lg.Errorw("telus report left in sending state", "report_id", id, "error", rerr)
		}
		return nil, fmt.Errorf("send telus report: %w", err)
	}
	now := s.now()
	report.Status = models.TelusSent
	report.SentBy = &userID
	report.SentAt = &now
	report.SentTo = strings.Join(to, ", ")
	if err := s.saveStatus(ctx, report, userID, "TELUS_SEND", map[string]any{"to": to}); err != nil {
		return nil, err
	}
	return report, nil
}

// claim moves a report from one status to another only if it is still in
// from, so two concurrent sends cannot both deliver.
func (s *Service) claim(ctx context.Context, id, from, to string) error {
	res := s.db.WithContext(ctx).Model(&models.TelusReport{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update telus report status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Service) saveStatus(ctx context.Context, r *models.TelusReport, userID, action string, meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["status"] = r.Status
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Rows").Save(r).Error; err != nil {
			return fmt.Errorf("save telus report: %w", err)
		}
		uid := userID
		return tx.Create(&models.AuditLog{
			UserID:   &uid,
			Entity:   "telus_report",
			EntityID: r.ID,
			Action:   action,
			Metadata: models.MustJSON(meta),
		}).Error
	})
}

func Subject(r models.TelusReport) string {
	if r.Type == models.TelusWeekly {
		return fmt.Sprintf("TELUS weekly report %s - %s", util.FormatDate(r.StartDate), util.FormatDate(r.EndDate))
	}
	return "TELUS daily report " + util.FormatDate(r.StartDate)
}

func Filename(r models.TelusReport, ext string) string {
	return fmt.Sprintf("telus-%s-%s.%s", r.Type, r.StartDate.Format("2006-01-02"), ext)
}

func emailBody(r models.TelusReport) string {
	var hrs float64
	for _, row := range r.Rows {
		hrs += row.Hours
	}
	return fmt.Sprintf("<p>Please find attached the %s.</p><p>Jobs: %d<br>Total hours: %.2f</p>",
		Subject(r), len(r.Rows), hrs)
}
