package handlers

import (
	"net/http"
	"time"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/job"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type boardJob struct {
	models.Job
	Attention job.Attention `json:"attention"`
}

type boardColumn struct {
	ID    string     `json:"id"`
	Date  time.Time  `json:"date"`
	Label string     `json:"label"`
	Jobs  []boardJob `json:"jobs"`
}

// JobBoard returns the day or week columns with each job's attention flag.
// Query: mode=day|week, date=YYYY-MM-DD, tz=IANA zone.
func JobBoard(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := location(r)
		if err != nil {
			http.Error(w, "invalid tz", http.StatusBadRequest)
			return
		}
		now := time.Now().In(loc)
		date := now
		if s := r.URL.Query().Get("date"); s != "" {
			if date, err = parseDay(s, loc); err != nil {
				http.Error(w, "invalid date", http.StatusBadRequest)
				return
			}
		}
		mode := job.Mode(r.URL.Query().Get("mode"))
		if mode == "" {
			mode = job.ModeWeek
		}
		start, end, err := job.Range(mode, date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var regular, open []models.Job
		if err := withCrew(db).Where("start_time >= ? AND start_time < ?", start, end).Find(&regular).Error; err != nil {
			serverError(w, lg, "board jobs failed", err)
			return
		}
		if err := withCrew(db).Where("open = ?", true).Find(&open).Error; err != nil {
			serverError(w, lg, "board open jobs failed", err)
			return
		}
		cols, err := job.BuildColumns(mode, date, job.Merge(regular, open))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out := make([]boardColumn, 0, len(cols))
		for _, c := range cols {
			bc := boardColumn{ID: c.ID, Date: c.Date, Label: c.Label, Jobs: make([]boardJob, 0, len(c.Jobs))}
			for _, j := range c.Jobs {
				bc.Jobs = append(bc.Jobs, boardJob{Job: j, Attention: job.Evaluate(j, now)})
			}
			out = append(out, bc)
		}
		respondJSON(w, map[string]any{"mode": mode, "start": start, "end": end, "columns": out})
	}
}

type moveReq struct {
	Columns  []job.ColumnIDs `json:"columns"`
	ActiveID string          `json:"active_id"`
	OverID   string          `json:"over_id"`
	Below    bool            `json:"below"`
}

// MoveOnBoard replays one drag gesture over the client's board and returns
// the resulting order. Nothing is persisted.
func MoveOnBoard(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.ActiveID == "" || req.OverID == "" {
			http.Error(w, "active_id and over_id required", http.StatusBadRequest)
			return
		}
		d := job.DragFromIDs(req.Columns)
		// A cross-column move is complete once Over lands the card.
		if !d.Over(req.ActiveID, req.OverID, req.Below) {
			d.End(req.ActiveID, req.OverID)
		}
		lg.Debugw("board move", "active", req.ActiveID, "over", req.OverID)
		respondJSON(w, map[string]any{"columns": d.Columns()})
	}
}
