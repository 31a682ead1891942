package job

import (
	"fmt"
	"sort"
	"time"
	"trafficdesk/internal/models"
	"trafficdesk/internal/util"
)

type Mode string

const (
	ModeDay  Mode = "day"
	ModeWeek Mode = "week"
)

const dateKey = "2006-01-02"

type Column struct {
	ID    string       `json:"id"`
	Date  time.Time    `json:"date"`
	Label string       `json:"label"`
	Jobs  []models.Job `json:"jobs"`
}

// Merge joins the regular and open job lists, dropping duplicate ids. The
// first occurrence wins.
func Merge(regular, open []models.Job) []models.Job {
	seen := make(map[string]bool, len(regular)+len(open))
	out := make([]models.Job, 0, len(regular)+len(open))
	for _, list := range [][]models.Job{regular, open} {
		for _, j := range list {
			if seen[j.ID] {
				continue
			}
			seen[j.ID] = true
			out = append(out, j)
		}
	}
	return out
}

// Range returns the half-open [start, end) window a board covers. Week
// boards run Monday through Sunday.
func Range(mode Mode, date time.Time) (time.Time, time.Time, error) {
	switch mode {
	case ModeDay:
		start := util.StartOfDay(date)
		return start, start.AddDate(0, 0, 1), nil
	case ModeWeek:
		start := util.StartOfWeek(date)
		return start, start.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown board mode %q", mode)
	}
}

// BuildColumns partitions jobs into day columns. Start times are read in
// date's location. Jobs outside the range are dropped; each column is sorted
// by start time, then job number.
func BuildColumns(mode Mode, date time.Time, jobs []models.Job) ([]Column, error) {
	start, end, err := Range(mode, date)
	if err != nil {
		return nil, err
	}
	loc := date.Location()
	var cols []Column
	index := map[string]int{}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		id := d.Format(dateKey)
		index[id] = len(cols)
		cols = append(cols, Column{ID: id, Date: d, Label: d.Format("Mon Jan 2"), Jobs: []models.Job{}})
	}
	for _, j := range jobs {
		i, ok := index[j.StartTime.In(loc).Format(dateKey)]
		if !ok {
			continue
		}
		cols[i].Jobs = append(cols[i].Jobs, j)
	}
	for i := range cols {
		jobs := cols[i].Jobs
		sort.SliceStable(jobs, func(a, b int) bool {
			if !jobs[a].StartTime.Equal(jobs[b].StartTime) {
				return jobs[a].StartTime.Before(jobs[b].StartTime)
			}
			return jobs[a].JobNumber < jobs[b].JobNumber
		})
	}
	return cols, nil
}
