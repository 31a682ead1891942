package invoice

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"trafficdesk/internal/models"
)

// Patterns are tried in order; the first match wins.
var jobNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bjob\s*(?:#|no\.|no\b|number\b)\s*:?\s*([a-z0-9-]*\d[a-z0-9-]*)`),
	regexp.MustCompile(`(?i)\b((?:job|j)-\d+)\b`),
	regexp.MustCompile(`(?:^|\s)#(\d{3,})\b`),
}

// ExtractJobNumber pulls a job number out of free text. The result is
// upper-cased so "job-12" and "JOB-12" group together.
func ExtractJobNumber(description string) (string, bool) {
	for _, re := range jobNumberPatterns {
		if m := re.FindStringSubmatch(description); len(m) > 1 {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}

// JobNumberOf prefers the explicit field over text parsing.
func JobNumberOf(item models.InvoiceItem) string {
	if n := strings.TrimSpace(item.JobNumber); n != "" {
		return strings.ToUpper(n)
	}
	n, _ := ExtractJobNumber(item.Description)
	return n
}

type ItemGroup struct {
	JobNumber    string               `json:"job_number"`
	EarliestDate *time.Time           `json:"earliest_date,omitempty"`
	Items        []models.InvoiceItem `json:"items"`
	Subtotal     float64              `json:"subtotal"`
}

// GroupByJob groups line items by job number. Groups are ordered by their
// earliest service date; undated groups follow dated ones, and the group of
// items without a job number is always last. Item order inside a group is
// preserved.
func GroupByJob(items []models.InvoiceItem) []ItemGroup {
	index := map[string]int{}
	var groups []ItemGroup
	for _, it := range items {
		key := JobNumberOf(it)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ItemGroup{JobNumber: key})
		}
		g := &groups[i]
		g.Items = append(g.Items, it)
		g.Subtotal = roundCents(g.Subtotal + it.Quantity*it.Price)
		if it.ServiceDate != nil && (g.EarliestDate == nil || it.ServiceDate.Before(*g.EarliestDate)) {
			d := *it.ServiceDate
			g.EarliestDate = &d
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if (a.JobNumber == "") != (b.JobNumber == "") {
			return b.JobNumber == ""
		}
		if (a.EarliestDate == nil) != (b.EarliestDate == nil) {
			return b.EarliestDate == nil
		}
		if a.EarliestDate != nil && !a.EarliestDate.Equal(*b.EarliestDate) {
			return a.EarliestDate.Before(*b.EarliestDate)
		}
		return a.JobNumber < b.JobNumber
	})
	return groups
}
