// Package client holds the listing and validation rules for client records.
package client

import (
	"sort"
	"strings"
	"trafficdesk/internal/models"
	"trafficdesk/internal/validation"
)

type Query struct {
	Q      string
	Status string
	Region string
	Sort   string
	Desc   bool
	Page   int
	Limit  int
}

// Filter keeps clients matching every non-empty criterion. Q is a
// case-insensitive substring over name, email, contact name and region.
func Filter(clients []models.Client, q Query) []models.Client {
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]models.Client, 0, len(clients))
	for _, c := range clients {
		if q.Status != "" && !strings.EqualFold(c.Status, q.Status) {
			continue
		}
		if q.Region != "" && !strings.EqualFold(c.Region, q.Region) {
			continue
		}
		if needle != "" && !matches(c, needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matches(c models.Client, needle string) bool {
	for _, field := range []string{c.Name, c.Email, c.ContactName, c.Region} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Sort orders clients in place by name, region, status or created_at.
// Unknown fields fall back to name. Ties keep their input order.
func Sort(clients []models.Client, field string, desc bool) {
	less := func(a, b models.Client) bool {
		switch field {
		case "region":
			return strings.ToLower(a.Region) < strings.ToLower(b.Region)
		case "status":
			return a.Status < b.Status
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(clients, func(i, j int) bool {
		if desc {
			return less(clients[j], clients[i])
		}
		return less(clients[i], clients[j])
	})
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Paginate slices items for a 1-based page. A non-positive limit returns
// everything.
func Paginate[T any](items []T, page, limit int) Page[T] {
	total := len(items)
	if limit <= 0 {
		return Page[T]{Items: items, Total: total, Page: 1, Limit: total}
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return Page[T]{Items: items[start:end], Total: total, Page: page, Limit: limit}
}

// List applies filter, sort and pagination in that order.
func List(clients []models.Client, q Query) Page[models.Client] {
	filtered := Filter(clients, q)
	Sort(filtered, q.Sort, q.Desc)
	return Paginate(filtered, q.Page, q.Limit)
}

var statuses = []string{models.ClientActive, models.ClientInactive}

func Validate(c models.Client) validation.Violations {
	v := validation.Violations{}
	validation.Required("name", c.Name, v)
	validation.Email("email", c.Email, v)
	validation.OneOf("status", c.Status, statuses, v)
	return v
}
