package validation

import (
	"net/mail"
	"strings"
	"time"
)

// Violations maps a field name to a short machine-readable code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for field, code := range v {
		parts = append(parts, field+": "+code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "invalid_value"
}

// Email accepts an empty value; pair with Required when mandatory.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v[field] = "invalid_email"
	}
}

func NonNegative(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func NotBefore(field string, val, ref time.Time, v Violations) {
	if val.Before(ref) {
		v[field] = "before_reference"
	}
}
