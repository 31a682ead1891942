package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	OneOf("status", "archived", []string{"active", "inactive"}, v)
	Email("email", "not-an-email", v)
	NonNegative("price", -1, v)
	now := time.Now()
	NotBefore("due_date", now.Add(-time.Hour), now, v)

	assert.Equal(t, Violations{
		"name":     "required",
		"status":   "invalid_value",
		"email":    "invalid_email",
		"price":    "must_not_be_negative",
		"due_date": "before_reference",
	}, v)
	assert.False(t, v.Empty())
	assert.Contains(t, v.Error(), "name: required")
}

func TestValidatorsAcceptGoodInput(t *testing.T) {
	v := Violations{}
	Required("name", "Acme", v)
	OneOf("status", "active", []string{"active", "inactive"}, v)
	Email("email", "ops@acme.example", v)
	Email("optional_email", "", v)
	NonNegative("price", 0, v)
	now := time.Now()
	NotBefore("due_date", now, now, v)
	assert.True(t, v.Empty())
}
