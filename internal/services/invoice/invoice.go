// Package invoice computes invoice money fields, validates invoices and
// groups line items by job.
package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"trafficdesk/internal/models"
	"trafficdesk/internal/validation"
)

var (
	discountTypes = []string{models.DiscountPercent, models.DiscountValue}
	statuses      = []string{models.InvoiceDraft, models.InvoiceSent, models.InvoicePaid, models.InvoiceVoid}
)

func Validate(inv models.Invoice) validation.Violations {
	v := validation.Violations{}
	validation.Required("client_id", inv.ClientID, v)
	if len(inv.Items) == 0 {
		v["items"] = "required"
	}
	validation.OneOf("discount_type", inv.DiscountType, discountTypes, v)
	validation.OneOf("status", inv.Status, statuses, v)
	validation.NonNegative("discount", inv.Discount, v)
	if inv.DiscountType == models.DiscountPercent && inv.Discount > 100 {
		v["discount"] = "out_of_range"
	}
	if inv.CreateDate.IsZero() {
		v["create_date"] = "required"
	}
	if inv.DueDate.IsZero() {
		v["due_date"] = "required"
	} else {
		validation.NotBefore("due_date", inv.DueDate, inv.CreateDate, v)
	}
	for i, it := range inv.Items {
		validation.NonNegative(fmt.Sprintf("items[%d].quantity", i), it.Quantity, v)
		validation.NonNegative(fmt.Sprintf("items[%d].price", i), it.Price, v)
	}
	return v
}

const numberPrefix = "INV-"

func FormatNumber(seq int) string {
	return fmt.Sprintf("%s%05d", numberPrefix, seq)
}

// ParseNumber returns the sequence of an invoice number, or 0.
func ParseNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(s, numberPrefix))
	if err != nil || !strings.HasPrefix(s, numberPrefix) {
		return 0
	}
	return n
}

// NextNumber returns the number following the highest existing one.
func NextNumber(existing []string) string {
	max := 0
	for _, s := range existing {
		if n := ParseNumber(s); n > max {
			max = n
		}
	}
	return FormatNumber(max + 1)
}
