package invoice

import (
	"math"
	"trafficdesk/internal/models"
)

// LineItem is the part of an invoice row that affects money.
type LineItem struct {
	Quantity  float64
	Price     float64
	TaxCodeID string
}

type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	Taxes          float64 `json:"taxes"`
	Total          float64 `json:"total_amount"`
}

// ComputeTotals derives the invoice money fields from its line items.
// taxRates maps tax code id to a percentage; unknown codes carry no tax.
// Each component is rounded to cents and Total is derived from the rounded
// components, so Total == Subtotal - DiscountAmount + Taxes always holds.
func ComputeTotals(items []LineItem, discountType string, discount float64, taxRates map[string]float64) Totals {
	var subtotal, taxes float64
	for _, it := range items {
		line := it.Quantity * it.Price
		subtotal += line
		if rate, ok := taxRates[it.TaxCodeID]; ok {
			taxes += line * rate / 100
		}
	}
	discountAmount := discount
	if discountType == models.DiscountPercent {
		discountAmount = subtotal * discount / 100
	}
	t := Totals{
		Subtotal:       roundCents(subtotal),
		DiscountAmount: roundCents(discountAmount),
		Taxes:          roundCents(taxes),
	}
	t.Total = roundCents(t.Subtotal - t.DiscountAmount + t.Taxes)
	return t
}

// Apply recomputes item totals and the invoice money fields in place.
// Client-supplied subtotal/taxes/total are always overwritten.
func Apply(inv *models.Invoice, taxRates map[string]float64) Totals {
	items := make([]LineItem, 0, len(inv.Items))
	for i := range inv.Items {
		it := &inv.Items[i]
		it.Position = i
		it.Total = roundCents(it.Quantity * it.Price)
		code := ""
		if it.TaxCodeID != nil {
			code = *it.TaxCodeID
		}
		items = append(items, LineItem{Quantity: it.Quantity, Price: it.Price, TaxCodeID: code})
	}
	t := ComputeTotals(items, inv.DiscountType, inv.Discount, taxRates)
	inv.Subtotal = t.Subtotal
	inv.Taxes = t.Taxes
	inv.TotalAmount = t.Total
	return t
}

func roundCents(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
