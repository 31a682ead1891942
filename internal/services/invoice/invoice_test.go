package invoice

import (
	"testing"
	"time"
	"trafficdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string { return &s }

func day(d int) *time.Time {
	t := time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestComputeTotalsReferenceCases(t *testing.T) {
	rates := map[string]float64{"gst": 5}
	items := []LineItem{{Quantity: 2, Price: 10, TaxCodeID: "gst"}}

	got := ComputeTotals(items, models.DiscountPercent, 0, rates)
	assert.Equal(t, Totals{Subtotal: 20, DiscountAmount: 0, Taxes: 1, Total: 21}, got)

	got = ComputeTotals(items, models.DiscountValue, 5, rates)
	assert.Equal(t, Totals{Subtotal: 20, DiscountAmount: 5, Taxes: 1, Total: 16}, got)

	got = ComputeTotals(items, models.DiscountPercent, 10, rates)
	assert.Equal(t, 2.0, got.DiscountAmount)
	assert.Equal(t, 19.0, got.Total)
}

func TestComputeTotalsUnknownTaxCode(t *testing.T) {
	got := ComputeTotals([]LineItem{{Quantity: 3, Price: 7.5, TaxCodeID: "missing"}, {Quantity: 1, Price: 4}}, models.DiscountValue, 0, nil)
	assert.Equal(t, 26.5, got.Subtotal)
	assert.Equal(t, 0.0, got.Taxes)
	assert.Equal(t, 26.5, got.Total)
}

func TestComputeTotalsIdentityHolds(t *testing.T) {
	rates := map[string]float64{"a": 5, "b": 12, "c": 7.25}
	codes := []string{"a", "b", "c", ""}
	for n := 0; n < 200; n++ {
		var items []LineItem
		for i := 0; i <= n%5; i++ {
			items = append(items, LineItem{
				Quantity:  float64((n*7+i*3)%11) + 0.5*float64(i%2),
				Price:     float64((n*13+i*17)%997) / 7,
				TaxCodeID: codes[(n+i)%len(codes)],
			})
		}
		dtype := models.DiscountValue
		if n%2 == 0 {
			dtype = models.DiscountPercent
		}
		got := ComputeTotals(items, dtype, float64(n%30), rates)
		assert.InDelta(t, got.Subtotal-got.DiscountAmount+got.Taxes, got.Total, 1e-9, "case %d", n)
		assert.GreaterOrEqual(t, got.Subtotal, 0.0)
		assert.GreaterOrEqual(t, got.Taxes, 0.0)
	}
}

func TestApplyOverwritesClientTotals(t *testing.T) {
	inv := models.Invoice{
		DiscountType: models.DiscountValue,
		Discount:     5,
		Subtotal:     9999,
		TotalAmount:  9999,
		Items: []models.InvoiceItem{
			{Quantity: 2, Price: 10, TaxCodeID: sp("gst"), Total: 1},
			{Quantity: 1, Price: 3.333},
		},
	}
	Apply(&inv, map[string]float64{"gst": 5})
	assert.Equal(t, 23.33, inv.Subtotal)
	assert.Equal(t, 1.0, inv.Taxes)
	assert.Equal(t, 19.33, inv.TotalAmount)
	assert.Equal(t, 20.0, inv.Items[0].Total)
	assert.Equal(t, 3.33, inv.Items[1].Total)
	assert.Equal(t, 1, inv.Items[1].Position)
}

func TestExtractJobNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Traffic control Job #4521 - 2 TCPs", "4521", true},
		{"Job No. 77 lane closure", "77", true},
		{"job number: j-88 flagging", "J-88", true},
		{"Setup for JOB-1042 on Main St", "JOB-1042", true},
		{"j-9 signage", "J-9", true},
		{"Extra hours #20451", "20451", true},
		{"Job notes: hourly rate", "", false},
		{"Lane closure #12", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractJobNumber(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestGroupByJobOrdering(t *testing.T) {
	items := []models.InvoiceItem{
		{Description: "misc supplies", Quantity: 1, Price: 5},
		{Description: "Job #300 flagging", ServiceDate: day(14), Quantity: 2, Price: 10},
		{Description: "JOB-100 setup", ServiceDate: day(16), Quantity: 1, Price: 50},
		{Description: "overtime", JobNumber: "300", ServiceDate: day(12), Quantity: 1, Price: 30},
		{Description: "Job #200 no date", Quantity: 1, Price: 1},
		{Description: "j-100 takedown", ServiceDate: day(15), Quantity: 1, Price: 20},
	}
	groups := GroupByJob(items)
	require.Len(t, groups, 5)

	assert.Equal(t, "300", groups[0].JobNumber)
	assert.Equal(t, day(12), groups[0].EarliestDate)
	assert.Equal(t, []string{"Job #300 flagging", "overtime"}, descriptions(groups[0].Items))
	assert.Equal(t, 50.0, groups[0].Subtotal)

	assert.Equal(t, "J-100", groups[1].JobNumber)
	assert.Equal(t, "JOB-100", groups[2].JobNumber)
	assert.Equal(t, "200", groups[3].JobNumber)
	assert.Nil(t, groups[3].EarliestDate)
	assert.Equal(t, "", groups[4].JobNumber)

	withLoose := GroupByJob(append(items, models.InvoiceItem{Description: "fuel", ServiceDate: day(1)}))
	assert.Equal(t, "", withLoose[len(withLoose)-1].JobNumber)
	assert.Equal(t, []string{"misc supplies", "fuel"}, descriptions(withLoose[len(withLoose)-1].Items))
}

func descriptions(items []models.InvoiceItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Description)
	}
	return out
}

func TestValidate(t *testing.T) {
	create := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	inv := models.Invoice{
		ClientID:     "c1",
		DiscountType: models.DiscountPercent,
		Status:       models.InvoiceDraft,
		CreateDate:   create,
		DueDate:      create.AddDate(0, 0, -1),
	}
	v := Validate(inv)
	assert.Equal(t, "required", v["items"])
	assert.Equal(t, "before_reference", v["due_date"])

	inv.DueDate = create
	inv.Items = []models.InvoiceItem{{Quantity: 1, Price: 10}}
	assert.True(t, Validate(inv).Empty())

	inv.Items[0].Quantity = -1
	inv.Discount = 150
	v = Validate(inv)
	assert.Equal(t, "must_not_be_negative", v["items[0].quantity"])
	assert.Equal(t, "out_of_range", v["discount"])
}

func TestNumbers(t *testing.T) {
	assert.Equal(t, "INV-00001", NextNumber(nil))
	assert.Equal(t, "INV-00043", NextNumber([]string{"INV-00007", "INV-00042", "legacy-9"}))
	assert.Equal(t, 0, ParseNumber("42"))
	assert.Equal(t, 42, ParseNumber("INV-00042"))
}
