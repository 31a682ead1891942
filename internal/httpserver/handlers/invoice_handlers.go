package handlers

import (
	"errors"
	"net/http"
	"time"
	"trafficdesk/internal/models"
	"trafficdesk/internal/services/invoice"
	"trafficdesk/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// invoiceReq is the writable part of an invoice. Money totals are absent on
// purpose: they are always recomputed from the items.
type invoiceReq struct {
	ClientID     string         `json:"client_id"`
	Number       string         `json:"number"`
	InvoiceFrom  models.Address `json:"invoice_from"`
	DiscountType string         `json:"discount_type"`
	Discount     float64        `json:"discount"`
	TermID       *string        `json:"term_id"`
	StoreID      *string        `json:"store_id"`
	CreateDate   time.Time      `json:"create_date"`
	DueDate      time.Time      `json:"due_date"`
	Status       string         `json:"status"`
	Notes        string         `json:"notes"`
	Items        []itemReq      `json:"items"`
}

type itemReq struct {
	ServiceID   *string    `json:"service_id"`
	Description string     `json:"description"`
	JobNumber   string     `json:"job_number"`
	ServiceDate *time.Time `json:"service_date"`
	Quantity    float64    `json:"quantity"`
	Price       float64    `json:"price"`
	TaxCodeID   *string    `json:"tax_code_id"`
}

func (req invoiceReq) applyTo(inv *models.Invoice) {
	inv.ClientID = req.ClientID
	if req.Number != "" {
		inv.Number = req.Number
	}
	inv.InvoiceFrom = datatypes.NewJSONType(req.InvoiceFrom)
	inv.DiscountType = req.DiscountType
	if inv.DiscountType == "" {
		inv.DiscountType = models.DiscountPercent
	}
	inv.Discount = req.Discount
	inv.TermID = req.TermID
	inv.StoreID = req.StoreID
	inv.CreateDate = req.CreateDate
	inv.DueDate = req.DueDate
	inv.Status = req.Status
	if inv.Status == "" {
		inv.Status = models.InvoiceDraft
	}
	inv.Notes = req.Notes
	inv.Items = make([]models.InvoiceItem, 0, len(req.Items))
	for _, it := range req.Items {
		inv.Items = append(inv.Items, models.InvoiceItem{
			InvoiceID:   inv.ID,
			ServiceID:   it.ServiceID,
			Description: it.Description,
			JobNumber:   it.JobNumber,
			ServiceDate: it.ServiceDate,
			Quantity:    it.Quantity,
			Price:       it.Price,
			TaxCodeID:   it.TaxCodeID,
		})
	}
}

func taxRates(db *gorm.DB) (map[string]float64, error) {
	var codes []models.TaxCode
	if err := db.Find(&codes).Error; err != nil {
		return nil, err
	}
	rates := make(map[string]float64, len(codes))
	for _, c := range codes {
		rates[c.ID] = c.Rate
	}
	return rates, nil
}

// prepare validates the invoice and fills derived fields: due date from the
// term, the billed-to snapshot from the client, and the totals.
func prepare(tx *gorm.DB, inv *models.Invoice) error {
	if inv.DueDate.IsZero() && inv.TermID != nil && !inv.CreateDate.IsZero() {
		var term models.Term
		if err := tx.First(&term, "id = ?", *inv.TermID).Error; err == nil {
			inv.DueDate = inv.CreateDate.AddDate(0, 0, term.Days)
		}
	}
	if v := invoice.Validate(*inv); !v.Empty() {
		return v
	}
	var c models.Client
	if err := tx.First(&c, "id = ?", inv.ClientID).Error; err != nil {
		return err
	}
	inv.InvoiceTo = datatypes.NewJSONType(c.Address())
	rates, err := taxRates(tx)
	if err != nil {
		return err
	}
	invoice.Apply(inv, rates)
	return nil
}

func nextNumber(tx *gorm.DB) (string, error) {
	var numbers []string
	if err := tx.Model(&models.Invoice{}).Pluck("number", &numbers).Error; err != nil {
		return "", err
	}
	return invoice.NextNumber(numbers), nil
}

func ListInvoices(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := db.Preload("Client").Order("create_date desc, number desc")
		if s := r.URL.Query().Get("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		if c := r.URL.Query().Get("client_id"); c != "" {
			q = q.Where("client_id = ?", c)
		}
		out := []models.Invoice{}
		if err := q.Find(&out).Error; err != nil {
			serverError(w, lg, "list invoices failed", err)
			return
		}
		respondJSON(w, out)
	}
}

func loadInvoice(db *gorm.DB, id string) (models.Invoice, error) {
	var inv models.Invoice
	err := db.Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&inv, "id = ?", id).Error
	return inv, err
}

func GetInvoice(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := loadInvoice(db, chi.URLParam(r, "id"))
		if err != nil {
			notFoundOr500(w, lg, "get invoice failed", err)
			return
		}
		respondJSON(w, inv)
	}
}

func NextInvoiceNumber(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := nextNumber(db)
		if err != nil {
			serverError(w, lg, "invoice number failed", err)
			return
		}
		respondJSON(w, map[string]any{"number": n})
	}
}

func CreateInvoice(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invoiceReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var inv models.Invoice
		req.applyTo(&inv)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := prepare(tx, &inv); err != nil {
				return err
			}
			if inv.Number == "" {
				n, err := nextNumber(tx)
				if err != nil {
					return err
				}
				inv.Number = n
			}
			return tx.Create(&inv).Error
		})
		if !writeInvoiceError(w, lg, err) {
			return
		}
		audit(db, r, "invoice", inv.ID, "INVOICE_CREATE", map[string]any{"number": inv.Number, "total": inv.TotalAmount})
		respondStatus(w, http.StatusCreated, inv)
	}
}

func UpdateInvoice(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invoiceReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		inv, err := loadInvoice(db, chi.URLParam(r, "id"))
		if err != nil {
			notFoundOr500(w, lg, "get invoice failed", err)
			return
		}
		inv.Client = nil
		req.applyTo(&inv)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := prepare(tx, &inv); err != nil {
				return err
			}
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			if err := tx.Omit("Items", "Client").Save(&inv).Error; err != nil {
				return err
			}
			return tx.Create(&inv.Items).Error
		})
		if !writeInvoiceError(w, lg, err) {
			return
		}
		audit(db, r, "invoice", inv.ID, "INVOICE_UPDATE", map[string]any{"number": inv.Number, "total": inv.TotalAmount})
		respondJSON(w, inv)
	}
}

// writeInvoiceError reports whether err was nil; otherwise it has written
// the response.
func writeInvoiceError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) bool {
	if err == nil {
		return true
	}
	var v validation.Violations
	switch {
	case errors.As(err, &v):
		respondInvalid(w, v)
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondInvalid(w, validation.Violations{"client_id": "not_found"})
	default:
		serverError(w, lg, "invoice save failed", err)
	}
	return false
}

func DeleteInvoice(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			res := tx.Delete(&models.Invoice{}, "id = ?", id)
			if res.Error == nil && res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return res.Error
		})
		if err != nil {
			notFoundOr500(w, lg, "invoice delete failed", err)
			return
		}
		audit(db, r, "invoice", id, "INVOICE_DELETE", nil)
		respondJSON(w, map[string]any{"deleted": true})
	}
}

// InvoiceGroups returns the invoice's line items grouped by job number.
func InvoiceGroups(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := loadInvoice(db, chi.URLParam(r, "id"))
		if err != nil {
			notFoundOr500(w, lg, "get invoice failed", err)
			return
		}
		respondJSON(w, invoice.GroupByJob(inv.Items))
	}
}
