package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
	InvoiceVoid  = "void"

	DiscountPercent = "percent"
	DiscountValue   = "value"
)

// Address is the snapshot stored on invoices (invoice_from / invoice_to).
type Address struct {
	Name       string `json:"name"`
	Unit       string `json:"unit,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type Invoice struct {
	Base
	Number       string                      `gorm:"uniqueIndex;not null" json:"number"`
	ClientID     string                      `gorm:"size:36;index;not null" json:"client_id"`
	Client       *Client                     `json:"client,omitempty"`
	InvoiceFrom  datatypes.JSONType[Address] `json:"invoice_from"`
	InvoiceTo    datatypes.JSONType[Address] `json:"invoice_to"`
	Items        []InvoiceItem               `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	DiscountType string                      `gorm:"not null;default:percent" json:"discount_type"`
	Discount     float64                     `json:"discount"`
	Subtotal     float64                     `json:"subtotal"`
	Taxes        float64                     `json:"taxes"`
	TotalAmount  float64                     `json:"total_amount"`
	TermID       *string                     `gorm:"size:36" json:"term_id,omitempty"`
	StoreID      *string                     `gorm:"size:36" json:"store_id,omitempty"`
	CreateDate   time.Time                   `json:"create_date"`
	DueDate      time.Time                   `json:"due_date"`
	Status       string                      `gorm:"not null;default:draft;index" json:"status"`
	Notes        string                      `json:"notes"`
}

type InvoiceItem struct {
	Base
	InvoiceID   string     `gorm:"size:36;index;not null" json:"invoice_id"`
	Position    int        `json:"position"`
	ServiceID   *string    `gorm:"size:36" json:"service_id,omitempty"`
	Description string     `json:"description"`
	JobNumber   string     `json:"job_number,omitempty"`
	ServiceDate *time.Time `json:"service_date,omitempty"`
	Quantity    float64    `json:"quantity"`
	Price       float64    `json:"price"`
	TaxCodeID   *string    `gorm:"size:36" json:"tax_code_id,omitempty"`
	Total       float64    `json:"total"`
}
