package models

const (
	ClientActive   = "active"
	ClientInactive = "inactive"
)

type Client struct {
	Base
	Name         string `gorm:"not null;index" json:"name"`
	Region       string `gorm:"index" json:"region"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Unit         string `json:"unit"`
	Street       string `json:"street"`
	City         string `json:"city"`
	Province     string `json:"province"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Status       string `gorm:"not null;default:active" json:"status"`
	LogoURL      string `json:"logo_url"`
	LogoPublicID string `json:"logo_public_id"`
}

// Address snapshots the client's postal address for invoices.
func (c Client) Address() Address {
	return Address{
		Name:       c.Name,
		Unit:       c.Unit,
		Street:     c.Street,
		City:       c.City,
		Province:   c.Province,
		PostalCode: c.PostalCode,
		Country:    c.Country,
		Email:      c.Email,
		Phone:      c.Phone,
	}
}

type TaxCode struct {
	Base
	Name string  `gorm:"not null;uniqueIndex" json:"name"`
	Rate float64 `gorm:"not null" json:"rate"` // percent
}

type Term struct {
	Base
	Name string `gorm:"not null;uniqueIndex" json:"name"`
	Days int    `json:"days"`
}

type Store struct {
	Base
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}

type Service struct {
	Base
	Name  string  `gorm:"not null;uniqueIndex" json:"name"`
	Price float64 `json:"price"`
}

type Vehicle struct {
	Base
	Name         string `gorm:"not null" json:"name"`
	LicensePlate string `gorm:"index" json:"license_plate"`
	Type         string `json:"type"`
}
