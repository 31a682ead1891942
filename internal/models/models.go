package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdministrator = "Administrator"
	RoleDispatcher    = "Dispatcher"
	RoleWorker        = "Worker"
)

// Base carries the string uuid primary key and timestamps shared by most
// records. Ids are assigned client-side so sqlite and postgres behave alike.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b Base) Key() string { return b.ID }

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type Role struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
	Roles        []Role `gorm:"many2many:user_roles" json:"roles"`
}

func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"size:36;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"size:36;index" json:"user_id,omitempty"`
	Entity    string    `gorm:"index" json:"entity"`
	EntityID  string    `gorm:"size:36" json:"entity_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Role{}, &User{}, &Session{}, &AuditLog{},
		&Client{}, &TaxCode{}, &Term{}, &Store{}, &Service{}, &Vehicle{},
		&Invoice{}, &InvoiceItem{},
		&Job{}, &JobWorker{}, &JobVehicle{},
		&FLRA{},
		&TelusReport{}, &TelusReportRow{},
	}
}
