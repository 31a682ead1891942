package db

import (
	"errors"
	"fmt"
	"strings"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/config"
	"trafficdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects using the configured driver. Postgres is the production
// store; sqlite backs local runs and tests.
func Open(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch cfg.DatabaseDriver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "file:trafficdesk.db?_foreign_keys=on"
		}
		return gorm.Open(sqlite.Open(dsn), gcfg)
	case "postgres", "":
		dsn := NormalizeDSN(cfg.DatabaseURL)
		if dsn == "" {
			return nil, errors.New("DATABASE_URL is empty")
		}
		return gorm.Open(postgres.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

var defaultTaxCodes = []models.TaxCode{
	{Name: "GST", Rate: 5},
	{Name: "GST+PST", Rate: 12},
	{Name: "Exempt", Rate: 0},
}

var defaultTerms = []models.Term{
	{Name: "Due on receipt", Days: 0},
	{Name: "Net 15", Days: 15},
	{Name: "Net 30", Days: 30},
}

// Seed creates roles, the default admin and lookup rows. It is safe to run
// on every boot.
func Seed(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) error {
	for _, name := range []string{models.RoleAdministrator, models.RoleDispatcher, models.RoleWorker} {
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&models.Role{}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	if err := seedAdmin(db, cfg, lg); err != nil {
		return err
	}
	var count int64
	db.Model(&models.TaxCode{}).Count(&count)
	if count == 0 {
		codes := append([]models.TaxCode(nil), defaultTaxCodes...)
		if err := db.Create(&codes).Error; err != nil {
			return fmt.Errorf("seed tax codes: %w", err)
		}
	}
	db.Model(&models.Term{}).Count(&count)
	if count == 0 {
		terms := append([]models.Term(nil), defaultTerms...)
		if err := db.Create(&terms).Error; err != nil {
			return fmt.Errorf("seed terms: %w", err)
		}
	}
	return nil
}

func seedAdmin(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) error {
	email := strings.ToLower(cfg.AdminEmail)
	var count int64
	db.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count)
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	var adminRole models.Role
	if err := db.First(&adminRole, "name = ?", models.RoleAdministrator).Error; err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}
	u := models.User{Email: email, Name: "Administrator", PasswordHash: hash, IsActive: true, Roles: []models.Role{adminRole}}
	if err := db.Create(&u).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	lg.Infow("seeded default admin", "email", email)
	return nil
}
