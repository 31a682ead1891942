package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort       string
	DatabaseURL    string
	DatabaseDriver string
	JWTSecret      string
	JWTExpiresIn   time.Duration
	LogLevel       string

	MediaDir       string
	MediaBaseURL   string
	MediaAPIKey    string
	MediaAPISecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	TelusClientName string
	TelusRecipients []string

	AdminEmail    string
	AdminPassword string
}

// Load reads a .env file when present and then the process environment.
// Explicit env vars win over .env entries.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseDriver:  strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiresIn:    getDuration("JWT_EXPIRES_IN", 24*time.Hour),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MediaDir:        getEnv("MEDIA_DIR", "./data/media"),
		MediaBaseURL:    strings.TrimRight(getEnv("MEDIA_BASE_URL", "/media"), "/"),
		MediaAPIKey:     getEnv("MEDIA_API_KEY", ""),
		MediaAPISecret:  getEnv("MEDIA_API_SECRET", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getInt("SMTP_PORT", 587),
		SMTPUser:        getEnv("SMTP_USER", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		MailFrom:        getEnv("MAIL_FROM", "Dispatch <dispatch@trafficdesk.local>"),
		TelusClientName: getEnv("TELUS_CLIENT_NAME", "TELUS"),
		TelusRecipients: splitList(getEnv("TELUS_RECIPIENTS", "")),
		AdminEmail:      strings.ToLower(getEnv("ADMIN_EMAIL", "admin@trafficdesk.local")),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "change-me"),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
