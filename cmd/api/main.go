package main

import (
	"log"
	"net/http"
	"time"
	"trafficdesk/internal/auth"
	"trafficdesk/internal/config"
	"trafficdesk/internal/db"
	"trafficdesk/internal/httpserver"
	"trafficdesk/internal/logger"
	"trafficdesk/internal/mailer"
	"trafficdesk/internal/media"
	"trafficdesk/internal/services/flra"
	"trafficdesk/internal/services/telus"
)

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	if cfg.JWTSecret == "" {
		lg.Fatalw("JWT_SECRET is empty")
	}
	gdb, err := db.Open(cfg)
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.Migrate(gdb); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	if err := db.Seed(gdb, cfg, lg); err != nil {
		lg.Fatalw("seed failed", "error", err)
	}

	store, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		lg.Fatalw("media store failed", "error", err)
	}
	var mail mailer.Mailer = mailer.NewLog(lg)
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		lg.Warnw("SMTP_HOST not set; emails are logged only")
	}

	router := httpserver.NewRouter(httpserver.Deps{
		DB:          gdb,
		Logger:      lg,
		Tokens:      auth.NewSigner(cfg.JWTSecret, cfg.JWTExpiresIn),
		MediaSigner: media.NewSigner(cfg.MediaAPIKey, cfg.MediaAPISecret),
		Store:       store,
		Mailer:      mail,
		FLRA:        flra.NewService(gdb, store, lg),
		Telus:       telus.NewService(gdb, mail, lg, cfg.TelusClientName, cfg.TelusRecipients),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
