package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dosewise/dosewise/internal/api"
	"github.com/dosewise/dosewise/internal/config"
	"github.com/dosewise/dosewise/internal/notify"
	"github.com/dosewise/dosewise/internal/repository/postgres"
	"github.com/dosewise/dosewise/internal/scheduler"
	"github.com/dosewise/dosewise/internal/service"
	"github.com/dosewise/dosewise/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting dosewise...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	patientRepo := postgres.NewPatientRepository(db.DB)
	medicationRepo := postgres.NewMedicationRepository(db.DB)

	// Service layer
	svc := service.New(db.DB, l, patientRepo, medicationRepo, service.DefaultInteractionTable())

	// Notification transports; unset configuration leaves a channel unwired.
	var push notify.PushSender
	if cfg.TelegramToken != "" {
		sender, err := notify.NewTelegramPushSender(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create push transport: %v", err)
		}
		push = sender
	} else {
		l.Warn("TELEGRAM_TOKEN not set, push channel disabled")
	}

	var email notify.EmailSender
	if cfg.SMTPHost != "" {
		email = notify.NewSMTPEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		l.Warn("SMTP_HOST not set, email channel disabled")
	}

	var sms notify.SMSSender
	var voice notify.VoiceCaller
	if cfg.ProviderURL != "" {
		provider := notify.NewProviderClient(cfg.ProviderURL, cfg.ProviderAPIKey)
		sms = provider
		voice = provider
	} else {
		l.Warn("SMS_PROVIDER_URL not set, sms and voice channels disabled")
	}

	composer := notify.NewComposer(cfg.VoiceLocale)
	dispatcher := notify.NewDispatcher(push, sms, email, voice, cfg.DispatchTimeout, l)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Reminder scheduler
	sched := scheduler.New(medicationRepo, patientRepo, composer, dispatcher, l)
	sched.Start(ctx)

	// HTTP API server
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("dosewise started successfully")

	<-ctx.Done()

	l.Info("Shutting down...")
	sched.Stop()
	httpServer.Close()

	l.Info("dosewise stopped")
}
