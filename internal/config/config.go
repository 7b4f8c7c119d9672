package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string
	LogLevel    string
	Port        string

	// Notification transports. A transport whose settings are absent is
	// simply not wired; the dispatcher reports that channel as failed.
	TelegramToken  string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	ProviderURL    string
	ProviderAPIKey string

	// VoiceLocale is the fixed locale for outbound voice calls. Voice
	// messages are always rendered in this locale, independent of the
	// patient's language preference.
	VoiceLocale string

	DispatchTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		Port:           getEnvOrDefault("PORT", "8080"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:       os.Getenv("SMTP_FROM"),
		ProviderURL:    os.Getenv("SMS_PROVIDER_URL"),
		ProviderAPIKey: os.Getenv("SMS_PROVIDER_API_KEY"),
		VoiceLocale:    getEnvOrDefault("VOICE_LOCALE", "hi"),
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("DISPATCH_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_TIMEOUT: %w", err)
	}
	cfg.DispatchTimeout = timeout

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
