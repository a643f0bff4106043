package config

import (
	"fmt"
	"os"
	"strconv"
)

// Mail driver selection. "log" writes outgoing mail to the logger instead of
// an SMTP server and is the default for local development.
const (
	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

// SMTPConfig holds the settings for the SMTP notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Config holds the application configuration.
type Config struct {
	DatabaseURL string
	Port        string
	TokenSecret string
	OTPSalt     string

	// OtpEcho gates whether raw one-time codes are echoed in API responses.
	// Debug affordance only; defaults to off.
	OtpEcho bool

	MailDriver string
	SMTP       SMTPConfig

	LogLevel string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:       "8080",
		MailDriver: MailDriverLog,
		LogLevel:   "info",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET environment variable is required")
	}

	cfg.OTPSalt = os.Getenv("OTP_SALT")
	if cfg.OTPSalt == "" {
		return nil, fmt.Errorf("OTP_SALT environment variable is required")
	}

	cfg.OtpEcho = os.Getenv("OTP_ECHO") == "true"

	if driver := os.Getenv("MAIL_DRIVER"); driver != "" {
		if driver != MailDriverSMTP && driver != MailDriverLog {
			return nil, fmt.Errorf("MAIL_DRIVER must be %q or %q", MailDriverSMTP, MailDriverLog)
		}
		cfg.MailDriver = driver
	}

	if cfg.MailDriver == MailDriverSMTP {
		cfg.SMTP.Host = os.Getenv("SMTP_HOST")
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when MAIL_DRIVER=smtp")
		}
		cfg.SMTP.Port = 587
		if p := os.Getenv("SMTP_PORT"); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("SMTP_PORT must be numeric: %w", err)
			}
			cfg.SMTP.Port = port
		}
		cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
		cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
		cfg.SMTP.From = os.Getenv("SMTP_FROM")
		if cfg.SMTP.From == "" {
			cfg.SMTP.From = cfg.SMTP.Username
		}
		if cfg.SMTP.From == "" {
			return nil, fmt.Errorf("SMTP_FROM or SMTP_USERNAME is required when MAIL_DRIVER=smtp")
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}
