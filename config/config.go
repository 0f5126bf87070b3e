package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// DevSecret signs sessions outside production when AUTH_SECRET is unset.
const DevSecret = "dev-secret-change-me"

var ErrMissingSecret = errors.New("AUTH_SECRET must be set in production")

// Common is shared by every binary.
type Common struct {
	Env         string `env:"ENV"          envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"  validate:"oneof=debug info warn error"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	AuthSecret  string `env:"AUTH_SECRET"`
}

type Config struct {
	Common

	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	DBDriver    string `env:"DB_DRIVER"    envDefault:"postgres" validate:"oneof=postgres sqlite"`
	DatabaseURL string `env:"DATABASE_URL,required"              validate:"required"`
	DBSchema    string `env:"DB_SCHEMA"    envDefault:"app"`

	BaseURL   string `env:"BASE_URL"   envDefault:"http://localhost:8080" validate:"required,url"`
	SiteTitle string `env:"SITE_TITLE" envDefault:"Document Browser"`

	MailProvider string        `env:"MAIL_PROVIDER"  envDefault:"log" validate:"oneof=log resend smtp"`
	MailFrom     string        `env:"MAIL_FROM"      validate:"required_unless=MailProvider log"`
	ResendAPIKey string        `env:"RESEND_API_KEY" validate:"required_if=MailProvider resend"`
	SMTPHost     string        `env:"SMTP_HOST"      envDefault:"smtp.mailbox.org"`
	SMTPPort     int           `env:"SMTP_PORT"      envDefault:"587" validate:"min=1,max=65535"`
	SMTPUser     string        `env:"SMTP_USER"`
	SMTPPass     string        `env:"SMTP_PASS"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	ReportSchedule string        `env:"REPORT_SCHEDULE" envDefault:"@every 1m"`
	ReapInterval   time.Duration `env:"REAP_INTERVAL"   envDefault:"10m" validate:"gt=0"`
	TokenRetention time.Duration `env:"TOKEN_RETENTION" envDefault:"24h" validate:"gte=0"`
}

// EdgeConfig is everything the standalone gate needs: no database.
type EdgeConfig struct {
	Common

	Port        string `env:"PORT"              envDefault:"8000" validate:"required"`
	UpstreamURL string `env:"EDGE_UPSTREAM_URL" validate:"required,url"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := load(cfg, &cfg.Common); err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return cfg, nil
}

func LoadEdge() (*EdgeConfig, error) {
	cfg := &EdgeConfig{}
	if err := load(cfg, &cfg.Common); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(cfg any, common *Common) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if common.AuthSecret == "" {
		if common.IsProduction() {
			return ErrMissingSecret
		}
		common.AuthSecret = DevSecret
	}
	return nil
}

func (c *Common) IsProduction() bool {
	return c.Env == "production"
}

func (c *Common) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
