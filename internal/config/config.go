// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full environment configuration.
type Config struct {
	Backend  string `env:"BACKEND" envDefault:"sheets"`
	Schema   string `env:"SCHEMA" envDefault:"attendee"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Timezone string `env:"TIMEZONE" envDefault:"Asia/Seoul"`
	Listen   string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8080"`

	Sheets   SheetsConfig
	SQLite   SQLiteConfig
	Reminder ReminderConfig
	SMTP     SMTPConfig
	CalDAV   CalDAVConfig
}

type SheetsConfig struct {
	SpreadsheetID      string `env:"SPREADSHEET_ID"`
	EventsWorksheet    string `env:"EVENTS_WORKSHEET" envDefault:"events"`
	ManagersWorksheet  string `env:"MANAGERS_WORKSHEET" envDefault:"managers"`
	ServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	ClientID           string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret       string `env:"GOOGLE_CLIENT_SECRET"`
	Account            string `env:"GOOGLE_ACCOUNT" envDefault:"default"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"kongming.db"`
}

type ReminderConfig struct {
	Enabled    bool     `env:"REMINDER_ENABLED" envDefault:"false"`
	Time       string   `env:"REMINDER_TIME" envDefault:"09:00"`
	Recipients []string `env:"REMINDER_RECIPIENTS" envSeparator:","`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

type CalDAVConfig struct {
	Endpoint string `env:"CALDAV_ENDPOINT" envDefault:"https://caldav.icloud.com/"`
	Username string `env:"CALDAV_USERNAME"`
	Password string `env:"CALDAV_PASSWORD"`
	Calendar string `env:"CALDAV_CALENDAR"`
}

// Load reads .env if present and parses the environment.
func Load() (*Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()
	return Parse(env.Options{})
}

// LoadPartial is Load without Validate, for commands that only need a
// subset of the settings.
func LoadPartial() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// Parse parses the environment with opts. Tests pass opts.Environment.
func Parse(opts env.Options) (*Config, error) {
	cfg, err := parse(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Schema = strings.ToLower(strings.TrimSpace(cfg.Schema))
	return &cfg, nil
}

// Validate checks setting combinations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case "sheets":
		if c.Sheets.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the sheets backend"))
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("BACKEND must be sheets or sqlite, got %q", c.Backend))
	}
	switch c.Schema {
	case "attendee", "channel":
	default:
		errs = append(errs, fmt.Errorf("SCHEMA must be attendee or channel, got %q", c.Schema))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	if _, _, err := c.Reminder.Clock(); err != nil {
		errs = append(errs, err)
	}
	if c.Reminder.Enabled && c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when REMINDER_ENABLED is set"))
	}
	return errors.Join(errs...)
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Clock parses the HH:MM send time.
func (r ReminderConfig) Clock() (int, int, error) {
	h, m, ok := strings.Cut(r.Time, ":")
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if !ok || err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("REMINDER_TIME must be HH:MM, got %q", r.Time)
	}
	return hour, minute, nil
}
