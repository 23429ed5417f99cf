package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store driver names accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Store    StoreConfig
	Sheets   SheetsConfig
	Webhook  WebhookConfig
	Reminder ReminderConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// AuthConfig holds the shared access password. The tool deliberately has no
// per-user accounts or sessions.
type AuthConfig struct {
	Password string
}

// StoreConfig selects and parameterizes the persistence backend.
type StoreConfig struct {
	Driver      string // memory | file | sqlite | postgres | mongo
	Path        string // data file for file/sqlite drivers
	PostgresDSN string
	MongoURI    string
	MongoDBName string
}

// SheetsConfig contains configuration required to mirror records into a
// Google Spreadsheet. The sync is disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	SheetRange      string
}

// WebhookConfig points at the optional notification endpoint. Disabled when
// URL is empty.
type WebhookConfig struct {
	URL   string
	Token string
}

// ReminderConfig holds scheduler-related settings for stale delivery nudges.
type ReminderConfig struct {
	CronSchedule   string
	Timezone       string
	StaleAfterDays int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	staleDays, err := strconv.Atoi(getenvWithDefault("REMINDER_STALE_AFTER_DAYS", "3"))
	if err != nil {
		return nil, fmt.Errorf("REMINDER_STALE_AFTER_DAYS must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Auth: AuthConfig{
			Password: getenvWithDefault("ADMIN_PASSWORD", "think0305"),
		},
		Store: StoreConfig{
			Driver:      getenvWithDefault("STORE_DRIVER", DriverFile),
			Path:        getenvWithDefault("STORE_PATH", "data/deliveries.json"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			MongoURI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDBName: getenvWithDefault("MONGODB_DB_NAME", "delivery_ledger"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			SheetRange:      getenvWithDefault("GOOGLE_SHEET_RANGE", "Deliveries!A:I"),
		},
		Webhook: WebhookConfig{
			URL:   os.Getenv("WEBHOOK_URL"),
			Token: os.Getenv("WEBHOOK_TOKEN"),
		},
		Reminder: ReminderConfig{
			CronSchedule:   getenvWithDefault("REMINDER_CRON_SCHEDULE", "0 9 * * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "Asia/Tokyo"),
			StaleAfterDays: staleDays,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SheetsEnabled reports whether the spreadsheet mirror should be wired.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath != ""
}

// WebhookEnabled reports whether the notification endpoint should be wired.
func (c *Config) WebhookEnabled() bool {
	return c.Webhook.URL != ""
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Auth.Password == "" {
		return errors.New("ADMIN_PASSWORD must be provided")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("STORE_PATH must be provided for file and sqlite drivers")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN must be provided for the postgres driver")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided for the mongo driver")
		}
		if c.Store.MongoDBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.SheetsEnabled() && c.Sheets.SheetRange == "" {
		return errors.New("GOOGLE_SHEET_RANGE must not be empty")
	}

	if c.Reminder.CronSchedule == "" {
		return errors.New("REMINDER_CRON_SCHEDULE must be provided")
	}

	if c.Reminder.StaleAfterDays < 1 {
		return errors.New("REMINDER_STALE_AFTER_DAYS must be at least 1")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
