package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"coinpath/internal/log"
)

type Config struct {
	// HTTP Server
	Port string `env:"PORT" envDefault:"8081"`

	// Backend selection
	DataBackend string `env:"DATA_BACKEND" envDefault:"csv"`

	// Local storage
	CSVPath      string `env:"CSV_PATH" envDefault:"./data/transactions.csv"`
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/coinpath.db"`
	SettingsFile string `env:"SETTINGS_FILE" envDefault:"./data/coinpath.yaml"`

	// Google Sheets
	GoogleSpreadsheetID        string        `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleWorksheetName        string        `env:"GOOGLE_WORKSHEET_NAME" envDefault:"Transactions"`
	GoogleServiceAccountJSON   string        `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile   string        `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleApplicationCredsFile string        `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	RemoteTimeout              time.Duration `env:"REMOTE_TIMEOUT" envDefault:"15s"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"coinpath"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"replay_transactions"`

	// Worker
	RecurringSchedule string `env:"RECURRING_SCHEDULE" envDefault:"@daily"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// SheetsConfigured reports whether a spreadsheet id and some credential
// source are present.
func (c *Config) SheetsConfigured() bool {
	if c.GoogleSpreadsheetID == "" {
		return false
	}
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" || c.GoogleApplicationCredsFile != ""
}

// AMQPEnabled reports whether the replay queue is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

var validBackends = []string{"csv", "sheets", "sqlite", "memory"}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// The csv file is the fallback of the sheets backend too
	if c.DataBackend == "csv" || c.DataBackend == "sheets" {
		if c.CSVPath == "" {
			errors = append(errors, "CSV path cannot be empty when using csv or sheets backend")
		} else if msg := ensureDir(c.CSVPath, "CSV"); msg != "" {
			errors = append(errors, msg)
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath, "SQLite database"); msg != "" {
			errors = append(errors, msg)
		}
	}

	if c.SettingsFile == "" {
		errors = append(errors, "settings file path cannot be empty")
	}

	// Credential file is checked only when it is the chosen source
	if c.DataBackend == "sheets" && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if c.DataBackend == "sheets" && c.GoogleWorksheetName == "" {
		errors = append(errors, "Google worksheet name cannot be empty when using sheets backend")
	}

	if c.RemoteTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must be at least 1 second", c.RemoteTimeout))
	} else if c.RemoteTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must be at most 5 minutes", c.RemoteTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if strings.TrimSpace(c.RecurringSchedule) == "" {
		errors = append(errors, "recurring schedule cannot be empty")
	}

	if !log.ValidLevel(c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ensureDir creates the parent directory of path when missing and returns
// a validation message on failure.
func ensureDir(path, what string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create %s directory '%s': %v", what, dir, err)
		}
	}
	return ""
}
