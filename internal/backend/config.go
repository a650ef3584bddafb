package backend

import (
	"fmt"
	"time"

	"coinpath/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Local file, also the fallback of the sheets backend
	CSVPath string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	SpreadsheetID          string
	Worksheet              string
	CredentialsJSON        string
	CredentialsFile        string
	ApplicationCredentials string
	RemoteTimeout          time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                   t,
		CSVPath:                appConfig.CSVPath,
		SQLiteDBPath:           appConfig.SQLiteDBPath,
		SpreadsheetID:          appConfig.GoogleSpreadsheetID,
		Worksheet:              appConfig.GoogleWorksheetName,
		CredentialsJSON:        appConfig.GoogleServiceAccountJSON,
		CredentialsFile:        appConfig.GoogleServiceAccountFile,
		ApplicationCredentials: appConfig.GoogleApplicationCredsFile,
		RemoteTimeout:          appConfig.RemoteTimeout,
	}, nil
}

// Validate validates the backend configuration. Missing Sheets settings
// are not an error: the factory falls back to the csv backend.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend, SheetsBackend:
		if c.CSVPath == "" {
			return fmt.Errorf("CSV path is required for %s backend", c.Type)
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	}
	return nil
}
