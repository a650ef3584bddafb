package backend

import (
	"context"
	"errors"
	"fmt"

	"coinpath/internal/csvfile"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
	"coinpath/internal/sheets"
	"coinpath/internal/sheets/google"
	"coinpath/internal/sheets/memory"
	"coinpath/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the store for config.Type. A sheets backend that is not
// configured, or whose credential cannot be used, is replaced by the csv
// backend with a notice.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config, ""), nil
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config), nil
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config, notice string) *Result {
	local := csvfile.New(config.CSVPath, f.logger)
	f.logger.Info("Initialized csv backend", "path", config.CSVPath)
	return &Result{
		Store:  ledger.NewStore(local, nil, f.logger),
		Notice: notice,
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) *Result {
	remote, err := NewRemote(ctx, config, f.logger)
	if err != nil {
		notice := "Google Sheets is not available; using the local CSV file."
		if errors.Is(err, sheets.ErrNotConfigured) {
			notice = "Google Sheets is not configured; using the local CSV file."
			f.logger.Warn("Sheets backend not configured, using csv", log.FieldError, err)
		} else {
			f.logger.Error("Failed to initialize Sheets backend, using csv", log.FieldError, err)
		}
		return f.createCSVBackend(config, notice)
	}

	local := csvfile.New(config.CSVPath, f.logger)
	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", remote.SpreadsheetID(),
		"worksheet", remote.Worksheet(),
		"fallback", config.CSVPath)

	return &Result{
		Store:  ledger.NewStore(remote, local, f.logger),
		Remote: remote,
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Store:   ledger.NewStore(repo, nil, f.logger),
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *Result {
	store := memory.NewFromFile(config.CSVPath)

	f.logger.Info("Initialized memory backend", "seed", config.CSVPath)

	return &Result{Store: ledger.NewStore(store, nil, f.logger)}
}

// NewRemote creates the Sheets client described by config. It returns
// sheets.ErrNotConfigured when the spreadsheet id or credential is missing.
func NewRemote(ctx context.Context, config Config, logger *log.Logger) (*google.Client, error) {
	if config.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_SPREADSHEET_ID", sheets.ErrNotConfigured)
	}
	creds, err := google.ResolveCredentials(config.CredentialsJSON, config.CredentialsFile, config.ApplicationCredentials)
	if err != nil {
		return nil, err
	}
	return google.New(ctx, google.Config{
		SpreadsheetID:   config.SpreadsheetID,
		Worksheet:       config.Worksheet,
		CredentialsJSON: creds,
		Timeout:         config.RemoteTimeout,
	}, logger)
}
