package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coinpath/internal/config"
	"coinpath/internal/core"
	"coinpath/internal/csvfile"
)

const fakeServiceAccount = `{"type":"service_account","client_email":"ledger@example.iam.gserviceaccount.com","private_key":"unused","token_uri":"https://oauth2.googleapis.com/token"}`

func sampleTx() core.Transaction {
	return core.Transaction{
		Date:     core.NewDate(2024, 1, 1),
		Kind:     core.Income,
		Mode:     "Bank Transfer",
		Category: "Salary",
		Amount:   decimal.NewFromInt(50000),
	}
}

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		in   Type
		want bool
	}{
		{CSVBackend, true},
		{SheetsBackend, true},
		{SQLiteBackend, true},
		{MemoryBackend, true},
		{"postgres", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.in.IsValid(); got != tt.want {
			t.Errorf("Type(%q).IsValid() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sheets",
		CSVPath:             "t.csv",
		GoogleSpreadsheetID: "abc",
		GoogleWorksheetName: "Money",
		RemoteTimeout:       3 * time.Second,
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.SpreadsheetID != "abc" || cfg.Worksheet != "Money" || cfg.RemoteTimeout != 3*time.Second {
		t.Errorf("unexpected backend config %+v", cfg)
	}
}

func TestFactory_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: CSVBackend, CSVPath: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Close()

	if res.Store.Primary().Name() != "csv" || res.Store.Fallback() != nil {
		t.Fatalf("unexpected store status %+v", res.Store.Status())
	}
	if _, err := res.Store.Append(context.Background(), sampleTx()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("csv file not written: %v", err)
	}
}

func TestFactory_SheetsNotConfiguredFallsBackToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: SheetsBackend, CSVPath: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Store.Primary().Name() != "csv" {
		t.Fatalf("expected csv primary, got %s", res.Store.Primary().Name())
	}
	if res.Remote != nil {
		t.Fatal("no remote expected")
	}
	if res.Notice == "" {
		t.Fatal("expected a notice")
	}
}

func TestFactory_SheetsBadCredentialFallsBackToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:            SheetsBackend,
		CSVPath:         path,
		SpreadsheetID:   "abc",
		CredentialsJSON: "not json",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.Store.Primary().Name() != "csv" || res.Notice == "" {
		t.Fatalf("expected csv with notice, got %s %q", res.Store.Primary().Name(), res.Notice)
	}
}

func TestFactory_SheetsConfiguredUsesCSVFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:            SheetsBackend,
		CSVPath:         path,
		SpreadsheetID:   "abc",
		Worksheet:       "Money",
		CredentialsJSON: fakeServiceAccount,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	st := res.Store.Status()
	if st.Primary != "sheets" || st.Fallback != "csv" {
		t.Fatalf("unexpected status %+v", st)
	}
	if res.Remote == nil || res.Remote.Email() != "ledger@example.iam.gserviceaccount.com" {
		t.Fatalf("unexpected remote %+v", res.Remote)
	}
	if res.Remote.Worksheet() != "Money" {
		t.Fatalf("unexpected worksheet %q", res.Remote.Worksheet())
	}
}

func TestFactory_SQLite(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "db", "coinpath.db"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer res.Close()

	ctx := context.Background()
	if _, err := res.Store.Append(ctx, sampleTx()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := res.Store.Load(ctx).Transactions; len(got) != 1 || !got[0].Equal(sampleTx()) {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestFactory_MemorySeedsFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.csv")
	if err := csvfile.New(path, nil).Replace(context.Background(), []core.Transaction{sampleTx()}); err != nil {
		t.Fatal(err)
	}
	res, err := NewFactory(nil).Create(context.Background(), Config{Type: MemoryBackend, CSVPath: path})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := res.Store.Load(context.Background()).Transactions; len(got) != 1 {
		t.Fatalf("expected seeded row, got %d", len(got))
	}
}

func TestFactory_InvalidConfig(t *testing.T) {
	tests := []Config{
		{Type: "bogus"},
		{Type: CSVBackend},
		{Type: SQLiteBackend},
	}
	for _, cfg := range tests {
		if _, err := NewFactory(nil).Create(context.Background(), cfg); err == nil {
			t.Errorf("Create(%+v) expected error", cfg)
		}
	}
}
