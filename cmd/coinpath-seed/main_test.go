package main

import (
	"os"
	"path/filepath"
	"testing"

	"coinpath/internal/ledger"
	"coinpath/internal/settings"
)

func TestDemoTransactions(t *testing.T) {
	rows := demoTransactions()
	if len(rows) != 15 {
		t.Fatalf("got %d rows, want 15", len(rows))
	}
	def := settings.Defaults()
	for i, tx := range rows {
		if err := tx.Validate(); err != nil {
			t.Errorf("row %d invalid: %v", i, err)
		}
		if !def.HasCategory(tx.Kind, tx.Category) {
			t.Errorf("row %d: category %q not offered by default settings", i, tx.Category)
		}
		if !def.HasMode(tx.Mode) {
			t.Errorf("row %d: mode %q not offered by default settings", i, tx.Mode)
		}
	}

	var income, expense int64
	for _, r := range demoRows {
		if r.kind == "Income" {
			income += r.amount
		} else {
			expense += r.amount
		}
	}
	if income != 57000 || expense != 44300 {
		t.Fatalf("demo rows sum to %d / %d", income, expense)
	}

	sum := ledger.Summarize(ledger.Monthly(rows, 2024, 1))
	if sum.Income.IntPart() != income || sum.Expense.IntPart() != expense || sum.Balance.IntPart() != income-expense {
		t.Errorf("summary = %s / %s / %s", sum.Income, sum.Expense, sum.Balance)
	}
}

func TestEnsureSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "coinpath.yaml")
	if err := ensureSettings(path); err != nil {
		t.Fatalf("ensureSettings() = %v", err)
	}
	if _, err := settings.Load(path); err != nil {
		t.Fatalf("written settings do not load: %v", err)
	}

	if err := os.WriteFile(path, []byte("currency: EUR\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureSettings(path); err != nil {
		t.Fatalf("ensureSettings() = %v", err)
	}
	st, err := settings.Load(path)
	if err != nil || st.Currency != "EUR" {
		t.Fatalf("existing file overwritten: %+v %v", st, err)
	}
}
