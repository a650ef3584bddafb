// Command coinpath-seed loads a month of demo transactions into the
// configured backend and writes a settings file when none exists.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"

	"github.com/shopspring/decimal"

	"coinpath/internal/backend"
	"coinpath/internal/cli"
	"coinpath/internal/core"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
	"coinpath/internal/settings"
)

func main() {
	mode := flag.String("mode", "merge", "import mode: merge or replace")
	writeSettings := flag.Bool("settings", true, "write the default settings file if it does not exist")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	importMode, err := ledger.ParseImportMode(*mode)
	if err != nil {
		logger.Error("Invalid import mode", log.FieldError, err)
		os.Exit(2)
	}

	if *writeSettings {
		if err := ensureSettings(cfg.SettingsFile); err != nil {
			logger.Error("Failed to write settings", log.FieldError, err, "path", cfg.SettingsFile)
			os.Exit(1)
		}
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	ctx := context.Background()
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	rows := demoTransactions()
	out, err := res.Store.Import(ctx, rows, importMode)
	if err != nil {
		logger.Error("Demo data not imported", log.FieldError, err)
		os.Exit(1)
	}
	if out.Notice != "" {
		logger.Warn(out.Notice)
	}

	sum := ledger.Summarize(rows)
	logger.Info("Demo data imported",
		log.FieldBackend, out.Backend,
		"added", out.Added,
		"total", out.Total,
		"income", sum.Income.String(),
		"expense", sum.Expense.String(),
		"balance", sum.Balance.String())
}

// ensureSettings writes the defaults to path unless the file exists.
func ensureSettings(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	def := settings.Defaults()
	return settings.Save(path, &def)
}

type demoRow struct {
	date, kind, mode, category string
	amount                     int64
	notes                      string
}

// January 2024: income 57,000, expense 44,300, balance 12,700.
var demoRows = []demoRow{
	{"2024-01-01", "Income", "Cheque", "Salary", 50000, "Monthly salary"},
	{"2024-01-15", "Income", "Cash", "Freelance", 5000, "Freelance project"},
	{"2024-01-20", "Income", "Cheque", "Investment", 2000, "Dividend income"},
	{"2024-01-02", "Expense", "Cash", "Rent", 15000, "Monthly rent"},
	{"2024-01-03", "Expense", "Cash", "Food", 3000, "Groceries"},
	{"2024-01-05", "Expense", "Cash", "Transport", 2000, "Fuel and transport"},
	{"2024-01-08", "Expense", "Cheque", "Utilities", 2500, "Electricity bill"},
	{"2024-01-10", "Expense", "Cash", "Entertainment", 1500, "Movie tickets"},
	{"2024-01-12", "Expense", "Cash", "Healthcare", 800, "Medicine"},
	{"2024-01-15", "Expense", "Cheque", "Shopping", 4000, "Online shopping"},
	{"2024-01-18", "Expense", "Cash", "Food", 2000, "Restaurant"},
	{"2024-01-22", "Expense", "Cheque", "Savings", 10000, "Monthly savings"},
	{"2024-01-25", "Expense", "Cash", "Utilities", 1200, "Internet bill"},
	{"2024-01-28", "Expense", "Cash", "Food", 1500, "Groceries"},
	{"2024-01-30", "Expense", "Cash", "Transport", 800, "Taxi fare"},
}

func demoTransactions() []core.Transaction {
	out := make([]core.Transaction, 0, len(demoRows))
	for _, r := range demoRows {
		d, _ := core.ParseDate(r.date)
		kind, _ := core.ParseKind(r.kind)
		out = append(out, core.Transaction{
			Date:     d,
			Kind:     kind,
			Mode:     r.mode,
			Category: r.category,
			Amount:   decimal.NewFromInt(r.amount),
			Notes:    r.notes,
		})
	}
	return out
}
