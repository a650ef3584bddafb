package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"coinpath/internal/core"
	"coinpath/internal/log"
	ports "coinpath/internal/sheets"
)

// SQLiteRepository stores transactions in a local SQLite database.
// Amounts are kept as TEXT so decimals round-trip exactly.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ ports.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers; SQLite allows one anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

const (
	selectTransactions = `SELECT date, kind, mode, category, amount, notes FROM transactions ORDER BY id`
	insertTransaction  = `INSERT INTO transactions (date, kind, mode, category, amount, notes) VALUES (?, ?, ?, ?, ?, ?)`
	deleteTransactions = `DELETE FROM transactions`
)

// Load returns every stored row in insertion order. Rows with an
// unparseable amount are skipped.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransactions)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var (
		out     []core.Transaction
		skipped int
	)
	for rows.Next() {
		var date, kind, mode, category, amount, notes string
		if err := rows.Scan(&date, &kind, &mode, &category, &amount, &notes); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		amt, ok := core.ParseStoredAmount(amount)
		if !ok {
			skipped++
			continue
		}
		d, _ := core.ParseDate(date)
		out = append(out, core.Transaction{
			Date:     d,
			Kind:     core.Kind(kind),
			Mode:     mode,
			Category: category,
			Amount:   amt,
			Notes:    notes,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	if skipped > 0 {
		r.logger.WarnContext(ctx, "Skipped unreadable rows", "skipped", skipped)
	}
	return out, nil
}

// Append inserts one row and returns its id.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	res, err := r.db.ExecContext(ctx, insertTransaction, insertArgs(tx)...)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		log.FieldKind, tx.Kind,
		log.FieldCategory, tx.Category,
		log.FieldAmount, tx.Amount.String())

	return strconv.FormatInt(id, 10), nil
}

// Replace swaps the whole table in one SQL transaction.
func (r *SQLiteRepository) Replace(ctx context.Context, txs []core.Transaction) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, deleteTransactions); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	stmt, err := sqlTx.PrepareContext(ctx, insertTransaction)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx, insertArgs(tx)...); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertArgs(tx core.Transaction) []any {
	return []any{
		tx.Date.String(),
		tx.Kind.String(),
		tx.Mode,
		tx.Category,
		core.FormatAmount(tx.Amount),
		tx.Notes,
	}
}
