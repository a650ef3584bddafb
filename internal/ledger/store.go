package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"coinpath/internal/core"
	"coinpath/internal/csvfile"
	"coinpath/internal/log"
	"coinpath/internal/sheets"
)

// ErrNotSaved is returned when neither the primary nor the fallback backend
// accepted a write.
var ErrNotSaved = errors.New("transaction could not be saved")

// ErrInvalidRows is returned by a replace import whose rows are not all
// valid transactions. Nothing is written.
var ErrInvalidRows = errors.New("import contains invalid transactions")

type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)

// ParseImportMode defaults to merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch s {
	case "", string(ImportMerge):
		return ImportMerge, nil
	case string(ImportReplace):
		return ImportReplace, nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

type (
	// Snapshot is the outcome of a read. Notice is set whenever the data
	// did not come from the primary backend as-is.
	Snapshot struct {
		Transactions []core.Transaction
		Source       string
		Notice       string
		Degraded     bool
	}

	// Receipt describes where an appended transaction ended up.
	Receipt struct {
		Backend  string
		Ref      string
		FellBack bool
		Notice   string
	}

	ImportResult struct {
		Mode     ImportMode
		Added    int
		Rejected int
		Total    int
		Backend  string
		FellBack bool
		Notice   string
	}

	// Status is the connection diagnostic view of the store.
	Status struct {
		Primary    string
		Fallback   string
		Degraded   bool
		LastNotice string
	}
)

// Store owns the transaction collection on a primary backend with an
// optional local fallback.
type Store struct {
	primary  sheets.Backend
	fallback sheets.Backend
	logger   *log.Logger

	mu         sync.Mutex // serialises load-modify-persist
	stateMu    sync.RWMutex
	degraded   bool
	lastNotice string
}

// NewStore creates a store. fallback may be nil.
func NewStore(primary, fallback sheets.Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		primary:  primary,
		fallback: fallback,
		logger:   logger.WithComponent(log.ComponentLedger),
	}
}

func (s *Store) Primary() sheets.Backend { return s.primary }

func (s *Store) Fallback() sheets.Backend { return s.fallback }

// Load reads the full collection. It never fails: a broken primary is
// replaced by the fallback, and a broken fallback by an empty collection,
// each with a notice.
func (s *Store) Load(ctx context.Context) Snapshot {
	txs, err := s.primary.Load(ctx)
	if err == nil {
		s.setState(false, "")
		return Snapshot{Transactions: txs, Source: s.primary.Name()}
	}
	s.logger.WarnContext(ctx, "Primary backend read failed",
		log.FieldOperation, log.OpLoad,
		log.FieldBackend, s.primary.Name(),
		log.FieldError, err)

	if s.fallback == nil {
		notice := fmt.Sprintf("Could not read from %s; showing no data.", s.primary.Name())
		s.setState(true, notice)
		return Snapshot{Source: s.primary.Name(), Notice: notice, Degraded: true}
	}

	txs, ferr := s.fallback.Load(ctx)
	if ferr != nil {
		s.logger.ErrorContext(ctx, "Fallback backend read failed",
			log.FieldOperation, log.OpLoad,
			log.FieldBackend, s.fallback.Name(),
			log.FieldError, ferr)
		notice := "No data source is readable; showing no data."
		s.setState(true, notice)
		return Snapshot{Source: s.fallback.Name(), Notice: notice, Degraded: true}
	}
	notice := fmt.Sprintf("Could not read from %s; showing local %s data.", s.primary.Name(), s.fallback.Name())
	s.setState(true, notice)
	return Snapshot{Transactions: txs, Source: s.fallback.Name(), Notice: notice, Degraded: true}
}

// Append validates tx and stores it on the primary backend, retrying on
// the fallback when the primary write fails. Validation errors are
// returned unchanged and nothing is written.
func (s *Store) Append(ctx context.Context, tx core.Transaction) (Receipt, error) {
	if err := tx.Validate(); err != nil {
		return Receipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.primary.Append(ctx, tx)
	if err == nil {
		s.setState(false, "")
		return Receipt{Backend: s.primary.Name(), Ref: ref}, nil
	}
	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpAppend).WithError(err)
	s.logger.WarnContext(ctx, "Primary backend write failed", append(fields.ToSlice(), log.FieldBackend, s.primary.Name())...)

	if s.fallback == nil {
		notice := fmt.Sprintf("Could not save to %s.", s.primary.Name())
		s.setState(true, notice)
		return Receipt{Backend: s.primary.Name(), Notice: notice}, fmt.Errorf("%w: %v", ErrNotSaved, err)
	}

	ref, ferr := s.fallback.Append(ctx, tx)
	if ferr != nil {
		s.logger.ErrorContext(ctx, "Fallback backend write failed",
			log.FieldOperation, log.OpAppend,
			log.FieldBackend, s.fallback.Name(),
			log.FieldError, ferr)
		notice := "Could not save the transaction anywhere."
		s.setState(true, notice)
		return Receipt{Notice: notice}, fmt.Errorf("%w: %v; fallback: %v", ErrNotSaved, err, ferr)
	}
	notice := fmt.Sprintf("Could not save to %s; saved locally to %s instead.", s.primary.Name(), s.fallback.Name())
	s.setState(true, notice)
	return Receipt{Backend: s.fallback.Name(), Ref: ref, FellBack: true, Notice: notice}, nil
}

// Import merges or replaces the collection with rows. Merge adds only valid
// rows with no exact match in the current collection and counts the invalid
// ones as rejected. Replace refuses the whole batch if any row is invalid.
func (s *Store) Import(ctx context.Context, rows []core.Transaction, mode ImportMode) (ImportResult, error) {
	res := ImportResult{Mode: mode}
	rows, rejected, firstErr := validRows(rows)
	res.Rejected = rejected
	if rejected > 0 {
		s.logger.InfoContext(ctx, "Import rows rejected",
			log.FieldOperation, log.OpImport,
			"mode", string(mode),
			"rejected", rejected,
			log.FieldError, firstErr)
		if mode == ImportReplace {
			return res, fmt.Errorf("%w: %d of %d rows, first: %v", ErrInvalidRows, rejected, rejected+len(rows), firstErr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	backends := []sheets.Backend{s.primary}
	if s.fallback != nil {
		backends = append(backends, s.fallback)
	}

	var lastErr error
	for i, b := range backends {
		merged := rows
		added := len(rows)
		if mode == ImportMerge {
			existing, err := b.Load(ctx)
			if err != nil {
				lastErr = err
				s.logger.WarnContext(ctx, "Import read failed", log.FieldBackend, b.Name(), log.FieldError, err)
				continue
			}
			merged, added = MergeExact(existing, rows)
		}
		if err := b.Replace(ctx, merged); err != nil {
			lastErr = err
			s.logger.WarnContext(ctx, "Import write failed", log.FieldBackend, b.Name(), log.FieldError, err)
			continue
		}
		res.Added, res.Total, res.Backend = added, len(merged), b.Name()
		if i > 0 {
			res.FellBack = true
			res.Notice = fmt.Sprintf("Could not import into %s; imported into local %s instead.", s.primary.Name(), b.Name())
			s.setState(true, res.Notice)
		} else {
			s.setState(false, "")
		}
		s.logger.InfoContext(ctx, "Imported transactions",
			log.FieldOperation, log.OpImport,
			log.FieldBackend, b.Name(),
			"mode", string(mode),
			"added", added,
			"rejected", res.Rejected,
			"total", len(merged))
		return res, nil
	}
	res.Notice = "Import failed; no data source accepted the rows."
	s.setState(true, res.Notice)
	return res, fmt.Errorf("%w: %v", ErrNotSaved, lastErr)
}

// validRows keeps the rows that pass Transaction.Validate, in order.
func validRows(rows []core.Transaction) (valid []core.Transaction, rejected int, first error) {
	valid = make([]core.Transaction, 0, len(rows))
	for i, tx := range rows {
		if err := tx.Validate(); err != nil {
			if first == nil {
				first = fmt.Errorf("row %d: %w", i+1, err)
			}
			rejected++
			continue
		}
		valid = append(valid, tx)
	}
	return valid, rejected, first
}

// Export writes the collection, optionally limited to one month (month 0
// means everything), and returns the suggested file name.
func (s *Store) Export(ctx context.Context, w io.Writer, year, month int) (string, error) {
	snap := s.Load(ctx)
	txs := snap.Transactions
	if month != 0 {
		txs = Monthly(txs, year, month)
	}
	if err := csvfile.Encode(w, txs); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return ExportFilename(year, month), nil
}

// ExportFilename is transactions_YYYY_MM.csv for a month, transactions_all.csv otherwise.
func ExportFilename(year, month int) string {
	if month == 0 {
		return "transactions_all.csv"
	}
	return fmt.Sprintf("transactions_%04d_%02d.csv", year, month)
}

// Status reports the backends in use and the last degraded-operation notice.
func (s *Store) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st := Status{Primary: s.primary.Name(), Degraded: s.degraded, LastNotice: s.lastNotice}
	if s.fallback != nil {
		st.Fallback = s.fallback.Name()
	}
	return st
}

func (s *Store) setState(degraded bool, notice string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.degraded = degraded
	if notice != "" {
		s.lastNotice = notice
	}
}
