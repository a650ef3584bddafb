// Package csvfile implements the local file backend: the six-column
// transaction format shared by the file store, export and import.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"coinpath/internal/core"
)

// Header is the column order of every transaction file.
var Header = []string{"Date", "Type", "Mode", "Category", "Amount", "Notes"}

// ErrMissingColumns is returned when the header lacks a required column.
var ErrMissingColumns = errors.New("csv: missing required columns")

// DecodeResult carries the decoded rows and how many were dropped.
type DecodeResult struct {
	Transactions []core.Transaction
	Skipped      int
}

// Decode reads a transaction file. Columns are located by header name, so
// reordered files are accepted. Rows with an unparseable date are kept with
// a zero date; rows with an unparseable amount are skipped and counted.
func Decode(r io.Reader) (DecodeResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return DecodeResult{}, nil
	}
	if err != nil {
		return DecodeResult{}, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(head)
	if err != nil {
		return DecodeResult{}, err
	}

	var res DecodeResult
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		if blank(rec) {
			continue
		}
		tx, ok := decodeRow(rec, idx)
		if !ok {
			res.Skipped++
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

// Encode writes the header followed by one row per transaction.
func Encode(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := cw.Write(EncodeRow(tx)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeRow renders a transaction in column order.
func EncodeRow(tx core.Transaction) []string {
	return []string{
		tx.Date.String(),
		tx.Kind.String(),
		tx.Mode,
		tx.Category,
		core.FormatAmount(tx.Amount),
		tx.Notes,
	}
}

// DecodeRow parses a row in column order. It is shared with backends that
// store the same six columns, such as a spreadsheet range.
func DecodeRow(rec []string) (core.Transaction, bool) {
	return decodeRow(rec, defaultIndex)
}

var defaultIndex = map[string]int{"date": 0, "type": 1, "mode": 2, "category": 3, "amount": 4, "notes": 5}

func columnIndex(head []string) (map[string]int, error) {
	idx := make(map[string]int, len(head))
	for i, h := range head {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	var missing []string
	for _, col := range []string{"date", "type", "category", "amount"} {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return idx, nil
}

func decodeRow(rec []string, idx map[string]int) (core.Transaction, bool) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	amount, ok := core.ParseStoredAmount(field("amount"))
	if !ok {
		return core.Transaction{}, false
	}
	// An unknown date is kept as the zero date and filtered by date views.
	date, _ := core.ParseDate(field("date"))
	kind, err := core.ParseKind(field("type"))
	if err != nil {
		kind = core.Kind(field("type"))
	}
	return core.Transaction{
		Date:     date,
		Kind:     kind,
		Mode:     field("mode"),
		Category: field("category"),
		Amount:   amount,
		Notes:    field("notes"),
	}, true
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
