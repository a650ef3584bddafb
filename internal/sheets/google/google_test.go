package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"coinpath/internal/core"
	ports "coinpath/internal/sheets"
)

// fakeSheets emulates the subset of the Sheets REST API the client uses,
// for a spreadsheet holding a single table.
type fakeSheets struct {
	mu         sync.Mutex
	titles     []string
	rows       [][]any
	calls      []string
	inputs     []string
	failAppend bool
	failUpdate bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	switch {
	case strings.HasSuffix(p, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		writeJSON(w, map[string]any{})

	case strings.Contains(p, "/values/"):
		rng := p[strings.Index(p, "/values/")+len("/values/"):]
		switch {
		case strings.HasSuffix(rng, ":append"):
			f.calls = append(f.calls, "append")
			if f.failAppend {
				http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
				return
			}
			mode := f.inputMode(r)
			var vr gsheet.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			for _, row := range vr.Values {
				f.rows = append(f.rows, interpret(row, mode))
			}
			n := len(f.rows)
			writeJSON(w, map[string]any{"updates": map[string]any{"updatedRange": fmt.Sprintf("'Transactions'!A%d:F%d", n, n)}})
		case strings.HasSuffix(rng, ":clear"):
			f.calls = append(f.calls, "clear "+strings.TrimSuffix(rng, ":clear"))
			if from := startRow(rng) - 1; from < len(f.rows) {
				f.rows = f.rows[:from]
			}
			writeJSON(w, map[string]any{})
		case r.Method == http.MethodPut:
			f.calls = append(f.calls, "update "+rng)
			if f.failUpdate {
				http.Error(w, `{"error":{"code":503,"message":"backend error"}}`, http.StatusServiceUnavailable)
				return
			}
			mode := f.inputMode(r)
			var vr gsheet.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			start := startRow(rng)
			for i, row := range vr.Values {
				idx := start - 1 + i
				for len(f.rows) <= idx {
					f.rows = append(f.rows, nil)
				}
				f.rows[idx] = interpret(row, mode)
			}
			writeJSON(w, map[string]any{})
		default:
			f.calls = append(f.calls, "get")
			writeJSON(w, map[string]any{"range": rng, "majorDimension": "ROWS", "values": f.rows})
		}

	default:
		f.calls = append(f.calls, "spreadsheet")
		sheets := make([]map[string]any, 0, len(f.titles))
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		writeJSON(w, map[string]any{"spreadsheetId": p, "sheets": sheets})
	}
}

func (f *fakeSheets) inputMode(r *http.Request) string {
	mode := r.URL.Query().Get("valueInputOption")
	f.inputs = append(f.inputs, mode)
	return mode
}

// interpret stores a written row the way the API does before it is read
// back with UNFORMATTED_VALUE: RAW keeps strings, USER_ENTERED parses
// numbers and booleans.
func interpret(row []any, mode string) []any {
	out := append([]any(nil), row...)
	if mode == "RAW" {
		return out
	}
	for i, v := range out {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			out[i] = f
		} else if b, err := strconv.ParseBool(s); err == nil && strings.ToUpper(s) == s {
			out[i] = b
		}
	}
	return out
}

func startRow(rng string) int {
	cells := rng[strings.LastIndex(rng, "!")+1:]
	digits := strings.TrimLeft(strings.SplitN(cells, ":", 2)[0], "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 1
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := newClient(context.Background(), Config{SpreadsheetID: "sheet-1"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return c
}

func sampleTx() core.Transaction {
	return core.Transaction{
		Date:     core.NewDate(2024, 1, 15),
		Kind:     core.Expense,
		Mode:     "Card",
		Category: "Food",
		Amount:   decimal.RequireFromString("12.5"),
		Notes:    "groceries",
	}
}

func TestClient_CreatesWorksheetWithHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	txs, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty collection, got %d", len(txs))
	}
	if len(fake.titles) != 1 || fake.titles[0] != DefaultWorksheet {
		t.Fatalf("worksheet not created: %v", fake.titles)
	}
	if len(fake.rows) != 1 || fake.rows[0][0] != "Date" || fake.rows[0][5] != "Notes" {
		t.Fatalf("header not written: %v", fake.rows)
	}

	// second call must not create again
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	n := 0
	for _, call := range fake.calls {
		if call == "batchUpdate" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected one batchUpdate, got %d (%v)", n, fake.calls)
	}
}

func TestClient_AppendThenLoad(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}, rows: [][]any{{"Date", "Type", "Mode", "Category", "Amount", "Notes"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.Append(ctx, sampleTx())
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "'Transactions'!A2:F2" {
		t.Fatalf("unexpected ref %q", ref)
	}

	txs, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 row, got %d", len(txs))
	}
	if !txs[0].Equal(sampleTx()) {
		t.Fatalf("row not preserved: %+v", txs[0])
	}
}

func TestClient_LoadToleratesSheetFormats(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}, rows: [][]any{
		{"Date", "Type", "Mode", "Category", "Amount", "Notes"},
		{"1/15/2024", "Income", "Cash", "Salary", 50000.0},
		{"2024-01-16", "Expense", "Card", "Food", "n/a", ""}, // skipped
		{},
		{"garbage", "Expense", "Card", "Misc", 3.25, "x"}, // zero date kept
	}}
	c := newTestClient(t, fake)

	txs, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(txs), txs)
	}
	if txs[0].Date.String() != "2024-01-15" || !txs[0].Amount.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected first row %+v", txs[0])
	}
	if !txs[1].Date.IsZero() || txs[1].Amount.String() != "3.25" {
		t.Fatalf("unexpected second row %+v", txs[1])
	}
}

func TestClient_Replace(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	other := sampleTx()
	other.Category = "Rent"
	if err := c.Replace(ctx, []core.Transaction{sampleTx(), other}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(fake.rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(fake.rows))
	}
	txs, err := c.Load(ctx)
	if err != nil || len(txs) != 2 || txs[1].Category != "Rent" {
		t.Fatalf("unexpected load after replace: %+v err=%v", txs, err)
	}
}

func TestClient_AppendKeepsTextCells(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}, rows: [][]any{{"Date", "Type", "Mode", "Category", "Amount", "Notes"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	notes := []string{"=1+1", "0012", "TRUE", "2024-01-05"}
	for _, n := range notes {
		tx := sampleTx()
		tx.Notes = n
		if _, err := c.Append(ctx, tx); err != nil {
			t.Fatalf("append %q: %v", n, err)
		}
	}
	for _, mode := range fake.inputs {
		if mode != "RAW" {
			t.Fatalf("rows must be written RAW, got %q (%v)", mode, fake.inputs)
		}
	}

	txs, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(txs) != len(notes) {
		t.Fatalf("expected %d rows, got %d", len(notes), len(txs))
	}
	for i, n := range notes {
		want := sampleTx()
		want.Notes = n
		if !txs[i].Equal(want) {
			t.Errorf("row %d not preserved: %+v", i, txs[i])
		}
	}
}

func TestClient_ReplaceShrinksTable(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	three := []core.Transaction{sampleTx(), sampleTx(), sampleTx()}
	if err := c.Replace(ctx, three); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := c.Replace(ctx, three[:1]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(fake.rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d: %v", len(fake.rows), fake.rows)
	}
	last := fake.calls[len(fake.calls)-1]
	if last != "clear 'Transactions'!A3:F" {
		t.Fatalf("expected trailing clear after the write, got %q (%v)", last, fake.calls)
	}
}

func TestClient_ReplaceFailureKeepsRows(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}, rows: [][]any{
		{"Date", "Type", "Mode", "Category", "Amount", "Notes"},
		{"2024-01-15", "Expense", "Card", "Food", "12.5", "groceries"},
	}}
	c := newTestClient(t, fake)
	fake.failUpdate = true

	if err := c.Replace(context.Background(), nil); err == nil {
		t.Fatal("expected error from failing write")
	}
	if len(fake.rows) != 2 {
		t.Fatalf("existing rows must survive a failed replace, got %v", fake.rows)
	}
	for _, call := range fake.calls {
		if strings.HasPrefix(call, "clear") {
			t.Fatalf("nothing may be cleared before the write succeeds: %v", fake.calls)
		}
	}
}

func TestClient_AppendFailure(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}, failAppend: true}
	c := newTestClient(t, fake)
	if _, err := c.Append(context.Background(), sampleTx()); err == nil {
		t.Fatal("expected error from failing remote")
	}
}

func TestClient_AppendValidates(t *testing.T) {
	fake := &fakeSheets{titles: []string{DefaultWorksheet}}
	c := newTestClient(t, fake)
	bad := sampleTx()
	bad.Amount = decimal.Zero
	_, err := c.Append(context.Background(), bad)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("no remote call expected, got %v", fake.calls)
	}
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if !errors.Is(err, ports.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if !errors.Is(err, ports.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsJSON: []byte("not json")}, nil)
	if err == nil || errors.Is(err, ports.ErrNotConfigured) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestResolveCredentials(t *testing.T) {
	b, err := ResolveCredentials(` {"type":"service_account"} `, "", "")
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("inline: %q %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, []byte(`{"k":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err = ResolveCredentials("", "", path)
	if err != nil || string(b) != `{"k":1}` {
		t.Fatalf("file: %q %v", b, err)
	}

	if _, err := ResolveCredentials("", filepath.Join(t.TempDir(), "missing.json"), ""); err == nil {
		t.Fatal("expected read error")
	}
	if _, err := ResolveCredentials("", "", ""); !errors.Is(err, ports.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestA1Quoting(t *testing.T) {
	tests := []struct {
		worksheet string
		expected  string
	}{
		{"Transactions", "'Transactions'!A:F"},
		{"My Money", "'My Money'!A:F"},
		{"Bob's", "'Bob''s'!A:F"},
	}
	for _, tt := range tests {
		c := &Client{worksheet: tt.worksheet}
		if got := c.a1("A:F"); got != tt.expected {
			t.Errorf("a1(%q) = %q, want %q", tt.worksheet, got, tt.expected)
		}
	}
}
