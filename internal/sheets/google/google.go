package google

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"coinpath/internal/core"
	"coinpath/internal/csvfile"
	"coinpath/internal/log"
	ports "coinpath/internal/sheets"
)

const (
	DefaultWorksheet = "Transactions"
	defaultTimeout   = 15 * time.Second

	// rawInput stores cells as typed, so text such as "=1+1" or "0012"
	// is never turned into a formula or a number.
	rawInput = "RAW"
)

// Config describes how to reach one worksheet.
type Config struct {
	SpreadsheetID   string
	Worksheet       string
	CredentialsJSON []byte
	Timeout         time.Duration
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	worksheet     string
	email         string
	timeout       time.Duration
	logger        *log.Logger

	mu    sync.Mutex
	ready bool // worksheet exists with a header row
}

// Ensure interface conformance
var _ ports.Backend = (*Client)(nil)

// ResolveCredentials returns the service account key from, in order, the
// inline JSON, the key file, or the GOOGLE_APPLICATION_CREDENTIALS file.
// No configured source is ErrNotConfigured.
func ResolveCredentials(inlineJSON, file, appCredentials string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if file == "" {
		file = strings.TrimSpace(appCredentials)
	}
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)", ports.ErrNotConfigured)
}

// New creates a Sheets client authenticated with a service account key.
// A missing spreadsheet id or key yields ErrNotConfigured.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_SPREADSHEET_ID", ports.ErrNotConfigured)
	}
	if len(cfg.CredentialsJSON) == 0 {
		return nil, fmt.Errorf("%w: missing service account credentials", ports.ErrNotConfigured)
	}

	jwtCfg, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	httpClient := newHTTPClientWithPooling()
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	c, err := newClient(ctx, cfg, logger,
		goption.WithTokenSource(jwtCfg.TokenSource(tokenCtx)),
	)
	if err != nil {
		return nil, err
	}
	c.email = jwtCfg.Email
	return c, nil
}

func newClient(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	worksheet := strings.TrimSpace(cfg.Worksheet)
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		worksheet:     worksheet,
		timeout:       timeout,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) Name() string { return "sheets" }

// Email is the service account address the sheet must be shared with.
func (c *Client) Email() string { return c.email }

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

func (c *Client) Worksheet() string { return c.worksheet }

// Check verifies the spreadsheet is reachable and the worksheet exists.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.ensureWorksheet(ctx)
}

// Load reads every data row of the worksheet.
func (c *Client) Load(ctx context.Context) ([]core.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ensureWorksheet(ctx); err != nil {
		return nil, err
	}

	rng := c.a1("A:F")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var (
		out     []core.Transaction
		skipped int
	)
	for i, row := range resp.Values {
		cols := toStrings(row)
		if i == 0 && isHeader(cols) {
			continue
		}
		if len(cols) == 0 || blank(cols) {
			continue
		}
		tx, ok := decodeRow(row, cols)
		if !ok {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped unreadable rows",
			"range", rng,
			"skipped", skipped)
	}
	return out, nil
}

// Append adds one row after the last row of the table.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ensureWorksheet(ctx); err != nil {
		return "", err
	}

	rng := c.a1("A:F")
	vr := &gsheet.ValueRange{Values: [][]any{toRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.worksheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// Replace overwrites the table with the header plus all rows, then clears
// whatever the previous table had below them. A failed write leaves the
// old rows in place.
func (c *Client) Replace(ctx context.Context, txs []core.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ensureWorksheet(ctx); err != nil {
		return err
	}

	values := make([][]any, 0, len(txs)+1)
	values = append(values, headerRow())
	for _, tx := range txs {
		values = append(values, toRow(tx))
	}
	target := c.a1(fmt.Sprintf("A1:F%d", len(values)))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &gsheet.ValueRange{Values: values}).
		ValueInputOption(rawInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	tail := c.a1(fmt.Sprintf("A%d:F", len(values)+1))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tail, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tail, err)
	}
	c.logger.InfoContext(ctx, "Rewrote worksheet",
		log.FieldOperation, log.OpReplace,
		log.FieldCount, len(txs))
	return nil
}

// ensureWorksheet creates the worksheet with a header row when it is
// missing. Success is remembered for the life of the client.
func (c *Client) ensureWorksheet(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("open spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.worksheet {
			c.ready = true
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: c.worksheet},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create worksheet %s: %w", c.worksheet, err)
	}
	header := &gsheet.ValueRange{Values: [][]any{headerRow()}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1:F1"), header).
		ValueInputOption(rawInput).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	c.logger.InfoContext(ctx, "Created worksheet", "worksheet", c.worksheet)
	c.ready = true
	return nil
}

// a1 builds a quoted A1 range on the worksheet.
func (c *Client) a1(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.worksheet, "'", "''"), cells)
}

func headerRow() []any {
	row := make([]any, len(csvfile.Header))
	for i, h := range csvfile.Header {
		row[i] = h
	}
	return row
}

func toRow(tx core.Transaction) []any {
	cols := csvfile.EncodeRow(tx)
	row := make([]any, len(cols))
	for i, v := range cols {
		row[i] = v
	}
	return row
}

// decodeRow handles the cell types returned with UNFORMATTED_VALUE. Rows
// written by this client are plain strings; rows typed into the sheet by
// hand may carry numeric amounts and locale-formatted dates.
func decodeRow(raw []any, cols []string) (core.Transaction, bool) {
	tx, ok := csvfile.DecodeRow(cols)
	if len(raw) > 4 {
		if f, isNum := raw[4].(float64); isNum {
			tx.Amount = decimal.NewFromFloat(f)
			ok = true
		}
	}
	if !ok {
		return core.Transaction{}, false
	}
	if tx.Date.IsZero() && len(cols) > 0 {
		tx.Date = parseSheetDate(cols[0])
	}
	return tx, true
}

var sheetDateLayouts = []string{core.DateLayout, "1/2/2006", "2006/01/02", "2/1/2006"}

// parseSheetDate accepts the date formats a spreadsheet locale may render.
// Unparseable input is the zero date.
func parseSheetDate(s string) core.Date {
	s = strings.TrimSpace(s)
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}
		}
	}
	return core.Date{}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}

func isHeader(cols []string) bool {
	return len(cols) > 0 && strings.EqualFold(cols[0], "date")
}

func blank(cols []string) bool {
	for _, v := range cols {
		if v != "" {
			return false
		}
	}
	return true
}
