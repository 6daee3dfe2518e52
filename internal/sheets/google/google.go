package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Values are written RAW so that descriptions are never evaluated as formulas.
const valueInputOption = "RAW"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// Options selects the spreadsheet and the service account used to reach it.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return NewWithService(svc, opts.SpreadsheetID, sheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetName:     sheetName,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file path; GOOGLE_APPLICATION_CREDENTIALS is the last resort.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertTransaction overwrites the row holding r.ID or writes r below the
// last used row. The header is written first on an empty sheet.
func (c *Client) UpsertTransaction(ctx context.Context, r ports.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		if err := c.write(ctx, rowRange(c.sheetName, 1, 1), [][]any{headerValues()}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		ids = [][]any{headerValues()[:1]}
	}

	row := findRow(ids, r.ID)
	if row == 0 {
		row = len(ids) + 1
	}

	if err := c.write(ctx, rowRange(c.sheetName, row, row), [][]any{r.Values()}); err != nil {
		return fmt.Errorf("write transaction %d to row %d: %w", r.ID, row, err)
	}

	slog.DebugContext(ctx, "Mirrored transaction", "id", r.ID, "row", row)
	return nil
}

// DeleteTransaction clears the row holding id. The emptied row is dropped on
// the next ReplaceAll.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.readIDColumn(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not present in sheet", "id", id)
		return nil
	}

	rng := rowRange(c.sheetName, row, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ReplaceAll clears the sheet and writes the header followed by rows.
func (c *Client) ReplaceAll(ctx context.Context, rows []ports.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	all := columnsRange(c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", all, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, headerValues())
	for _, r := range rows {
		values = append(values, r.Values())
	}
	if err := c.write(ctx, rowRange(c.sheetName, 1, len(values)), values); err != nil {
		return fmt.Errorf("write %d rows: %w", len(rows), err)
	}
	return nil
}

// ListRows reads every transaction row back from the sheet.
func (c *Client) ListRows(ctx context.Context) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := columnsRange(c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values)
}

func (c *Client) readIDColumn(ctx context.Context) ([][]any, error) {
	rng := quoteSheet(c.sheetName) + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	return err
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}
