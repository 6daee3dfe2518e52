package sheets

import (
	"context"
	"strconv"
	"time"

	"fintrack/internal/core"
)

// Header is the first row of the mirrored sheet.
var Header = []string{"ID", "Date", "Description", "Category", "Type", "Amount"}

// Row is one transaction as it appears in the spreadsheet.
type Row struct {
	ID          int64
	Date        time.Time
	Description string
	Category    string
	Type        core.TransactionType
	Amount      core.Money
}

// RowFromTransaction flattens a joined transaction into a sheet row.
func RowFromTransaction(t core.TransactionWithCategory) Row {
	return Row{
		ID:          t.ID,
		Date:        t.Date,
		Description: t.Description,
		Category:    t.Category.Name,
		Type:        t.Type,
		Amount:      t.Amount,
	}
}

// Values renders r in Header column order. Amounts stay strings so the
// spreadsheet never sees a binary float.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		r.Date.UTC().Format("2006-01-02"),
		r.Description,
		r.Category,
		string(r.Type),
		r.Amount.String(),
	}
}

// Ports for outbound adapters.
type (
	// LedgerWriter keeps a spreadsheet copy of the transaction ledger.
	LedgerWriter interface {
		// UpsertTransaction writes r over the row with the same ID, or appends it.
		UpsertTransaction(ctx context.Context, r Row) error
		// DeleteTransaction removes the row with id. Missing rows are not an error.
		DeleteTransaction(ctx context.Context, id int64) error
		// ReplaceAll rewrites the whole sheet with rows.
		ReplaceAll(ctx context.Context, rows []Row) error
	}

	// LedgerReader reads the mirrored rows back.
	LedgerReader interface {
		ListRows(ctx context.Context) ([]Row, error)
	}
)
