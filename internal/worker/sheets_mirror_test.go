package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	sheetmem "fintrack/internal/sheets/memory"
	"fintrack/internal/store/memory"
)

func seedTransaction(t *testing.T, s *memory.Store, desc string, day int) core.Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(context.Background(), core.NewTransaction{
		Description: desc,
		Amount:      core.MustParseMoney("12.34"),
		Date:        time.Date(2025, 4, day, 0, 0, 0, 0, time.UTC),
		CategoryID:  core.Int64(3),
		Type:        core.Expense,
	})
	require.NoError(t, err)
	return tx
}

func TestSheetsMirror_HandleEvent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sheet := sheetmem.New()
	m := NewSheetsMirror(st, sheet, "@daily")

	tx := seedTransaction(t, st, "Shoes", 2)

	require.NoError(t, m.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.TransactionCreated, tx.ID)))
	rows, _ := sheet.ListRows(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "Shoes", rows[0].Description)
	assert.Equal(t, "Shopping", rows[0].Category)
	assert.Equal(t, "12.34", rows[0].Amount.String())

	desc := "Running shoes"
	_, err := st.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Description: &desc})
	require.NoError(t, err)
	require.NoError(t, m.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.TransactionUpdated, tx.ID)))
	rows, _ = sheet.ListRows(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "Running shoes", rows[0].Description)

	require.NoError(t, m.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.TransactionDeleted, tx.ID)))
	rows, _ = sheet.ListRows(ctx)
	assert.Empty(t, rows)
}

func TestSheetsMirror_IgnoresBudgetsAndVanishedRecords(t *testing.T) {
	ctx := context.Background()
	sheet := sheetmem.New()
	m := NewSheetsMirror(memory.New(), sheet, "@daily")

	require.NoError(t, m.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.BudgetCreated, 1)))
	require.NoError(t, m.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.TransactionUpdated, 404)))

	rows, _ := sheet.ListRows(ctx)
	assert.Empty(t, rows)
}

func sheetRow(id int64) sheets.Row {
	return sheets.Row{ID: id, Description: "stale", Type: core.Expense, Amount: core.MustParseMoney("1")}
}

type failingSource struct{}

func (failingSource) GetTransaction(context.Context, int64) (core.TransactionWithCategory, error) {
	return core.TransactionWithCategory{}, errors.New("database is locked")
}

func (failingSource) ListTransactions(context.Context) ([]core.TransactionWithCategory, error) {
	return nil, errors.New("database is locked")
}

func TestSheetsMirror_StoreErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	m := NewSheetsMirror(failingSource{}, sheetmem.New(), "@daily")

	assert.Error(t, m.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.TransactionCreated, 1)))
	assert.Error(t, m.Resync(ctx))
}

func TestSheetsMirror_Resync(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	sheet := sheetmem.New()
	m := NewSheetsMirror(st, sheet, "@daily")

	a := seedTransaction(t, st, "first", 9)
	b := seedTransaction(t, st, "second", 1)
	// A stale row that no longer exists in the store.
	require.NoError(t, sheet.UpsertTransaction(ctx, sheetRow(999)))

	require.NoError(t, m.Resync(ctx))

	rows, _ := sheet.ListRows(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, a.ID, rows[0].ID)
	assert.Equal(t, b.ID, rows[1].ID)
}

func TestSheetsMirror_StartStop(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedTransaction(t, st, "boot", 3)
	sheet := sheetmem.New()
	m := NewSheetsMirror(st, sheet, "@every 1h")

	require.False(t, m.IsRunning())
	require.NoError(t, m.Start(ctx))
	assert.True(t, m.IsRunning())
	assert.Equal(t, 1, sheet.Replacements(), "startup resync should run once")

	assert.Error(t, m.Start(ctx), "second start must fail")

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))
	assert.False(t, m.IsRunning())
	require.NoError(t, m.Stop(stopCtx), "stopping twice is a no-op")
}

func TestSheetsMirror_BadSchedule(t *testing.T) {
	m := NewSheetsMirror(memory.New(), sheetmem.New(), "whenever")
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.IsRunning())
}
