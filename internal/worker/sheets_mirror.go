package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Source is the read side of the record store the mirror copies from.
type Source interface {
	GetTransaction(ctx context.Context, id int64) (core.TransactionWithCategory, error)
	ListTransactions(ctx context.Context) ([]core.TransactionWithCategory, error)
}

// SheetsMirror keeps a spreadsheet copy of the transaction ledger. Ledger
// events update single rows; a scheduled resync rewrites the whole sheet so
// that missed events are healed.
type SheetsMirror struct {
	source   Source
	sheet    sheets.LedgerWriter
	schedule string

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

func NewSheetsMirror(source Source, sheet sheets.LedgerWriter, schedule string) *SheetsMirror {
	return &SheetsMirror{
		source:   source,
		sheet:    sheet,
		schedule: schedule,
	}
}

// HandleEvent applies one ledger event to the sheet. Budget events carry
// nothing the sheet shows and are acknowledged as is.
func (m *SheetsMirror) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.Kind.Entity() != "transaction" {
		slog.DebugContext(ctx, "Ignoring ledger event", "kind", ev.Kind, "id", ev.ID)
		return nil
	}

	if ev.Kind == amqp.TransactionDeleted {
		if err := m.sheet.DeleteTransaction(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete transaction %d from sheet: %w", ev.ID, err)
		}
		slog.InfoContext(ctx, "Removed transaction from sheet", "id", ev.ID)
		return nil
	}

	tx, err := m.source.GetTransaction(ctx, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published; the delete event follows.
		slog.InfoContext(ctx, "Transaction no longer exists, skipping", "kind", ev.Kind, "id", ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", ev.ID, err)
	}

	if err := m.sheet.UpsertTransaction(ctx, sheets.RowFromTransaction(tx)); err != nil {
		return fmt.Errorf("upsert transaction %d to sheet: %w", ev.ID, err)
	}
	slog.InfoContext(ctx, "Mirrored transaction to sheet", "kind", ev.Kind, "id", ev.ID)
	return nil
}

// Resync rewrites the sheet from the current store snapshot, ordered by id.
func (m *SheetsMirror) Resync(ctx context.Context) error {
	txs, err := m.source.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	rows := make([]sheets.Row, len(txs))
	for i, tx := range txs {
		rows[i] = sheets.RowFromTransaction(tx)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	if err := m.sheet.ReplaceAll(ctx, rows); err != nil {
		return fmt.Errorf("replace sheet: %w", err)
	}
	slog.InfoContext(ctx, "Sheet resynced from store", "rows", len(rows))
	return nil
}

// Start runs an initial resync and schedules the periodic one. Returns an
// error if already running or if the schedule does not parse.
func (m *SheetsMirror) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("sheets mirror is already running")
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(m.schedule, func() {
		if err := m.Resync(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled resync failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule resync %q: %w", m.schedule, err)
	}

	// Recover from missed events or worker downtime
	if err := m.Resync(ctx); err != nil {
		slog.WarnContext(ctx, "Startup resync failed", "error", err)
	}

	c.Start()
	m.cron = c
	m.running = true

	slog.InfoContext(ctx, "Sheets mirror started", "schedule", m.schedule)
	return nil
}

// Stop halts the schedule and waits for a running resync to finish.
func (m *SheetsMirror) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	c := m.cron
	m.running = false
	m.cron = nil
	m.mu.Unlock()

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Sheets mirror stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sheets mirror stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the resync schedule is active
func (m *SheetsMirror) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
