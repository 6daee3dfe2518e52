package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Publisher sends ledger change events to subscribers.
type Publisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Ledger wraps a store and announces every successful transaction and budget
// write. Reads pass straight through to the wrapped store.
type Ledger struct {
	store.Store
	publisher Publisher
}

var _ store.Store = (*Ledger)(nil)

// NewLedger decorates s. A nil publisher disables events.
func NewLedger(s store.Store, publisher Publisher) *Ledger {
	return &Ledger{
		Store:     s,
		publisher: publisher,
	}
}

func (l *Ledger) CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	tx, err := l.Store.CreateTransaction(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	l.publish(ctx, amqp.TransactionCreated, tx.ID)
	return tx, nil
}

func (l *Ledger) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	tx, err := l.Store.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	l.publish(ctx, amqp.TransactionUpdated, tx.ID)
	return tx, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	deleted, err := l.Store.DeleteTransaction(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	l.publish(ctx, amqp.TransactionDeleted, id)
	return true, nil
}

func (l *Ledger) CreateBudget(ctx context.Context, in core.NewBudget) (core.Budget, error) {
	b, err := l.Store.CreateBudget(ctx, in)
	if err != nil {
		return core.Budget{}, err
	}
	l.publish(ctx, amqp.BudgetCreated, b.ID)
	return b, nil
}

func (l *Ledger) UpdateBudget(ctx context.Context, id int64, patch core.BudgetPatch) (core.Budget, error) {
	b, err := l.Store.UpdateBudget(ctx, id, patch)
	if err != nil {
		return core.Budget{}, err
	}
	l.publish(ctx, amqp.BudgetUpdated, b.ID)
	return b, nil
}

func (l *Ledger) DeleteBudget(ctx context.Context, id int64) (bool, error) {
	deleted, err := l.Store.DeleteBudget(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	l.publish(ctx, amqp.BudgetDeleted, id)
	return true, nil
}

// publish never fails the caller: the write has already been committed.
func (l *Ledger) publish(ctx context.Context, kind amqp.EventKind, id int64) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishEvent(ctx, amqp.NewLedgerEvent(kind, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "id", id, "error", err)
	}
}

// Close closes both the store and the publisher connection.
func (l *Ledger) Close() error {
	var errs []error

	if l.Store != nil {
		if err := l.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if c, ok := l.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}
