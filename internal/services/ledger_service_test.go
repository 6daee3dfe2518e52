package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.LedgerEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Kind
	}
	return out
}

func newTransaction() core.NewTransaction {
	return core.NewTransaction{
		Description: "Groceries",
		Amount:      core.MustParseMoney("42.10"),
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		CategoryID:  core.Int64(1),
		Type:        core.Expense,
	}
}

func TestLedger_PublishesAfterWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	l := NewLedger(memory.New(), pub)

	tx, err := l.CreateTransaction(ctx, newTransaction())
	require.NoError(t, err)

	desc := "Weekly groceries"
	_, err = l.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Description: &desc})
	require.NoError(t, err)

	deleted, err := l.DeleteTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	b, err := l.CreateBudget(ctx, core.NewBudget{CategoryID: core.Int64(1), Amount: core.MustParseMoney("300"), Month: 3, Year: 2025})
	require.NoError(t, err)
	amount := core.MustParseMoney("350")
	_, err = l.UpdateBudget(ctx, b.ID, core.BudgetPatch{Amount: &amount})
	require.NoError(t, err)
	_, err = l.DeleteBudget(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, []amqp.EventKind{
		amqp.TransactionCreated, amqp.TransactionUpdated, amqp.TransactionDeleted,
		amqp.BudgetCreated, amqp.BudgetUpdated, amqp.BudgetDeleted,
	}, pub.kinds())
	assert.Equal(t, tx.ID, pub.events[0].ID)
	assert.Equal(t, b.ID, pub.events[3].ID)
}

func TestLedger_NoEventWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	l := NewLedger(memory.New(), pub)

	_, err := l.UpdateTransaction(ctx, 999, core.TransactionPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	deleted, err := l.DeleteTransaction(ctx, 999)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = l.DeleteBudget(ctx, 999)
	require.NoError(t, err)
	assert.False(t, deleted)

	in := core.NewBudget{CategoryID: core.Int64(2), Amount: core.MustParseMoney("10"), Month: 1, Year: 2025}
	_, err = l.CreateBudget(ctx, in)
	require.NoError(t, err)
	_, err = l.CreateBudget(ctx, in)
	assert.ErrorIs(t, err, core.ErrConflict)

	assert.Equal(t, []amqp.EventKind{amqp.BudgetCreated}, pub.kinds())
}

func TestLedger_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	l := NewLedger(memory.New(), pub)

	tx, err := l.CreateTransaction(ctx, newTransaction())
	require.NoError(t, err)

	got, err := l.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Description)
}

func TestLedger_NilPublisher(t *testing.T) {
	l := NewLedger(memory.New(), nil)
	_, err := l.CreateTransaction(context.Background(), newTransaction())
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestLedger_CloseClosesPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewLedger(memory.New(), pub)
	require.NoError(t, l.Close())
	assert.True(t, pub.closed)
}
