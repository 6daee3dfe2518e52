// Package storetest is the behavioural contract every store backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Opener opens the backend at one fixed location. Calling it again after
// Close reopens the same data.
type Opener func() (store.Store, error)

// Backend describes an implementation under test.
type Backend struct {
	// Persistent backends additionally run the restart checks.
	Persistent bool
	// Fresh returns an opener bound to a new, empty location.
	Fresh func(t *testing.T) Opener
}

// Run executes the full contract against b.
func Run(t *testing.T, b Backend) {
	open := func(t *testing.T) store.Store {
		t.Helper()
		s, err := b.Fresh(t)()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("SeedsDefaultCategories", func(t *testing.T) { testSeedsDefaultCategories(t, open(t)) })
	t.Run("CreateCategory", func(t *testing.T) { testCreateCategory(t, open(t)) })
	t.Run("TransactionRoundTrip", func(t *testing.T) { testTransactionRoundTrip(t, open(t)) })
	t.Run("TransactionOrdering", func(t *testing.T) { testTransactionOrdering(t, open(t)) })
	t.Run("IDsNeverReused", func(t *testing.T) { testIDsNeverReused(t, open(t)) })
	t.Run("UpdateTransactionMergesFields", func(t *testing.T) { testUpdateTransaction(t, open(t)) })
	t.Run("DeleteTransaction", func(t *testing.T) { testDeleteTransaction(t, open(t)) })
	t.Run("DateRangeIsInclusive", func(t *testing.T) { testDateRange(t, open(t)) })
	t.Run("ListByCategory", func(t *testing.T) { testListByCategory(t, open(t)) })
	t.Run("UnresolvedCategoryFallsBack", func(t *testing.T) { testFallback(t, open(t)) })
	t.Run("Budgets", func(t *testing.T) { testBudgets(t, open(t)) })
	t.Run("BudgetOrdering", func(t *testing.T) { testBudgetOrdering(t, open(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("ConcurrentCreates", func(t *testing.T) { testConcurrentCreates(t, open(t)) })

	if b.Persistent {
		t.Run("SurvivesRestart", func(t *testing.T) { testSurvivesRestart(t, b.Fresh(t)) })
	}
}

var ctx = context.Background()

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func newTx(desc, amount string, when time.Time, category int64, typ core.TransactionType) core.NewTransaction {
	return core.NewTransaction{
		Description: desc,
		Amount:      core.MustParseMoney(amount),
		Date:        when,
		CategoryID:  core.Int64(category),
		Type:        typ,
	}
}

func txIDs(txs []core.TransactionWithCategory) []int64 {
	out := make([]int64, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func testSeedsDefaultCategories(t *testing.T, s store.Store) {
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategories(), cats)

	c, err := s.GetCategory(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Bills & Utilities", c.Name)

	_, err = s.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testCreateCategory(t *testing.T, s store.Store) {
	c, err := s.CreateCategory(ctx, core.NewCategory{Name: "Pets", Color: "#123456", Icon: "paw"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.ID)

	_, err = s.CreateCategory(ctx, core.NewCategory{Name: "Pets", Color: "#000000", Icon: "x"})
	assert.ErrorIs(t, err, core.ErrConflict)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 9)
	assert.Equal(t, "Pets", cats[8].Name)
}

func testTransactionRoundTrip(t *testing.T, s store.Store) {
	when := at(2025, time.March, 14, 10)
	created, err := s.CreateTransaction(ctx, newTx("Groceries", "42.10", when, 1, core.Expense))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Groceries", got.Description)
	assert.Equal(t, "42.10", got.Amount.String())
	assert.True(t, when.Equal(got.Date), "date %v != %v", got.Date, when)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(1), *got.CategoryID)
	assert.Equal(t, core.Expense, got.Type)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "Food & Dining", got.Category.Name)

	_, err = s.GetTransaction(ctx, created.ID+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testTransactionOrdering(t *testing.T, s store.Store) {
	same := at(2025, time.May, 2, 12)
	_, err := s.CreateTransaction(ctx, newTx("old", "1", at(2025, time.May, 1, 0), 1, core.Expense))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTx("tie-a", "1", same, 1, core.Expense))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTx("new", "1", at(2025, time.May, 3, 0), 1, core.Expense))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTx("tie-b", "1", same, 1, core.Expense))
	require.NoError(t, err)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 2, 1}, txIDs(txs))
}

func testIDsNeverReused(t *testing.T, s store.Store) {
	a, err := s.CreateTransaction(ctx, newTx("a", "1", at(2025, time.May, 1, 0), 1, core.Expense))
	require.NoError(t, err)
	b, err := s.CreateTransaction(ctx, newTx("b", "1", at(2025, time.May, 1, 0), 1, core.Expense))
	require.NoError(t, err)
	ok, err := s.DeleteTransaction(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, ok)

	c, err := s.CreateTransaction(ctx, newTx("c", "1", at(2025, time.May, 1, 0), 1, core.Expense))
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
	assert.Greater(t, c.ID, b.ID)
}

func testUpdateTransaction(t *testing.T, s store.Store) {
	orig, err := s.CreateTransaction(ctx, newTx("Coffee", "3.20", at(2025, time.April, 1, 8), 1, core.Expense))
	require.NoError(t, err)

	desc := "Espresso"
	updated, err := s.UpdateTransaction(ctx, orig.ID, core.TransactionPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Espresso", updated.Description)
	assert.Equal(t, "3.20", updated.Amount.String())
	assert.True(t, orig.Date.Equal(updated.Date))
	assert.True(t, orig.CreatedAt.Equal(updated.CreatedAt))

	amount := core.MustParseMoney("4")
	income := core.Income
	updated, err = s.UpdateTransaction(ctx, orig.ID, core.TransactionPatch{Amount: &amount, Type: &income, CategoryID: core.Int64(6)})
	require.NoError(t, err)
	assert.Equal(t, "Espresso", updated.Description)

	got, err := s.GetTransaction(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.00", got.Amount.String())
	assert.Equal(t, core.Income, got.Type)
	assert.Equal(t, "Income", got.Category.Name)
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))

	_, err = s.UpdateTransaction(ctx, orig.ID+100, core.TransactionPatch{Description: &desc})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testDeleteTransaction(t *testing.T, s store.Store) {
	tx, err := s.CreateTransaction(ctx, newTx("x", "1", at(2025, time.May, 1, 0), 1, core.Expense))
	require.NoError(t, err)

	ok, err := s.DeleteTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testDateRange(t *testing.T, s store.Store) {
	start := at(2025, time.February, 1, 0)
	end := at(2025, time.February, 28, 23)
	for _, when := range []time.Time{
		start.Add(-time.Second), start, at(2025, time.February, 14, 9), end, end.Add(time.Second),
	} {
		_, err := s.CreateTransaction(ctx, newTx("r", "1", when, 1, core.Expense))
		require.NoError(t, err)
	}
	txs, err := s.ListTransactionsByDateRange(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2}, txIDs(txs))
}

func testListByCategory(t *testing.T, s store.Store) {
	_, err := s.CreateTransaction(ctx, newTx("a", "1", at(2025, time.May, 1, 0), 2, core.Expense))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTx("b", "1", at(2025, time.May, 2, 0), 3, core.Expense))
	require.NoError(t, err)
	_, err = s.CreateTransaction(ctx, newTx("c", "1", at(2025, time.May, 3, 0), 2, core.Income))
	require.NoError(t, err)

	txs, err := s.ListTransactionsByCategory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, txIDs(txs))
	for _, tx := range txs {
		assert.Equal(t, "Transportation", tx.Category.Name)
	}

	none, err := s.ListTransactionsByCategory(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testFallback(t *testing.T, s store.Store) {
	orphan, err := s.CreateTransaction(ctx, newTx("orphan", "5", at(2025, time.May, 1, 0), 404, core.Expense))
	require.NoError(t, err)
	in := newTx("uncategorized", "5", at(2025, time.May, 2, 0), 0, core.Expense)
	in.CategoryID = nil
	_, err = s.CreateTransaction(ctx, in)
	require.NoError(t, err)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, "Food & Dining", tx.Category.Name)
	}
	assert.Nil(t, txs[0].CategoryID)
	require.NotNil(t, txs[1].CategoryID)
	assert.Equal(t, int64(404), *txs[1].CategoryID)
	assert.Equal(t, orphan.ID, txs[1].ID)
}

func testBudgets(t *testing.T, s store.Store) {
	b, err := s.CreateBudget(ctx, core.NewBudget{CategoryID: core.Int64(1), Amount: core.MustParseMoney("300"), Month: 6, Year: 2025})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())

	_, err = s.CreateBudget(ctx, core.NewBudget{CategoryID: core.Int64(1), Amount: core.MustParseMoney("10"), Month: 6, Year: 2025})
	assert.ErrorIs(t, err, core.ErrConflict)

	found, err := s.FindBudget(ctx, 1, 6, 2025)
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)
	_, err = s.FindBudget(ctx, 1, 7, 2025)
	assert.ErrorIs(t, err, core.ErrNotFound)

	other, err := s.CreateBudget(ctx, core.NewBudget{CategoryID: core.Int64(1), Amount: core.MustParseMoney("50"), Month: 7, Year: 2025})
	require.NoError(t, err)

	month := 6
	_, err = s.UpdateBudget(ctx, other.ID, core.BudgetPatch{Month: &month})
	assert.ErrorIs(t, err, core.ErrConflict)

	amount := core.MustParseMoney("75.5")
	updated, err := s.UpdateBudget(ctx, other.ID, core.BudgetPatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, "75.50", updated.Amount.String())
	assert.Equal(t, 7, updated.Month)
	assert.True(t, other.CreatedAt.Equal(updated.CreatedAt))

	got, err := s.GetBudget(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.50", got.Amount.String())
	assert.Equal(t, "Food & Dining", got.Category.Name)

	_, err = s.UpdateBudget(ctx, other.ID+100, core.BudgetPatch{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrNotFound)

	ok, err := s.DeleteBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// The period is free again once the budget is gone.
	_, err = s.CreateBudget(ctx, core.NewBudget{CategoryID: core.Int64(1), Amount: core.MustParseMoney("1"), Month: 6, Year: 2025})
	assert.NoError(t, err)
}

func testBudgetOrdering(t *testing.T, s store.Store) {
	type period struct {
		cat         int64
		month, year int
	}
	for _, p := range []period{
		{1, 3, 2024}, {2, 11, 2025}, {1, 11, 2025}, {3, 1, 2025}, {4, 3, 2024},
	} {
		_, err := s.CreateBudget(ctx, core.NewBudget{CategoryID: core.Int64(p.cat), Amount: core.MustParseMoney("1"), Month: p.month, Year: p.year})
		require.NoError(t, err)
	}
	budgets, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	got := make([]int64, 0, len(budgets))
	for _, b := range budgets {
		got = append(got, b.ID)
	}
	assert.Equal(t, []int64{2, 3, 4, 1, 5}, got)
}

func testUsers(t *testing.T, s store.Store) {
	u, err := s.CreateUser(ctx, core.NewUser{Username: "ada", PasswordHash: "$2a$10$hash"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = s.CreateUser(ctx, core.NewUser{Username: "ada", PasswordHash: "$2a$10$other"})
	assert.ErrorIs(t, err, core.ErrConflict)

	byName, err := s.GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, u, byName)

	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", byID.PasswordHash)

	_, err = s.GetUserByUsername(ctx, "grace")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetUser(ctx, u.ID+1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testConcurrentCreates(t *testing.T, s store.Store) {
	const n = 20
	var mu sync.Mutex
	seen := make(map[int64]bool, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			tx, err := s.CreateTransaction(ctx, newTx("c", "1", at(2025, time.May, 1, 0), 1, core.Expense))
			if err != nil {
				return err
			}
			mu.Lock()
			seen[tx.ID] = true
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, n)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, n)
}

func testSurvivesRestart(t *testing.T, open Opener) {
	s, err := open()
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, core.NewCategory{Name: "Travel", Color: "#0ea5e9", Icon: "plane"})
	require.NoError(t, err)
	first, err := s.CreateTransaction(ctx, newTx("kept", "9.99", at(2025, time.May, 1, 0), 9, core.Expense))
	require.NoError(t, err)
	ok, err := s.DeleteTransaction(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Close())

	s, err = open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 9, "defaults must not be seeded twice")
	assert.Equal(t, "Travel", cats[8].Name)

	next, err := s.CreateTransaction(ctx, newTx("after", "1", at(2025, time.May, 1, 0), 9, core.Expense))
	require.NoError(t, err)
	assert.Greater(t, next.ID, first.ID)
}
