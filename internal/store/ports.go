// Package store defines the record store shared by every persistence backend.
//
// All implementations honour the same contract:
//   - categories list by id ascending; transactions by date descending then
//     id descending; budgets by year descending, month descending, id ascending
//   - list reads join each record with its category, falling back to the
//     category with the lowest id when the reference does not resolve
//   - ids grow monotonically per collection and are never reused
//   - create stamps createdAt; update merges only provided fields
//   - the eight default categories are seeded exactly once
//   - a second budget for the same (category, month, year) is ErrConflict
package store

import (
	"context"
	"sort"
	"time"

	"fintrack/internal/core"
)

// Ports for persistence backends.
type (
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error)
	}

	TransactionStore interface {
		ListTransactions(ctx context.Context) ([]core.TransactionWithCategory, error)
		GetTransaction(ctx context.Context, id int64) (core.TransactionWithCategory, error)
		// ListTransactionsByDateRange includes both start and end.
		ListTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]core.TransactionWithCategory, error)
		ListTransactionsByCategory(ctx context.Context, categoryID int64) ([]core.TransactionWithCategory, error)
		CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) (bool, error)
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.BudgetWithCategory, error)
		GetBudget(ctx context.Context, id int64) (core.BudgetWithCategory, error)
		FindBudget(ctx context.Context, categoryID int64, month, year int) (core.Budget, error)
		CreateBudget(ctx context.Context, in core.NewBudget) (core.Budget, error)
		UpdateBudget(ctx context.Context, id int64, patch core.BudgetPatch) (core.Budget, error)
		DeleteBudget(ctx context.Context, id int64) (bool, error)
	}

	UserStore interface {
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		CreateUser(ctx context.Context, in core.NewUser) (core.User, error)
	}

	// Store is the full record store a backend provides.
	Store interface {
		CategoryStore
		TransactionStore
		BudgetStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Timestamp normalizes t to the precision every backend can round-trip.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// SortTransactions orders txs by date descending, then id descending.
func SortTransactions(txs []core.Transaction) {
	sortSlice(txs, func(a, b core.Transaction) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
}

// SortBudgets orders budgets by year descending, month descending, id ascending.
func SortBudgets(budgets []core.Budget) {
	sortSlice(budgets, func(a, b core.Budget) bool {
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		return a.ID < b.ID
	})
}

// SortCategories orders categories by id ascending.
func SortCategories(cats []core.Category) {
	sortSlice(cats, func(a, b core.Category) bool { return a.ID < b.ID })
}

func sortSlice[T any](s []T, less func(a, b T) bool) {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}
