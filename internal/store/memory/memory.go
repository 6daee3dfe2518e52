// Package memory is a transient record store. Nothing survives a restart;
// it backs local runs and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	budgets      map[int64]core.Budget
	users        map[int64]core.User

	nextCategory    int64
	nextTransaction int64
	nextBudget      int64
	nextUser        int64
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store seeded with the default categories.
func New(opts ...Option) *Store {
	s := &Store{
		now:          time.Now,
		categories:   make(map[int64]core.Category),
		transactions: make(map[int64]core.Transaction),
		budgets:      make(map[int64]core.Budget),
		users:        make(map[int64]core.User),
	}
	for _, o := range opts {
		o(s)
	}
	for _, c := range core.DefaultCategories() {
		s.categories[c.ID] = c
		if c.ID > s.nextCategory {
			s.nextCategory = c.ID
		}
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error { return nil }

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoriesLocked(), nil
}

func (s *Store) categoriesLocked() []core.Category {
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	store.SortCategories(out)
	return out
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, in core.NewCategory) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(in.Name)
	for _, c := range s.categories {
		if c.Name == name {
			return core.Category{}, core.ErrConflict
		}
	}
	s.nextCategory++
	c := core.Category{ID: s.nextCategory, Name: name, Color: in.Color, Icon: in.Icon}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.TransactionWithCategory, error) {
	return s.selectTransactions(func(core.Transaction) bool { return true }), nil
}

func (s *Store) ListTransactionsByDateRange(_ context.Context, start, end time.Time) ([]core.TransactionWithCategory, error) {
	return s.selectTransactions(func(t core.Transaction) bool {
		return !t.Date.Before(start) && !t.Date.After(end)
	}), nil
}

func (s *Store) ListTransactionsByCategory(_ context.Context, categoryID int64) ([]core.TransactionWithCategory, error) {
	return s.selectTransactions(func(t core.Transaction) bool {
		return t.CategoryID != nil && *t.CategoryID == categoryID
	}), nil
}

func (s *Store) selectTransactions(keep func(core.Transaction) bool) []core.TransactionWithCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if keep(t) {
			txs = append(txs, t)
		}
	}
	store.SortTransactions(txs)
	return core.JoinTransactions(txs, s.categoriesLocked())
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.TransactionWithCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.TransactionWithCategory{}, core.ErrNotFound
	}
	return core.JoinTransactions([]core.Transaction{t}, s.categoriesLocked())[0], nil
}

func (s *Store) CreateTransaction(_ context.Context, in core.NewTransaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTransaction++
	t := core.Transaction{
		ID:          s.nextTransaction,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        store.Timestamp(in.Date),
		CategoryID:  copyID(in.CategoryID),
		Type:        in.Type,
		CreatedAt:   store.Timestamp(s.now()),
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	t = patch.Apply(t)
	t.Date = store.Timestamp(t.Date)
	s.transactions[id] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return false, nil
	}
	delete(s.transactions, id)
	return true, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.BudgetWithCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	budgets := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		budgets = append(budgets, b)
	}
	store.SortBudgets(budgets)
	return core.JoinBudgets(budgets, s.categoriesLocked()), nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.BudgetWithCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.BudgetWithCategory{}, core.ErrNotFound
	}
	return core.JoinBudgets([]core.Budget{b}, s.categoriesLocked())[0], nil
}

func (s *Store) FindBudget(_ context.Context, categoryID int64, month, year int) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.findBudgetLocked(&categoryID, month, year, 0); ok {
		return b, nil
	}
	return core.Budget{}, core.ErrNotFound
}

// findBudgetLocked looks for a budget on the given period other than skip.
func (s *Store) findBudgetLocked(categoryID *int64, month, year int, skip int64) (core.Budget, bool) {
	if categoryID == nil {
		return core.Budget{}, false
	}
	for _, b := range s.budgets {
		if b.ID == skip || b.CategoryID == nil {
			continue
		}
		if *b.CategoryID == *categoryID && b.Month == month && b.Year == year {
			return b, true
		}
	}
	return core.Budget{}, false
}

func (s *Store) CreateBudget(_ context.Context, in core.NewBudget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.findBudgetLocked(in.CategoryID, in.Month, in.Year, 0); exists {
		return core.Budget{}, core.ErrConflict
	}
	s.nextBudget++
	b := core.Budget{
		ID:         s.nextBudget,
		CategoryID: copyID(in.CategoryID),
		Amount:     in.Amount,
		Month:      in.Month,
		Year:       in.Year,
		CreatedAt:  store.Timestamp(s.now()),
	}
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, id int64, patch core.BudgetPatch) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	b = patch.Apply(b)
	if _, exists := s.findBudgetLocked(b.CategoryID, b.Month, b.Year, id); exists {
		return core.Budget{}, core.ErrConflict
	}
	s.budgets[id] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return false, nil
	}
	delete(s.budgets, id)
	return true, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, in core.NewUser) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username := strings.TrimSpace(in.Username)
	for _, u := range s.users {
		if u.Username == username {
			return core.User{}, core.ErrConflict
		}
	}
	s.nextUser++
	u := core.User{ID: s.nextUser, Username: username, PasswordHash: in.PasswordHash}
	s.users[u.ID] = u
	return u, nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
