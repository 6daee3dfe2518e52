package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// snapshot is the ledger state one analytics request computes over.
type snapshot struct {
	transactions []core.TransactionWithCategory
	categories   []core.Category
	budgets      []core.BudgetWithCategory
}

type snapshotParts uint8

const (
	withCategories snapshotParts = 1 << iota
	withBudgets
)

// loadSnapshot fetches the transactions plus the requested collections
// concurrently. Any failure fails the whole snapshot.
func (s *Server) loadSnapshot(ctx context.Context, parts snapshotParts) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.transactions = txs
		return nil
	})
	if parts&withCategories != 0 {
		g.Go(func() error {
			cats, err := s.store.ListCategories(gctx)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			snap.categories = cats
			return nil
		})
	}
	if parts&withBudgets != 0 {
		g.Go(func() error {
			budgets, err := s.store.ListBudgets(gctx)
			if err != nil {
				return fmt.Errorf("list budgets: %w", err)
			}
			snap.budgets = budgets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Server) analyticsFailed(w http.ResponseWriter, r *http.Request, msg, op string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), msg, err,
		log.ComponentAnalytics, op, log.NewFields().WithErrorType(log.ErrorTypeInternal))
	InternalServerError(msg).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	const msg = "Failed to fetch analytics summary"
	snap, err := s.loadSnapshot(r.Context(), 0)
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpSummary, err)
		return
	}
	summary, err := analytics.Summarize(snap.transactions, s.now())
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpSummary, err)
		return
	}
	OK(summary).Write(w)
}

func (s *Server) handleMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	const msg = "Failed to fetch monthly expenses"
	year, err := ParseYear(r.URL.Query(), s.now().Year())
	if err != nil {
		respondError(w, r, err, errorMessages{invalid: "Invalid query parameters"}, log.OpParse)
		return
	}

	snap, err := s.loadSnapshot(r.Context(), 0)
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpMonthlyExpenses, err)
		return
	}
	months, err := analytics.MonthlyExpenses(snap.transactions, year)
	if errors.Is(err, core.ErrInvalidYear) {
		ErrorResponse(http.StatusBadRequest, "Invalid year").Write(w)
		return
	}
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpMonthlyExpenses, err)
		return
	}
	OK(months).Write(w)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	const msg = "Failed to fetch category breakdown"
	snap, err := s.loadSnapshot(r.Context(), withCategories)
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpCategoryBreakdown, err)
		return
	}
	breakdown, err := analytics.CategoryBreakdown(snap.transactions, snap.categories, s.now())
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpCategoryBreakdown, err)
		return
	}
	if breakdown == nil {
		breakdown = []analytics.CategorySpend{}
	}
	OK(breakdown).Write(w)
}

func (s *Server) handleWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	const msg = "Failed to fetch weekly trend"
	snap, err := s.loadSnapshot(r.Context(), 0)
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpWeeklyTrend, err)
		return
	}
	weeks, err := analytics.WeeklyTrend(snap.transactions, s.now())
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpWeeklyTrend, err)
		return
	}
	OK(weeks).Write(w)
}

func (s *Server) handleBudgetComparison(w http.ResponseWriter, r *http.Request) {
	const msg = "Failed to fetch budget comparison"
	snap, err := s.loadSnapshot(r.Context(), withBudgets)
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpBudgetComparison, err)
		return
	}
	rows, err := analytics.BudgetComparison(snap.budgets, snap.transactions, s.now())
	if err != nil {
		s.analyticsFailed(w, r, msg, log.OpBudgetComparison, err)
		return
	}
	if rows == nil {
		rows = []analytics.BudgetStatus{}
	}
	OK(rows).Write(w)
}
