// Package analytics derives the dashboard views from a ledger snapshot.
//
// Every function is pure: it reads the slices it is given, never mutates
// them, and takes the reference time explicitly. Callers fetch a fresh
// snapshot from the store on each request; nothing here is cached.
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Summary is the current month's income, expenses, balance and savings rate.
type Summary struct {
	Balance         core.Money `json:"balance"`
	MonthlyIncome   core.Money `json:"monthlyIncome"`
	MonthlyExpenses core.Money `json:"monthlyExpenses"`
	SavingsRate     int64      `json:"savingsRate"`
}

// MonthAmount is one entry of the twelve-month expense trend.
type MonthAmount struct {
	Month  string     `json:"month"`
	Amount core.Money `json:"amount"`
}

// CategorySpend is one slice of the current month's category breakdown.
type CategorySpend struct {
	Name  string     `json:"name"`
	Value core.Money `json:"value"`
	Color string     `json:"color"`
}

// WeekAmount is one bucket of the current month's weekly trend.
type WeekAmount struct {
	Week   string     `json:"week"`
	Amount core.Money `json:"amount"`
}

// BudgetStatus compares one budget with the current month's spend.
// Remaining is Budget minus Actual and goes negative once the budget is
// exceeded; Overage then holds its magnitude.
type BudgetStatus struct {
	BudgetID   int64      `json:"budgetId"`
	Category   string     `json:"category"`
	Color      string     `json:"color,omitempty"`
	Budget     core.Money `json:"budget"`
	Actual     core.Money `json:"actual"`
	Remaining  core.Money `json:"remaining"`
	Overage    core.Money `json:"overage"`
	OverBudget bool       `json:"overBudget"`
}

// UnknownCategory labels budget rows whose category does not resolve.
const UnknownCategory = "Unknown"

var hundred = decimal.NewFromInt(100)

var weekLabels = [4]string{"Week 1", "Week 2", "Week 3", "Week 4"}

// referenceTime rejects a missing now and returns it in UTC, the zone
// every stored date is kept in.
func referenceTime(now time.Time) (time.Time, error) {
	if now.IsZero() {
		return time.Time{}, core.ErrMissingNow
	}
	return now.UTC(), nil
}

// Summarize totals the transactions dated in now's calendar month.
// The savings rate is 100 x balance / income rounded half away from zero,
// or 0 when there is no income.
func Summarize(txs []core.TransactionWithCategory, now time.Time) (Summary, error) {
	now, err := referenceTime(now)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	var income, expenses core.Money
	for _, t := range txs {
		if !core.SameMonth(t.Date, now) {
			continue
		}
		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expenses = expenses.Add(t.Amount)
		}
	}
	balance := income.Sub(expenses)
	var rate int64
	if income.IsPositive() {
		rate = balance.Decimal().Mul(hundred).Div(income.Decimal()).Round(0).IntPart()
	}
	return Summary{
		Balance:         balance,
		MonthlyIncome:   income,
		MonthlyExpenses: expenses,
		SavingsRate:     rate,
	}, nil
}

// MonthlyExpenses returns exactly twelve entries, January through December
// of year, each holding that month's expense total. Months are read in UTC.
// Income is ignored.
func MonthlyExpenses(txs []core.TransactionWithCategory, year int) ([]MonthAmount, error) {
	if year < 1 || year > core.MaxBudgetYear {
		return nil, fmt.Errorf("monthly expenses: %w: %d", core.ErrInvalidYear, year)
	}
	var totals [12]core.Money
	for _, t := range txs {
		date := t.Date.UTC()
		if t.Type != core.Expense || date.Year() != year {
			continue
		}
		m := date.Month() - 1
		totals[m] = totals[m].Add(t.Amount)
	}
	out := make([]MonthAmount, 12)
	for i := range out {
		out[i] = MonthAmount{
			Month:  time.Month(i + 1).String()[:3],
			Amount: totals[i],
		}
	}
	return out, nil
}

// CategoryBreakdown sums the current month's expenses per category, in
// the order categories are given, omitting categories with no spend.
// Transactions are matched on their own category reference, so spend on an
// unresolved category is not attributed to the fallback.
func CategoryBreakdown(txs []core.TransactionWithCategory, categories []core.Category, now time.Time) ([]CategorySpend, error) {
	now, err := referenceTime(now)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	spend := currentMonthSpend(txs, now)
	out := make([]CategorySpend, 0, len(categories))
	for _, c := range categories {
		total := spend[c.ID]
		if !total.IsPositive() {
			continue
		}
		out = append(out, CategorySpend{Name: c.Name, Value: total, Color: c.Color})
	}
	return out, nil
}

// WeeklyTrend buckets the current month's expenses by day of month:
// days 1-7, 8-14, 15-21, and 22 to the end of the month. All four buckets
// are always present.
func WeeklyTrend(txs []core.TransactionWithCategory, now time.Time) ([]WeekAmount, error) {
	now, err := referenceTime(now)
	if err != nil {
		return nil, fmt.Errorf("weekly trend: %w", err)
	}
	var totals [4]core.Money
	for _, t := range txs {
		if t.Type != core.Expense || !core.SameMonth(t.Date, now) {
			continue
		}
		w := weekOfMonth(t.Date.UTC().Day())
		totals[w] = totals[w].Add(t.Amount)
	}
	out := make([]WeekAmount, len(weekLabels))
	for i, label := range weekLabels {
		out[i] = WeekAmount{Week: label, Amount: totals[i]}
	}
	return out, nil
}

func weekOfMonth(day int) int {
	switch {
	case day <= 7:
		return 0
	case day <= 14:
		return 1
	case day <= 21:
		return 2
	default:
		return 3
	}
}

// BudgetComparison reports, per budget and in the given order, how much of
// its category was spent in now's calendar month.
//
// The budget's own month and year are not consulted: a budget recorded for
// a past period is still compared with the current month.
func BudgetComparison(budgets []core.BudgetWithCategory, txs []core.TransactionWithCategory, now time.Time) ([]BudgetStatus, error) {
	now, err := referenceTime(now)
	if err != nil {
		return nil, fmt.Errorf("budget comparison: %w", err)
	}
	spend := currentMonthSpend(txs, now)
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		row := BudgetStatus{
			BudgetID: b.ID,
			Category: UnknownCategory,
			Budget:   b.Amount,
		}
		if b.Resolved() {
			row.Category = b.Category.Name
			row.Color = b.Category.Color
		}
		if b.CategoryID != nil {
			row.Actual = spend[*b.CategoryID]
		}
		row.Remaining = row.Budget.Sub(row.Actual)
		if row.Remaining.IsNegative() {
			row.OverBudget = true
			row.Overage = row.Remaining.Abs()
		}
		out = append(out, row)
	}
	return out, nil
}

// currentMonthSpend sums expenses in now's month keyed by the raw category
// reference. Uncategorized transactions are skipped.
func currentMonthSpend(txs []core.TransactionWithCategory, now time.Time) map[int64]core.Money {
	spend := make(map[int64]core.Money)
	for _, t := range txs {
		if t.Type != core.Expense || t.CategoryID == nil || !core.SameMonth(t.Date, now) {
			continue
		}
		spend[*t.CategoryID] = spend[*t.CategoryID].Add(t.Amount)
	}
	return spend
}
