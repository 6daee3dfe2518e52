package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	ve, ok := IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	var out []string
	for _, f := range ve.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		Description: "Groceries",
		Amount:      MustParseMoney("12.40"),
		Date:        date(2025, 1, 1),
		CategoryID:  Int64(1),
		Type:        Expense,
	}
	require.NoError(t, good.Validate())

	noCategory := good
	noCategory.CategoryID = nil
	assert.NoError(t, noCategory.Validate())

	bad := NewTransaction{Description: " ", Amount: MoneyFromCents(0), Type: "transfer"}
	assert.ElementsMatch(t, []string{"description", "amount", "date", "type"}, fieldsOf(t, bad.Validate()))
}

func TestTransactionPatch(t *testing.T) {
	created := date(2025, 1, 1)
	orig := Transaction{
		ID: 3, Description: "Coffee", Amount: MustParseMoney("3.20"),
		Date: date(2025, 2, 2), CategoryID: Int64(1), Type: Expense, CreatedAt: created,
	}
	desc := "Tea"
	p := TransactionPatch{Description: &desc}
	require.NoError(t, p.Validate())

	got := p.Apply(orig)
	assert.Equal(t, "Tea", got.Description)
	assert.Equal(t, orig.Amount, got.Amount)
	assert.Equal(t, orig.Date, got.Date)
	assert.Equal(t, orig.Type, got.Type)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, int64(3), got.ID)

	zero := MoneyFromCents(0)
	assert.Equal(t, []string{"amount"}, fieldsOf(t, TransactionPatch{Amount: &zero}.Validate()))
}

func TestBudgetValidate(t *testing.T) {
	good := NewBudget{CategoryID: Int64(2), Amount: MustParseMoney("300"), Month: 3, Year: 2025}
	require.NoError(t, good.Validate())

	bad := NewBudget{Amount: MoneyFromCents(0), Month: 13, Year: 25}
	assert.ElementsMatch(t, []string{"categoryId", "amount", "month", "year"}, fieldsOf(t, bad.Validate()))

	month := 0
	assert.Equal(t, []string{"month"}, fieldsOf(t, BudgetPatch{Month: &month}.Validate()))
	assert.True(t, BudgetPatch{}.Empty())
}

func TestJoinTransactionsFallsBackToFirstCategory(t *testing.T) {
	cats := DefaultCategories()
	txs := []Transaction{
		{ID: 1, CategoryID: Int64(3)},
		{ID: 2, CategoryID: Int64(99)},
		{ID: 3},
	}
	joined := JoinTransactions(txs, cats)
	require.Len(t, joined, 3)
	assert.Equal(t, "Shopping", joined[0].Category.Name)
	assert.Equal(t, "Food & Dining", joined[1].Category.Name)
	assert.Equal(t, "Food & Dining", joined[2].Category.Name)
	assert.Equal(t, int64(99), *joined[1].CategoryID)
}

func TestJoinBudgetsResolved(t *testing.T) {
	joined := JoinBudgets([]Budget{{ID: 1, CategoryID: Int64(4)}, {ID: 2, CategoryID: Int64(42)}}, DefaultCategories())
	assert.True(t, joined[0].Resolved())
	assert.False(t, joined[1].Resolved())
	assert.Equal(t, Category{}, FallbackCategory(nil))
}

func TestParseDate(t *testing.T) {
	d, only, err := ParseDate("2025-03-14")
	require.NoError(t, err)
	assert.True(t, only)
	assert.Equal(t, date(2025, 3, 14), d)

	d, only, err = ParseDate("2025-03-14T10:30:00+02:00")
	require.NoError(t, err)
	assert.False(t, only)
	assert.Equal(t, time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC), d)

	_, _, err = ParseDate("14/03/2025")
	assert.Error(t, err)

	assert.Equal(t, time.Date(2025, 3, 14, 23, 59, 59, 999999999, time.UTC), EndOfDay(date(2025, 3, 14)))
	assert.True(t, SameMonth(date(2025, 3, 1), date(2025, 3, 31)))
	assert.False(t, SameMonth(date(2025, 3, 1), date(2024, 3, 1)))

	east := time.FixedZone("AEST", 10*60*60)
	assert.True(t, SameMonth(time.Date(2025, 4, 1, 5, 0, 0, 0, east), time.Date(2025, 3, 31, 18, 59, 0, 0, time.UTC)))
	assert.False(t, SameMonth(time.Date(2025, 4, 1, 11, 0, 0, 0, east), time.Date(2025, 3, 31, 18, 59, 0, 0, time.UTC)))
}
