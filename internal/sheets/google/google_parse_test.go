package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestRanges(t *testing.T) {
	assert.Equal(t, "'Transactions'!A3:F3", rowRange("Transactions", 3, 3))
	assert.Equal(t, "'My Ledger'!A1:F10", rowRange("My Ledger", 1, 10))
	assert.Equal(t, "'Bob''s'!A:F", columnsRange("Bob's"))
}

func TestFindRow(t *testing.T) {
	values := [][]any{{"ID"}, {"4"}, {}, {" 12 "}, {float64(7)}}

	assert.Equal(t, 2, findRow(values, 4))
	assert.Equal(t, 4, findRow(values, 12))
	assert.Equal(t, 5, findRow(values, 7))
	assert.Equal(t, 0, findRow(values, 99))
	assert.Equal(t, 0, findRow(nil, 1))
}

func TestParseRows(t *testing.T) {
	values := [][]any{
		{"ID", "Date", "Description", "Category", "Type", "Amount"},
		{"1", "2025-03-14", "Salary", "Salary", "income", "3000.00"},
		{},
		{"", "", ""},
		{"2", "2025-03-15", "Coffee", "Food & Dining", "expense", "3.5"},
	}

	rows, err := parseRows(values)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, core.Income, rows[0].Type)
	assert.Equal(t, "3000.00", rows[0].Amount.String())
	assert.Equal(t, "Food & Dining", rows[1].Category)
	assert.Equal(t, "3.50", rows[1].Amount.String())
}

func TestParseRows_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		values [][]any
	}{
		{"bad id", [][]any{{"x", "2025-01-01", "d", "c", "expense", "1"}}},
		{"bad date", [][]any{{"1", "yesterday", "d", "c", "expense", "1"}}},
		{"bad amount", [][]any{{"1", "2025-01-01", "d", "c", "expense", "lots"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRows(tt.values)
			assert.Error(t, err)
		})
	}
}
