package core

// DefaultCategories returns the categories every store seeds on first start,
// with the ids they are assigned.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Food & Dining", Color: "#2563eb", Icon: "utensils"},
		{ID: 2, Name: "Transportation", Color: "#16a34a", Icon: "car"},
		{ID: 3, Name: "Shopping", Color: "#ea580c", Icon: "shopping-bag"},
		{ID: 4, Name: "Entertainment", Color: "#8b5cf6", Icon: "music"},
		{ID: 5, Name: "Bills & Utilities", Color: "#06b6d4", Icon: "receipt"},
		{ID: 6, Name: "Income", Color: "#059669", Icon: "trending-up"},
		{ID: 7, Name: "Healthcare", Color: "#dc2626", Icon: "heart"},
		{ID: 8, Name: "Education", Color: "#7c3aed", Icon: "book"},
	}
}

// FallbackCategory returns the category with the lowest id, or the zero
// Category when there are none.
func FallbackCategory(categories []Category) Category {
	var fallback Category
	for i, c := range categories {
		if i == 0 || c.ID < fallback.ID {
			fallback = c
		}
	}
	return fallback
}

func categoryIndex(categories []Category) map[int64]Category {
	idx := make(map[int64]Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx
}

func resolve(idx map[int64]Category, id *int64, fallback Category) Category {
	if id != nil {
		if c, ok := idx[*id]; ok {
			return c
		}
	}
	return fallback
}

// JoinTransactions attaches each transaction's category, substituting the
// fallback category for unresolved references. Input order is preserved.
func JoinTransactions(txs []Transaction, categories []Category) []TransactionWithCategory {
	idx := categoryIndex(categories)
	fallback := FallbackCategory(categories)
	out := make([]TransactionWithCategory, 0, len(txs))
	for _, t := range txs {
		out = append(out, TransactionWithCategory{Transaction: t, Category: resolve(idx, t.CategoryID, fallback)})
	}
	return out
}

// JoinBudgets is JoinTransactions for budgets.
func JoinBudgets(budgets []Budget, categories []Category) []BudgetWithCategory {
	idx := categoryIndex(categories)
	fallback := FallbackCategory(categories)
	out := make([]BudgetWithCategory, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetWithCategory{Budget: b, Category: resolve(idx, b.CategoryID, fallback)})
	}
	return out
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
