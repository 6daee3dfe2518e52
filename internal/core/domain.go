package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	MaxDescriptionLength = 200
	MinBudgetYear        = 1000
	MaxBudgetYear        = 9999
)

type (
	TransactionType string

	Category struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        time.Time       `json:"date"`
		CategoryID  *int64          `json:"categoryId"`
		Type        TransactionType `json:"type"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// TransactionWithCategory is a transaction joined with its category, or
	// with the fallback category when the reference does not resolve.
	TransactionWithCategory struct {
		Transaction
		Category Category `json:"category"`
	}

	Budget struct {
		ID         int64     `json:"id"`
		CategoryID *int64    `json:"categoryId"`
		Amount     Money     `json:"amount"`
		Month      int       `json:"month"`
		Year       int       `json:"year"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	BudgetWithCategory struct {
		Budget
		Category Category `json:"category"`
	}

	// User holds credentials only. PasswordHash is a bcrypt hash and never
	// leaves the process.
	User struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		PasswordHash string `json:"-"`
	}
)

type (
	NewCategory struct {
		Name  string `json:"name"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}

	NewTransaction struct {
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        time.Time       `json:"date"`
		CategoryID  *int64          `json:"categoryId"`
		Type        TransactionType `json:"type"`
	}

	// TransactionPatch carries the fields of a partial update. Nil fields are
	// left untouched.
	TransactionPatch struct {
		Description *string          `json:"description,omitempty"`
		Amount      *Money           `json:"amount,omitempty"`
		Date        *time.Time       `json:"date,omitempty"`
		CategoryID  *int64           `json:"categoryId,omitempty"`
		Type        *TransactionType `json:"type,omitempty"`
	}

	NewBudget struct {
		CategoryID *int64 `json:"categoryId"`
		Amount     Money  `json:"amount"`
		Month      int    `json:"month"`
		Year       int    `json:"year"`
	}

	BudgetPatch struct {
		CategoryID *int64 `json:"categoryId,omitempty"`
		Amount     *Money `json:"amount,omitempty"`
		Month      *int   `json:"month,omitempty"`
		Year       *int   `json:"year,omitempty"`
	}

	NewUser struct {
		Username     string
		PasswordHash string
	}
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Resolved reports whether the joined category is the one the budget references.
func (b BudgetWithCategory) Resolved() bool {
	return b.CategoryID != nil && *b.CategoryID == b.Category.ID
}

func (c NewCategory) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(c.Name) == "" {
		v.Add("name", "name is required")
	}
	if strings.TrimSpace(c.Color) == "" {
		v.Add("color", "color is required")
	}
	if strings.TrimSpace(c.Icon) == "" {
		v.Add("icon", "icon is required")
	}
	return v.Err()
}

// AmountTooLargeMessage is reported for amounts above MaxAmount.
var AmountTooLargeMessage = "amount must not exceed " + MaxAmount.String()

func validateAmount(v *ValidationError, m Money) {
	switch err := m.Validate(); {
	case errors.Is(err, ErrAmountTooLarge):
		v.Add("amount", AmountTooLargeMessage)
	case err != nil:
		v.Add("amount", "amount must be at least 0.01")
	}
}

func (t NewTransaction) Validate() error {
	v := &ValidationError{}
	validateDescription(v, t.Description)
	validateAmount(v, t.Amount)
	if t.Date.IsZero() {
		v.Add("date", "date is required")
	}
	if !t.Type.Valid() {
		v.Add("type", "type must be income or expense")
	}
	return v.Err()
}

func (p TransactionPatch) Validate() error {
	v := &ValidationError{}
	if p.Description != nil {
		validateDescription(v, *p.Description)
	}
	if p.Amount != nil {
		validateAmount(v, *p.Amount)
	}
	if p.Date != nil && p.Date.IsZero() {
		v.Add("date", "date is required")
	}
	if p.Type != nil && !p.Type.Valid() {
		v.Add("type", "type must be income or expense")
	}
	return v.Err()
}

// Apply merges the provided fields into t.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Date != nil {
		t.Date = p.Date.UTC()
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		t.CategoryID = &id
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	return t
}

func (b NewBudget) Validate() error {
	v := &ValidationError{}
	if b.CategoryID == nil {
		v.Add("categoryId", "categoryId is required")
	}
	validateAmount(v, b.Amount)
	validatePeriod(v, b.Month, b.Year)
	return v.Err()
}

func (p BudgetPatch) Validate() error {
	v := &ValidationError{}
	if p.Amount != nil {
		validateAmount(v, *p.Amount)
	}
	month, year := 1, MinBudgetYear
	if p.Month != nil {
		month = *p.Month
	}
	if p.Year != nil {
		year = *p.Year
	}
	validatePeriod(v, month, year)
	return v.Err()
}

// Apply merges the provided fields into b.
func (p BudgetPatch) Apply(b Budget) Budget {
	if p.CategoryID != nil {
		id := *p.CategoryID
		b.CategoryID = &id
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Month != nil {
		b.Month = *p.Month
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	return b
}

// Empty reports whether the patch changes nothing.
func (p BudgetPatch) Empty() bool {
	return p.CategoryID == nil && p.Amount == nil && p.Month == nil && p.Year == nil
}

func (u NewUser) Validate() error {
	v := &ValidationError{}
	if strings.TrimSpace(u.Username) == "" {
		v.Add("username", "username is required")
	}
	if u.PasswordHash == "" {
		v.Add("password", "password is required")
	}
	return v.Err()
}

func validateDescription(v *ValidationError, d string) {
	d = strings.TrimSpace(d)
	if d == "" {
		v.Add("description", ErrEmptyDescription.Error())
	}
	if len(d) > MaxDescriptionLength {
		v.Add("description", "description too long (max 200 characters)")
	}
}

func validatePeriod(v *ValidationError, month, year int) {
	if month < 1 || month > 12 {
		v.Add("month", "month must be between 1 and 12")
	}
	if year < MinBudgetYear || year > MaxBudgetYear {
		v.Add("year", "year must have four digits")
	}
}
