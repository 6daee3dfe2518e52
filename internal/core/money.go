// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every stored and computed
// amount. Values are exact decimals held at two fractional digits so that
// currency sums never drift.
package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every amount.
const Scale = 2

// MaxIntegerDigits bounds the digits ParseMoney accepts before the
// decimal separator.
const MaxIntegerDigits = 12

// maxInputLen bounds the raw text ParseMoney will hand to the decimal parser.
const maxInputLen = 32

var (
	// MinAmount is the smallest amount accepted for a transaction or budget.
	MinAmount = Money{d: decimal.New(1, -Scale)}
	// MaxAmount is the largest amount accepted for a transaction or budget:
	// 999999999999.99.
	MaxAmount = Money{d: decimal.New(99999999999999, -Scale)}
)

// Money is an exact decimal amount rounded to two fractional digits.
// The zero value is 0.00 and ready to use.
type Money struct {
	d decimal.Decimal
}

// NewMoney rounds d half away from zero to two fractional digits.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(Scale)}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -Scale)}
}

// ParseMoney converts a decimal string to Money with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. Sign is preserved; callers
// enforce positivity through Validate. Exponent notation is rejected, as are
// inputs longer than 32 bytes or with more than MaxIntegerDigits integer digits.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("12.345") -> 12.35
//	ParseMoney("12.344") -> 12.34
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") > 1 || (strings.Contains(s, ",") && strings.Contains(s, ".")) {
		return Money{}, ErrInvalidAmount
	}
	if len(s) > maxInputLen || strings.ContainsAny(s, "eE") {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	s = strings.ReplaceAll(s, ",", ".")
	whole, _, _ := strings.Cut(strings.TrimLeft(s, "+-"), ".")
	if len(strings.TrimLeft(whole, "0")) > MaxIntegerDigits {
		return Money{}, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewMoney(d), nil
}

// MustParseMoney is ParseMoney for literals known to be valid. It panics otherwise.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }
func (m Money) Abs() Money { return Money{d: m.d.Abs()} }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// Cents returns the amount as an integer number of cents.
func (m Money) Cents() int64 {
	return m.d.Shift(Scale).IntPart()
}

// String formats the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// Validate reports whether the amount is usable for a stored record, that is
// between MinAmount and MaxAmount inclusive.
func (m Money) Validate() error {
	if m.d.LessThan(MinAmount.d) {
		return ErrInvalidAmount
	}
	if m.d.GreaterThan(MaxAmount.d) {
		return ErrAmountTooLarge
	}
	return nil
}

// MarshalJSON encodes the amount as a quoted fixed-point string ("12.50").
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return ErrInvalidAmount
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidAmount
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the amount as exact decimal text.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan reads an amount stored as text or as a number.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
	case []byte:
		parsed, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = parsed
	case int64:
		*m = NewMoney(decimal.NewFromInt(v))
	case float64:
		*m = NewMoney(decimal.NewFromFloat(v))
	case nil:
		*m = Money{}
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	return nil
}
