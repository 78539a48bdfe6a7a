package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedRecord is returned when a record carries a non-finite or
// unparsable monetary amount, or violates a value invariant.
var ErrMalformedRecord = errors.New("malformed record")

// Money is a fixed-point monetary amount. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// MoneyFromDecimal wraps a decimal value.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromInt returns a whole-unit amount.
func MoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// MoneyFromFloat converts a float, rejecting NaN and infinities.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, fmt.Errorf("%w: non-finite amount %v", ErrMalformedRecord, f)
	}
	return Money{d: decimal.NewFromFloat(f)}, nil
}

// ParseMoney parses a decimal string such as "-125.50".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrMalformedRecord)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: amount %q: %v", ErrMalformedRecord, s, err)
	}
	return Money{d: d}, nil
}

// MustParseMoney is ParseMoney for literals in tests and fixtures.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// Abs returns |m|.
func (m Money) Abs() Money { return Money{d: m.d.Abs()} }

// Mul scales m by a decimal factor.
func (m Money) Mul(f decimal.Decimal) Money { return Money{d: m.d.Mul(f)} }

// Cmp compares m and o, returning -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether m and o represent the same amount.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// IsZero reports whether m is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// Sign returns -1, 0 or +1.
func (m Money) Sign() int { return m.d.Sign() }

// String renders the amount with two decimal places.
func (m Money) String() string { return m.d.StringFixed(2) }

// MarshalJSON encodes the amount as a JSON string to avoid float rounding.
func (m Money) MarshalJSON() ([]byte, error) { return m.d.MarshalJSON() }

// UnmarshalJSON decodes a JSON number or string.
func (m *Money) UnmarshalJSON(b []byte) error { return m.d.UnmarshalJSON(b) }

// MaxMoney returns the larger of a and b.
func MaxMoney(a, b Money) Money {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// SumMoney adds every amount.
func SumMoney(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return Money{d: total}
}
