package window

import (
	"github.com/shopspring/decimal"
)

// Value is a computed result. Valid is false when the result is undefined:
// an empty frame, a missing lag row, or a zero denominator.
type Value struct {
	Num   decimal.Decimal
	Valid bool
}

// Undefined is the null result.
var Undefined = Value{}

// Defined wraps a computed number.
func Defined(d decimal.Decimal) Value { return Value{Num: d, Valid: true} }

// Int wraps an integer result such as a rank.
func Int(n int) Value { return Defined(decimal.NewFromInt(int64(n))) }

// Int64 returns the value truncated to an integer, or 0 if undefined.
func (v Value) Int64() int64 {
	if !v.Valid {
		return 0
	}
	return v.Num.IntPart()
}

// Equal reports whether both values are undefined or numerically equal.
func (v Value) Equal(o Value) bool {
	if v.Valid != o.Valid {
		return false
	}
	return !v.Valid || v.Num.Equal(o.Num)
}

func (v Value) String() string {
	if !v.Valid {
		return "NULL"
	}
	return v.Num.String()
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return v.Num.MarshalJSON()
}

// Ratio returns num/den, undefined when den is zero.
func Ratio(num, den decimal.Decimal) Value {
	if den.IsZero() {
		return Undefined
	}
	return Defined(num.Div(den))
}
