// Package money provides fixed-point arithmetic for stable-coin amounts.
//
// Amounts are stored as int64 micro-units (6 decimal places, matching the
// stable-coin denomination). Decimal strings appear only at API boundaries;
// all internal arithmetic is integer arithmetic, so repeated addition of
// spend counters cannot drift the way float64 addition would.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale is the number of decimal places carried by an Amount.
const Scale = 6

// unitFactor is 10^Scale: the number of micro-units in one whole unit.
const unitFactor = 1_000_000

// maxUnits bounds the integer part so that units*unitFactor+frac cannot
// overflow int64.
const maxUnits = int64(9_223_372_036_854) // floor(MaxInt64 / unitFactor) - 1

// Amount is a monetary value in micro-units.
//
// The zero value is a valid amount of zero. Amounts produced by Parse are
// always non-negative; negative values only arise from Sub and exist so
// that remaining-budget computations can detect deficits.
type Amount int64

// Parse converts a decimal string ("50", "50.00", "0.000001") to an Amount.
//
// Rules:
//   - at most Scale fractional digits (no rounding is ever performed)
//   - no sign, no exponent, no grouping separators
//   - the integer part is required ("0.5", not ".5")
//
// Rejecting excess precision instead of rounding is deliberate: callers
// supply amounts in the coin's native denomination, and silently rounding
// a transfer amount would change its meaning.
func Parse(s string) (Amount, error) {
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty string")
	}
	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if fracPart == "" {
			return 0, fmt.Errorf("parse amount %q: missing fractional digits after decimal point", s)
		}
	}
	if intPart == "" {
		return 0, fmt.Errorf("parse amount %q: missing integer part", s)
	}
	if len(fracPart) > Scale {
		return 0, fmt.Errorf("parse amount %q: more than %d decimal places", s, Scale)
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, fmt.Errorf("parse amount %q: not a decimal number", s)
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || units > maxUnits {
		return 0, fmt.Errorf("parse amount %q: integer part out of range", s)
	}

	// Right-pad the fraction to Scale digits: "5" -> "500000".
	frac := int64(0)
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", Scale-len(fracPart))
		frac, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: invalid fraction", s)
		}
	}

	return Amount(units*unitFactor + frac), nil
}

// MustParse is Parse for compile-time-known literals. Panics on error.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromMicroUnits wraps a raw micro-unit count (e.g. a value read back from
// the store) as an Amount.
func FromMicroUnits(n int64) Amount {
	return Amount(n)
}

// MicroUnits returns the raw micro-unit count for storage.
func (a Amount) MicroUnits() int64 {
	return int64(a)
}

// String renders the amount as a decimal string with at least two decimal
// places ("50.00", "0.10", "0.000001"). Trailing zeros beyond the second
// decimal place are trimmed.
func (a Amount) String() string {
	n := int64(a)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	units := n / unitFactor
	frac := n % unitFactor

	fracStr := fmt.Sprintf("%06d", frac)
	for len(fracStr) > 2 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}
	return fmt.Sprintf("%s%d.%s", sign, units, fracStr)
}

// Add returns a+b, failing on int64 overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := int64(a) + int64(b)
	if (b > 0 && sum < int64(a)) || (b < 0 && sum > int64(a)) {
		return 0, fmt.Errorf("amount overflow: %s + %s", a, b)
	}
	return Amount(sum), nil
}

// Sub returns a-b. The result may be negative.
func (a Amount) Sub(b Amount) Amount {
	return Amount(int64(a) - int64(b))
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports whether the amount is less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
