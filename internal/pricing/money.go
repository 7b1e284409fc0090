package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	four    = decimal.NewFromInt(4)
	halfDiv = decimal.NewFromInt(2)
)

const (
	// InputScale is the finest precision kept from user input.
	InputScale = 4
	// maxIntegerDigits keeps input magnitudes below 1e9.
	maxIntegerDigits = 9
	maxInputLen      = 40
)

// Bound rounds d to InputScale places and maps magnitudes of 1e9 or more to
// zero. It inspects the exponent before any arithmetic, so values such as
// 1e100000000 never get expanded.
func Bound(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	intDigits := int64(d.NumDigits()) + int64(d.Exponent())
	if intDigits > maxIntegerDigits || intDigits < -InputScale {
		return decimal.Zero
	}
	return d.Round(InputScale)
}

// FromFloat converts a float to a decimal, mapping NaN and infinities to zero.
func FromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return Bound(decimal.NewFromFloat(v))
}

// ParseAmount parses numeric text from a form field. Malformed or
// out-of-range input yields zero.
func ParseAmount(value string) decimal.Decimal {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "$")
	if trimmed == "" || len(trimmed) > maxInputLen {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return Bound(d)
}

// RoundQuarter rounds to the nearest 0.25, halves away from zero.
func RoundQuarter(d decimal.Decimal) decimal.Decimal {
	return d.Mul(four).Round(0).Div(four)
}

// RoundCents rounds to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (p Policy) quarter(d decimal.Decimal) decimal.Decimal {
	if p.QuarterRounding {
		return RoundQuarter(d)
	}
	return d
}
