package money

import (
	"fmt"
	"strings"

	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
)

const (
	// CurrencyScale is the number of fractional digits for currency amounts
	CurrencyScale = domain.AmountPlaces
	// RateScale is the number of fractional digits for quoted percentage rates
	RateScale = domain.RatePlaces
	// InternalPrecision is the number of fractional digits kept by divisions
	// inside compounding, before the final rounding step
	InternalPrecision = 28
)

// Lakh is one hundred thousand currency units
var Lakh = decimal.NewFromInt(100000)

// Hundred is used for percentage conversions
var Hundred = decimal.NewFromInt(100)

// Parse reads a decimal amount from its textual form
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, domain.InvalidInput("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.InvalidInput("invalid amount %q", s)
	}
	return d, nil
}

// FromInt converts an integer number of currency units
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Round rounds to currency scale, half away from zero (half-up for positive amounts)
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// RoundRate rounds a percentage rate to its quoted scale
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// Div divides a by b at internal precision. A zero divisor is invalid input.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: division by zero", domain.ErrInvalidInput)
	}
	return a.DivRound(b, InternalPrecision), nil
}

// PowInt raises base to a non-negative integer power exactly, by square-and-multiply.
// No intermediate rounding takes place.
func PowInt(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base)
		}
	}
	return result
}

// Percent returns pct percent of d, unrounded
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(Hundred)
}

// RoundToNearest rounds d half-up to the nearest multiple of unit.
// Non-positive amounts round to zero.
func RoundToNearest(d, unit decimal.Decimal) decimal.Decimal {
	if !d.IsPositive() || !unit.IsPositive() {
		return decimal.Zero
	}
	units := d.DivRound(unit, InternalPrecision).Round(0)
	return units.Mul(unit)
}

// Sum adds all amounts
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
