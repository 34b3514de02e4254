package calculation

import (
	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// round2 rounds half away from zero to 2 decimal places. Every amount the
// engine rounds is non-negative, where this is the same as half-up.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func fromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// fromOptional returns the value of an optional amount, or zero
func fromOptional(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	return decimal.Max(d, decimal.Zero)
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// effectiveRate returns tax / gross rounded to 4 places, or 0 when gross is not positive
func effectiveRate(tax, gross decimal.Decimal) decimal.Decimal {
	if !gross.IsPositive() {
		return decimal.Zero
	}
	return tax.DivRound(gross, 4)
}

// monthly derives a display figure from an annual one
func monthly(annual decimal.Decimal) decimal.Decimal {
	return round2(annual.Div(twelve))
}
