package calculation

import (
	"github.com/shopspring/decimal"

	"taxlator-api/internal/models"
)

// VATBreakdown is the decimal form of a VAT conversion
type VATBreakdown struct {
	Rate         decimal.Decimal
	VATAmount    decimal.Decimal
	ExcludingVAT decimal.Decimal
	IncludingVAT decimal.Decimal
}

// AddVAT treats amount as VAT-exclusive
func AddVAT(amount, rate decimal.Decimal) VATBreakdown {
	vat := round2(rate.Mul(amount))
	return VATBreakdown{
		Rate:         rate,
		VATAmount:    vat,
		ExcludingVAT: amount,
		IncludingVAT: amount.Add(vat),
	}
}

// RemoveVAT treats amount as VAT-inclusive and extracts the exclusive base
func RemoveVAT(amount, rate decimal.Decimal) VATBreakdown {
	excluding := amount.DivRound(decimal.NewFromInt(1).Add(rate), 2)
	if rate.IsZero() {
		excluding = amount
	}
	return VATBreakdown{
		Rate:         rate,
		VATAmount:    amount.Sub(excluding),
		ExcludingVAT: excluding,
		IncludingVAT: amount,
	}
}

// VAT converts a transaction amount. Exempt transactions have a zero rate,
// which makes both conversions the identity.
func (c *Calculator) VAT(in *models.VATInput) (*models.VATResult, error) {
	if in == nil {
		return nil, models.NewInvalidInputError("input", nil, "is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rate, err := c.tables.VATRate(in.TransactionType)
	if err != nil {
		return nil, err
	}

	amount := fromFloat(in.TransactionAmount)
	var b VATBreakdown
	if in.CalculationType == models.VATCalculationAdd {
		b = AddVAT(amount, rate)
	} else {
		b = RemoveVAT(amount, rate)
	}

	return &models.VATResult{
		Type:              models.TaxTypeVAT,
		TransactionAmount: in.TransactionAmount,
		CalculationType:   in.CalculationType,
		TransactionType:   in.TransactionType,
		VATRate:           toFloat(b.Rate),
		VATAmount:         toFloat(b.VATAmount),
		ExcludingVAT:      toFloat(b.ExcludingVAT),
		IncludingVAT:      toFloat(b.IncludingVAT),
		RateTableVersion:  c.tables.Version,
	}, nil
}
