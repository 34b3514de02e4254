package calculation

import (
	"github.com/shopspring/decimal"

	"taxlator-api/internal/models"
)

// CITBreakdown is the decimal form of a company income tax computation
type CITBreakdown struct {
	AppliedRate           decimal.Decimal
	NormalTax             decimal.Decimal
	MinimumTaxRate        decimal.Decimal
	AlternativeMinimumTax decimal.Decimal
	MinimumTaxApplied     bool
	TotalTax              decimal.Decimal
	NetProfitAfterTax     decimal.Decimal
}

// ComputeCIT applies the size rate to the taxable profit (a loss is taxed as
// zero). For sizes subject to the minimum tax, the alternative is computed on
// accounting profit, falling back to taxable profit, and the larger of the
// two taxes is due.
func ComputeCIT(taxableProfit decimal.Decimal, accountingProfit *decimal.Decimal, size models.CompanySize, tables *models.RateTables) (CITBreakdown, error) {
	rate, err := tables.CITRate(size)
	if err != nil {
		return CITBreakdown{}, err
	}

	b := CITBreakdown{
		AppliedRate:           rate,
		NormalTax:             round2(rate.Mul(nonNegative(taxableProfit))),
		MinimumTaxRate:        decimal.Zero,
		AlternativeMinimumTax: decimal.Zero,
	}
	b.TotalTax = b.NormalTax

	if tables.MinimumTaxApplies(size) {
		base := taxableProfit
		if accountingProfit != nil {
			base = *accountingProfit
		}

		b.MinimumTaxRate = tables.CompanyIncome.MinimumTaxRate
		b.AlternativeMinimumTax = round2(b.MinimumTaxRate.Mul(nonNegative(base)))
		if b.AlternativeMinimumTax.GreaterThan(b.NormalTax) {
			b.TotalTax = b.AlternativeMinimumTax
			b.MinimumTaxApplied = true
		}
	}

	b.NetProfitAfterTax = taxableProfit.Sub(b.TotalTax)
	return b, nil
}

// CIT computes company income tax
func (c *Calculator) CIT(in *models.CITInput) (*models.CITResult, error) {
	if in == nil {
		return nil, models.NewInvalidInputError("input", nil, "is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var accounting *decimal.Decimal
	if in.AccountingProfit != nil {
		v := fromFloat(*in.AccountingProfit)
		accounting = &v
	}

	taxableProfit := fromFloat(in.TaxableProfit)
	b, err := ComputeCIT(taxableProfit, accounting, in.CompanySize, c.tables)
	if err != nil {
		return nil, err
	}

	return &models.CITResult{
		Type:                  models.TaxTypeCIT,
		CompanySize:           in.CompanySize,
		AnnualTurnover:        in.AnnualTurnover,
		FixedAssets:           in.FixedAssets,
		TaxableProfit:         in.TaxableProfit,
		AccountingProfit:      in.AccountingProfit,
		AppliedRate:           toFloat(b.AppliedRate),
		NormalTax:             toFloat(b.NormalTax),
		AlternativeMinimumTax: toFloat(b.AlternativeMinimumTax),
		MinimumTaxRate:        toFloat(b.MinimumTaxRate),
		MinimumTaxApplied:     b.MinimumTaxApplied,
		TotalTax:              toFloat(b.TotalTax),
		NetProfitAfterTax:     toFloat(b.NetProfitAfterTax),
		RateTableVersion:      c.tables.Version,
	}, nil
}
