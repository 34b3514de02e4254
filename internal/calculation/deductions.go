package calculation

import (
	"github.com/shopspring/decimal"

	"taxlator-api/internal/models"
)

// Deduction keys, in the order the pipeline emits them
const (
	DeductionCRA             = "cra"
	DeductionPension         = "pension"
	DeductionNHIS            = "nhis"
	DeductionNHF             = "nhf"
	DeductionRentRelief      = "rentRelief"
	DeductionOtherDeductions = "otherDeductions"
	DeductionExpenses        = "expenses"
)

// DeductionItem is one itemized deduction. When Rate and Base are set,
// Amount is round2(Rate * Base), lowered to the cap for capped reliefs.
type DeductionItem struct {
	Key     string
	Label   string
	Amount  decimal.Decimal
	Rate    *decimal.Decimal
	Base    *decimal.Decimal
	Enabled bool
}

// DeductionOptions carries the optional PAYE/PIT reliefs
type DeductionOptions struct {
	AnnualRent      decimal.Decimal
	OtherDeductions decimal.Decimal
	IncludeNHIS     bool
	IncludeNHF      bool
}

// DeductionSummary is the output of the deduction pipeline
type DeductionSummary struct {
	Items           []DeductionItem
	TotalDeductions decimal.Decimal
	TaxableBase     decimal.Decimal
}

// Find returns the item with the given key
func (s DeductionSummary) Find(key string) (DeductionItem, bool) {
	for _, item := range s.Items {
		if item.Key == key {
			return item, true
		}
	}
	return DeductionItem{}, false
}

// ConsolidatedRelief computes the CRA: the higher of the fixed minimum and a
// percentage of gross, plus a further percentage of gross.
func ConsolidatedRelief(gross decimal.Decimal, rates models.DeductionRates) decimal.Decimal {
	gross = nonNegative(gross)
	floor := decimal.Max(rates.CRAFixedMinimum, rates.CRAMinimumRate.Mul(gross))
	return round2(floor.Add(rates.CRAGrossRate.Mul(gross)))
}

// ComputeDeductions runs the PAYE/PIT pipeline: CRA, pension, NHIS, NHF,
// rent relief, other deductions.
func ComputeDeductions(gross decimal.Decimal, opts DeductionOptions, rates models.DeductionRates) DeductionSummary {
	gross = nonNegative(gross)
	basicSalary := round2(gross.Mul(rates.BasicSalaryShare))

	rent := rated(DeductionRentRelief, "Rent Relief", rates.RentReliefRate, nonNegative(opts.AnnualRent), true)
	rent.Amount = decimal.Min(rent.Amount, rates.RentReliefCap)

	items := []DeductionItem{
		{
			Key:     DeductionCRA,
			Label:   "Consolidated Relief Allowance",
			Amount:  ConsolidatedRelief(gross, rates),
			Enabled: true,
		},
		rated(DeductionPension, "Pension Contribution", rates.PensionRate, gross, true),
		rated(DeductionNHIS, "National Health Insurance Scheme", rates.NHISRate, basicSalary, opts.IncludeNHIS),
		rated(DeductionNHF, "National Housing Fund", rates.NHFRate, basicSalary, opts.IncludeNHF),
		rent,
		{
			Key:     DeductionOtherDeductions,
			Label:   "Other Deductions",
			Amount:  nonNegative(opts.OtherDeductions),
			Enabled: true,
		},
	}

	return summarize(gross, items)
}

// ComputeFreelancerDeductions runs the reduced pipeline: expenses and
// pension only, both clamped to zero.
func ComputeFreelancerDeductions(gross, expenses, pension decimal.Decimal) DeductionSummary {
	items := []DeductionItem{
		{
			Key:     DeductionExpenses,
			Label:   "Business Expenses",
			Amount:  nonNegative(expenses),
			Enabled: true,
		},
		{
			Key:     DeductionPension,
			Label:   "Pension Contribution",
			Amount:  nonNegative(pension),
			Enabled: true,
		},
	}

	return summarize(nonNegative(gross), items)
}

func rated(key, label string, rate, base decimal.Decimal, enabled bool) DeductionItem {
	r, b := rate, base
	return DeductionItem{
		Key:     key,
		Label:   label,
		Amount:  round2(rate.Mul(base)),
		Rate:    &r,
		Base:    &b,
		Enabled: enabled,
	}
}

func summarize(gross decimal.Decimal, items []DeductionItem) DeductionSummary {
	total := decimal.Zero
	for _, item := range items {
		if item.Enabled {
			total = total.Add(item.Amount)
		}
	}

	return DeductionSummary{
		Items:           items,
		TotalDeductions: total,
		TaxableBase:     nonNegative(gross.Sub(total)),
	}
}

// ToDeductions converts items to their JSON form
func ToDeductions(items []DeductionItem) []models.Deduction {
	out := make([]models.Deduction, 0, len(items))
	for _, item := range items {
		out = append(out, models.Deduction{
			Key:     item.Key,
			Label:   item.Label,
			Amount:  toFloat(item.Amount),
			Rate:    toFloatPtr(item.Rate),
			Base:    toFloatPtr(item.Base),
			Enabled: item.Enabled,
		})
	}
	return out
}
