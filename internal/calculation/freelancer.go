package calculation

import (
	"taxlator-api/internal/models"
)

// Freelancer computes tax on self-employed income: the personal income
// schedule applied after deducting expenses and pension only.
func (c *Calculator) Freelancer(in *models.FreelancerInput) (*models.FreelancerResult, error) {
	if in == nil {
		return nil, models.NewInvalidInputError("input", nil, "is required")
	}
	if err := checkIncomeInput(in.GrossIncome, in.Frequency); err != nil {
		return nil, err
	}

	gross := fromFloat(in.GrossIncome)
	expenses := nonNegative(fromOptional(in.Expenses))
	pension := nonNegative(fromOptional(in.Pension))

	deductions := ComputeFreelancerDeductions(gross, expenses, pension)
	allocation := ApplyBands(deductions.TaxableBase, c.tables.PersonalIncomeBands())
	net := gross.Sub(allocation.Total)

	return &models.FreelancerResult{
		Type:             models.TaxTypeFreelancer,
		Frequency:        in.Frequency.OrDefault(),
		GrossIncome:      toFloat(gross),
		Expenses:         toFloat(expenses),
		Pension:          toFloat(pension),
		Deductions:       ToDeductions(deductions.Items),
		TotalDeductions:  toFloat(deductions.TotalDeductions),
		TaxableIncome:    toFloat(deductions.TaxableBase),
		TotalTax:         toFloat(allocation.Total),
		NetIncome:        toFloat(net),
		EffectiveTaxRate: toFloat(effectiveRate(allocation.Total, gross)),
		MonthlyTax:       toFloat(monthly(allocation.Total)),
		MonthlyNetIncome: toFloat(monthly(net)),
		Computation:      ToTaxBands(allocation.Steps),
		RateTableVersion: c.tables.Version,
	}, nil
}
