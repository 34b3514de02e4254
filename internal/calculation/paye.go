package calculation

import (
	"taxlator-api/internal/models"
)

// PAYE computes personal income tax for an employee. Gross income is annual;
// monthly figures are the annual ones divided by 12.
//
// The engine accepts a gross income of zero (no tax, effective rate 0).
// Callers that require a positive income validate before calling.
func (c *Calculator) PAYE(in *models.PayeInput) (*models.PayeResult, error) {
	if in == nil {
		return nil, models.NewInvalidInputError("input", nil, "is required")
	}
	if err := checkIncomeInput(in.GrossIncome, in.Frequency); err != nil {
		return nil, err
	}
	if err := models.ValidateOptionalAmount(in.RentRelief, "rentRelief"); err != nil {
		return nil, err
	}
	if err := models.ValidateOptionalAmount(in.OtherDeductions, "otherDeductions"); err != nil {
		return nil, err
	}

	gross := fromFloat(in.GrossIncome)
	deductions := ComputeDeductions(gross, DeductionOptions{
		AnnualRent:      fromOptional(in.RentRelief),
		OtherDeductions: fromOptional(in.OtherDeductions),
		IncludeNHIS:     in.IncludeNHIS != nil && *in.IncludeNHIS,
		IncludeNHF:      in.IncludeNHF != nil && *in.IncludeNHF,
	}, c.tables.Deductions)

	allocation := ApplyBands(deductions.TaxableBase, c.tables.PersonalIncomeBands())
	net := gross.Sub(allocation.Total)
	cra, _ := deductions.Find(DeductionCRA)

	return &models.PayeResult{
		Type:             models.TaxTypePAYE,
		Frequency:        in.Frequency.OrDefault(),
		GrossIncome:      toFloat(gross),
		CRA:              toFloat(cra.Amount),
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

// checkIncomeInput rejects values no calculation can run on. Zero income passes.
func checkIncomeInput(gross float64, frequency models.Frequency) error {
	if err := models.ValidateAmount(gross, "grossIncome"); err != nil {
		return err
	}
	if frequency != "" && !frequency.IsValid() {
		return models.NewInvalidInputError("frequency", frequency, "must be annual or monthly")
	}
	return nil
}
