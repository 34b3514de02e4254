package models

import "encoding/json"

// CalculationInput is implemented by every calculation payload
type CalculationInput interface {
	TaxType() TaxType
	Validate() error
}

// TaxTypeEnvelope is decoded first to select the payload variant
type TaxTypeEnvelope struct {
	TaxType TaxType `json:"taxType"`
}

// PayeInput is the PAYE/PIT payload. GrossIncome is annual. RentRelief
// carries the annual rent paid; the relief itself is derived from it.
type PayeInput struct {
	Type            TaxType   `json:"taxType"`
	GrossIncome     float64   `json:"grossIncome" validate:"required,gt=0"`
	Frequency       Frequency `json:"frequency,omitempty" validate:"omitempty,oneof=annual monthly"`
	RentRelief      *float64  `json:"rentRelief,omitempty" validate:"omitempty,gte=0"`
	OtherDeductions *float64  `json:"otherDeductions,omitempty" validate:"omitempty,gte=0"`
	IncludeNHIS     *bool     `json:"includeNhIs,omitempty"`
	IncludeNHF      *bool     `json:"includeNhf,omitempty"`
}

// TaxType implements CalculationInput
func (in *PayeInput) TaxType() TaxType { return TaxTypePAYE }

// Validate checks the payload before any arithmetic runs
func (in *PayeInput) Validate() error {
	if in.Type != "" && in.Type != TaxTypePAYE {
		return NewInvalidInputError("taxType", in.Type, "must be "+string(TaxTypePAYE))
	}
	if err := ValidatePositiveAmount(in.GrossIncome, "grossIncome"); err != nil {
		return err
	}
	if err := validateFrequency(in.Frequency); err != nil {
		return err
	}
	if err := ValidateOptionalAmount(in.RentRelief, "rentRelief"); err != nil {
		return err
	}
	return ValidateOptionalAmount(in.OtherDeductions, "otherDeductions")
}

// FreelancerInput is the freelancer payload. GrossIncome is annual.
type FreelancerInput struct {
	Type        TaxType   `json:"taxType"`
	GrossIncome float64   `json:"grossIncome" validate:"required,gt=0"`
	Frequency   Frequency `json:"frequency,omitempty" validate:"omitempty,oneof=annual monthly"`
	Expenses    *float64  `json:"expenses,omitempty" validate:"omitempty,gte=0"`
	Pension     *float64  `json:"pension,omitempty" validate:"omitempty,gte=0"`
}

// TaxType implements CalculationInput
func (in *FreelancerInput) TaxType() TaxType { return TaxTypeFreelancer }

// Validate checks the payload before any arithmetic runs
func (in *FreelancerInput) Validate() error {
	if in.Type != "" && in.Type != TaxTypeFreelancer {
		return NewInvalidInputError("taxType", in.Type, "must be "+string(TaxTypeFreelancer))
	}
	if err := ValidatePositiveAmount(in.GrossIncome, "grossIncome"); err != nil {
		return err
	}
	if err := validateFrequency(in.Frequency); err != nil {
		return err
	}
	if err := ValidateOptionalAmount(in.Expenses, "expenses"); err != nil {
		return err
	}
	return ValidateOptionalAmount(in.Pension, "pension")
}

// CITInput is the company income tax payload. TaxableProfit may be negative
// (a loss); it is echoed as given and taxed as zero.
type CITInput struct {
	Type             TaxType     `json:"taxType"`
	AnnualTurnover   float64     `json:"annualTurnover" validate:"gte=0"`
	FixedAssets      float64     `json:"fixedAssets" validate:"gte=0"`
	TaxableProfit    float64     `json:"taxableProfit"`
	AccountingProfit *float64    `json:"accountingProfit,omitempty"`
	CompanySize      CompanySize `json:"companySize" validate:"required,oneof=SMALL MEDIUM LARGE MULTINATIONAL"`
}

// TaxType implements CalculationInput
func (in *CITInput) TaxType() TaxType { return TaxTypeCIT }

// Validate checks the payload before any arithmetic runs
func (in *CITInput) Validate() error {
	if in.Type != "" && in.Type != TaxTypeCIT {
		return NewInvalidInputError("taxType", in.Type, "must be "+string(TaxTypeCIT))
	}
	if !in.CompanySize.IsValid() {
		return NewInvalidInputError("companySize", in.CompanySize, "must be one of SMALL, MEDIUM, LARGE, MULTINATIONAL")
	}
	if err := ValidateAmount(in.AnnualTurnover, "annualTurnover"); err != nil {
		return err
	}
	if err := ValidateAmount(in.FixedAssets, "fixedAssets"); err != nil {
		return err
	}
	if err := ValidateFinite(in.TaxableProfit, "taxableProfit"); err != nil {
		return err
	}
	if in.AccountingProfit != nil {
		return ValidateFinite(*in.AccountingProfit, "accountingProfit")
	}
	return nil
}

// VATInput is the VAT payload
type VATInput struct {
	TransactionAmount float64            `json:"transactionAmount" validate:"required,gt=0"`
	CalculationType   VATCalculationType `json:"calculationType" validate:"required,oneof=add remove"`
	TransactionType   VATTransactionType `json:"transactionType" validate:"required"`
}

// TaxType implements CalculationInput
func (in *VATInput) TaxType() TaxType { return TaxTypeVAT }

// Validate checks the payload before any arithmetic runs
func (in *VATInput) Validate() error {
	if err := ValidatePositiveAmount(in.TransactionAmount, "transactionAmount"); err != nil {
		return err
	}
	if !in.CalculationType.IsValid() {
		return NewInvalidInputError("calculationType", in.CalculationType, "must be add or remove")
	}
	if !in.TransactionType.IsValid() {
		return ValidateEnum(string(in.TransactionType), []string{
			string(VATTransactionDomestic),
			string(VATTransactionDigital),
			string(VATTransactionInternational),
			string(VATTransactionExempt),
		}, "transactionType")
	}
	return nil
}

func validateFrequency(f Frequency) error {
	if f != "" && !f.IsValid() {
		return NewInvalidInputError("frequency", f, "must be annual or monthly")
	}
	return nil
}

// DecodeCalculationInput reads the taxType discriminator and decodes the
// matching payload. VAT payloads may omit taxType only when decoded directly.
func DecodeCalculationInput(data []byte) (CalculationInput, error) {
	var envelope TaxTypeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, NewInvalidInputError("body", nil, "must be a JSON object")
	}

	var input CalculationInput
	switch envelope.TaxType {
	case TaxTypePAYE:
		input = &PayeInput{}
	case TaxTypeFreelancer:
		input = &FreelancerInput{}
	case TaxTypeCIT:
		input = &CITInput{}
	case TaxTypeVAT:
		input = &VATInput{}
	case "":
		return nil, NewInvalidInputError("taxType", nil, "is required")
	default:
		return nil, NewInvalidInputError("taxType", envelope.TaxType, "must be one of PAYE/PIT, FREELANCER, CIT, VAT")
	}

	if err := json.Unmarshal(data, input); err != nil {
		return nil, NewInvalidInputError("body", nil, "does not match the "+string(envelope.TaxType)+" payload")
	}
	return input, nil
}
