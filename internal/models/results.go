package models

// CalculationResult is the tagged union of calculator outputs, keyed by TaxType
type CalculationResult interface {
	TaxType() TaxType
	// HeadlineAmount is the figure shown in history listings and exports:
	// total tax for income and company tax, the VAT amount for VAT.
	HeadlineAmount() float64
}

// Deduction is one itemized relief. Disabled deductions are kept for
// display and excluded from totals.
type Deduction struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Amount  float64  `json:"amount"`
	Rate    *float64 `json:"rate,omitempty"`
	Base    *float64 `json:"base,omitempty"`
	Enabled bool     `json:"enabled"`
}

// TaxBand is one computation step of the progressive schedule
type TaxBand struct {
	Rate          float64 `json:"rate"`
	TaxableAmount float64 `json:"taxableAmount"`
	Tax           float64 `json:"tax"`
}

// PayeResult is the PAYE/PIT result
type PayeResult struct {
	Type             TaxType     `json:"taxType"`
	Frequency        Frequency   `json:"frequency"`
	GrossIncome      float64     `json:"grossIncome"`
	CRA              float64     `json:"cra"`
	Deductions       []Deduction `json:"deductions"`
	TotalDeductions  float64     `json:"totalDeductions"`
	TaxableIncome    float64     `json:"taxableIncome"`
	TotalTax         float64     `json:"totalTax"`
	NetIncome        float64     `json:"netIncome"`
	EffectiveTaxRate float64     `json:"effectiveTaxRate"`
	MonthlyTax       float64     `json:"monthlyTax"`
	MonthlyNetIncome float64     `json:"monthlyNetIncome"`
	Computation      []TaxBand   `json:"computation"`
	RateTableVersion string      `json:"rateTableVersion"`
}

// TaxType implements CalculationResult
func (r *PayeResult) TaxType() TaxType { return TaxTypePAYE }

// HeadlineAmount implements CalculationResult
func (r *PayeResult) HeadlineAmount() float64 { return r.TotalTax }

// FreelancerResult is the freelancer result
type FreelancerResult struct {
	Type             TaxType     `json:"taxType"`
	Frequency        Frequency   `json:"frequency"`
	GrossIncome      float64     `json:"grossIncome"`
	Expenses         float64     `json:"expenses"`
	Pension          float64     `json:"pension"`
	Deductions       []Deduction `json:"deductions"`
	TotalDeductions  float64     `json:"totalDeductions"`
	TaxableIncome    float64     `json:"taxableIncome"`
	TotalTax         float64     `json:"totalTax"`
	NetIncome        float64     `json:"netIncome"`
	EffectiveTaxRate float64     `json:"effectiveTaxRate"`
	MonthlyTax       float64     `json:"monthlyTax"`
	MonthlyNetIncome float64     `json:"monthlyNetIncome"`
	Computation      []TaxBand   `json:"computation"`
	RateTableVersion string      `json:"rateTableVersion"`
}

// TaxType implements CalculationResult
func (r *FreelancerResult) TaxType() TaxType { return TaxTypeFreelancer }

// HeadlineAmount implements CalculationResult
func (r *FreelancerResult) HeadlineAmount() float64 { return r.TotalTax }

// CITResult is the company income tax result
type CITResult struct {
	Type                  TaxType     `json:"taxType"`
	CompanySize           CompanySize `json:"companySize"`
	AnnualTurnover        float64     `json:"annualTurnover"`
	FixedAssets           float64     `json:"fixedAssets"`
	TaxableProfit         float64     `json:"taxableProfit"`
	AccountingProfit      *float64    `json:"accountingProfit,omitempty"`
	AppliedRate           float64     `json:"appliedRate"`
	NormalTax             float64     `json:"normalTax"`
	AlternativeMinimumTax float64     `json:"alternativeMinimumTax"`
	MinimumTaxRate        float64     `json:"minimumTaxRate"`
	MinimumTaxApplied     bool        `json:"minimumTaxApplied"`
	TotalTax              float64     `json:"totalTax"`
	NetProfitAfterTax     float64     `json:"netProfitAfterTax"`
	RateTableVersion      string      `json:"rateTableVersion"`
}

// TaxType implements CalculationResult
func (r *CITResult) TaxType() TaxType { return TaxTypeCIT }

// HeadlineAmount implements CalculationResult
func (r *CITResult) HeadlineAmount() float64 { return r.TotalTax }

// VATResult is the VAT conversion result
type VATResult struct {
	Type              TaxType            `json:"taxType"`
	TransactionAmount float64            `json:"transactionAmount"`
	CalculationType   VATCalculationType `json:"calculationType"`
	TransactionType   VATTransactionType `json:"transactionType"`
	VATRate           float64            `json:"vatRate"`
	VATAmount         float64            `json:"vatAmount"`
	ExcludingVAT      float64            `json:"excludingVat"`
	IncludingVAT      float64            `json:"includingVat"`
	RateTableVersion  string             `json:"rateTableVersion"`
}

// TaxType implements CalculationResult
func (r *VATResult) TaxType() TaxType { return TaxTypeVAT }

// HeadlineAmount implements CalculationResult
func (r *VATResult) HeadlineAmount() float64 { return r.VATAmount }
