package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultJurisdiction is the only tax regime the engine encodes
	DefaultJurisdiction = "NG"

	// DefaultRateTableVersion identifies the built-in rate tables
	DefaultRateTableVersion = "ng-2026.1"
)

// RateBand is one marginal band of a progressive schedule.
// A nil UpperBound means the band is unbounded.
type RateBand struct {
	LowerBound decimal.Decimal  `yaml:"lower_bound" json:"lowerBound"`
	UpperBound *decimal.Decimal `yaml:"upper_bound,omitempty" json:"upperBound,omitempty"`
	Rate       decimal.Decimal  `yaml:"rate" json:"rate"`
}

// Width returns the size of the band and false when it is unbounded
func (b RateBand) Width() (decimal.Decimal, bool) {
	if b.UpperBound == nil {
		return decimal.Zero, false
	}
	return b.UpperBound.Sub(b.LowerBound), true
}

// RateTable is an ordered progressive schedule
type RateTable []RateBand

// Validate checks that bands start at zero, are contiguous and strictly
// increasing, carry rates in [0,1], and that only the last band is unbounded.
func (t RateTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("rate table has no bands")
	}
	if !t[0].LowerBound.IsZero() {
		return fmt.Errorf("first band must start at 0, got %s", t[0].LowerBound)
	}

	for i, band := range t {
		if err := validateRate(band.Rate, fmt.Sprintf("band %d", i+1)); err != nil {
			return err
		}

		last := i == len(t)-1
		if band.UpperBound == nil {
			if !last {
				return fmt.Errorf("band %d: only the last band may be unbounded", i+1)
			}
			continue
		}
		if last {
			return fmt.Errorf("band %d: last band must be unbounded", i+1)
		}
		if !band.UpperBound.GreaterThan(band.LowerBound) {
			return fmt.Errorf("band %d: upper bound %s must exceed lower bound %s", i+1, band.UpperBound, band.LowerBound)
		}
		if !t[i+1].LowerBound.Equal(*band.UpperBound) {
			return fmt.Errorf("band %d: lower bound %s does not continue from %s", i+2, t[i+1].LowerBound, band.UpperBound)
		}
	}

	return nil
}

// DeductionRates holds the statutory relief parameters applied before the
// progressive schedule
type DeductionRates struct {
	// Consolidated Relief Allowance: max(CRAFixedMinimum, CRAMinimumRate * gross) + CRAGrossRate * gross
	CRAFixedMinimum decimal.Decimal `yaml:"cra_fixed_minimum" json:"craFixedMinimum"`
	CRAMinimumRate  decimal.Decimal `yaml:"cra_minimum_rate" json:"craMinimumRate"`
	CRAGrossRate    decimal.Decimal `yaml:"cra_gross_rate" json:"craGrossRate"`

	PensionRate decimal.Decimal `yaml:"pension_rate" json:"pensionRate"`
	NHISRate    decimal.Decimal `yaml:"nhis_rate" json:"nhisRate"`
	NHFRate     decimal.Decimal `yaml:"nhf_rate" json:"nhfRate"`

	// BasicSalaryShare is the portion of gross income treated as basic salary
	// for NHIS and NHF
	BasicSalaryShare decimal.Decimal `yaml:"basic_salary_share" json:"basicSalaryShare"`

	// Rent relief is RentReliefRate of the annual rent, at most RentReliefCap
	RentReliefRate decimal.Decimal `yaml:"rent_relief_rate" json:"rentReliefRate"`
	RentReliefCap  decimal.Decimal `yaml:"rent_relief_cap" json:"rentReliefCap"`
}

// CompanyIncomeRates holds company income tax rates keyed by company size
type CompanyIncomeRates struct {
	Rates           map[CompanySize]decimal.Decimal `yaml:"rates" json:"rates"`
	MinimumTaxRate  decimal.Decimal                 `yaml:"minimum_tax_rate" json:"minimumTaxRate"`
	MinimumTaxSizes []CompanySize                   `yaml:"minimum_tax_sizes" json:"minimumTaxSizes"`
}

// VATRates holds VAT rates keyed by transaction type
type VATRates struct {
	StandardRate decimal.Decimal                        `yaml:"standard_rate" json:"standardRate"`
	Rates        map[VATTransactionType]decimal.Decimal `yaml:"rates" json:"rates"`
}

// RateTables is one immutable, versioned set of rates. Updating rates means
// loading a new version, never editing one in place.
type RateTables struct {
	Version        string             `yaml:"version" json:"version"`
	Jurisdiction   string             `yaml:"jurisdiction" json:"jurisdiction"`
	EffectiveFrom  time.Time          `yaml:"effective_from" json:"effectiveFrom"`
	PersonalIncome RateTable          `yaml:"personal_income" json:"personalIncome"`
	Deductions     DeductionRates     `yaml:"deductions" json:"deductions"`
	CompanyIncome  CompanyIncomeRates `yaml:"company_income" json:"companyIncome"`
	VAT            VATRates           `yaml:"vat" json:"vat"`
}

// PersonalIncomeBands returns the PAYE/PIT schedule, also used for freelancers
func (rt *RateTables) PersonalIncomeBands() RateTable {
	return rt.PersonalIncome
}

// CITRate returns the company income tax rate for a company size
func (rt *RateTables) CITRate(size CompanySize) (decimal.Decimal, error) {
	rate, ok := rt.CompanyIncome.Rates[size]
	if !ok {
		return decimal.Zero, &UnknownRateKeyError{Table: "company_income", Key: string(size)}
	}
	return rate, nil
}

// MinimumTaxApplies reports whether the alternative minimum tax applies to a company size
func (rt *RateTables) MinimumTaxApplies(size CompanySize) bool {
	for _, s := range rt.CompanyIncome.MinimumTaxSizes {
		if s == size {
			return true
		}
	}
	return false
}

// VATRate returns the VAT rate for a transaction type
func (rt *RateTables) VATRate(transactionType VATTransactionType) (decimal.Decimal, error) {
	rate, ok := rt.VAT.Rates[transactionType]
	if !ok {
		return decimal.Zero, &UnknownRateKeyError{Table: "vat", Key: string(transactionType)}
	}
	return rate, nil
}

// Validate checks the structural invariants of every table
func (rt *RateTables) Validate() error {
	if rt.Version == "" {
		return fmt.Errorf("rate tables: version is required")
	}
	if err := rt.PersonalIncome.Validate(); err != nil {
		return fmt.Errorf("rate tables %s: personal income: %w", rt.Version, err)
	}

	d := rt.Deductions
	rates := map[string]decimal.Decimal{
		"cra_minimum_rate":   d.CRAMinimumRate,
		"cra_gross_rate":     d.CRAGrossRate,
		"pension_rate":       d.PensionRate,
		"nhis_rate":          d.NHISRate,
		"nhf_rate":           d.NHFRate,
		"basic_salary_share": d.BasicSalaryShare,
		"rent_relief_rate":   d.RentReliefRate,
	}
	for _, name := range sortedKeys(rates) {
		if err := validateRate(rates[name], name); err != nil {
			return fmt.Errorf("rate tables %s: deductions: %w", rt.Version, err)
		}
	}
	if d.CRAFixedMinimum.IsNegative() || d.RentReliefCap.IsNegative() {
		return fmt.Errorf("rate tables %s: deductions: amounts cannot be negative", rt.Version)
	}

	for _, size := range []CompanySize{CompanySizeSmall, CompanySizeMedium, CompanySizeLarge, CompanySizeMultinational} {
		rate, err := rt.CITRate(size)
		if err != nil {
			return fmt.Errorf("rate tables %s: %w", rt.Version, err)
		}
		if err := validateRate(rate, "company_income "+string(size)); err != nil {
			return fmt.Errorf("rate tables %s: %w", rt.Version, err)
		}
	}
	if err := validateRate(rt.CompanyIncome.MinimumTaxRate, "minimum_tax_rate"); err != nil {
		return fmt.Errorf("rate tables %s: %w", rt.Version, err)
	}

	if err := validateRate(rt.VAT.StandardRate, "vat standard_rate"); err != nil {
		return fmt.Errorf("rate tables %s: %w", rt.Version, err)
	}
	for _, tt := range []VATTransactionType{VATTransactionDomestic, VATTransactionDigital, VATTransactionInternational, VATTransactionExempt} {
		rate, err := rt.VATRate(tt)
		if err != nil {
			return fmt.Errorf("rate tables %s: %w", rt.Version, err)
		}
		if err := validateRate(rate, "vat "+string(tt)); err != nil {
			return fmt.Errorf("rate tables %s: %w", rt.Version, err)
		}
	}

	return nil
}

func validateRate(rate decimal.Decimal, name string) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s: rate %s must be between 0 and 1", name, rate)
	}
	return nil
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// DefaultRateTables returns the built-in Nigerian rate tables.
// Source: Nigeria Tax Act 2025, Fourth Schedule (personal income bands);
// Personal Income Tax Act s.33 (CRA); Pension Reform Act 2014 (8% employee);
// National Housing Fund Act (2.5% of basic salary).
func DefaultRateTables() *RateTables {
	standardVAT := decimal.NewFromFloat(0.075)

	return &RateTables{
		Version:       DefaultRateTableVersion,
		Jurisdiction:  DefaultJurisdiction,
		EffectiveFrom: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		PersonalIncome: RateTable{
			{LowerBound: decimal.Zero, UpperBound: bound(800000), Rate: decimal.Zero},
			{LowerBound: decimal.NewFromInt(800000), UpperBound: bound(3000000), Rate: decimal.NewFromFloat(0.15)},
			{LowerBound: decimal.NewFromInt(3000000), UpperBound: bound(12000000), Rate: decimal.NewFromFloat(0.18)},
			{LowerBound: decimal.NewFromInt(12000000), UpperBound: bound(25000000), Rate: decimal.NewFromFloat(0.21)},
			{LowerBound: decimal.NewFromInt(25000000), UpperBound: bound(50000000), Rate: decimal.NewFromFloat(0.23)},
			{LowerBound: decimal.NewFromInt(50000000), Rate: decimal.NewFromFloat(0.25)},
		},
		Deductions: DeductionRates{
			CRAFixedMinimum:  decimal.NewFromInt(200000),
			CRAMinimumRate:   decimal.NewFromFloat(0.01),
			CRAGrossRate:     decimal.NewFromFloat(0.20),
			PensionRate:      decimal.NewFromFloat(0.08),
			NHISRate:         decimal.NewFromFloat(0.05),
			NHFRate:          decimal.NewFromFloat(0.025),
			BasicSalaryShare: decimal.NewFromFloat(0.40),
			RentReliefRate:   decimal.NewFromFloat(0.20),
			RentReliefCap:    decimal.NewFromInt(500000),
		},
		CompanyIncome: CompanyIncomeRates{
			Rates: map[CompanySize]decimal.Decimal{
				CompanySizeSmall:         decimal.Zero,
				CompanySizeMedium:        decimal.NewFromFloat(0.20),
				CompanySizeLarge:         decimal.NewFromFloat(0.30),
				CompanySizeMultinational: decimal.NewFromFloat(0.30),
			},
			MinimumTaxRate:  decimal.NewFromFloat(0.15),
			MinimumTaxSizes: []CompanySize{CompanySizeMultinational},
		},
		VAT: VATRates{
			StandardRate: standardVAT,
			Rates: map[VATTransactionType]decimal.Decimal{
				VATTransactionDomestic:      standardVAT,
				VATTransactionDigital:       standardVAT,
				VATTransactionInternational: standardVAT,
				VATTransactionExempt:        decimal.Zero,
			},
		},
	}
}
