package models

import (
	"time"
)

// TaxType discriminates calculation inputs and results
type TaxType string

const (
	TaxTypePAYE       TaxType = "PAYE/PIT"
	TaxTypeFreelancer TaxType = "FREELANCER"
	TaxTypeCIT        TaxType = "CIT"
	TaxTypeVAT        TaxType = "VAT"
)

// IsValid reports whether t is one of the supported tax types
func (t TaxType) IsValid() bool {
	switch t {
	case TaxTypePAYE, TaxTypeFreelancer, TaxTypeCIT, TaxTypeVAT:
		return true
	}
	return false
}

// Frequency is the display frequency requested for income results.
// Rates are always annual; monthly figures are annual / 12.
type Frequency string

const (
	FrequencyAnnual  Frequency = "annual"
	FrequencyMonthly Frequency = "monthly"
)

// IsValid reports whether f is a known frequency
func (f Frequency) IsValid() bool {
	return f == FrequencyAnnual || f == FrequencyMonthly
}

// OrDefault returns f, or annual when f is empty
func (f Frequency) OrDefault() Frequency {
	if f == "" {
		return FrequencyAnnual
	}
	return f
}

// CompanySize selects the company income tax rate
type CompanySize string

const (
	CompanySizeSmall         CompanySize = "SMALL"
	CompanySizeMedium        CompanySize = "MEDIUM"
	CompanySizeLarge         CompanySize = "LARGE"
	CompanySizeMultinational CompanySize = "MULTINATIONAL"
)

// IsValid reports whether s is one of the enumerated company sizes
func (s CompanySize) IsValid() bool {
	switch s {
	case CompanySizeSmall, CompanySizeMedium, CompanySizeLarge, CompanySizeMultinational:
		return true
	}
	return false
}

// VATCalculationType selects between adding VAT to a net amount and
// extracting it from a gross amount
type VATCalculationType string

const (
	VATCalculationAdd    VATCalculationType = "add"
	VATCalculationRemove VATCalculationType = "remove"
)

// IsValid reports whether c is add or remove
func (c VATCalculationType) IsValid() bool {
	return c == VATCalculationAdd || c == VATCalculationRemove
}

// VATTransactionType selects the VAT rate
type VATTransactionType string

const (
	VATTransactionDomestic      VATTransactionType = "Domestic sale/Purchase"
	VATTransactionDigital       VATTransactionType = "Digital Services"
	VATTransactionInternational VATTransactionType = "Export/International"
	VATTransactionExempt        VATTransactionType = "Exempt"
)

// IsValid reports whether t is one of the enumerated transaction types
func (t VATTransactionType) IsValid() bool {
	switch t {
	case VATTransactionDomestic, VATTransactionDigital, VATTransactionInternational, VATTransactionExempt:
		return true
	}
	return false
}

// APIResponse is the success envelope returned by the calculation endpoints
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthCheck represents system health status
type HealthCheck struct {
	Status           string            `json:"status"`
	Timestamp        time.Time         `json:"timestamp"`
	Version          string            `json:"version"`
	RateTableVersion string            `json:"rate_table_version"`
	Services         map[string]string `json:"services,omitempty"`
}
