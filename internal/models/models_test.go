package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func floatPtr(v float64) *float64 { return &v }

// TestDefaultRateTablesValidate tests that the built-in tables satisfy every invariant
func TestDefaultRateTablesValidate(t *testing.T) {
	tables := DefaultRateTables()
	if err := tables.Validate(); err != nil {
		t.Fatalf("Default rate tables failed validation: %v", err)
	}

	if tables.Version != DefaultRateTableVersion {
		t.Errorf("Expected version %s, got %s", DefaultRateTableVersion, tables.Version)
	}

	if len(tables.PersonalIncomeBands()) != 6 {
		t.Errorf("Expected 6 personal income bands, got %d", len(tables.PersonalIncomeBands()))
	}
}

// TestRateTableValidate tests band structure checks
func TestRateTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   RateTable
		wantErr bool
	}{
		{
			name: "valid two bands",
			table: RateTable{
				{LowerBound: decimal.Zero, UpperBound: bound(100), Rate: decimal.Zero},
				{LowerBound: decimal.NewFromInt(100), Rate: decimal.NewFromFloat(0.1)},
			},
		},
		{
			name:    "empty",
			table:   RateTable{},
			wantErr: true,
		},
		{
			name: "does not start at zero",
			table: RateTable{
				{LowerBound: decimal.NewFromInt(10), Rate: decimal.Zero},
			},
			wantErr: true,
		},
		{
			name: "gap between bands",
			table: RateTable{
				{LowerBound: decimal.Zero, UpperBound: bound(100), Rate: decimal.Zero},
				{LowerBound: decimal.NewFromInt(150), Rate: decimal.NewFromFloat(0.1)},
			},
			wantErr: true,
		},
		{
			name: "unbounded band before the last",
			table: RateTable{
				{LowerBound: decimal.Zero, Rate: decimal.Zero},
				{LowerBound: decimal.NewFromInt(100), Rate: decimal.NewFromFloat(0.1)},
			},
			wantErr: true,
		},
		{
			name: "last band bounded",
			table: RateTable{
				{LowerBound: decimal.Zero, UpperBound: bound(100), Rate: decimal.Zero},
			},
			wantErr: true,
		},
		{
			name: "rate above one",
			table: RateTable{
				{LowerBound: decimal.Zero, Rate: decimal.NewFromFloat(1.5)},
			},
			wantErr: true,
		},
		{
			name: "empty band",
			table: RateTable{
				{LowerBound: decimal.Zero, UpperBound: bound(0), Rate: decimal.Zero},
				{LowerBound: decimal.Zero, Rate: decimal.NewFromFloat(0.1)},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestRateLookups tests keyed lookups and the UnknownRateKey failure
func TestRateLookups(t *testing.T) {
	tables := DefaultRateTables()

	rate, err := tables.CITRate(CompanySizeLarge)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !rate.Equal(decimal.NewFromFloat(0.30)) {
		t.Errorf("Expected LARGE rate 0.30, got %s", rate)
	}

	vat, err := tables.VATRate(VATTransactionExempt)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !vat.IsZero() {
		t.Errorf("Expected exempt VAT rate 0, got %s", vat)
	}

	_, err = tables.CITRate(CompanySize("TINY"))
	if !errors.Is(err, ErrUnknownRateKey) {
		t.Errorf("Expected ErrUnknownRateKey, got %v", err)
	}

	delete(tables.VAT.Rates, VATTransactionDigital)
	_, err = tables.VATRate(VATTransactionDigital)
	var keyErr *UnknownRateKeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("Expected *UnknownRateKeyError, got %T", err)
	}
	if keyErr.Table != "vat" || keyErr.Key != string(VATTransactionDigital) {
		t.Errorf("Unexpected error details: %+v", keyErr)
	}
	if tables.Validate() == nil {
		t.Error("Expected validation to fail for a missing VAT key")
	}

	if !tables.MinimumTaxApplies(CompanySizeMultinational) {
		t.Error("Expected minimum tax to apply to MULTINATIONAL")
	}
	if tables.MinimumTaxApplies(CompanySizeLarge) {
		t.Error("Expected minimum tax not to apply to LARGE")
	}
}

// TestInputValidation tests payload validation for every variant
func TestInputValidation(t *testing.T) {
	tests := []struct {
		name      string
		input     CalculationInput
		wantField string
	}{
		{"paye ok", &PayeInput{GrossIncome: 3000000}, ""},
		{"paye zero gross", &PayeInput{GrossIncome: 0}, "grossIncome"},
		{"paye negative rent", &PayeInput{GrossIncome: 1, RentRelief: floatPtr(-1)}, "rentRelief"},
		{"paye bad frequency", &PayeInput{GrossIncome: 1, Frequency: "weekly"}, "frequency"},
		{"paye infinite gross", &PayeInput{GrossIncome: math.Inf(1)}, "grossIncome"},
		{"paye wrong tax type", &PayeInput{Type: TaxTypeCIT, GrossIncome: 1}, "taxType"},
		{"freelancer ok", &FreelancerInput{GrossIncome: 5000000, Expenses: floatPtr(100)}, ""},
		{"freelancer negative pension", &FreelancerInput{GrossIncome: 1, Pension: floatPtr(-5)}, "pension"},
		{"cit ok with loss", &CITInput{TaxableProfit: -100, CompanySize: CompanySizeLarge}, ""},
		{"cit unknown size", &CITInput{TaxableProfit: 100, CompanySize: "HUGE"}, "companySize"},
		{"cit negative turnover", &CITInput{AnnualTurnover: -1, CompanySize: CompanySizeSmall}, "annualTurnover"},
		{"cit nan accounting profit", &CITInput{CompanySize: CompanySizeMultinational, AccountingProfit: floatPtr(math.NaN())}, "accountingProfit"},
		{"vat ok", &VATInput{TransactionAmount: 100, CalculationType: VATCalculationAdd, TransactionType: VATTransactionDomestic}, ""},
		{"vat zero amount", &VATInput{TransactionAmount: 0, CalculationType: VATCalculationAdd, TransactionType: VATTransactionDomestic}, "transactionAmount"},
		{"vat bad calculation type", &VATInput{TransactionAmount: 1, CalculationType: "double", TransactionType: VATTransactionDomestic}, "calculationType"},
		{"vat unknown transaction type", &VATInput{TransactionAmount: 1, CalculationType: VATCalculationRemove, TransactionType: "Luxury"}, "transactionType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}

			var inputErr *InvalidInputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Expected *InvalidInputError, got %v", err)
			}
			if inputErr.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s", tt.wantField, inputErr.Field)
			}
			if !IsInvalidInput(err) {
				t.Error("Expected IsInvalidInput to match")
			}
		})
	}
}

// TestHistoryCursorRoundTrip tests that cursors survive encoding
func TestHistoryCursorRoundTrip(t *testing.T) {
	cursor := HistoryCursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        "3f1d2c4e-0000-4000-8000-000000000001",
	}

	decoded, err := DecodeHistoryCursor(cursor.Encode())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !decoded.CreatedAt.Equal(cursor.CreatedAt) || decoded.ID != cursor.ID {
		t.Errorf("Expected %+v, got %+v", cursor, decoded)
	}

	for _, bad := range []string{"!!!", "bm9waXBl", "YWJjfA"} {
		if _, err := DecodeHistoryCursor(bad); !IsInvalidInput(err) {
			t.Errorf("Expected invalid input for cursor %q, got %v", bad, err)
		}
	}
}

// TestNormalizeHistoryLimit tests default and maximum page sizes
func TestNormalizeHistoryLimit(t *testing.T) {
	cases := map[int]int{0: 10, -3: 10, 25: 25, 100: 100, 500: 100}
	for in, want := range cases {
		if got := NormalizeHistoryLimit(in); got != want {
			t.Errorf("NormalizeHistoryLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

// TestCalculationRecord tests record construction and headline extraction
func TestCalculationRecord(t *testing.T) {
	input := &VATInput{TransactionAmount: 100000, CalculationType: VATCalculationAdd, TransactionType: VATTransactionDomestic}
	result := &VATResult{Type: TaxTypeVAT, VATAmount: 7500, IncludingVAT: 107500, ExcludingVAT: 100000}

	record, err := NewCalculationRecord("user-1", input, result)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := record.Validate(); err != nil {
		t.Errorf("Record validation failed: %v", err)
	}
	if record.Type != TaxTypeVAT {
		t.Errorf("Expected type VAT, got %s", record.Type)
	}
	if record.HeadlineAmount() != 7500 {
		t.Errorf("Expected headline 7500, got %v", record.HeadlineAmount())
	}

	record.UserID = ""
	if record.Validate() == nil {
		t.Error("Expected validation error for missing user id")
	}
}

// TestUserCreation tests user construction and validation
func TestUserCreation(t *testing.T) {
	user := NewUser("  Ada ", "Obi", " Ada@Example.COM ")
	user.PasswordHash = "hash"

	if err := user.Validate(); err != nil {
		t.Errorf("User validation failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Expected normalized email, got %s", user.Email)
	}
	if user.FullName() != "Ada Obi" {
		t.Errorf("Expected full name 'Ada Obi', got '%s'", user.FullName())
	}

	user.Email = "not-an-email"
	if err := user.Validate(); !IsInvalidInput(err) {
		t.Errorf("Expected invalid email error, got %v", err)
	}
}
