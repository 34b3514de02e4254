package services

import (
	"context"
	"encoding/json"
	"time"

	"taxlator-api/internal/models"
)

// TaxCalculationService defines the calculation operations exposed over HTTP
type TaxCalculationService interface {
	// CalculateTax validates and computes a PAYE/PIT, FREELANCER or CIT input.
	// When userID is non-empty the calculation is added to the user's history.
	CalculateTax(ctx context.Context, userID string, input models.CalculationInput) (models.CalculationResult, error)

	// CalculateVAT validates and computes a VAT conversion
	CalculateVAT(ctx context.Context, userID string, input *models.VATInput) (*models.VATResult, error)

	// GetRates describes the active rate tables
	GetRates(ctx context.Context) *RatesInfo
}

// HistoryService defines operations on a user's calculation history
type HistoryService interface {
	// Record persists one calculation
	Record(ctx context.Context, userID string, input models.CalculationInput, result models.CalculationResult) (*models.CalculationRecord, error)

	// List returns one page of history, newest first
	List(ctx context.Context, query *models.HistoryQuery) (*models.HistoryPage, error)

	// Clear deletes every record of the user
	Clear(ctx context.Context, userID string) (int64, error)

	// ExportCSV renders the user's history as CSV
	ExportCSV(ctx context.Context, userID string) (*Export, error)

	// ExportPDF renders the user's history as a paginated PDF table
	ExportPDF(ctx context.Context, userID string) (*Export, error)

	// Import stores legacy history items for a user
	Import(ctx context.Context, userID string, items []ImportItem) (int, error)
}

// AccountService defines account and token operations
type AccountService interface {
	SignUp(ctx context.Context, req *models.SignUpRequest) (*models.AuthResult, error)
	SignIn(ctx context.Context, req *models.SignInRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, token string) (*models.AuthResult, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// EmailVerificationService defines the email confirmation flow
type EmailVerificationService interface {
	SendCode(ctx context.Context, req *models.SendVerificationCodeRequest) (*models.VerificationStatus, error)
	VerifyEmail(ctx context.Context, req *models.VerifyEmailRequest) (*models.VerificationStatus, error)
}

// RatesInfo summarizes the active rate tables
type RatesInfo struct {
	Version        string                                `json:"version"`
	Jurisdiction   string                                `json:"jurisdiction"`
	EffectiveFrom  time.Time                             `json:"effectiveFrom"`
	PersonalIncome []RateBandInfo                        `json:"personalIncome"`
	CompanyIncome  map[models.CompanySize]float64        `json:"companyIncome"`
	MinimumTaxRate float64                               `json:"minimumTaxRate"`
	VAT            map[models.VATTransactionType]float64 `json:"vat"`
}

// RateBandInfo is one personal income band as exposed to clients
type RateBandInfo struct {
	LowerBound float64  `json:"lowerBound"`
	UpperBound *float64 `json:"upperBound"`
	Rate       float64  `json:"rate"`
}

// Export is a rendered history export
type Export struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	StorageKey  string `json:"storageKey,omitempty"`
	Records     int    `json:"records"`
	Data        []byte `json:"-"`
}

// ImportItem is one entry of a legacy history export
type ImportItem struct {
	Type      models.TaxType  `json:"type"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"createdAt"`
}
