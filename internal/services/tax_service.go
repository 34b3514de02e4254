package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"taxlator-api/internal/calculation"
	"taxlator-api/internal/models"
)

// TaxService validates calculation inputs, runs the engine and records the
// result for signed-in users
type TaxService struct {
	calculator *calculation.Calculator
	history    HistoryService
	validate   *validator.Validate
	logger     *logrus.Logger
}

// NewTaxService creates a tax service. history may be nil, in which case
// nothing is persisted.
func NewTaxService(calculator *calculation.Calculator, history HistoryService, logger *logrus.Logger) (*TaxService, error) {
	if calculator == nil {
		return nil, fmt.Errorf("calculator cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &TaxService{
		calculator: calculator,
		history:    history,
		validate:   newInputValidator(),
		logger:     logger,
	}, nil
}

// NewTaxServiceForTables creates a tax service over the given rate tables
func NewTaxServiceForTables(tables *models.RateTables, history HistoryService, logger *logrus.Logger) (*TaxService, error) {
	calculator, err := calculation.NewCalculator(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to create calculator: %w", err)
	}
	return NewTaxService(calculator, history, logger)
}

// CalculateTax computes PAYE/PIT, FREELANCER and CIT inputs
func (s *TaxService) CalculateTax(ctx context.Context, userID string, input models.CalculationInput) (models.CalculationResult, error) {
	if input == nil {
		return nil, models.NewInvalidInputError("taxType", nil, "is required")
	}

	switch input.TaxType() {
	case models.TaxTypePAYE, models.TaxTypeFreelancer, models.TaxTypeCIT:
	default:
		return nil, models.NewInvalidInputError("taxType", input.TaxType(), "must be one of PAYE/PIT, FREELANCER, CIT")
	}

	return s.calculate(ctx, userID, input)
}

// CalculateVAT computes a VAT conversion
func (s *TaxService) CalculateVAT(ctx context.Context, userID string, input *models.VATInput) (*models.VATResult, error) {
	if input == nil {
		return nil, models.NewInvalidInputError("body", nil, "is required")
	}

	result, err := s.calculate(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	vat, ok := result.(*models.VATResult)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T for VAT input", result)
	}
	return vat, nil
}

func (s *TaxService) calculate(ctx context.Context, userID string, input models.CalculationInput) (models.CalculationResult, error) {
	// tags cover presence, sign and enums; Validate adds finiteness and the
	// VAT transaction types, which contain spaces
	if err := s.validate.Struct(input); err != nil {
		return nil, toInvalidInput(err)
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.calculator.Calculate(input)
	if err != nil {
		if errors.Is(err, models.ErrUnknownRateKey) {
			s.logger.WithFields(logrus.Fields{
				"tax_type":           input.TaxType(),
				"rate_table_version": s.calculator.RateTables().Version,
				"error":              err.Error(),
			}).Error("Rate table is missing a required entry")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tax_type":      result.TaxType(),
		"authenticated": userID != "",
		"duration":      time.Since(start),
	}).Debug("Calculation completed")

	if userID != "" && s.history != nil {
		if _, err := s.history.Record(ctx, userID, input, result); err != nil {
			// the computed result is returned regardless
			s.logger.WithFields(logrus.Fields{
				"user_id":  userID,
				"tax_type": result.TaxType(),
				"error":    err.Error(),
			}).Warn("Failed to save calculation history")
		}
	}

	return result, nil
}

// GetRates describes the active rate tables
func (s *TaxService) GetRates(ctx context.Context) *RatesInfo {
	tables := s.calculator.RateTables()

	info := &RatesInfo{
		Version:        tables.Version,
		Jurisdiction:   tables.Jurisdiction,
		EffectiveFrom:  tables.EffectiveFrom,
		CompanyIncome:  make(map[models.CompanySize]float64, len(tables.CompanyIncome.Rates)),
		MinimumTaxRate: tables.CompanyIncome.MinimumTaxRate.InexactFloat64(),
		VAT:            make(map[models.VATTransactionType]float64, len(tables.VAT.Rates)),
	}

	for _, band := range tables.PersonalIncomeBands() {
		item := RateBandInfo{
			LowerBound: band.LowerBound.InexactFloat64(),
			Rate:       band.Rate.InexactFloat64(),
		}
		if band.UpperBound != nil {
			upper := band.UpperBound.InexactFloat64()
			item.UpperBound = &upper
		}
		info.PersonalIncome = append(info.PersonalIncome, item)
	}

	for size, rate := range tables.CompanyIncome.Rates {
		info.CompanyIncome[size] = rate.InexactFloat64()
	}
	for txType, rate := range tables.VAT.Rates {
		info.VAT[txType] = rate.InexactFloat64()
	}

	return info
}
