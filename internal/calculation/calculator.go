// Package calculation is the tax computation engine. Every function is pure:
// it reads its input and the immutable rate tables and returns a fully
// itemized result. Money arithmetic is done in decimal; floats appear only in
// the result structs.
package calculation

import (
	"fmt"

	"taxlator-api/internal/models"
)

// Calculator evaluates calculation inputs against one version of the rate
// tables. It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	tables *models.RateTables
}

// NewCalculator creates a calculator bound to a set of rate tables
func NewCalculator(tables *models.RateTables) (*Calculator, error) {
	if tables == nil {
		return nil, fmt.Errorf("rate tables are required")
	}
	return &Calculator{tables: tables}, nil
}

// RateTables returns the tables the calculator was built with
func (c *Calculator) RateTables() *models.RateTables {
	return c.tables
}

// Calculate dispatches an input to the calculator for its tax type
func (c *Calculator) Calculate(input models.CalculationInput) (models.CalculationResult, error) {
	switch in := input.(type) {
	case *models.PayeInput:
		return c.PAYE(in)
	case *models.FreelancerInput:
		return c.Freelancer(in)
	case *models.CITInput:
		return c.CIT(in)
	case *models.VATInput:
		return c.VAT(in)
	case nil:
		return nil, models.NewInvalidInputError("taxType", nil, "is required")
	default:
		return nil, models.NewInvalidInputError("taxType", input.TaxType(), "is not supported")
	}
}
