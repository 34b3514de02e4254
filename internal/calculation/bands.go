package calculation

import (
	"github.com/shopspring/decimal"

	"taxlator-api/internal/models"
)

// BandStep is one emitted computation step. Tax is already rounded.
type BandStep struct {
	Rate          decimal.Decimal
	TaxableAmount decimal.Decimal
	Tax           decimal.Decimal
}

// BandAllocation is the result of spreading a taxable amount over a schedule
type BandAllocation struct {
	Steps []BandStep
	Total decimal.Decimal
}

// ApplyBands allocates taxable across the bands in ascending order. Each
// step's tax is rounded when it is emitted and Total is the sum of the
// emitted taxes, so the steps always add up to Total exactly.
func ApplyBands(taxable decimal.Decimal, table models.RateTable) BandAllocation {
	allocation := BandAllocation{Steps: []BandStep{}, Total: decimal.Zero}

	remaining := decimal.Max(taxable, decimal.Zero)
	for _, band := range table {
		if !remaining.IsPositive() {
			break
		}

		slice := remaining
		if width, bounded := band.Width(); bounded {
			slice = decimal.Min(remaining, width)
		}

		tax := round2(band.Rate.Mul(slice))
		allocation.Steps = append(allocation.Steps, BandStep{
			Rate:          band.Rate,
			TaxableAmount: slice,
			Tax:           tax,
		})
		allocation.Total = allocation.Total.Add(tax)
		remaining = remaining.Sub(slice)
	}

	return allocation
}

// ToTaxBands converts steps to their JSON form
func ToTaxBands(steps []BandStep) []models.TaxBand {
	bands := make([]models.TaxBand, 0, len(steps))
	for _, s := range steps {
		bands = append(bands, models.TaxBand{
			Rate:          s.Rate.InexactFloat64(),
			TaxableAmount: s.TaxableAmount.InexactFloat64(),
			Tax:           s.Tax.InexactFloat64(),
		})
	}
	return bands
}
