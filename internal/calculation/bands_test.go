package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlator-api/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyBands_StepsSumToTotal(t *testing.T) {
	bands := models.DefaultRateTables().PersonalIncomeBands()

	amounts := []string{
		"0.01", "799999.99", "800000", "800000.03", "1234567.895", "2999999.995",
		"3000000", "11999999.99", "12000000.01", "24999999.999", "50000000",
		"73456789.12", "1000000000",
	}

	for _, a := range amounts {
		t.Run(a, func(t *testing.T) {
			allocation := ApplyBands(dec(a), bands)

			sum := decimal.Zero
			for _, step := range allocation.Steps {
				sum = sum.Add(step.Tax)
				assert.True(t, step.Tax.Equal(step.Tax.Round(2)), "step tax must be rounded to 2dp")
			}
			assert.True(t, sum.Equal(allocation.Total), "sum %s != total %s", sum, allocation.Total)
		})
	}
}

func TestApplyBands_NonPositiveTaxable(t *testing.T) {
	bands := models.DefaultRateTables().PersonalIncomeBands()

	for _, a := range []string{"0", "-1", "-5000000.50"} {
		allocation := ApplyBands(dec(a), bands)
		assert.Empty(t, allocation.Steps, "taxable %s", a)
		assert.True(t, allocation.Total.IsZero(), "taxable %s", a)
	}
}

func TestApplyBands_Monotonic(t *testing.T) {
	bands := models.DefaultRateTables().PersonalIncomeBands()

	previous := decimal.Zero
	for amount := int64(0); amount <= 60000000; amount += 250000 {
		total := ApplyBands(decimal.NewFromInt(amount), bands).Total
		require.False(t, total.LessThan(previous), "total decreased at %d", amount)
		previous = total
	}
}

func TestApplyBands_Allocation(t *testing.T) {
	bands := models.DefaultRateTables().PersonalIncomeBands()

	allocation := ApplyBands(dec("4000000"), bands)
	require.Len(t, allocation.Steps, 3)

	assert.True(t, allocation.Steps[0].TaxableAmount.Equal(dec("800000")))
	assert.True(t, allocation.Steps[0].Tax.IsZero())
	assert.True(t, allocation.Steps[1].TaxableAmount.Equal(dec("2200000")))
	assert.True(t, allocation.Steps[1].Tax.Equal(dec("330000")))
	assert.True(t, allocation.Steps[2].TaxableAmount.Equal(dec("1000000")))
	assert.True(t, allocation.Steps[2].Tax.Equal(dec("180000")))
	assert.True(t, allocation.Total.Equal(dec("510000")))

	top := ApplyBands(dec("60000000"), bands)
	require.Len(t, top.Steps, 6)
	assert.True(t, top.Steps[5].TaxableAmount.Equal(dec("10000000")))
	assert.True(t, top.Steps[5].Rate.Equal(dec("0.25")))
}

func TestApplyBands_RoundsHalfUpPerStep(t *testing.T) {
	bands := models.RateTable{
		{LowerBound: decimal.Zero, UpperBound: ptr(dec("10")), Rate: dec("0.15")},
		{LowerBound: dec("10"), Rate: dec("0.15")},
	}

	// 0.15 * 0.03 = 0.0045 rounds to 0.00; 0.15 * 10 = 1.50
	allocation := ApplyBands(dec("10.03"), bands)
	require.Len(t, allocation.Steps, 2)
	assert.True(t, allocation.Steps[1].Tax.Equal(dec("0")))

	// 0.15 * 0.1 = 0.015 rounds up to 0.02
	allocation = ApplyBands(dec("10.1"), bands)
	assert.True(t, allocation.Steps[1].Tax.Equal(dec("0.02")))
	assert.True(t, allocation.Total.Equal(dec("1.52")))
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
