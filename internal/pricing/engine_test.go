package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-service/internal/models"
)

func testProduct(unitPrice string) models.CatalogProduct {
	return models.CatalogProduct{
		SKU:       "MP-1",
		Name:      "Marine Shield Pro",
		UnitPrice: decimal.RequireFromString(unitPrice),
	}
}

func TestPriceAppliesDefaultDiscountAtThreshold(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	// 800 x 48.50 = 38800.00, 5% discount = 1940.00, total 36860.00
	breakdown, err := engine.Price(testProduct("48.50"), 800)
	require.NoError(t, err)

	assert.Equal(t, "38800", breakdown.BasePrice.String())
	assert.Equal(t, "0.05", breakdown.DiscountRate.String())
	assert.Equal(t, "1940", breakdown.DiscountAmount.String())
	assert.Equal(t, "36860.00", breakdown.Total.StringFixed(2))
}

func TestPriceNoDiscountBelowThreshold(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	breakdown, err := engine.Price(testProduct("10.00"), 499)
	require.NoError(t, err)

	assert.True(t, breakdown.DiscountRate.IsZero())
	assert.True(t, breakdown.DiscountAmount.IsZero())
	assert.Equal(t, "4990.00", breakdown.Total.StringFixed(2))
}

func TestPriceThresholdIsInclusive(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	breakdown, err := engine.Price(testProduct("10.00"), 500)
	require.NoError(t, err)

	assert.Equal(t, "0.05", breakdown.DiscountRate.String())
}

func TestPriceHighestTierWins(t *testing.T) {
	tiers := []DiscountTier{
		{Threshold: 500, Rate: decimal.NewFromFloat(0.05)},
		{Threshold: 2000, Rate: decimal.NewFromFloat(0.15)},
		{Threshold: 1000, Rate: decimal.NewFromFloat(0.10)},
	}
	engine, err := NewEngine(tiers)
	require.NoError(t, err)

	cases := []struct {
		quantity int
		rate     string
	}{
		{100, "0"},
		{500, "0.05"},
		{999, "0.05"},
		{1000, "0.1"},
		{2000, "0.15"},
		{50000, "0.15"},
	}

	for _, tc := range cases {
		breakdown, err := engine.Price(testProduct("10.00"), tc.quantity)
		require.NoError(t, err)
		assert.Equal(t, tc.rate, breakdown.DiscountRate.String(), "quantity %d", tc.quantity)
	}
}

func TestPriceTotalEqualsBaseMinusDiscount(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	for _, qty := range []int{1, 100, 500, 777, 5000} {
		breakdown, err := engine.Price(testProduct("19.99"), qty)
		require.NoError(t, err)

		expected := breakdown.BasePrice.Sub(breakdown.DiscountAmount).Round(2)
		assert.True(t, breakdown.Total.Equal(expected), "quantity %d", qty)
		assert.True(t, breakdown.Total.LessThanOrEqual(breakdown.BasePrice))
		assert.False(t, breakdown.Total.IsNegative())
	}
}

func TestPriceRoundsHalfUp(t *testing.T) {
	tiers := []DiscountTier{
		{Threshold: 1, Rate: decimal.RequireFromString("0.005")},
	}
	engine, err := NewEngine(tiers)
	require.NoError(t, err)

	// base 10.01, discount 0.05005, total 9.95995 -> 9.96
	breakdown, err := engine.Price(testProduct("10.01"), 1)
	require.NoError(t, err)
	assert.Equal(t, "9.96", breakdown.Total.StringFixed(2))
}

func TestPriceInvalidQuantity(t *testing.T) {
	engine, err := NewEngine(nil)
	require.NoError(t, err)

	_, err = engine.Price(testProduct("10.00"), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = engine.Price(testProduct("10.00"), -5)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestNewEngineRejectsBadTiers(t *testing.T) {
	_, err := NewEngine([]DiscountTier{{Threshold: 500, Rate: decimal.NewFromInt(1)}})
	assert.Error(t, err)

	_, err = NewEngine([]DiscountTier{{Threshold: 500, Rate: decimal.NewFromFloat(-0.1)}})
	assert.Error(t, err)

	_, err = NewEngine([]DiscountTier{{Threshold: 0, Rate: decimal.NewFromFloat(0.05)}})
	assert.Error(t, err)
}

func TestNewEngineRejectsNonMonotonicTiers(t *testing.T) {
	// a larger order must never earn a smaller discount
	_, err := NewEngine([]DiscountTier{
		{Threshold: 500, Rate: decimal.NewFromFloat(0.10)},
		{Threshold: 1000, Rate: decimal.NewFromFloat(0.05)},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not monotonic")
}

func TestDiscountRateNeverDecreasesWithQuantity(t *testing.T) {
	tiers := []DiscountTier{
		{Threshold: 500, Rate: decimal.NewFromFloat(0.05)},
		{Threshold: 1000, Rate: decimal.NewFromFloat(0.10)},
		{Threshold: 2000, Rate: decimal.NewFromFloat(0.15)},
	}
	engine, err := NewEngine(tiers)
	require.NoError(t, err)

	prev := decimal.Zero
	for qty := 1; qty <= 3000; qty += 7 {
		breakdown, err := engine.Price(testProduct("10.00"), qty)
		require.NoError(t, err)
		assert.True(t, breakdown.DiscountRate.GreaterThanOrEqual(prev),
			"rate decreased at quantity %d", qty)
		prev = breakdown.DiscountRate
	}
}

func TestNewEngineDoesNotMutateInput(t *testing.T) {
	tiers := []DiscountTier{
		{Threshold: 500, Rate: decimal.NewFromFloat(0.05)},
		{Threshold: 2000, Rate: decimal.NewFromFloat(0.15)},
	}
	_, err := NewEngine(tiers)
	require.NoError(t, err)

	assert.Equal(t, 500, tiers[0].Threshold)
	assert.Equal(t, 2000, tiers[1].Threshold)
}
