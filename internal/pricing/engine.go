package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"rfp-service/internal/models"
)

// ErrInvalidQuantity is returned when pricing is requested for a quantity
// that is zero or negative.
var ErrInvalidQuantity = errors.New("invalid quantity")

// DiscountTier is one row of the volume discount table.
type DiscountTier struct {
	Threshold int
	Rate      decimal.Decimal
}

// DefaultTiers is the built-in table: 5% at 500 or more, otherwise no
// discount. Richer tables come from configuration.
func DefaultTiers() []DiscountTier {
	return []DiscountTier{
		{Threshold: 500, Rate: decimal.NewFromFloat(0.05)},
	}
}

// Engine computes pricing breakdowns. The discount table is fixed at
// construction; swapping tables never touches the algorithm.
type Engine struct {
	tiers []DiscountTier
}

// NewEngine creates a pricing engine. Tiers are normalized to
// highest-threshold-first evaluation order; nil falls back to DefaultTiers.
// Tiers with rates outside [0,1) are rejected.
func NewEngine(tiers []DiscountTier) (*Engine, error) {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	one := decimal.NewFromInt(1)
	for _, t := range tiers {
		if t.Rate.IsNegative() || t.Rate.GreaterThanOrEqual(one) {
			return nil, fmt.Errorf("discount rate out of range for threshold %d: %s", t.Threshold, t.Rate)
		}
		if t.Threshold <= 0 {
			return nil, fmt.Errorf("discount threshold must be positive: %d", t.Threshold)
		}
	}

	sorted := make([]DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Threshold > sorted[j].Threshold
	})

	// A higher threshold must never carry a smaller rate, otherwise buying
	// more could shrink the discount.
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Rate.GreaterThan(sorted[i-1].Rate) {
			return nil, fmt.Errorf("discount table not monotonic: threshold %d rate %s exceeds threshold %d rate %s",
				sorted[i].Threshold, sorted[i].Rate, sorted[i-1].Threshold, sorted[i-1].Rate)
		}
	}

	return &Engine{tiers: sorted}, nil
}

// Price computes the breakdown for a product and quantity. The first tier
// the quantity meets or exceeds wins. All arithmetic is fixed-precision
// decimal; the total is rounded once, to two places, half-up.
func (e *Engine) Price(product models.CatalogProduct, quantity int) (models.PricingBreakdown, error) {
	if quantity <= 0 {
		return models.PricingBreakdown{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	basePrice := product.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	rate := decimal.Zero
	for _, tier := range e.tiers {
		if quantity >= tier.Threshold {
			rate = tier.Rate
			break
		}
	}

	discountAmount := basePrice.Mul(rate)
	total := basePrice.Sub(discountAmount).Round(2)

	return models.PricingBreakdown{
		UnitPrice:      product.UnitPrice,
		BasePrice:      basePrice,
		DiscountRate:   rate,
		DiscountAmount: discountAmount,
		Total:          total,
	}, nil
}
