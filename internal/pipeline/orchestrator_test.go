package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-service/internal/bid"
	"rfp-service/internal/extract"
	"rfp-service/internal/match"
	"rfp-service/internal/models"
	"rfp-service/internal/pricing"
	"rfp-service/internal/util"
)

type fakeCatalog struct {
	products []models.CatalogProduct
	err      error
}

func (f *fakeCatalog) Snapshot(ctx context.Context) ([]models.CatalogProduct, error) {
	return f.products, f.err
}

type fakeAssist struct {
	hint *extract.Hint
	err  error
}

func (f *fakeAssist) ExtractHint(ctx context.Context, content string) (*extract.Hint, error) {
	return f.hint, f.err
}

func testProducts() []models.CatalogProduct {
	return []models.CatalogProduct{
		{SKU: "MP-1", Name: "Marine Shield Pro", Specs: "saltwater resistant waterproof hull coating", UnitPrice: decimal.RequireFromString("48.50"), Stock: 2500},
		{SKU: "IN-1", Name: "Interior Soft Matte", Specs: "low-odor interior paint", UnitPrice: decimal.RequireFromString("16.40"), Stock: 5000},
	}
}

func newTestOrchestrator(t *testing.T, catalog CatalogProvider, assist ExtractionAssist) *Orchestrator {
	t.Helper()

	matcher := match.NewMatcher(nil)
	engine, err := pricing.NewEngine(nil)
	require.NoError(t, err)

	return NewOrchestrator(
		extract.NewExtractor(matcher.Weights()),
		matcher,
		engine,
		bid.NewAssembler(),
		catalog,
		assist,
		NewRecorder(),
		match.DefaultTopK,
	)
}

func TestRunAssemblesBid(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCatalog{products: testProducts()}, nil)
	rfp := &models.RFP{ID: "rfp-1", Client: "Harbor Logistics",
		Content: "We need 800 liters of waterproof marine paint for ship hulls"}

	result := o.Run(context.Background(), rfp)

	require.Equal(t, models.RunStateAssembled, result.State)
	require.NotNil(t, result.Bid)
	assert.Equal(t, "MP-1", result.Bid.SKU)
	assert.Equal(t, 800, result.Bid.Quantity)
	assert.Equal(t, models.BidStatusAwaitingApproval, result.Bid.Status)
	// 800 x 48.50 minus 5%
	assert.Equal(t, "36860.00", result.Bid.Pricing.Total.StringFixed(2))
}

func TestRunTraceHasOneEventPerAgent(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCatalog{products: testProducts()}, nil)
	rfp := &models.RFP{ID: "rfp-1", Client: "c",
		Content: "800 liters of waterproof marine paint"}

	result := o.Run(context.Background(), rfp)
	require.Equal(t, models.RunStateAssembled, result.State)

	events := o.Recorder().Events(result.RunID)
	require.Len(t, events, 3)
	assert.Equal(t, models.AgentIntake, events[0].Agent)
	assert.Equal(t, models.AgentTechnical, events[1].Agent)
	assert.Equal(t, models.AgentPricing, events[2].Agent)

	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].RecordedAt.After(events[i-1].RecordedAt))
	}
}

func TestRunNoBidWhenNothingMatches(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCatalog{products: testProducts()}, nil)
	rfp := &models.RFP{ID: "rfp-1", Client: "c",
		Content: "1200 liters of automotive fast-dry finish"}

	result := o.Run(context.Background(), rfp)

	assert.Equal(t, models.RunStateNoBid, result.State)
	assert.Nil(t, result.Bid)
	assert.NotEmpty(t, result.FailReason)

	events := o.Recorder().Events(result.RunID)
	require.Len(t, events, 2)
	assert.Equal(t, models.AgentIntake, events[0].Agent)
	assert.Equal(t, models.AgentTechnical, events[1].Agent)
}

func TestRunNoBidOnStockShortfall(t *testing.T) {
	products := testProducts()
	products[0].Stock = 100
	o := newTestOrchestrator(t, &fakeCatalog{products: products}, nil)
	rfp := &models.RFP{ID: "rfp-1", Client: "c",
		Content: "800 liters of waterproof marine paint"}

	result := o.Run(context.Background(), rfp)

	assert.Equal(t, models.RunStateNoBid, result.State)
	assert.Contains(t, result.FailReason, "insufficient stock")

	events := o.Recorder().Events(result.RunID)
	require.Len(t, events, 3)
	assert.Equal(t, models.AgentPricing, events[2].Agent)
}

func TestRunFailsWhenCatalogUnavailable(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCatalog{err: errors.New("connection refused")}, nil)
	rfp := &models.RFP{ID: "rfp-1", Client: "c", Content: "800 liters of marine paint"}

	result := o.Run(context.Background(), rfp)

	assert.Equal(t, models.RunStateFailed, result.State)
	assert.Contains(t, result.FailReason, ErrCollaboratorUnavailable.Error())
	assert.Nil(t, result.Bid)

	events := o.Recorder().Events(result.RunID)
	require.Len(t, events, 2)
	assert.Equal(t, models.AgentTechnical, events[1].Agent)
}

func TestRunPrefersAssistHint(t *testing.T) {
	assist := &fakeAssist{hint: &extract.Hint{Quantity: 600, Tags: []string{"interior"}}}
	o := newTestOrchestrator(t, &fakeCatalog{products: testProducts()}, assist)
	rfp := &models.RFP{ID: "rfp-1", Client: "c",
		Content: "800 liters of waterproof marine paint"}

	result := o.Run(context.Background(), rfp)

	require.Equal(t, models.RunStateAssembled, result.State)
	assert.Equal(t, 600, result.Requirement.Quantity)
	assert.Equal(t, "IN-1", result.Bid.SKU)
}

func TestRunFallsBackWhenAssistErrors(t *testing.T) {
	assist := &fakeAssist{err: errors.New("api timeout")}
	o := newTestOrchestrator(t, &fakeCatalog{products: testProducts()}, assist)
	rfp := &models.RFP{ID: "rfp-1", Client: "c",
		Content: "800 liters of waterproof marine paint"}

	before := testutil.ToFloat64(util.ExtractionAssistFailures)
	result := o.Run(context.Background(), rfp)

	require.Equal(t, models.RunStateAssembled, result.State)
	assert.Equal(t, 800, result.Requirement.Quantity)
	assert.Equal(t, "MP-1", result.Bid.SKU)
	assert.Equal(t, before+1, testutil.ToFloat64(util.ExtractionAssistFailures))
}

func TestRunReinvocationIsIndependent(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCatalog{products: testProducts()}, nil)
	rfp := &models.RFP{ID: "rfp-1", Client: "c",
		Content: "800 liters of waterproof marine paint"}

	first := o.Run(context.Background(), rfp)
	second := o.Run(context.Background(), rfp)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Requirement, second.Requirement)
	assert.Equal(t, first.Bid.SKU, second.Bid.SKU)
	assert.True(t, first.Bid.Pricing.Total.Equal(second.Bid.Pricing.Total))
}
