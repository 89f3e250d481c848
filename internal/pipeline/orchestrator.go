package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rfp-service/internal/bid"
	"rfp-service/internal/extract"
	"rfp-service/internal/match"
	"rfp-service/internal/models"
	"rfp-service/internal/pricing"
	"rfp-service/internal/util"
)

var hundred = decimal.NewFromInt(100)

// CatalogProvider supplies a read-only catalog snapshot for one run.
// Concurrent catalog mutation must not be observable mid-run.
type CatalogProvider interface {
	Snapshot(ctx context.Context) ([]models.CatalogProduct, error)
}

// ExtractionAssist is the optional LLM collaborator. A nil assist, an error,
// or a malformed hint all fall back to the heuristic extractor.
type ExtractionAssist interface {
	ExtractHint(ctx context.Context, content string) (*extract.Hint, error)
}

// Result is the externally visible outcome of one run. State distinguishes
// success (assembled), no match found (no_bid), and system error (failed).
type Result struct {
	RunID       string
	State       string
	Requirement models.ExtractedRequirement
	Candidates  []models.MatchCandidate
	Bid         *models.Bid
	FailReason  string
}

// Orchestrator sequences the pipeline stages for a single RFP. Transitions
// are strictly sequential, each completed stage emits exactly one attributed
// trace event, and all stage failures are translated here into a terminal
// run state instead of propagating to the caller.
type Orchestrator struct {
	extractor *extract.Extractor
	matcher   *match.Matcher
	engine    *pricing.Engine
	assembler *bid.Assembler
	catalog   CatalogProvider
	assist    ExtractionAssist
	recorder  *Recorder
	topK      int
	logger    *zap.Logger
}

// NewOrchestrator wires the pipeline stages. assist may be nil.
func NewOrchestrator(
	extractor *extract.Extractor,
	matcher *match.Matcher,
	engine *pricing.Engine,
	assembler *bid.Assembler,
	catalog CatalogProvider,
	assist ExtractionAssist,
	recorder *Recorder,
	topK int,
) *Orchestrator {
	if topK <= 0 {
		topK = match.DefaultTopK
	}
	return &Orchestrator{
		extractor: extractor,
		matcher:   matcher,
		engine:    engine,
		assembler: assembler,
		catalog:   catalog,
		assist:    assist,
		recorder:  recorder,
		topK:      topK,
		logger:    util.GetLogger(),
	}
}

// Recorder exposes the trace recorder for consumers polling Events.
func (o *Orchestrator) Recorder() *Recorder {
	return o.recorder
}

// Run processes one RFP through extraction, matching, pricing, and assembly.
// Each invocation is an independent run with a fresh run ID; re-invoking for
// the same RFP is safe and re-derives everything from scratch.
func (o *Orchestrator) Run(ctx context.Context, rfp *models.RFP) *Result {
	ctx, span := util.StartSpan(ctx, "Orchestrator.Run")
	defer span.End()

	result := &Result{
		RunID: uuid.New().String(),
		State: models.RunStateReceived,
	}

	o.logger.Info("Pipeline run started",
		zap.String("run_id", result.RunID),
		zap.String("rfp_id", rfp.ID))

	// received -> extracting
	result.State = models.RunStateExtracting
	result.Requirement = o.extractRequirement(ctx, rfp.Content)
	o.recorder.Record(result.RunID, rfp.ID, models.AgentIntake,
		fmt.Sprintf("extracted requirement: %d %s, tags [%s]",
			result.Requirement.Quantity, result.Requirement.Unit,
			strings.Join(result.Requirement.Tags, ", ")))

	// extracting -> matching
	result.State = models.RunStateMatching
	catalog, err := o.catalog.Snapshot(ctx)
	if err != nil {
		reason := fmt.Sprintf("%s: catalog provider: %v", ErrCollaboratorUnavailable, err)
		return o.fail(result, rfp, models.AgentTechnical, reason)
	}

	result.Candidates = o.matcher.Match(result.Requirement, catalog, o.topK)
	if len(result.Candidates) == 0 {
		result.State = models.RunStateNoBid
		result.FailReason = "no catalog product matched the extracted requirements"
		o.recorder.Record(result.RunID, rfp.ID, models.AgentTechnical,
			fmt.Sprintf("no viable match among %d catalog products", len(catalog)))
		o.logger.Info("Pipeline run ended without a bid",
			zap.String("run_id", result.RunID),
			zap.String("rfp_id", rfp.ID))
		return result
	}
	o.recorder.Record(result.RunID, rfp.ID, models.AgentTechnical,
		describeCandidates(result.Candidates))

	// matching -> pricing
	result.State = models.RunStatePricing
	top := result.Candidates[0]

	if top.Product.Stock < result.Requirement.Quantity {
		result.State = models.RunStateNoBid
		result.FailReason = fmt.Sprintf("insufficient stock for %s: need %d, have %d",
			top.Product.SKU, result.Requirement.Quantity, top.Product.Stock)
		o.recorder.Record(result.RunID, rfp.ID, models.AgentPricing, result.FailReason)
		return result
	}

	breakdown, err := o.engine.Price(top.Product, result.Requirement.Quantity)
	if err != nil {
		return o.fail(result, rfp, models.AgentPricing, fmt.Sprintf("pricing failed: %v", err))
	}

	// pricing -> assembled
	assembled, err := o.assembler.Assemble(rfp, result.Requirement, result.Candidates, breakdown)
	if err != nil {
		return o.fail(result, rfp, models.AgentPricing, fmt.Sprintf("assembly failed: %v", err))
	}

	result.State = models.RunStateAssembled
	result.Bid = assembled
	o.recorder.Record(result.RunID, rfp.ID, models.AgentPricing,
		fmt.Sprintf("priced %s: base %s, discount %s%% (%s), total %s; bid awaiting approval",
			top.Product.SKU,
			breakdown.BasePrice.StringFixed(2),
			breakdown.DiscountRate.Mul(hundred).String(),
			breakdown.DiscountAmount.StringFixed(2),
			breakdown.Total.StringFixed(2)))

	o.logger.Info("Pipeline run assembled bid",
		zap.String("run_id", result.RunID),
		zap.String("rfp_id", rfp.ID),
		zap.String("bid_id", assembled.ID),
		zap.String("sku", assembled.SKU),
		zap.Int("confidence", assembled.Confidence))

	return result
}

// extractRequirement prefers a well-formed collaborator hint and falls back
// to the deterministic heuristic on absence, error, or malformed output.
func (o *Orchestrator) extractRequirement(ctx context.Context, content string) models.ExtractedRequirement {
	if o.assist == nil {
		return o.extractor.Extract(content)
	}

	hint, err := o.assist.ExtractHint(ctx, content)
	if err != nil {
		util.ExtractionAssistFailures.Inc()
		o.logger.Warn("Extraction assist unavailable, using heuristic parse", zap.Error(err))
		return o.extractor.Extract(content)
	}
	return o.extractor.ExtractWithHint(content, hint)
}

// fail is the single translation point from a stage error to the failed
// terminal state. Exactly one trace event explains the failure.
func (o *Orchestrator) fail(result *Result, rfp *models.RFP, agent models.AgentRole, reason string) *Result {
	result.State = models.RunStateFailed
	result.FailReason = reason
	o.recorder.Record(result.RunID, rfp.ID, agent, reason)
	o.logger.Error("Pipeline run failed",
		zap.String("run_id", result.RunID),
		zap.String("rfp_id", rfp.ID),
		zap.String("reason", reason))
	return result
}

func describeCandidates(candidates []models.MatchCandidate) string {
	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		parts = append(parts, fmt.Sprintf("%s (%s, confidence %d)",
			c.Product.Name, c.Product.SKU, c.Confidence))
	}
	return fmt.Sprintf("matched %d candidates: %s", len(candidates), strings.Join(parts, "; "))
}
