package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RFP represents a client procurement request
type RFP struct {
	ID          string    `db:"id" json:"id"`
	Client      string    `db:"client" json:"client"`
	Content     string    `db:"content" json:"content"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CatalogProduct represents a product in the catalog
type CatalogProduct struct {
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	Specs     string          `db:"specs" json:"specs"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Stock     int             `db:"stock" json:"stock"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ExtractedRequirement holds the structured fields parsed from RFP content.
// It is derived per run and never persisted on its own.
type ExtractedRequirement struct {
	Quantity int      `json:"quantity"`
	Unit     string   `json:"unit"`
	Tags     []string `json:"tags"`
}

// MatchCandidate pairs a catalog product with its confidence score.
// Candidates with confidence <= 0 are never emitted.
type MatchCandidate struct {
	Product    CatalogProduct `json:"product"`
	Confidence int            `json:"confidence"`
}

// PricingBreakdown is the priced result for a product and quantity.
// Total is rounded once, to two decimal places, half-up.
type PricingBreakdown struct {
	UnitPrice      decimal.Decimal `json:"unit_price"`
	BasePrice      decimal.Decimal `json:"base_price"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Bid is the immutable priced proposal awaiting human disposition
type Bid struct {
	ID         string           `db:"id" json:"id"`
	RFPID      string           `db:"rfp_id" json:"rfp_id"`
	Client     string           `db:"client" json:"client"`
	SKU        string           `db:"sku" json:"sku"`
	Product    string           `db:"product_name" json:"product_name"`
	Quantity   int              `db:"quantity" json:"quantity"`
	Pricing    PricingBreakdown `db:"-" json:"pricing"`
	Confidence int              `db:"confidence" json:"confidence"`
	Status     string           `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AgentRole identifies which agent produced a trace event
type AgentRole string

const (
	AgentIntake    AgentRole = "Intake"
	AgentTechnical AgentRole = "Technical"
	AgentPricing   AgentRole = "Pricing"
)

// TraceEvent is one entry of the per-run explainability trail
type TraceEvent struct {
	ID         int64     `db:"id" json:"-"`
	RunID      string    `db:"run_id" json:"run_id"`
	RFPID      string    `db:"rfp_id" json:"rfp_id"`
	Agent      AgentRole `db:"agent" json:"agent"`
	Message    string    `db:"message" json:"message"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

// RFP statuses
const (
	RFPStatusPending    = "pending"
	RFPStatusProcessing = "processing"
	RFPStatusBidReady   = "bid_ready"
	RFPStatusApproved   = "approved"
	RFPStatusRejected   = "rejected"
)

// Bid statuses
const (
	BidStatusAwaitingApproval = "awaiting_approval"
	BidStatusApproved         = "approved"
	BidStatusRejected         = "rejected"
)

// Pipeline run states
const (
	RunStateReceived   = "received"
	RunStateExtracting = "extracting"
	RunStateMatching   = "matching"
	RunStatePricing    = "pricing"
	RunStateAssembled  = "assembled"
	RunStateNoBid      = "no_bid"
	RunStateFailed     = "failed"
)

// PipelineRun records one orchestrated pass over an RFP
type PipelineRun struct {
	ID         string    `db:"id" json:"id"`
	RFPID      string    `db:"rfp_id" json:"rfp_id"`
	State      string    `db:"state" json:"state"`
	BidID      string    `db:"bid_id" json:"bid_id,omitempty"`
	FailReason string    `db:"fail_reason" json:"fail_reason,omitempty"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Summary renders a human-readable bid proposal
func (b *Bid) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bid %s for RFP %s (%s)\n", b.ID, b.RFPID, b.Client)
	fmt.Fprintf(&sb, "Product: %s (%s) x %d liters\n", b.Product, b.SKU, b.Quantity)
	fmt.Fprintf(&sb, "Base: %s  Discount: %s%% (%s)  Total: %s\n",
		b.Pricing.BasePrice.StringFixed(2),
		b.Pricing.DiscountRate.Mul(decimal.NewFromInt(100)).String(),
		b.Pricing.DiscountAmount.StringFixed(2),
		b.Pricing.Total.StringFixed(2))
	fmt.Fprintf(&sb, "Confidence: %d  Status: %s", b.Confidence, b.Status)
	return sb.String()
}
