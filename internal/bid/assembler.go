package bid

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rfp-service/internal/models"
)

// ErrNoViableMatch is returned when assembly is attempted with no candidates.
// The orchestrator surfaces this as a terminal no_bid outcome, never as a
// partial bid.
var ErrNoViableMatch = errors.New("no viable match")

// Assembler combines the run artifacts into an immutable Bid record. It has
// no side effects; persistence belongs to the caller.
type Assembler struct{}

// NewAssembler creates a bid assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble builds the bid from the top candidate. The bid always starts in
// awaiting_approval; disposition is an external transition.
func (a *Assembler) Assemble(rfp *models.RFP, req models.ExtractedRequirement, candidates []models.MatchCandidate, pricing models.PricingBreakdown) (*models.Bid, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: rfp %s", ErrNoViableMatch, rfp.ID)
	}

	top := candidates[0]
	now := time.Now()

	return &models.Bid{
		ID:         uuid.New().String(),
		RFPID:      rfp.ID,
		Client:     rfp.Client,
		SKU:        top.Product.SKU,
		Product:    top.Product.Name,
		Quantity:   req.Quantity,
		Pricing:    pricing,
		Confidence: top.Confidence,
		Status:     models.BidStatusAwaitingApproval,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
