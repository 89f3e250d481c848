package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rfp-service/internal/models"
)

// CreateRFP stores a newly submitted RFP
func (s *Store) CreateRFP(ctx context.Context, rfp *models.RFP) error {
	query := `
		INSERT INTO rfps (id, client, content, submitted_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	return s.db.GetContext(ctx, rfp, query,
		rfp.ID, rfp.Client, rfp.Content, rfp.SubmittedAt, rfp.Status)
}

// GetRFPByID retrieves an RFP by ID
func (s *Store) GetRFPByID(ctx context.Context, id string) (*models.RFP, error) {
	var rfp models.RFP
	err := s.db.GetContext(ctx, &rfp, "SELECT * FROM rfps WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rfp not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &rfp, nil
}

// UpdateRFPStatus updates RFP status
func (s *Store) UpdateRFPStatus(ctx context.Context, rfpID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE rfps SET status = $1, updated_at = NOW() WHERE id = $2",
		status, rfpID)
	return err
}

// bidRow flattens the pricing breakdown into scannable columns.
type bidRow struct {
	ID             string          `db:"id"`
	RFPID          string          `db:"rfp_id"`
	Client         string          `db:"client"`
	SKU            string          `db:"sku"`
	Product        string          `db:"product_name"`
	Quantity       int             `db:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	BasePrice      decimal.Decimal `db:"base_price"`
	DiscountRate   decimal.Decimal `db:"discount_rate"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	Total          decimal.Decimal `db:"total"`
	Confidence     int             `db:"confidence"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *bidRow) toBid() *models.Bid {
	return &models.Bid{
		ID:       r.ID,
		RFPID:    r.RFPID,
		Client:   r.Client,
		SKU:      r.SKU,
		Product:  r.Product,
		Quantity: r.Quantity,
		Pricing: models.PricingBreakdown{
			UnitPrice:      r.UnitPrice,
			BasePrice:      r.BasePrice,
			DiscountRate:   r.DiscountRate,
			DiscountAmount: r.DiscountAmount,
			Total:          r.Total,
		},
		Confidence: r.Confidence,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// CreateBid stores an assembled bid
func (s *Store) CreateBid(ctx context.Context, bid *models.Bid) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bids (id, rfp_id, client, sku, product_name, quantity,
			unit_price, base_price, discount_rate, discount_amount, total,
			confidence, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		bid.ID, bid.RFPID, bid.Client, bid.SKU, bid.Product, bid.Quantity,
		bid.Pricing.UnitPrice, bid.Pricing.BasePrice, bid.Pricing.DiscountRate,
		bid.Pricing.DiscountAmount, bid.Pricing.Total,
		bid.Confidence, bid.Status)
	return err
}

// GetBidByID retrieves a bid by ID
func (s *Store) GetBidByID(ctx context.Context, id string) (*models.Bid, error) {
	var row bidRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM bids WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bid not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return row.toBid(), nil
}

// GetBidByRFPID retrieves the latest bid for an RFP
func (s *Store) GetBidByRFPID(ctx context.Context, rfpID string) (*models.Bid, error) {
	var row bidRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM bids WHERE rfp_id = $1 ORDER BY created_at DESC LIMIT 1", rfpID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bid not found for rfp: %s", rfpID)
	}
	if err != nil {
		return nil, err
	}
	return row.toBid(), nil
}

// UpdateBidStatus updates bid status
func (s *Store) UpdateBidStatus(ctx context.Context, bidID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE bids SET status = $1, updated_at = NOW() WHERE id = $2",
		status, bidID)
	return err
}

// CreatePipelineRun stores a completed run record
func (s *Store) CreatePipelineRun(ctx context.Context, run *models.PipelineRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, rfp_id, state, bid_id, fail_reason, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.RFPID, run.State, run.BidID, run.FailReason,
		run.StartedAt, run.FinishedAt)
	return err
}

// GetLatestRunByRFPID retrieves the most recent run for an RFP
func (s *Store) GetLatestRunByRFPID(ctx context.Context, rfpID string) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := s.db.GetContext(ctx, &run,
		"SELECT * FROM pipeline_runs WHERE rfp_id = $1 ORDER BY started_at DESC LIMIT 1", rfpID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no runs for rfp: %s", rfpID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateTraceEvents stores a run's trace in order
func (s *Store) CreateTraceEvents(ctx context.Context, events []models.TraceEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, event := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trace_events (run_id, rfp_id, agent, message, recorded_at)
			VALUES ($1, $2, $3, $4, $5)`,
			event.RunID, event.RFPID, string(event.Agent), event.Message, event.RecordedAt)
		if err != nil {
			return fmt.Errorf("failed to insert trace event: %w", err)
		}
	}

	return tx.Commit()
}

// GetTraceEventsByRunID retrieves a run's ordered trace
func (s *Store) GetTraceEventsByRunID(ctx context.Context, runID string) ([]models.TraceEvent, error) {
	var events []models.TraceEvent
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM trace_events WHERE run_id = $1 ORDER BY recorded_at, id", runID)
	return events, err
}
