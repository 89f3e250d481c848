package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"rfp-service/internal/broker"
	"rfp-service/internal/models"
	"rfp-service/internal/pipeline"
	"rfp-service/internal/service"
	"rfp-service/internal/util"
)

const idempotencyTTL = 24 * time.Hour

// RFPProcessor runs the pipeline for a submitted RFP.
type RFPProcessor interface {
	ProcessRFP(ctx context.Context, rfpID string) (*pipeline.Result, error)
}

// EventLedger is the durable processed-event record.
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// IdempotencyCache is the fast-path dedup check consulted before the ledger.
type IdempotencyCache interface {
	CheckIdempotencyKey(ctx context.Context, key string) (bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// PipelineWorker consumes RFP lifecycle events and drives pipeline runs in
// the background.
type PipelineWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	processor    RFPProcessor
	ledger       EventLedger
	cache        IdempotencyCache
	logger       *zap.Logger
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(
	consumer *broker.Consumer,
	processor RFPProcessor,
	ledger EventLedger,
	cache IdempotencyCache,
) *PipelineWorker {
	w := &PipelineWorker{
		consumer:  consumer,
		processor: processor,
		ledger:    ledger,
		cache:     cache,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnRFPSubmitted(w.handleRFPSubmitted)
	eventHandler.OnBidDecided(w.handleBidDecided)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *PipelineWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting pipeline worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *PipelineWorker) Stop() error {
	w.logger.Info("Stopping pipeline worker")
	return w.consumer.Close()
}

// handleRFPSubmitted runs the pipeline for a newly submitted RFP. Redelivered
// events are dropped by the redis fast path or the processed_events ledger; a
// run already in flight for the RFP is not an error.
func (w *PipelineWorker) handleRFPSubmitted(ctx context.Context, event *models.RFPSubmittedEvent) error {
	if w.alreadyProcessed(ctx, event.EventID) {
		return nil
	}

	result, err := w.processor.ProcessRFP(ctx, event.RFPID)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			w.logger.Info("Run already in progress, skipping",
				zap.String("rfp_id", event.RFPID))
			return nil
		}
		return err
	}

	w.logger.Info("Pipeline run finished",
		zap.String("rfp_id", event.RFPID),
		zap.String("run_id", result.RunID),
		zap.String("state", result.State))

	w.recordProcessed(ctx, event.EventID, event.EventType)
	return nil
}

// handleBidDecided records human decisions flowing back over the bus, so
// the worker's ledger carries the full RFP lifecycle.
func (w *PipelineWorker) handleBidDecided(ctx context.Context, event *models.BidDecidedEvent) error {
	if w.alreadyProcessed(ctx, event.EventID) {
		return nil
	}

	w.logger.Info("Bid decision observed",
		zap.String("rfp_id", event.RFPID),
		zap.String("bid_id", event.BidID),
		zap.String("decision", event.Decision))

	w.recordProcessed(ctx, event.EventID, event.EventType)
	return nil
}

// alreadyProcessed consults the redis fast path first and falls back to the
// durable ledger. Both checks failing open means at-least-once delivery; the
// run itself is safe to repeat.
func (w *PipelineWorker) alreadyProcessed(ctx context.Context, eventID string) bool {
	if cached, err := w.cache.CheckIdempotencyKey(ctx, eventID); err != nil {
		w.logger.Warn("Idempotency cache check failed",
			zap.String("event_id", eventID), zap.Error(err))
	} else if cached {
		w.logger.Debug("Skipping event seen in idempotency cache",
			zap.String("event_id", eventID))
		return true
	}

	if processed, err := w.ledger.IsEventProcessed(ctx, eventID); err != nil {
		w.logger.Warn("Idempotency ledger check failed, processing anyway",
			zap.String("event_id", eventID), zap.Error(err))
	} else if processed {
		w.logger.Debug("Skipping already-processed event",
			zap.String("event_id", eventID))
		return true
	}

	return false
}

func (w *PipelineWorker) recordProcessed(ctx context.Context, eventID, eventType string) {
	if err := w.ledger.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		w.logger.Warn("Failed to mark event processed",
			zap.String("event_id", eventID), zap.Error(err))
	}
	if err := w.cache.SetIdempotencyKey(ctx, eventID, "1", idempotencyTTL); err != nil {
		w.logger.Warn("Failed to cache idempotency key",
			zap.String("event_id", eventID), zap.Error(err))
	}
}
