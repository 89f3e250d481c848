package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rfp-service/internal/broker"
	"rfp-service/internal/models"
	"rfp-service/internal/pipeline"
	"rfp-service/internal/redisclient"
	"rfp-service/internal/util"
)

// Store is the persistence surface the RFP service depends on, satisfied by
// store.Store.
type Store interface {
	CreateRFP(ctx context.Context, rfp *models.RFP) error
	GetRFPByID(ctx context.Context, id string) (*models.RFP, error)
	UpdateRFPStatus(ctx context.Context, rfpID, status string) error
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBidByID(ctx context.Context, id string) (*models.Bid, error)
	GetBidByRFPID(ctx context.Context, rfpID string) (*models.Bid, error)
	UpdateBidStatus(ctx context.Context, bidID, status string) error
	CreatePipelineRun(ctx context.Context, run *models.PipelineRun) error
	GetLatestRunByRFPID(ctx context.Context, rfpID string) (*models.PipelineRun, error)
	CreateTraceEvents(ctx context.Context, events []models.TraceEvent) error
	GetTraceEventsByRunID(ctx context.Context, runID string) ([]models.TraceEvent, error)
}

// ErrRunInProgress is returned when a run is already underway for an RFP.
var ErrRunInProgress = errors.New("run already in progress for rfp")

// ErrBidNotPending is returned when a decision targets a bid that is no
// longer awaiting approval.
var ErrBidNotPending = errors.New("bid is not awaiting approval")

const (
	runLockTTL      = 2 * time.Minute
	snapshotTTL     = 30 * time.Second
	tracePayloadVer = 1
)

// RFPService owns RFP intake, pipeline run execution, and the single bid
// approval mutation point.
type RFPService struct {
	store          Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	orchestrator   *pipeline.Orchestrator
	logger         *zap.Logger
}

// NewRFPService creates a new RFP service
func NewRFPService(
	store Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	orchestrator *pipeline.Orchestrator,
) *RFPService {
	return &RFPService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		orchestrator:   orchestrator,
		logger:         util.GetLogger(),
	}
}

// SubmitRFPRequest represents an incoming RFP submission
type SubmitRFPRequest struct {
	ID          string    `json:"id"`
	Client      string    `json:"client" binding:"required"`
	Content     string    `json:"content" binding:"required"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmitRFP stores a new RFP and announces it. Submitting an ID that
// already exists returns the stored RFP unchanged.
func (s *RFPService) SubmitRFP(ctx context.Context, req *SubmitRFPRequest) (*models.RFP, error) {
	ctx, span := util.StartSpan(ctx, "RFPService.SubmitRFP")
	defer span.End()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}

	if existing, err := s.store.GetRFPByID(ctx, req.ID); err == nil {
		s.logger.Info("Duplicate RFP submission",
			zap.String("rfp_id", existing.ID))
		return existing, nil
	}

	rfp := &models.RFP{
		ID:          req.ID,
		Client:      req.Client,
		Content:     req.Content,
		SubmittedAt: req.SubmittedAt,
		Status:      models.RFPStatusPending,
	}

	if err := s.store.CreateRFP(ctx, rfp); err != nil {
		return nil, fmt.Errorf("failed to create rfp: %w", err)
	}

	util.RFPsSubmittedTotal.Inc()
	s.logger.Info("RFP submitted",
		zap.String("rfp_id", rfp.ID),
		zap.String("client", rfp.Client))

	event := &models.RFPSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRFPSubmitted,
			Timestamp: time.Now(),
		},
		RFPID:  rfp.ID,
		Client: rfp.Client,
	}
	if err := s.eventPublisher.PublishRFPSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish RFPSubmitted event", zap.Error(err))
	}

	return rfp, nil
}

// ProcessRFP runs the pipeline for one RFP. Re-invocation for the same RFP
// is safe: each call is a fresh, fully re-derived run. A per-RFP lock keeps
// concurrent duplicate invocations from racing; distinct RFPs run freely in
// parallel.
func (s *RFPService) ProcessRFP(ctx context.Context, rfpID string) (*pipeline.Result, error) {
	ctx, span := util.StartSpan(ctx, "RFPService.ProcessRFP")
	defer span.End()

	start := time.Now()
	defer func() {
		util.PipelineRunLatency.Observe(time.Since(start).Seconds())
	}()

	acquired, err := s.redis.AcquireRunLock(ctx, rfpID, runLockTTL)
	if err != nil {
		s.logger.Warn("Run lock unavailable, proceeding without it",
			zap.String("rfp_id", rfpID), zap.Error(err))
	} else if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, rfpID)
	} else {
		defer func() {
			if err := s.redis.ReleaseRunLock(context.Background(), rfpID); err != nil {
				s.logger.Error("Failed to release run lock",
					zap.String("rfp_id", rfpID), zap.Error(err))
			}
		}()
	}

	rfp, err := s.store.GetRFPByID(ctx, rfpID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rfp: %w", err)
	}

	if err := s.store.UpdateRFPStatus(ctx, rfp.ID, models.RFPStatusProcessing); err != nil {
		return nil, fmt.Errorf("failed to mark rfp processing: %w", err)
	}

	result := s.orchestrator.Run(ctx, rfp)

	if err := s.persistRun(ctx, rfp, result, start); err != nil {
		s.logger.Error("Failed to persist run",
			zap.String("run_id", result.RunID), zap.Error(err))
	}

	s.publishOutcome(ctx, rfp, result)
	return result, nil
}

// persistRun stores the run record, its trace, and the bid if one was
// assembled, then moves the RFP status to reflect the outcome. On any store
// error the RFP reverts to pending so it never sticks in processing, and the
// in-memory trail is dropped either way.
func (s *RFPService) persistRun(ctx context.Context, rfp *models.RFP, result *pipeline.Result, started time.Time) (err error) {
	events := s.orchestrator.Recorder().Events(result.RunID)
	defer s.orchestrator.Recorder().Drop(result.RunID)
	defer func() {
		if err == nil {
			return
		}
		if uerr := s.store.UpdateRFPStatus(ctx, rfp.ID, models.RFPStatusPending); uerr != nil {
			s.logger.Error("Failed to revert rfp status",
				zap.String("rfp_id", rfp.ID), zap.Error(uerr))
		}
	}()

	run := &models.PipelineRun{
		ID:         result.RunID,
		RFPID:      rfp.ID,
		State:      result.State,
		FailReason: result.FailReason,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	status := models.RFPStatusPending
	switch result.State {
	case models.RunStateAssembled:
		run.BidID = result.Bid.ID
		status = models.RFPStatusBidReady
		if err := s.store.CreateBid(ctx, result.Bid); err != nil {
			return fmt.Errorf("failed to store bid: %w", err)
		}
	case models.RunStateNoBid, models.RunStateFailed:
		// RFP goes back to pending so the caller can re-invoke.
	}

	if err := s.store.CreatePipelineRun(ctx, run); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	if err := s.store.CreateTraceEvents(ctx, events); err != nil {
		return fmt.Errorf("failed to store trace events: %w", err)
	}

	for _, event := range events {
		traceEvent := &models.TraceEmittedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeTraceEmitted,
				Timestamp: time.Now(),
			},
			Version:    tracePayloadVer,
			RunID:      event.RunID,
			RFPID:      event.RFPID,
			Agent:      event.Agent,
			Message:    event.Message,
			RecordedAt: event.RecordedAt,
		}
		if err := s.eventPublisher.PublishTrace(ctx, traceEvent); err != nil {
			s.logger.Error("Failed to publish trace event", zap.Error(err))
		}
	}

	if err := s.store.UpdateRFPStatus(ctx, rfp.ID, status); err != nil {
		return fmt.Errorf("failed to update rfp status: %w", err)
	}
	return nil
}

// publishOutcome emits the run's terminal lifecycle event and counts it.
func (s *RFPService) publishOutcome(ctx context.Context, rfp *models.RFP, result *pipeline.Result) {
	base := models.BaseEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
	}

	switch result.State {
	case models.RunStateAssembled:
		util.BidsGeneratedTotal.Inc()
		base.EventType = models.EventTypeBidReady
		event := &models.BidReadyEvent{
			BaseEvent:  base,
			RFPID:      rfp.ID,
			RunID:      result.RunID,
			BidID:      result.Bid.ID,
			SKU:        result.Bid.SKU,
			Quantity:   result.Bid.Quantity,
			Total:      result.Bid.Pricing.Total.StringFixed(2),
			Confidence: result.Bid.Confidence,
		}
		if err := s.eventPublisher.PublishBidReady(ctx, event); err != nil {
			s.logger.Error("Failed to publish BidReady event", zap.Error(err))
		}

	case models.RunStateNoBid:
		util.RunsNoBidTotal.Inc()
		base.EventType = models.EventTypeRunNoBid
		event := &models.RunNoBidEvent{
			BaseEvent: base,
			RFPID:     rfp.ID,
			RunID:     result.RunID,
			Reason:    result.FailReason,
		}
		if err := s.eventPublisher.PublishRunNoBid(ctx, event); err != nil {
			s.logger.Error("Failed to publish RunNoBid event", zap.Error(err))
		}

	case models.RunStateFailed:
		util.RunsFailedTotal.WithLabelValues("stage_error").Inc()
		base.EventType = models.EventTypeRunFailed
		event := &models.RunFailedEvent{
			BaseEvent: base,
			RFPID:     rfp.ID,
			RunID:     result.RunID,
			Reason:    result.FailReason,
		}
		if err := s.eventPublisher.PublishRunFailed(ctx, event); err != nil {
			s.logger.Error("Failed to publish RunFailed event", zap.Error(err))
		}
	}
}

// GetRFP retrieves an RFP with its latest run, if any
func (s *RFPService) GetRFP(ctx context.Context, rfpID string) (*models.RFP, *models.PipelineRun, error) {
	rfp, err := s.store.GetRFPByID(ctx, rfpID)
	if err != nil {
		return nil, nil, err
	}

	run, err := s.store.GetLatestRunByRFPID(ctx, rfpID)
	if err != nil {
		return rfp, nil, nil
	}
	return rfp, run, nil
}

// GetBid retrieves the latest bid for an RFP
func (s *RFPService) GetBid(ctx context.Context, rfpID string) (*models.Bid, error) {
	return s.store.GetBidByRFPID(ctx, rfpID)
}

// GetTrace retrieves the ordered trace of the RFP's latest run
func (s *RFPService) GetTrace(ctx context.Context, rfpID string) ([]models.TraceEvent, error) {
	run, err := s.store.GetLatestRunByRFPID(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	return s.store.GetTraceEventsByRunID(ctx, run.ID)
}

// DecideBid is the single approval mutation point. It moves an
// awaiting_approval bid to its terminal status, mirrors the decision onto
// the RFP, and announces it.
func (s *RFPService) DecideBid(ctx context.Context, bidID, decision string) (*models.Bid, error) {
	ctx, span := util.StartSpan(ctx, "RFPService.DecideBid")
	defer span.End()

	if decision != models.BidStatusApproved && decision != models.BidStatusRejected {
		return nil, fmt.Errorf("invalid decision: %s", decision)
	}

	b, err := s.store.GetBidByID(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BidStatusAwaitingApproval {
		return nil, fmt.Errorf("%w: %s is %s", ErrBidNotPending, bidID, b.Status)
	}

	if err := s.store.UpdateBidStatus(ctx, bidID, decision); err != nil {
		return nil, fmt.Errorf("failed to update bid status: %w", err)
	}

	rfpStatus := models.RFPStatusApproved
	if decision == models.BidStatusRejected {
		rfpStatus = models.RFPStatusRejected
	}
	if err := s.store.UpdateRFPStatus(ctx, b.RFPID, rfpStatus); err != nil {
		return nil, fmt.Errorf("failed to update rfp status: %w", err)
	}

	util.BidsDecidedTotal.WithLabelValues(decision).Inc()
	s.logger.Info("Bid decided",
		zap.String("bid_id", bidID),
		zap.String("decision", decision))

	event := &models.BidDecidedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBidDecided,
			Timestamp: time.Now(),
		},
		RFPID:    b.RFPID,
		BidID:    bidID,
		Decision: decision,
	}
	if err := s.eventPublisher.PublishBidDecided(ctx, event); err != nil {
		s.logger.Error("Failed to publish BidDecided event", zap.Error(err))
	}

	b.Status = decision
	return b, nil
}
