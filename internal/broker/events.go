package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"rfp-service/internal/models"
	"rfp-service/internal/util"
)

// EventPublisher handles publishing RFP lifecycle events and fanning trace
// events out to external trace consumers.
type EventPublisher struct {
	lifecycle *Producer
	trace     *Producer
}

// NewEventPublisher creates a new event publisher. trace may equal lifecycle
// when a single topic carries everything.
func NewEventPublisher(lifecycle, trace *Producer) *EventPublisher {
	return &EventPublisher{lifecycle: lifecycle, trace: trace}
}

// PublishRFPSubmitted publishes an RFPSubmitted event
func (ep *EventPublisher) PublishRFPSubmitted(ctx context.Context, event *models.RFPSubmittedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, rfpKey(event.RFPID), event)
}

// PublishBidReady publishes a BidReady event
func (ep *EventPublisher) PublishBidReady(ctx context.Context, event *models.BidReadyEvent) error {
	return ep.lifecycle.PublishEvent(ctx, rfpKey(event.RFPID), event)
}

// PublishRunNoBid publishes a RunNoBid event
func (ep *EventPublisher) PublishRunNoBid(ctx context.Context, event *models.RunNoBidEvent) error {
	return ep.lifecycle.PublishEvent(ctx, rfpKey(event.RFPID), event)
}

// PublishRunFailed publishes a RunFailed event
func (ep *EventPublisher) PublishRunFailed(ctx context.Context, event *models.RunFailedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, rfpKey(event.RFPID), event)
}

// PublishBidDecided publishes a BidDecided event
func (ep *EventPublisher) PublishBidDecided(ctx context.Context, event *models.BidDecidedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, rfpKey(event.RFPID), event)
}

// PublishTrace fans a single trace event out on the trace topic. Keyed by
// run ID so one run's trail stays ordered within a partition.
func (ep *EventPublisher) PublishTrace(ctx context.Context, event *models.TraceEmittedEvent) error {
	return ep.trace.PublishEvent(ctx, fmt.Sprintf("run-%s", event.RunID), event)
}

func rfpKey(rfpID string) string {
	return fmt.Sprintf("rfp-%s", rfpID)
}

// EventHandler routes incoming lifecycle events to registered handlers
type EventHandler struct {
	onRFPSubmitted func(context.Context, *models.RFPSubmittedEvent) error
	onBidDecided   func(context.Context, *models.BidDecidedEvent) error
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnRFPSubmitted registers a handler for RFPSubmitted events
func (eh *EventHandler) OnRFPSubmitted(handler func(context.Context, *models.RFPSubmittedEvent) error) {
	eh.onRFPSubmitted = handler
}

// OnBidDecided registers a handler for BidDecided events
func (eh *EventHandler) OnBidDecided(handler func(context.Context, *models.BidDecidedEvent) error) {
	eh.onBidDecided = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeRFPSubmitted:
		if eh.onRFPSubmitted != nil {
			var event models.RFPSubmittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal RFPSubmitted event: %w", err)
			}
			return eh.onRFPSubmitted(ctx, &event)
		}

	case models.EventTypeBidDecided:
		if eh.onBidDecided != nil {
			var event models.BidDecidedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BidDecided event: %w", err)
			}
			return eh.onBidDecided(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
