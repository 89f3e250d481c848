package models

import "time"

// Event types
const (
	EventTypeRFPSubmitted = "RFP_SUBMITTED"
	EventTypeBidReady     = "BID_READY"
	EventTypeRunNoBid     = "RUN_NO_BID"
	EventTypeRunFailed    = "RUN_FAILED"
	EventTypeBidDecided   = "BID_DECIDED"
	EventTypeTraceEmitted = "TRACE_EMITTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// RFPSubmittedEvent published when a new RFP enters the system
type RFPSubmittedEvent struct {
	BaseEvent
	RFPID  string `json:"rfp_id"`
	Client string `json:"client"`
}

// BidReadyEvent published when a run produced a bid awaiting approval
type BidReadyEvent struct {
	BaseEvent
	RFPID      string `json:"rfp_id"`
	RunID      string `json:"run_id"`
	BidID      string `json:"bid_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	Total      string `json:"total"`
	Confidence int    `json:"confidence"`
}

// RunNoBidEvent published when a run terminated without a viable match
type RunNoBidEvent struct {
	BaseEvent
	RFPID  string `json:"rfp_id"`
	RunID  string `json:"run_id"`
	Reason string `json:"reason"`
}

// RunFailedEvent published when a run hit an unrecoverable error
type RunFailedEvent struct {
	BaseEvent
	RFPID  string `json:"rfp_id"`
	RunID  string `json:"run_id"`
	Reason string `json:"reason"`
}

// BidDecidedEvent published when a human approved or rejected a bid
type BidDecidedEvent struct {
	BaseEvent
	RFPID    string `json:"rfp_id"`
	BidID    string `json:"bid_id"`
	Decision string `json:"decision"`
}

// TraceEmittedEvent fans a single trace event out to external trace consumers.
// The payload format is versioned; bump Version on incompatible changes.
type TraceEmittedEvent struct {
	BaseEvent
	Version    int       `json:"version"`
	RunID      string    `json:"run_id"`
	RFPID      string    `json:"rfp_id"`
	Agent      AgentRole `json:"agent"`
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recorded_at"`
}
