package pipeline

import (
	"sync"
	"time"

	"rfp-service/internal/models"
)

// Recorder is the append-only trace log for pipeline runs. Timestamps are
// strictly monotonic within one run, and Events replays a run's trail any
// number of times. Safe for concurrent runs; each run has its own sequence.
type Recorder struct {
	mu    sync.Mutex
	clock func() time.Time
	runs  map[string][]models.TraceEvent
	last  map[string]time.Time
}

// NewRecorder creates a trace recorder using the wall clock.
func NewRecorder() *Recorder {
	return &Recorder{
		clock: time.Now,
		runs:  make(map[string][]models.TraceEvent),
		last:  make(map[string]time.Time),
	}
}

// Record appends an attributed event to the run's trail and returns it.
func (r *Recorder) Record(runID, rfpID string, agent models.AgentRole, message string) models.TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.clock()
	if prev, ok := r.last[runID]; ok && !ts.After(prev) {
		ts = prev.Add(time.Nanosecond)
	}
	r.last[runID] = ts

	event := models.TraceEvent{
		RunID:      runID,
		RFPID:      rfpID,
		Agent:      agent,
		Message:    message,
		RecordedAt: ts,
	}
	r.runs[runID] = append(r.runs[runID], event)
	return event
}

// Events returns a copy of the run's ordered trail.
func (r *Recorder) Events(runID string) []models.TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.runs[runID]
	out := make([]models.TraceEvent, len(events))
	copy(out, events)
	return out
}

// Drop discards a run's trail once it has been persisted elsewhere.
func (r *Recorder) Drop(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
	delete(r.last, runID)
}
