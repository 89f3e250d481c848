package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-service/internal/models"
	"rfp-service/internal/pipeline"
)

type stubStore struct {
	createBidErr  error
	createRunErr  error
	traceErr      error
	statusUpdates []string
	bidsStored    int
	runsStored    int
	tracesStored  int
}

func (s *stubStore) CreateRFP(ctx context.Context, rfp *models.RFP) error { return nil }
func (s *stubStore) GetRFPByID(ctx context.Context, id string) (*models.RFP, error) {
	return nil, errors.New("not found")
}
func (s *stubStore) UpdateRFPStatus(ctx context.Context, rfpID, status string) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}
func (s *stubStore) CreateBid(ctx context.Context, bid *models.Bid) error {
	if s.createBidErr != nil {
		return s.createBidErr
	}
	s.bidsStored++
	return nil
}
func (s *stubStore) GetBidByID(ctx context.Context, id string) (*models.Bid, error) {
	return nil, errors.New("not found")
}
func (s *stubStore) GetBidByRFPID(ctx context.Context, rfpID string) (*models.Bid, error) {
	return nil, errors.New("not found")
}
func (s *stubStore) UpdateBidStatus(ctx context.Context, bidID, status string) error { return nil }
func (s *stubStore) CreatePipelineRun(ctx context.Context, run *models.PipelineRun) error {
	if s.createRunErr != nil {
		return s.createRunErr
	}
	s.runsStored++
	return nil
}
func (s *stubStore) GetLatestRunByRFPID(ctx context.Context, rfpID string) (*models.PipelineRun, error) {
	return nil, errors.New("not found")
}
func (s *stubStore) CreateTraceEvents(ctx context.Context, events []models.TraceEvent) error {
	if s.traceErr != nil {
		return s.traceErr
	}
	s.tracesStored += len(events)
	return nil
}
func (s *stubStore) GetTraceEventsByRunID(ctx context.Context, runID string) ([]models.TraceEvent, error) {
	return nil, nil
}

func newPersistFixture(stub *stubStore) (*RFPService, *pipeline.Recorder) {
	recorder := pipeline.NewRecorder()
	orch := pipeline.NewOrchestrator(nil, nil, nil, nil, nil, nil, recorder, 0)
	return NewRFPService(stub, nil, nil, orch), recorder
}

func assembledResult(runID string) *pipeline.Result {
	return &pipeline.Result{
		RunID: runID,
		State: models.RunStateAssembled,
		Bid:   &models.Bid{ID: "bid-1", RFPID: "rfp-1"},
	}
}

func TestPersistRunRevertsStatusWhenBidStoreFails(t *testing.T) {
	stub := &stubStore{createBidErr: errors.New("insert failed")}
	svc, recorder := newPersistFixture(stub)
	recorder.Record("run-1", "rfp-1", models.AgentIntake, "extracted")

	rfp := &models.RFP{ID: "rfp-1", Status: models.RFPStatusProcessing}
	err := svc.persistRun(context.Background(), rfp, assembledResult("run-1"), time.Now())

	require.Error(t, err)
	// the RFP must not stick in processing
	require.NotEmpty(t, stub.statusUpdates)
	assert.Equal(t, models.RFPStatusPending, stub.statusUpdates[len(stub.statusUpdates)-1])
	// the in-memory trail is released even on failure
	assert.Empty(t, recorder.Events("run-1"))
}

func TestPersistRunRevertsStatusWhenRunStoreFails(t *testing.T) {
	stub := &stubStore{createRunErr: errors.New("insert failed")}
	svc, recorder := newPersistFixture(stub)
	recorder.Record("run-1", "rfp-1", models.AgentIntake, "extracted")
	recorder.Record("run-1", "rfp-1", models.AgentTechnical, "no match")

	rfp := &models.RFP{ID: "rfp-1", Status: models.RFPStatusProcessing}
	result := &pipeline.Result{RunID: "run-1", State: models.RunStateNoBid, FailReason: "no match"}
	err := svc.persistRun(context.Background(), rfp, result, time.Now())

	require.Error(t, err)
	require.NotEmpty(t, stub.statusUpdates)
	assert.Equal(t, models.RFPStatusPending, stub.statusUpdates[len(stub.statusUpdates)-1])
	assert.Empty(t, recorder.Events("run-1"))
}

func TestPersistRunStoresEverythingOnSuccess(t *testing.T) {
	stub := &stubStore{}
	svc, recorder := newPersistFixture(stub)

	rfp := &models.RFP{ID: "rfp-1", Status: models.RFPStatusProcessing}
	err := svc.persistRun(context.Background(), rfp, assembledResult("run-1"), time.Now())

	require.NoError(t, err)
	assert.Equal(t, 1, stub.bidsStored)
	assert.Equal(t, 1, stub.runsStored)
	require.NotEmpty(t, stub.statusUpdates)
	assert.Equal(t, models.RFPStatusBidReady, stub.statusUpdates[len(stub.statusUpdates)-1])
	assert.Empty(t, recorder.Events("run-1"))
}
