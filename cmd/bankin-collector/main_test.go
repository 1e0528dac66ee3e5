package main

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/metrics"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

type fakeStore struct {
	healthErr error
	latest    *model.RunResult
	latestErr error
	saveErr   error

	saved  []*model.RunResult
	calls  []string
	closed bool
}

func (f *fakeStore) SaveReport(_ context.Context, res *model.RunResult) error {
	f.calls = append(f.calls, "save")
	f.saved = append(f.saved, res)
	return f.saveErr
}

func (f *fakeStore) LatestReport(context.Context) (*model.RunResult, error) {
	f.calls = append(f.calls, "latest")
	return f.latest, f.latestErr
}

func (f *fakeStore) HealthCheck(context.Context) error {
	f.calls = append(f.calls, "health")
	return f.healthErr
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func sampleRun() *model.RunResult {
	return &model.RunResult{
		Report:  model.Report{},
		Summary: model.RunSummary{RunID: uuid.New(), FailedAccounts: []string{}},
	}
}

func TestPersist_ChecksHealthBeforeSaving(t *testing.T) {
	st := &fakeStore{latest: sampleRun()}
	res := sampleRun()

	persist(context.Background(), st, zap.NewNop(), res)

	assert.Equal(t, []string{"health", "latest", "save"}, st.calls)
	assert.Equal(t, []*model.RunResult{res}, st.saved)
	assert.True(t, st.closed)
}

func TestPersist_UnhealthyStoreSkipsSave(t *testing.T) {
	st := &fakeStore{healthErr: errors.New("redis ping failed")}
	before := testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("store"))

	persist(context.Background(), st, zap.NewNop(), sampleRun())

	assert.Equal(t, []string{"health"}, st.calls)
	assert.Empty(t, st.saved)
	assert.True(t, st.closed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("store")))
}

func TestPersist_PreviousRunUnavailableStillSaves(t *testing.T) {
	st := &fakeStore{latestErr: errors.New("redis not initialized")}

	persist(context.Background(), st, zap.NewNop(), sampleRun())

	assert.Len(t, st.saved, 1)
	assert.True(t, st.closed)
}

func TestPersist_SaveFailureIsNotFatal(t *testing.T) {
	st := &fakeStore{saveErr: errors.New("insert report snapshot: boom")}

	assert.NotPanics(t, func() {
		persist(context.Background(), st, zap.NewNop(), sampleRun())
	})
	assert.True(t, st.closed)
}
