package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

// --- mock types ---

// mockJetStream records published messages.
type mockJetStream struct {
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream"}, nil
}

// --- helper ---

func newTestPublisher(fail bool) (*Publisher, *mockJetStream) {
	js := &mockJetStream{fail: fail}
	return &Publisher{
		js:      js,
		subject: "evt.bankin.report.collected.v1",
		service: "bankin-collector",
		logger:  zap.NewNop(),
	}, js
}

// --- tests ---

func TestPublishEnvelope_Success(t *testing.T) {
	pub, js := newTestPublisher(false)
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Topic:         "evt.custom.v1",
		EventType:     "custom.event",
		Version:       "1.0.0",
		Timestamp:     time.Now(),
		Payload:       json.RawMessage(`{"hello":"world"}`),
	}

	require.NoError(t, pub.PublishEnvelope(context.Background(), "evt.custom.v1", env))
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, "evt.custom.v1", msg.Subject)
	assert.Equal(t, "custom.event", msg.Header.Get("event_type"))
	assert.Equal(t, env.CorrelationID.String(), msg.Header.Get("correlation_id"))
	assert.Equal(t, env.ID.String(), msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "bankin-collector", msg.Header.Get("service"))

	var parsed model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &parsed))
	assert.JSONEq(t, `{"hello":"world"}`, string(parsed.Payload))
}

func TestPublishEnvelope_DefaultSubject(t *testing.T) {
	pub, js := newTestPublisher(false)

	require.NoError(t, pub.PublishEnvelope(context.Background(), "", &model.Envelope{ID: uuid.New()}))
	require.Len(t, js.published, 1)
	assert.Equal(t, "evt.bankin.report.collected.v1", js.published[0].Subject)
}

func TestPublishEnvelope_Failure(t *testing.T) {
	pub, _ := newTestPublisher(true)

	err := pub.PublishEnvelope(context.Background(), "evt.custom.v1", &model.Envelope{ID: uuid.New()})
	assert.Error(t, err)
}

func TestPublishReportCollected(t *testing.T) {
	pub, js := newTestPublisher(false)
	runID := uuid.New()
	res := &model.RunResult{
		Report: model.Report{{
			AccNumber:    "A1",
			Amount:       decimal.NewFromInt(100),
			Transactions: []model.TransactionRecord{},
		}},
		Summary: model.RunSummary{RunID: runID, Accounts: 1, FailedAccounts: []string{}},
	}

	require.NoError(t, pub.PublishReportCollected(context.Background(), res))
	require.Len(t, js.published, 1)

	var env model.Envelope
	require.NoError(t, json.Unmarshal(js.published[0].Data, &env))
	assert.Equal(t, EventReportCollected, env.EventType)
	assert.Equal(t, runID, env.CorrelationID)
	assert.Equal(t, "evt.bankin.report.collected.v1", env.Topic)
	assert.Equal(t, "1.0.0", env.Version)

	var payload ReportCollected
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, runID, payload.Summary.RunID)
	require.Len(t, payload.Report, 1)
	assert.Equal(t, "A1", payload.Report[0].AccNumber)
	assert.True(t, payload.Report[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestClose_NilConnection(t *testing.T) {
	pub, _ := newTestPublisher(false)
	assert.NotPanics(t, func() {
		assert.NoError(t, pub.Close())
	})
}
