package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/metrics"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

const (
	EventReportCollected = "bankin.report.collected"
	envelopeVersion      = "1.0.0"
)

// jetStream is the subset of nats.JetStreamContext the publisher needs.
type jetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      jetStream
	subject string
	service string
	logger  *zap.Logger
}

// ReportCollected is the payload of a bankin.report.collected event.
type ReportCollected struct {
	Summary model.RunSummary `json:"summary"`
	Report  model.Report     `json:"report"`
}

// New creates a new Publisher with JetStream enabled.
func New(nc *nats.Conn, subject, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
		logger:  logger,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
// An empty subject falls back to the publisher's default subject.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if subject == "" {
		subject = p.subject
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			nats.MsgIdHdr:    []string{env.ID.String()},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
		zap.String("id", env.ID.String()))
	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishReportCollected emits a bankin.report.collected event for a finished run.
// The run id is used as the correlation id.
func (p *Publisher) PublishReportCollected(ctx context.Context, res *model.RunResult) error {
	payload, err := json.Marshal(ReportCollected{Summary: res.Summary, Report: res.Report})
	if err != nil {
		metrics.IncNATSMessage(p.subject, "error")
		return err
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: res.Summary.RunID,
		Topic:         p.subject,
		EventType:     EventReportCollected,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
	return p.PublishEnvelope(ctx, p.subject, env)
}

// Close drains the underlying connection so pending publishes are flushed
// before it closes.
func (p *Publisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() {
		return nil
	}
	return p.nc.Drain()
}
