package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"skillglide/common/telemetry"
	"skillglide/services/jobboard/internal/config"
	"skillglide/services/jobboard/internal/errors"
)

var tracer = telemetry.GetTracer("skillglide/jobboard/events")

const (
	JobDeletedSubject = "jobs.deleted"
	JobChangedSubject = "jobs.changed"
)

type JobDeletedEvent struct {
	ID        string    `json:"id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Publisher announces employer actions so other instances can refetch.
type Publisher interface {
	PublishJobDeleted(ctx context.Context, id string) error
}

// Refetcher is anything that can reload its job collection.
type Refetcher interface {
	Refetch(ctx context.Context) error
}

func Connect(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name(cfg.ServiceName),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}
	return nc, nil
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(conn *nats.Conn, logger *zap.Logger) Publisher {
	return &natsPublisher{conn: conn, logger: logger}
}

func (p *natsPublisher) PublishJobDeleted(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "PublishJobDeleted")
	defer span.End()

	data, err := json.Marshal(JobDeletedEvent{ID: id, DeletedAt: time.Now().UTC()})
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", JobDeletedSubject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(JobDeletedSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish job deletion",
			zap.String("id", id),
			zap.Error(err))
		return errors.Unavailable("publishing event", err)
	}

	p.logger.Debug("published job deletion",
		zap.String("id", id),
		zap.String("subject", JobDeletedSubject))
	return nil
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) PublishJobDeleted(context.Context, string) error { return nil }

// Handler refetches the listing whenever another instance reports a change
// to the job collection.
type Handler struct {
	logger    *zap.Logger
	nc        *nats.Conn
	refetcher Refetcher
	timeout   time.Duration
	subs      []*nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, refetcher Refetcher, cfg *config.Config) *Handler {
	return &Handler{
		logger:    logger,
		nc:        nc,
		refetcher: refetcher,
		timeout:   cfg.APITimeout,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	for _, subject := range []string{JobChangedSubject, JobDeletedSubject} {
		sub, err := h.nc.Subscribe(subject, h.handleChange)
		if err != nil {
			return errors.Unavailable("subscribe to "+subject, err)
		}
		h.subs = append(h.subs, sub)
	}

	h.logger.Info("registered NATS subscriptions",
		zap.Strings("subjects", []string{JobChangedSubject, JobDeletedSubject}))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			for _, sub := range h.subs {
				if err := sub.Unsubscribe(); err != nil {
					h.logger.Warn("failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
				}
			}
			return nil
		},
	})

	return nil
}

func (h *Handler) handleChange(msg *nats.Msg) {
	h.process(msg.Subject)
}

func (h *Handler) process(subject string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "handleChange")
	defer span.End()
	span.SetAttributes(telemetry.String("nats.subject", subject))

	if err := h.refetcher.Refetch(ctx); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to refetch after change event",
			zap.String("subject", subject),
			zap.Error(err))
		return
	}

	h.logger.Info("refetched jobs after change event", zap.String("subject", subject))
}
