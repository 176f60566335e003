package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"skillglide/common/telemetry"
	"skillglide/services/jobboard/internal/events"
)

var tracer = telemetry.GetTracer("skillglide/jobboard/scheduler")

// RefreshScheduler refetches the listing once at start and then on every
// interval tick until its context ends or Stop is called.
type RefreshScheduler struct {
	refetcher events.Refetcher
	logger    *zap.Logger
	interval  time.Duration

	mutex    sync.Mutex
	isActive bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRefreshScheduler(refetcher events.Refetcher, logger *zap.Logger, interval time.Duration) *RefreshScheduler {
	return &RefreshScheduler{
		refetcher: refetcher,
		logger:    logger,
		interval:  interval,
	}
}

// Start blocks until ctx is done or Stop is called. A non-positive interval
// performs only the initial fetch. Start after Stop returns immediately.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.stopped {
		s.mutex.Unlock()
		return context.Canceled
	}
	if s.isActive {
		s.mutex.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.isActive = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mutex.Unlock()

	defer func() {
		cancel()
		s.mutex.Lock()
		s.isActive = false
		s.mutex.Unlock()
		close(done)
	}()

	s.refresh(ctx, "initial")

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx, "periodic")
		}
	}
}

// Stop cancels a running Start and waits for it to return.
func (s *RefreshScheduler) Stop() {
	s.mutex.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *RefreshScheduler) refresh(ctx context.Context, kind string) {
	ctx, span := tracer.Start(ctx, "RefreshScheduler.refresh")
	defer span.End()
	span.SetAttributes(telemetry.String("refresh.kind", kind))

	if err := s.refetcher.Refetch(ctx); err != nil {
		span.RecordError(err)
		s.logger.Error(kind+" refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug(kind + " refresh completed")
}
