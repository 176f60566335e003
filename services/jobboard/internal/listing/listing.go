package listing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"skillglide/common/telemetry"
	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/filter"
	"skillglide/services/jobboard/internal/metrics"
	"skillglide/services/jobboard/internal/models"
)

var tracer = telemetry.GetTracer("skillglide/jobboard/listing")

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// Fetcher is the part of the jobs gateway the listing needs.
type Fetcher interface {
	FetchJobs(ctx context.Context, filters *models.FilterSpecification) ([]models.JobPosting, error)
}

// View is a consistent snapshot of the listing. Empty and Failed are never
// both set: a failed fetch is reported through State and Error only.
type View struct {
	State         State                      `json:"state"`
	Jobs          []models.JobPosting        `json:"jobs"`
	Total         int                        `json:"total"`
	Visible       int                        `json:"visible"`
	Empty         bool                       `json:"empty"`
	Error         string                     `json:"error,omitempty"`
	Retryable     bool                       `json:"retryable"`
	Filters       models.FilterSpecification `json:"filters"`
	ActiveFilters int                        `json:"active_filters"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

type Option func(*Listing)

// WithServerSideFilters passes the current filters to the backend as a
// narrowing hint and refetches when they change. Results are still evaluated
// locally.
func WithServerSideFilters(enabled bool) Option {
	return func(l *Listing) { l.serverSide = enabled }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Listing) { l.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(l *Listing) { l.now = now }
}

// Listing owns the fetched job collection and the filtered view derived
// from it and the filter store.
type Listing struct {
	fetcher    Fetcher
	store      *filter.Store
	logger     *zap.Logger
	metrics    *metrics.Metrics
	serverSide bool
	now        func() time.Time

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu        sync.RWMutex
	gen       uint64
	state     State
	jobs      []models.JobPosting
	visible   []models.JobPosting
	filters   models.FilterSpecification
	errMsg    string
	updatedAt time.Time
}

func New(fetcher Fetcher, store *filter.Store, logger *zap.Logger, opts ...Option) *Listing {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listing{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
		jobs:    []models.JobPosting{},
		visible: []models.JobPosting{},
		filters: store.Current(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.unsubscribe = store.Subscribe(l.onFiltersChanged)
	return l
}

// Refetch replaces the job collection with a fresh backend read. Only the
// most recent call may update the view; responses from superseded calls,
// or arriving after Close, are discarded.
func (l *Listing) Refetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Listing.Refetch")
	defer span.End()

	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		return errors.Unavailable("listing closed", l.ctx.Err())
	}
	l.gen++
	gen := l.gen
	l.state = StateLoading
	l.mu.Unlock()

	var hint *models.FilterSpecification
	if l.serverSide {
		current := l.store.Current()
		hint = &current
	}

	// Tie the request to the listing's lifetime as well as the caller's.
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-l.ctx.Done():
			stop()
		case <-ctx.Done():
		}
	}()

	jobs, err := l.fetcher.FetchJobs(ctx, hint)
	if jobs == nil {
		jobs = []models.JobPosting{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen || l.ctx.Err() != nil {
		l.logger.Debug("discarding stale job fetch", zap.Uint64("generation", gen))
		return nil
	}

	l.updatedAt = l.now()
	if err != nil {
		span.RecordError(err)
		l.state = StateFailed
		l.jobs = []models.JobPosting{}
		l.visible = []models.JobPosting{}
		l.errMsg = errors.UserMessage(err)
		l.metrics.SetJobCounts(0, 0)
		l.logger.Warn("job listing failed to load", zap.Error(err))
		return err
	}

	l.state = StateLoaded
	l.errMsg = ""
	l.jobs = jobs
	l.recomputeLocked(l.store.Current())
	span.SetAttributes(
		telemetry.Int("jobs.fetched", len(l.jobs)),
		telemetry.Int("jobs.visible", len(l.visible)),
	)
	return nil
}

func (l *Listing) View() View {
	l.mu.RLock()
	defer l.mu.RUnlock()

	jobs := make([]models.JobPosting, len(l.visible))
	copy(jobs, l.visible)

	return View{
		State:         l.state,
		Jobs:          jobs,
		Total:         len(l.jobs),
		Visible:       len(l.visible),
		Empty:         l.state == StateLoaded && len(l.visible) == 0,
		Error:         l.errMsg,
		Retryable:     l.state == StateFailed,
		Filters:       l.filters.Clone(),
		ActiveFilters: l.filters.ActiveCount(),
		UpdatedAt:     l.updatedAt,
	}
}

// Jobs returns the unfiltered collection from the last successful fetch.
func (l *Listing) Jobs() []models.JobPosting {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.JobPosting, len(l.jobs))
	copy(out, l.jobs)
	return out
}

// Close stops listening for filter changes and abandons in-flight fetches.
func (l *Listing) Close() {
	l.unsubscribe()
	l.cancel()
}

// onFiltersChanged reads the store again under l.mu instead of trusting the
// notified value: notifications from concurrent mutations can arrive out of
// order, and the last recompute must reflect the store's latest state.
func (l *Listing) onFiltersChanged(models.FilterSpecification) {
	l.mu.Lock()
	l.recomputeLocked(l.store.Current())
	l.mu.Unlock()

	if l.serverSide && l.ctx.Err() == nil {
		go func() {
			if err := l.Refetch(l.ctx); err != nil {
				l.logger.Debug("refetch after filter change failed", zap.Error(err))
			}
		}()
	}
}

func (l *Listing) recomputeLocked(f models.FilterSpecification) {
	l.filters = f
	if l.state == StateFailed {
		return
	}
	l.visible = filter.EvaluateAt(l.jobs, f, l.now())
	l.metrics.SetJobCounts(len(l.jobs), len(l.visible))
}
