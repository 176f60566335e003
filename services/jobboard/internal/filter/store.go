package filter

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/metrics"
	"skillglide/services/jobboard/internal/models"
)

// Listener receives the filter state after a change.
type Listener func(models.FilterSpecification)

// Store is the single source of truth for the current filter criteria.
// Reads always see the latest mutation. Listener notification for search
// text is debounced; every other mutation notifies immediately.
type Store struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	debounce *Debouncer

	mu        sync.RWMutex
	filters   models.FilterSpecification
	listeners map[uint64]Listener
	nextID    uint64
}

func NewStore(logger *zap.Logger, searchDebounce time.Duration, m *metrics.Metrics) *Store {
	return &Store{
		logger:    logger,
		metrics:   m,
		debounce:  NewDebouncer(searchDebounce),
		listeners: make(map[uint64]Listener),
	}
}

// Current returns a copy of the filter state.
func (s *Store) Current() models.FilterSpecification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.Clone()
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.ActiveCount()
}

// UpdateFilters shallow-merges patch into the current state.
func (s *Store) UpdateFilters(patch models.FilterPatch) models.FilterSpecification {
	next := s.set(func(cur models.FilterSpecification) models.FilterSpecification {
		return patch.Apply(cur)
	})
	s.metrics.FilterChanged("update")
	s.notifyNow(next)
	return next
}

func (s *Store) ClearFilters() models.FilterSpecification {
	next := s.set(func(models.FilterSpecification) models.FilterSpecification {
		return models.FilterSpecification{}
	})
	s.metrics.FilterChanged("clear")
	s.logger.Debug("filters cleared")
	s.notifyNow(next)
	return next
}

// ToggleMembership adds value to a set-valued dimension if absent and
// removes it if present.
func (s *Store) ToggleMembership(field models.Field, value string) (models.FilterSpecification, error) {
	if !field.IsSet() {
		return s.Current(), errors.InvalidInput(fmt.Sprintf("%q is not a multi-select filter", field), nil)
	}
	next := s.set(func(cur models.FilterSpecification) models.FilterSpecification {
		out, _ := cur.Toggle(field, value)
		return out
	})
	s.metrics.FilterChanged("toggle")
	s.notifyNow(next)
	return next, nil
}

// Search sets the free-text search. The new text is readable immediately;
// listeners hear about it once typing pauses.
func (s *Store) Search(text string) models.FilterSpecification {
	next := s.set(func(cur models.FilterSpecification) models.FilterSpecification {
		return models.FilterPatch{Search: &text}.Apply(cur)
	})
	s.metrics.FilterChanged("search")
	s.debounce.Trigger(func() { s.notify(s.Current()) })
	return next
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) Close() {
	s.debounce.Stop()
}

func (s *Store) set(mutate func(models.FilterSpecification) models.FilterSpecification) models.FilterSpecification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = mutate(s.filters)
	return s.filters.Clone()
}

// notifyNow supersedes any pending debounced notification, since the state
// it carries already includes the latest search text.
func (s *Store) notifyNow(f models.FilterSpecification) {
	s.debounce.Cancel()
	s.notify(f)
}

func (s *Store) notify(f models.FilterSpecification) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(f.Clone())
	}
}
