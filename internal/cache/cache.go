// Package cache memoizes the pipeline's DatasetBundle for a bounded TTL.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
)

// DefaultTTL matches the source's at-most-daily update cadence.
const DefaultTTL = 6 * time.Hour

// Pipeline produces a fresh DatasetBundle.
type Pipeline interface {
	Run(ctx context.Context) (*domain.DatasetBundle, error)
}

// Snapshot is a process-wide TTL cache around the pipeline. The clock is
// injected so tests can freeze time.
//
// Concurrent callers that observe an expired cache share a single pipeline
// run via singleflight — the mutex is held only to read or swap the bundle,
// never across the run itself.
type Snapshot struct {
	pipeline Pipeline
	ttl      time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu          sync.RWMutex
	bundle      *domain.DatasetBundle
	refreshedAt time.Time

	group singleflight.Group
}

// New creates a Snapshot cache with the given pipeline, TTL, and clock.
func New(p Pipeline, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Snapshot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Snapshot{
		pipeline: p,
		ttl:      ttl,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Get returns the cached bundle while it is within the TTL, refreshing it
// through the pipeline otherwise.
//
// A failed refresh preserves the previously cached bundle and returns the
// refresh error — stale data is never served silently past its TTL; callers
// that want it anyway must opt in via [Snapshot.Last].
func (s *Snapshot) Get(ctx context.Context) (*domain.DatasetBundle, error) {
	s.mu.RLock()
	if s.fresh() {
		bundle := s.bundle
		s.mu.RUnlock()
		s.metrics.CacheRequests.WithLabelValues("hit").Inc()
		return bundle, nil
	}
	expired := s.bundle != nil
	s.mu.RUnlock()

	if expired {
		s.metrics.CacheRequests.WithLabelValues("expired").Inc()
	} else {
		s.metrics.CacheRequests.WithLabelValues("empty").Inc()
	}
	return s.refresh(ctx)
}

// Refresh forces a pipeline run regardless of freshness. Concurrent calls
// still collapse into a single run.
func (s *Snapshot) Refresh(ctx context.Context) (*domain.DatasetBundle, error) {
	s.mu.Lock()
	s.refreshedAt = time.Time{}
	s.mu.Unlock()
	return s.refresh(ctx)
}

// Invalidate clears the stored bundle and timestamp immediately.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.bundle = nil
	s.refreshedAt = time.Time{}
	s.mu.Unlock()
	s.logger.Info("dataset cache invalidated")
}

// Last returns the most recently cached bundle and its refresh time, fresh or
// not, without triggering a refresh.
func (s *Snapshot) Last() (*domain.DatasetBundle, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil {
		return nil, time.Time{}, false
	}
	return s.bundle, s.refreshedAt, true
}

// CheckReadiness returns nil once at least one refresh has succeeded.
func (s *Snapshot) CheckReadiness(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bundle == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

func (s *Snapshot) refresh(ctx context.Context) (*domain.DatasetBundle, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		// Another caller may have refreshed while we waited on the flight.
		s.mu.RLock()
		if s.fresh() {
			bundle := s.bundle
			s.mu.RUnlock()
			return bundle, nil
		}
		s.mu.RUnlock()

		bundle, err := s.pipeline.Run(ctx)
		if err != nil {
			s.logger.Error("dataset refresh failed", "error", err)
			return nil, err
		}

		now := s.clock.Now()
		s.mu.Lock()
		s.bundle = bundle
		s.refreshedAt = now
		s.mu.Unlock()

		s.metrics.LastRefreshTime.Set(float64(now.Unix()))
		s.logger.Info("dataset refreshed", "ttl", s.ttl, "countries", len(bundle.Countries))
		return bundle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.DatasetBundle), nil
}

// fresh reports whether the stored bundle is within the TTL. Callers must
// hold at least a read lock.
func (s *Snapshot) fresh() bool {
	return s.bundle != nil && s.clock.Now().Sub(s.refreshedAt) < s.ttl
}
