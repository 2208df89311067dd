package cache

import (
	"sync"
	"time"

	"github.com/NasaVasa/pricewatch/internal/infra/metrics"
	"go.uber.org/zap"
)

type State int

const (
	StateAvailable State = iota
	StateUnavailable
)

func (s State) String() string {
	if s == StateAvailable {
		return "available"
	}
	return "unavailable"
}

// availability tracks whether the remote backend should be used.
// transition is the only mutation point for state.
type availability struct {
	mu        sync.Mutex
	state     State
	since     time.Time
	lastProbe time.Time
	recheck   time.Duration
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Collectors
}

func newAvailability(recheck time.Duration, now func() time.Time, logger *zap.Logger, m *metrics.Collectors) *availability {
	a := &availability{
		state:   StateAvailable,
		since:   now(),
		recheck: recheck,
		now:     now,
		logger:  logger,
		metrics: m,
	}
	m.CacheRemoteAvailable(true)
	return a
}

func (a *availability) current() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// transition moves to the target state and reports whether the state changed.
// Repeated transitions to the current state are no-ops.
func (a *availability) transition(to State, reason error) bool {
	a.mu.Lock()
	if a.state == to {
		a.mu.Unlock()
		return false
	}
	from := a.state
	now := a.now()
	downFor := now.Sub(a.since)
	a.state = to
	a.since = now
	if to == StateUnavailable {
		a.lastProbe = now
	}
	a.mu.Unlock()

	a.metrics.CacheRemoteAvailable(to == StateAvailable)
	if to == StateUnavailable {
		a.logger.Warn("cache remote unavailable, using in-memory fallback", zap.Stringer("from", from), zap.Error(reason))
	} else {
		a.logger.Info("cache remote available", zap.Stringer("from", from), zap.Duration("outage", downFor))
	}
	return true
}

// claimProbe reports whether the caller should probe the remote now. At most one
// caller per recheck interval wins the claim while the backend is unavailable.
func (a *availability) claimProbe() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateAvailable {
		return false
	}
	now := a.now()
	if now.Sub(a.lastProbe) < a.recheck {
		return false
	}
	a.lastProbe = now
	return true
}
