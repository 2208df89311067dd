package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NasaVasa/pricewatch/internal/infra/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	backendRemote = "redis"
	backendMemory = "memory"

	defaultRecheckInterval = 5 * time.Second
)

// Resilient routes every operation to the remote store while it is available and
// to the in-memory store otherwise. Remote failures flip the backend to
// unavailable and the operation is replayed against memory, so callers never see
// availability errors. While unavailable, the remote is probed at most once per
// recheck interval and used again as soon as a probe succeeds.
//
// Entries written to memory during an outage shadow the remote copy until the
// key is written remotely again. Keys deleted during an outage are remembered
// and deleted remotely once the remote is back.
type Resilient struct {
	remote  RemoteStore
	local   *MemoryStore
	state   *availability
	logger  *zap.Logger
	metrics *metrics.Collectors

	recheck time.Duration
	now     func() time.Time

	mu      sync.Mutex
	deleted map[string]struct{}
}

type Option func(*Resilient)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resilient) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(r *Resilient) {
		r.metrics = m
	}
}

func WithRecheckInterval(d time.Duration) Option {
	return func(r *Resilient) {
		if d > 0 {
			r.recheck = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resilient) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResilient composes the remote and fallback stores. remote may be nil, in
// which case every operation is served from memory.
func NewResilient(remote RemoteStore, local *MemoryStore, opts ...Option) *Resilient {
	r := &Resilient{
		remote:  remote,
		local:   local,
		logger:  zap.NewNop(),
		recheck: defaultRecheckInterval,
		now:     time.Now,
		deleted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.local == nil {
		r.local = NewMemoryStore()
	}
	r.state = newAvailability(r.recheck, r.now, r.logger, r.metrics)

	if notifier, ok := remote.(ConnectionNotifier); ok {
		notifier.OnConnectionEvent(
			func() { r.state.transition(StateAvailable, nil) },
			func(err error) { r.state.transition(StateUnavailable, err) },
		)
	}
	return r
}

// State reports the remote backend state. Without a remote it is always unavailable.
func (r *Resilient) State() State {
	if r.remote == nil {
		return StateUnavailable
	}
	return r.state.current()
}

func (r *Resilient) Backend() string {
	if r.State() == StateAvailable {
		return backendRemote
	}
	return backendMemory
}

// Probe pings the remote immediately and updates the state accordingly.
func (r *Resilient) Probe(ctx context.Context) State {
	if r.remote == nil {
		return StateUnavailable
	}
	if err := r.remote.Ping(ctx); err != nil {
		if ctx.Err() == nil {
			r.state.transition(StateUnavailable, err)
		}
	} else {
		r.state.transition(StateAvailable, nil)
	}
	return r.state.current()
}

func (r *Resilient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.useRemote(ctx) {
		if value, found, err := r.local.Get(ctx, key); err == nil && found {
			return value, true, nil
		}
		if r.isDeleted(key) {
			return nil, false, nil
		}
		value, found, err := r.remote.Get(ctx, key)
		r.metrics.CacheOperation(backendRemote, "get", err)
		if err == nil {
			return value, found, nil
		}
		r.remoteFailed(ctx, "get", err)
	}
	value, found, err := r.local.Get(ctx, key)
	r.metrics.CacheOperation(backendMemory, "get", err)
	return value, found, err
}

func (r *Resilient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.useRemote(ctx) {
		err := r.remote.Set(ctx, key, value, ttl)
		r.metrics.CacheOperation(backendRemote, "set", err)
		if err == nil {
			// The remote now owns the key; drop any copy left from an outage.
			r.forgetDeleted(key)
			return r.local.Delete(ctx, key)
		}
		r.remoteFailed(ctx, "set", err)
	}
	err := r.local.Set(ctx, key, value, ttl)
	r.metrics.CacheOperation(backendMemory, "set", err)
	return err
}

// Delete removes keys from both backends. Deleting absent keys is not an error
// and remote failures are absorbed.
func (r *Resilient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	var errs error
	remoteDone := false
	if r.useRemote(ctx) {
		if err := r.remote.Delete(ctx, keys...); err != nil {
			r.remoteFailed(ctx, "delete", err)
			errs = multierr.Append(errs, err)
		} else {
			remoteDone = true
			r.forgetDeleted(keys...)
		}
		r.metrics.CacheOperation(backendRemote, "delete", errs)
	}
	if !remoteDone && r.remote != nil {
		r.markDeleted(keys...)
	}
	errs = multierr.Append(errs, r.local.Delete(ctx, keys...))
	if errs != nil {
		r.logger.Debug("cache delete partially failed", zap.Strings("keys", keys), zap.Error(errs))
	}
	return nil
}

// Keys lists keys with the prefix from the active backend merged with any keys
// still held by the fallback store.
func (r *Resilient) Keys(ctx context.Context, prefix string) ([]string, error) {
	local, err := r.local.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if !r.useRemote(ctx) {
		return local, nil
	}

	remote, err := r.remote.Keys(ctx, prefix)
	r.metrics.CacheOperation(backendRemote, "keys", err)
	if err != nil {
		r.remoteFailed(ctx, "keys", err)
		return local, nil
	}

	seen := make(map[string]struct{}, len(remote)+len(local))
	merged := make([]string, 0, len(remote)+len(local))
	for _, key := range local {
		seen[key] = struct{}{}
		merged = append(merged, key)
	}
	for _, key := range remote {
		if _, ok := seen[key]; ok || r.isDeleted(key) {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, key)
	}
	sort.Strings(merged)
	return merged, nil
}

func (r *Resilient) useRemote(ctx context.Context) bool {
	if r.remote == nil {
		return false
	}
	if r.state.current() != StateAvailable {
		if !r.state.claimProbe() {
			return false
		}
		if err := r.remote.Ping(ctx); err != nil {
			r.logger.Debug("cache remote probe failed", zap.Error(err))
			return false
		}
		r.state.transition(StateAvailable, nil)
	}
	r.replayDeletes(ctx)
	return true
}

// replayDeletes pushes deletes made during an outage to the remote. Keys stay
// pending until a remote delete succeeds.
func (r *Resilient) replayDeletes(ctx context.Context) {
	r.mu.Lock()
	if len(r.deleted) == 0 {
		r.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(r.deleted))
	for key := range r.deleted {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	if err := r.remote.Delete(ctx, keys...); err != nil {
		r.logger.Debug("cache delete replay failed", zap.Int("keys", len(keys)), zap.Error(err))
		return
	}
	r.forgetDeleted(keys...)
	r.logger.Info("cache deletes replayed to remote", zap.Int("keys", len(keys)))
}

func (r *Resilient) markDeleted(keys ...string) {
	r.mu.Lock()
	for _, key := range keys {
		r.deleted[key] = struct{}{}
	}
	r.mu.Unlock()
}

func (r *Resilient) forgetDeleted(keys ...string) {
	r.mu.Lock()
	for _, key := range keys {
		delete(r.deleted, key)
	}
	r.mu.Unlock()
}

func (r *Resilient) isDeleted(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.deleted[key]
	return ok
}

func (r *Resilient) remoteFailed(ctx context.Context, operation string, err error) {
	r.metrics.CacheFallback(operation)
	// A caller that gave up is not evidence that the backend is down.
	if ctx.Err() != nil {
		return
	}
	r.state.transition(StateUnavailable, err)
}
