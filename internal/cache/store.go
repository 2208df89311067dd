// Package cache provides the key/value layer used by every registry in the
// service: a Redis-backed remote store, a process-local fallback store and the
// Resilient facade that routes between them.
package cache

import (
	"context"
	"time"
)

// Store is the uniform key/value contract shared by all backends.
// A ttl <= 0 stores the value without expiry. Get reports absence with
// found=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// RemoteStore is a Store whose health can be probed.
type RemoteStore interface {
	Store
	Ping(ctx context.Context) error
}

// ConnectionNotifier is implemented by remote stores that can report
// connection-level events (successful dials, dial errors).
type ConnectionNotifier interface {
	OnConnectionEvent(onConnect func(), onError func(error))
}
