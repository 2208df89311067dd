package kv

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/pricewatch/internal/cache"
)

var errUnreachable = errors.New("dial tcp: connection refused")

// downRemote fails every call, standing in for an unreachable Redis.
type downRemote struct {
	calls int
}

func (d *downRemote) Get(context.Context, string) ([]byte, bool, error) {
	d.calls++
	return nil, false, errUnreachable
}

func (d *downRemote) Set(context.Context, string, []byte, time.Duration) error {
	d.calls++
	return errUnreachable
}

func (d *downRemote) Delete(context.Context, ...string) error {
	d.calls++
	return errUnreachable
}

func (d *downRemote) Keys(context.Context, string) ([]string, error) {
	d.calls++
	return nil, errUnreachable
}

func (d *downRemote) Ping(context.Context) error {
	d.calls++
	return errUnreachable
}

func newMemoryBacked() *cache.Resilient {
	return cache.NewResilient(nil, cache.NewMemoryStore())
}
