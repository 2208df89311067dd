package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	server := miniredis.RunT(t)
	store := NewRedisStore(RedisOptions{
		Addr:        server.Addr(),
		KeyPrefix:   "pw:",
		DialTimeout: 200 * time.Millisecond,
		OpTimeout:   200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = store.Close() })
	return server, store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	server, store := newTestRedis(t)

	require.NoError(t, store.Set(ctx, "webhook:7", []byte("https://example.com/hook"), 0))
	assert.True(t, server.Exists("pw:webhook:7"), "keys are namespaced on the wire")

	value, found, err := store.Get(ctx, "webhook:7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://example.com/hook", string(value))

	_, found, err = store.Get(ctx, "webhook:8")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Delete(ctx, "webhook:7", "webhook:8"))
	assert.False(t, server.Exists("pw:webhook:7"))
	require.NoError(t, store.Delete(ctx))
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	server, store := newTestRedis(t)

	require.NoError(t, store.Set(ctx, "price:ETH", []byte("1"), 300*time.Second))

	server.FastForward(299 * time.Second)
	_, found, err := store.Get(ctx, "price:ETH")
	require.NoError(t, err)
	assert.True(t, found)

	server.FastForward(2 * time.Second)
	_, found, err = store.Get(ctx, "price:ETH")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreKeysByPrefix(t *testing.T) {
	ctx := context.Background()
	server, store := newTestRedis(t)

	for _, key := range []string{"alert:1:BTC", "alert:1:ETH", "alert:10:BTC", "portfolio:1"} {
		require.NoError(t, store.Set(ctx, key, []byte("x"), 0))
	}
	require.NoError(t, server.Set("other:alert:1:BTC", "foreign"))

	keys, err := store.Keys(ctx, "alert:1:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alert:1:BTC", "alert:1:ETH"}, keys)

	keys, err = store.Keys(ctx, "alert:")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	server, store := newTestRedis(t)
	server.Close()

	_, _, err := store.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, store.Set(ctx, "k", []byte("v"), 0))
	_, err = store.Keys(ctx, "")
	require.Error(t, err)
	require.Error(t, store.Ping(ctx))
}

func TestRedisStoreConnectionEvents(t *testing.T) {
	ctx := context.Background()
	server, store := newTestRedis(t)

	var connects, failures atomic.Int32
	store.OnConnectionEvent(func() { connects.Add(1) }, func(error) { failures.Add(1) })

	require.NoError(t, store.Ping(ctx))
	assert.Equal(t, int32(1), connects.Load())

	addr := server.Addr()
	server.Close()
	dead := NewRedisStore(RedisOptions{Addr: addr, DialTimeout: 100 * time.Millisecond, OpTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = dead.Close() })
	dead.OnConnectionEvent(func() { connects.Add(1) }, func(error) { failures.Add(1) })

	require.Error(t, dead.Ping(ctx))
	assert.GreaterOrEqual(t, failures.Load(), int32(1))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `alert:\*:\[x\]\?`, escapeGlob("alert:*:[x]?"))
	assert.Equal(t, "plain", escapeGlob("plain"))
}
