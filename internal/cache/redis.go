package cache

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisOpTimeout = time.Second
	redisScanCount        = 100
)

type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// RedisStore is the remote backend. Keys are namespaced with KeyPrefix on the
// wire and returned without it.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisStore does not dial; an unreachable server surfaces on the first
// operation so that startup never blocks on the remote cache.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		MaxRetries:  -1,
	})
	return NewRedisStoreFromClient(client, opts.KeyPrefix, opts.OpTimeout)
}

func NewRedisStoreFromClient(client *redis.Client, prefix string, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = defaultRedisOpTimeout
	}
	return &RedisStore{client: client, prefix: prefix, opTimeout: opTimeout}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.prefix+key)
	}
	return s.client.Del(ctx, prefixed...).Err()
}

// Keys walks the keyspace with SCAN so large databases are never blocked by KEYS.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pattern := escapeGlob(s.prefix+prefix) + "*"
	iter := s.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()

	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), s.prefix)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// OnConnectionEvent registers callbacks fired after every dial attempt.
func (s *RedisStore) OnConnectionEvent(onConnect func(), onError func(error)) {
	s.client.AddHook(connectionHook{onConnect: onConnect, onError: onError})
}

type connectionHook struct {
	onConnect func()
	onError   func(error)
}

func (h connectionHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			if h.onError != nil {
				h.onError(err)
			}
			return nil, err
		}
		if h.onConnect != nil {
			h.onConnect()
		}
		return conn, nil
	}
}

func (h connectionHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h connectionHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func escapeGlob(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			builder.WriteByte('\\')
		}
		builder.WriteByte(s[i])
	}
	return builder.String()
}
