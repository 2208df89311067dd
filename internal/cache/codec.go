package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrMalformed marks a stored payload that could not be decoded.
var ErrMalformed = errors.New("cache: malformed payload")

// GetJSON decodes the value stored under key into dst. A payload that fails to
// decode is reported as found with an error wrapping ErrMalformed.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("%w: key %s: %v", ErrMalformed, key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// MemoKey builds a "{feature}:{discriminator}:{paramsHash}" key for memoized
// external calls. params must be JSON encodable; map keys are encoded sorted so
// equal parameter sets hash identically.
func MemoKey(feature, discriminator string, params any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(fmt.Sprint(params))
	}
	return feature + ":" + discriminator + ":" + strconv.FormatUint(xxhash.Sum64(raw), 16)
}

// Remember returns the cached value under key or calls fetch and caches its
// result for ttl. Malformed cached values are refetched; fetch errors are
// returned untouched and nothing is cached.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	found, err := GetJSON(ctx, s, key, &cached)
	if err == nil && found {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := SetJSON(ctx, s, key, value, ttl); err != nil {
		return value, err
	}
	return value, nil
}
