package kv

import (
	"context"
	"errors"
	"time"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"go.uber.org/zap"
)

const DefaultPriceTTL = 300 * time.Second

// PriceCache holds the latest snapshot per symbol under price:{symbol}.
type PriceCache struct {
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewPriceCache(store cache.Store, ttl time.Duration, logger *zap.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &PriceCache{store: store, ttl: ttl, logger: logger}
}

// Get treats a malformed snapshot as a miss.
func (c *PriceCache) Get(ctx context.Context, symbol string) (domain.PriceSnapshot, bool, error) {
	var snapshot domain.PriceSnapshot
	key := priceKey(domain.NormalizeSymbol(symbol))
	found, err := cache.GetJSON(ctx, c.store, key, &snapshot)
	if errors.Is(err, cache.ErrMalformed) {
		c.logger.Warn("malformed price snapshot", zap.String("key", key), zap.Error(err))
		return domain.PriceSnapshot{}, false, nil
	}
	if err != nil || !found {
		return domain.PriceSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (c *PriceCache) Put(ctx context.Context, snapshot domain.PriceSnapshot) error {
	snapshot.Symbol = domain.NormalizeSymbol(snapshot.Symbol)
	return cache.SetJSON(ctx, c.store, priceKey(snapshot.Symbol), snapshot, c.ttl)
}
