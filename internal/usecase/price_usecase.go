package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const DefaultBatchTTL = 60 * time.Second

var ErrPriceNotFound = errors.New("price not found")

// PriceUsecase serves on-demand lookups. Single symbols go through the
// price:{symbol} snapshot cache; batches are memoized as a whole.
type PriceUsecase struct {
	provider domain.PriceProvider
	prices   domain.PriceCache
	memo     cache.Store
	batchTTL time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

func NewPriceUsecase(provider domain.PriceProvider, prices domain.PriceCache, memo cache.Store, batchTTL time.Duration, logger *zap.Logger) *PriceUsecase {
	if batchTTL <= 0 {
		batchTTL = DefaultBatchTTL
	}
	return &PriceUsecase{
		provider: provider,
		prices:   prices,
		memo:     memo,
		batchTTL: batchTTL,
		validate: newValidator(),
		logger:   logger,
	}
}

func (u *PriceUsecase) GetPrice(ctx context.Context, symbol string) (domain.PriceSnapshot, error) {
	normalized, err := normalizeSymbol(u.validate, symbol)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	snapshot, found, err := u.prices.Get(ctx, normalized)
	if err != nil {
		u.logger.Warn("price cache read failed", zap.String("symbol", normalized), zap.Error(err))
	}
	if found {
		return snapshot, nil
	}

	live, err := u.provider.GetPrices(ctx, []string{normalized})
	if err != nil {
		return domain.PriceSnapshot{}, err
	}
	snapshot, ok := live[normalized]
	if !ok {
		return domain.PriceSnapshot{}, ErrPriceNotFound
	}
	if err := u.prices.Put(ctx, snapshot); err != nil {
		u.logger.Warn("failed to cache price snapshot", zap.String("symbol", normalized), zap.Error(err))
	}
	return snapshot, nil
}

// GetPrices returns snapshots for the known symbols among symbols. Unknown
// symbols are absent from the result.
func (u *PriceUsecase) GetPrices(ctx context.Context, symbols []string) (map[string]domain.PriceSnapshot, error) {
	normalized := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		s, err := normalizeSymbol(u.validate, symbol)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		normalized = append(normalized, s)
	}
	if len(normalized) == 0 {
		return map[string]domain.PriceSnapshot{}, nil
	}
	sort.Strings(normalized)

	key := cache.MemoKey("prices", "batch", normalized)
	snapshots, err := cache.Remember(ctx, u.memo, key, u.batchTTL, func(ctx context.Context) (map[string]domain.PriceSnapshot, error) {
		live, err := u.provider.GetPrices(ctx, normalized)
		if err != nil {
			return nil, err
		}
		for _, snapshot := range live {
			if err := u.prices.Put(ctx, snapshot); err != nil {
				u.logger.Warn("failed to cache price snapshot", zap.String("symbol", snapshot.Symbol), zap.Error(err))
			}
		}
		return live, nil
	})
	if err != nil && snapshots == nil {
		return nil, err
	}
	if err != nil {
		u.logger.Warn("failed to memoize price batch", zap.String("key", key), zap.Error(err))
	}
	return snapshots, nil
}
