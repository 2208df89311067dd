package kv

import (
	"context"
	"errors"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"go.uber.org/zap"
)

type PortfolioRepository struct {
	store  cache.Store
	logger *zap.Logger
}

func NewPortfolioRepository(store cache.Store, logger *zap.Logger) *PortfolioRepository {
	return &PortfolioRepository{store: store, logger: logger}
}

// Get returns an empty portfolio when none is stored or the payload is unreadable.
func (r *PortfolioRepository) Get(ctx context.Context, userID int64) (domain.Portfolio, error) {
	holdings := make(map[string]float64)
	key := portfolioKey(userID)
	_, err := cache.GetJSON(ctx, r.store, key, &holdings)
	if errors.Is(err, cache.ErrMalformed) {
		r.logger.Warn("malformed portfolio payload", zap.String("key", key), zap.Error(err))
		return domain.Portfolio{UserID: userID, Holdings: map[string]float64{}}, nil
	}
	if err != nil {
		return domain.Portfolio{}, err
	}
	if holdings == nil {
		holdings = make(map[string]float64)
	}
	return domain.Portfolio{UserID: userID, Holdings: holdings}, nil
}

// Set replaces the stored holdings wholesale.
func (r *PortfolioRepository) Set(ctx context.Context, portfolio domain.Portfolio) error {
	holdings := make(map[string]float64, len(portfolio.Holdings))
	for symbol, amount := range portfolio.Holdings {
		holdings[domain.NormalizeSymbol(symbol)] = amount
	}
	return cache.SetJSON(ctx, r.store, portfolioKey(portfolio.UserID), holdings, 0)
}
