package usecase

import (
	"context"
	"testing"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPriceUsecaseGetPriceUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	provider := newStubProvider(map[string]float64{"BTC": 65000})
	uc := NewPriceUsecase(provider, f.prices, f.store, 0, zap.NewNop())

	snapshot, err := uc.GetPrice(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, snapshot.Price)
	assert.Equal(t, 1, provider.callCount())

	provider.set("BTC", 1)
	snapshot, err = uc.GetPrice(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, snapshot.Price, "served from price:BTC")
	assert.Equal(t, 1, provider.callCount())
}

func TestPriceUsecaseGetPriceErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	provider := newStubProvider(map[string]float64{})
	uc := NewPriceUsecase(provider, f.prices, f.store, 0, zap.NewNop())

	_, err := uc.GetPrice(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrPriceNotFound)

	_, err = uc.GetPrice(ctx, "no pe")
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	provider.setFailing(true)
	_, err = uc.GetPrice(ctx, "ETH")
	assert.ErrorIs(t, err, errProviderDown)
}

func TestPriceUsecaseGetPricesMemoizesBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	provider := newStubProvider(map[string]float64{"BTC": 65000, "ETH": 3000})
	uc := NewPriceUsecase(provider, f.prices, f.store, 0, zap.NewNop())

	first, err := uc.GetPrices(ctx, []string{"eth", "BTC", "btc", "XYZ"})
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, [][]string{{"BTC", "ETH", "XYZ"}}, provider.asked)

	second, err := uc.GetPrices(ctx, []string{"XYZ", "BTC", "ETH"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.callCount())

	cached, found, err := f.prices.Get(ctx, "ETH")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3000.0, cached.Price)

	empty, err := uc.GetPrices(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.PriceSnapshot{}, empty)
}

func TestPriceUsecaseGetPricesPropagatesFailure(t *testing.T) {
	f := newFixture()
	provider := newStubProvider(map[string]float64{})
	provider.setFailing(true)
	uc := NewPriceUsecase(provider, f.prices, f.store, 0, zap.NewNop())

	_, err := uc.GetPrices(context.Background(), []string{"BTC"})
	assert.ErrorIs(t, err, errProviderDown)
}
