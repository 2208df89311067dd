package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/infra/kv"
	"go.uber.org/zap"
)

var errProviderDown = errors.New("price provider unavailable")

// stubProvider serves prices from a mutable table and counts calls.
type stubProvider struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   bool
	calls  int
	asked  [][]string
}

func newStubProvider(prices map[string]float64) *stubProvider {
	return &stubProvider{prices: prices}
}

func (p *stubProvider) set(symbol string, price float64) {
	p.mu.Lock()
	p.prices[symbol] = price
	p.mu.Unlock()
}

func (p *stubProvider) setFailing(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProvider) GetPrices(_ context.Context, symbols []string) (map[string]domain.PriceSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.asked = append(p.asked, append([]string(nil), symbols...))
	if p.fail {
		return nil, errProviderDown
	}
	out := make(map[string]domain.PriceSnapshot, len(symbols))
	for _, symbol := range symbols {
		if price, ok := p.prices[symbol]; ok {
			out[symbol] = domain.PriceSnapshot{Symbol: symbol, Price: price, Change24h: 1.5}
		}
	}
	return out, nil
}

type fixture struct {
	store  *cache.Resilient
	alerts *kv.AlertRegistry
	prices *kv.PriceCache
}

func newFixture() fixture {
	store := cache.NewResilient(nil, cache.NewMemoryStore())
	logger := zap.NewNop()
	return fixture{
		store:  store,
		alerts: kv.NewAlertRegistry(store, logger),
		prices: kv.NewPriceCache(store, kv.DefaultPriceTTL, logger),
	}
}

type triggerLog struct {
	mu       sync.Mutex
	triggers []domain.Trigger
}

func (l *triggerLog) handle(_ context.Context, trigger domain.Trigger) {
	l.mu.Lock()
	l.triggers = append(l.triggers, trigger)
	l.mu.Unlock()
}

func (l *triggerLog) all() []domain.Trigger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Trigger(nil), l.triggers...)
}

type recordingMonitor struct {
	mu      sync.Mutex
	symbols []string
	starts  int
}

func (m *recordingMonitor) StartMonitoring(_ context.Context, symbols ...string) {
	m.mu.Lock()
	m.starts++
	m.symbols = append(m.symbols, symbols...)
	m.mu.Unlock()
}
