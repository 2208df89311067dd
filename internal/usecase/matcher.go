package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/infra/metrics"
	"go.uber.org/zap"
)

// AnySymbol subscribes a handler to triggers on every symbol.
const AnySymbol = "*"

type TriggerHandler func(ctx context.Context, trigger domain.Trigger)

// AlertMatcher checks observed prices against stored alerts. A matched alert
// is handed to the subscribed handlers and then removed from the registry, so
// it fires at most once.
type AlertMatcher struct {
	alerts  domain.AlertRegistry
	prices  domain.PriceCache
	logger  *zap.Logger
	metrics *metrics.Collectors
	now     func() time.Time

	mu       sync.RWMutex
	handlers map[string][]TriggerHandler
}

func NewAlertMatcher(alerts domain.AlertRegistry, prices domain.PriceCache, logger *zap.Logger, m *metrics.Collectors) *AlertMatcher {
	return &AlertMatcher{
		alerts:   alerts,
		prices:   prices,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		handlers: make(map[string][]TriggerHandler),
	}
}

// OnPriceUpdate registers handler for triggers on symbol, or on every symbol
// when symbol is AnySymbol.
func (m *AlertMatcher) OnPriceUpdate(symbol string, handler TriggerHandler) {
	if handler == nil {
		return
	}
	if symbol != AnySymbol {
		symbol = domain.NormalizeSymbol(symbol)
	}
	m.mu.Lock()
	m.handlers[symbol] = append(m.handlers[symbol], handler)
	m.mu.Unlock()
}

func (m *AlertMatcher) ClearSubscriptions() {
	m.mu.Lock()
	m.handlers = make(map[string][]TriggerHandler)
	m.mu.Unlock()
}

// Evaluate caches snapshot and fires every alert on its symbol whose
// condition holds. It returns the triggers it fired.
func (m *AlertMatcher) Evaluate(ctx context.Context, snapshot domain.PriceSnapshot) ([]domain.Trigger, error) {
	snapshot.Symbol = domain.NormalizeSymbol(snapshot.Symbol)
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = m.now().UTC()
	}

	if err := m.prices.Put(ctx, snapshot); err != nil {
		m.logger.Warn("failed to cache price snapshot", zap.String("symbol", snapshot.Symbol), zap.Error(err))
	}

	alerts, err := m.alerts.GetAlertsForSymbol(ctx, snapshot.Symbol)
	if err != nil {
		return nil, err
	}

	var triggers []domain.Trigger
	for _, alert := range alerts {
		if !alert.Matches(snapshot.Price) {
			continue
		}

		trigger := domain.Trigger{
			Symbol:      snapshot.Symbol,
			Price:       snapshot.Price,
			Alert:       alert,
			Snapshot:    snapshot,
			TriggeredAt: m.now().UTC(),
		}
		m.logger.Info(
			"price alert triggered",
			zap.Int64("user_id", alert.UserID),
			zap.String("symbol", snapshot.Symbol),
			zap.String("direction", string(alert.Direction)),
			zap.Float64("target_price", alert.TargetPrice),
			zap.Float64("price", snapshot.Price),
		)
		m.metrics.AlertTriggered(string(alert.Direction))

		for _, handler := range m.subscribers(snapshot.Symbol) {
			handler(ctx, trigger)
		}

		if _, err := m.alerts.RemoveAlert(ctx, alert.UserID, alert.Symbol, alert.Direction); err != nil {
			m.logger.Warn(
				"failed to remove triggered alert",
				zap.Int64("user_id", alert.UserID),
				zap.String("symbol", alert.Symbol),
				zap.Error(err),
			)
		}
		triggers = append(triggers, trigger)
	}
	return triggers, nil
}

func (m *AlertMatcher) subscribers(symbol string) []TriggerHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]TriggerHandler, 0, len(m.handlers[symbol])+len(m.handlers[AnySymbol]))
	handlers = append(handlers, m.handlers[symbol]...)
	handlers = append(handlers, m.handlers[AnySymbol]...)
	return handlers
}
