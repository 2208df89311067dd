package kv

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"go.uber.org/zap"
)

// AlertRegistry stores alerts under alert:{userId}:{symbol}. The direction is
// not part of the key, so a new alert for the same user and symbol replaces the
// previous one whatever its direction.
type AlertRegistry struct {
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewAlertRegistry(store cache.Store, logger *zap.Logger) *AlertRegistry {
	return &AlertRegistry{store: store, logger: logger, now: time.Now}
}

func (r *AlertRegistry) SetAlert(ctx context.Context, alert domain.PriceAlert) error {
	alert.Symbol = domain.NormalizeSymbol(alert.Symbol)
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = r.now().UTC()
	}
	return cache.SetJSON(ctx, r.store, alertKey(alert.UserID, alert.Symbol), alert, 0)
}

func (r *AlertRegistry) GetAlerts(ctx context.Context, userID int64) ([]domain.PriceAlert, error) {
	keys, err := r.store.Keys(ctx, alertUserPrefix(userID))
	if err != nil {
		return nil, err
	}
	return r.load(ctx, keys), nil
}

// GetAlertsForSymbol scans every alert key and keeps those for symbol.
func (r *AlertRegistry) GetAlertsForSymbol(ctx context.Context, symbol string) ([]domain.PriceAlert, error) {
	symbol = domain.NormalizeSymbol(symbol)
	keys, err := r.store.Keys(ctx, alertPrefix)
	if err != nil {
		return nil, err
	}

	matching := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, keySymbol, ok := parseAlertKey(key); ok && keySymbol == symbol {
			matching = append(matching, key)
		}
	}
	return r.load(ctx, matching), nil
}

// RemoveAlert deletes the user's alert on symbol only when its direction
// matches; otherwise it is a no-op. It reports whether an alert was removed.
func (r *AlertRegistry) RemoveAlert(ctx context.Context, userID int64, symbol string, direction domain.Direction) (bool, error) {
	key := alertKey(userID, domain.NormalizeSymbol(symbol))
	alert, found, err := r.read(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if alert.Direction != direction {
		return false, nil
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// ClearAllAlerts deletes every alert of the user and returns how many keys were targeted.
func (r *AlertRegistry) ClearAllAlerts(ctx context.Context, userID int64) (int, error) {
	keys, err := r.store.Keys(ctx, alertUserPrefix(userID))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.store.Delete(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Symbols lists the distinct symbols that have at least one stored alert.
func (r *AlertRegistry) Symbols(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, alertPrefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, key := range keys {
		_, symbol, ok := parseAlertKey(key)
		if !ok {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (r *AlertRegistry) load(ctx context.Context, keys []string) []domain.PriceAlert {
	alerts := make([]domain.PriceAlert, 0, len(keys))
	for _, key := range keys {
		alert, found, err := r.read(ctx, key)
		if err != nil {
			r.logger.Warn("skipping unreadable alert", zap.String("key", key), zap.Error(err))
			continue
		}
		if found {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

func (r *AlertRegistry) read(ctx context.Context, key string) (domain.PriceAlert, bool, error) {
	var alert domain.PriceAlert
	found, err := cache.GetJSON(ctx, r.store, key, &alert)
	if errors.Is(err, cache.ErrMalformed) {
		r.logger.Warn("malformed alert payload", zap.String("key", key), zap.Error(err))
		return domain.PriceAlert{}, false, nil
	}
	if err != nil || !found {
		return domain.PriceAlert{}, false, err
	}
	return alert, true, nil
}
