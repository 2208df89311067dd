package kv

import (
	"context"
	"errors"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"go.uber.org/zap"
)

type WebhookRepository struct {
	store  cache.Store
	logger *zap.Logger
}

func NewWebhookRepository(store cache.Store, logger *zap.Logger) *WebhookRepository {
	return &WebhookRepository{store: store, logger: logger}
}

func (r *WebhookRepository) Get(ctx context.Context, userID int64) (domain.WebhookRegistration, bool, error) {
	var registration domain.WebhookRegistration
	key := webhookKey(userID)
	found, err := cache.GetJSON(ctx, r.store, key, &registration)
	if errors.Is(err, cache.ErrMalformed) {
		r.logger.Warn("malformed webhook registration", zap.String("key", key), zap.Error(err))
		return domain.WebhookRegistration{}, false, nil
	}
	if err != nil || !found || registration.URL == "" {
		return domain.WebhookRegistration{}, false, err
	}
	return registration, true, nil
}

func (r *WebhookRepository) Set(ctx context.Context, registration domain.WebhookRegistration) error {
	return cache.SetJSON(ctx, r.store, webhookKey(registration.UserID), registration, 0)
}

func (r *WebhookRepository) Delete(ctx context.Context, userID int64) error {
	return r.store.Delete(ctx, webhookKey(userID))
}
