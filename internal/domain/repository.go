package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// UserRepository stores one record per Telegram user. Upsert keeps the
// first registration time and refreshes the chat and username.
type UserRepository interface {
	GetByTelegramID(ctx context.Context, telegramUserID int64) (User, error)
	Upsert(ctx context.Context, user User) error
}

type AlertRegistry interface {
	SetAlert(ctx context.Context, alert PriceAlert) error
	GetAlerts(ctx context.Context, userID int64) ([]PriceAlert, error)
	GetAlertsForSymbol(ctx context.Context, symbol string) ([]PriceAlert, error)
	RemoveAlert(ctx context.Context, userID int64, symbol string, direction Direction) (bool, error)
	ClearAllAlerts(ctx context.Context, userID int64) (int, error)
	Symbols(ctx context.Context) ([]string, error)
}

type PriceCache interface {
	Get(ctx context.Context, symbol string) (PriceSnapshot, bool, error)
	Put(ctx context.Context, snapshot PriceSnapshot) error
}

type PortfolioRepository interface {
	Get(ctx context.Context, userID int64) (Portfolio, error)
	Set(ctx context.Context, portfolio Portfolio) error
}

type WebhookRepository interface {
	Get(ctx context.Context, userID int64) (WebhookRegistration, bool, error)
	Set(ctx context.Context, registration WebhookRegistration) error
	Delete(ctx context.Context, userID int64) error
}

type DeliveryRecorder interface {
	Record(ctx context.Context, delivery Delivery) error
}

type DeliveryLog interface {
	Recent(ctx context.Context, userID int64, limit int) ([]Delivery, error)
}
