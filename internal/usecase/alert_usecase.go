package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidPrice     = errors.New("invalid price")
)

// Monitor is the part of the poller the alert use case drives.
type Monitor interface {
	StartMonitoring(ctx context.Context, symbols ...string)
}

type AlertUsecase struct {
	alerts   domain.AlertRegistry
	monitor  Monitor
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewAlertUsecase(alerts domain.AlertRegistry, monitor Monitor, logger *zap.Logger) *AlertUsecase {
	return &AlertUsecase{
		alerts:   alerts,
		monitor:  monitor,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetAlert stores an alert, replacing any alert the user already has on the
// symbol, and makes sure the symbol is monitored.
func (u *AlertUsecase) SetAlert(ctx context.Context, userID int64, symbol, direction, price string) (domain.PriceAlert, error) {
	normalizedSymbol, err := u.normalizeSymbol(symbol)
	if err != nil {
		return domain.PriceAlert{}, err
	}

	dir, err := domain.ParseDirection(direction)
	if err != nil {
		return domain.PriceAlert{}, ErrInvalidDirection
	}

	target, err := parsePositiveDecimal(price)
	if err != nil {
		return domain.PriceAlert{}, ErrInvalidPrice
	}

	alert := domain.PriceAlert{
		UserID:      userID,
		Symbol:      normalizedSymbol,
		TargetPrice: target.InexactFloat64(),
		Direction:   dir,
		CreatedAt:   u.now().UTC(),
	}
	if err := u.alerts.SetAlert(ctx, alert); err != nil {
		return domain.PriceAlert{}, err
	}

	u.monitor.StartMonitoring(ctx, normalizedSymbol)
	u.logger.Info(
		"price alert set",
		zap.Int64("user_id", userID),
		zap.String("symbol", normalizedSymbol),
		zap.String("direction", string(dir)),
		zap.String("target_price", target.String()),
	)
	return alert, nil
}

func (u *AlertUsecase) ListAlerts(ctx context.Context, userID int64) ([]domain.PriceAlert, error) {
	return u.alerts.GetAlerts(ctx, userID)
}

// RemoveAlert reports false when the user has no alert on symbol in that direction.
func (u *AlertUsecase) RemoveAlert(ctx context.Context, userID int64, symbol, direction string) (bool, error) {
	normalizedSymbol, err := u.normalizeSymbol(symbol)
	if err != nil {
		return false, err
	}
	dir, err := domain.ParseDirection(direction)
	if err != nil {
		return false, ErrInvalidDirection
	}
	return u.alerts.RemoveAlert(ctx, userID, normalizedSymbol, dir)
}

func (u *AlertUsecase) ClearAlerts(ctx context.Context, userID int64) (int, error) {
	return u.alerts.ClearAllAlerts(ctx, userID)
}

// Rehydrate starts monitoring every symbol that still has a stored alert.
func (u *AlertUsecase) Rehydrate(ctx context.Context) ([]string, error) {
	symbols, err := u.alerts.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	u.monitor.StartMonitoring(ctx, symbols...)
	return symbols, nil
}

func (u *AlertUsecase) normalizeSymbol(symbol string) (string, error) {
	return normalizeSymbol(u.validate, symbol)
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// normalizeSymbol upper-cases symbol and requires 1-15 ASCII letters or digits.
func normalizeSymbol(validate *validator.Validate, symbol string) (string, error) {
	normalized := domain.NormalizeSymbol(symbol)
	if err := validate.Var(normalized, "required,alphanum,max=15"); err != nil {
		return "", ErrInvalidSymbol
	}
	return normalized, nil
}

func parsePositiveDecimal(input string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !value.IsPositive() {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return value, nil
}
