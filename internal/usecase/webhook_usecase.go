package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var ErrInvalidWebhookURL = errors.New("invalid webhook url")

// WebhookTester sends a test event to a user's registered webhook.
type WebhookTester interface {
	TestWebhook(ctx context.Context, userID int64) bool
}

type WebhookUsecase struct {
	webhooks domain.WebhookRepository
	tester   WebhookTester
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewWebhookUsecase(webhooks domain.WebhookRepository, tester WebhookTester, logger *zap.Logger) *WebhookUsecase {
	return &WebhookUsecase{
		webhooks: webhooks,
		tester:   tester,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Register stores rawURL as the user's webhook, replacing any previous one.
// Only absolute http and https URLs are accepted.
func (u *WebhookUsecase) Register(ctx context.Context, userID int64, rawURL string) (domain.WebhookRegistration, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := u.validate.Var(rawURL, "required,http_url"); err != nil {
		return domain.WebhookRegistration{}, ErrInvalidWebhookURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return domain.WebhookRegistration{}, ErrInvalidWebhookURL
	}

	registration := domain.WebhookRegistration{UserID: userID, URL: rawURL, CreatedAt: u.now().UTC()}
	if err := u.webhooks.Set(ctx, registration); err != nil {
		return domain.WebhookRegistration{}, err
	}
	u.logger.Info("webhook registered", zap.Int64("user_id", userID), zap.String("host", parsed.Host))
	return registration, nil
}

func (u *WebhookUsecase) Get(ctx context.Context, userID int64) (domain.WebhookRegistration, bool, error) {
	return u.webhooks.Get(ctx, userID)
}

func (u *WebhookUsecase) Remove(ctx context.Context, userID int64) error {
	if err := u.webhooks.Delete(ctx, userID); err != nil {
		return err
	}
	u.logger.Info("webhook removed", zap.Int64("user_id", userID))
	return nil
}

func (u *WebhookUsecase) Test(ctx context.Context, userID int64) bool {
	return u.tester.TestWebhook(ctx, userID)
}
