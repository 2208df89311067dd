package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/infra/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	userAgent       = "pricewatch-webhook/1.0"
	maxDrainBytes   = 64 << 10
)

// Payload is the JSON body POSTed to subscriber URLs.
type Payload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Dispatcher delivers notifications to the URL a user registered. A delivery
// is attempted up to maxAttempts times; attempt n+1 waits n*backoff. Outcomes
// are reported as booleans and never as errors.
//
// In-flight retries live only in memory: a process exit mid-retry drops the
// notification.
type Dispatcher struct {
	webhooks    domain.WebhookRepository
	recorder    domain.DeliveryRecorder
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration)
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
	metrics     *metrics.Collectors
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithBackoff(backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if backoff >= 0 {
			d.backoff = backoff
		}
	}
}

// WithSleeper replaces the backoff wait, primarily for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(d *Dispatcher) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

func WithRecorder(recorder domain.DeliveryRecorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(webhooks domain.WebhookRepository, timeout time.Duration, logger *zap.Logger, opts ...Option) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &Dispatcher{
		webhooks:    webhooks,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendNotification returns false without any HTTP call when the user has no
// webhook registered. Cancellation of ctx does not interrupt a delivery.
func (d *Dispatcher) SendNotification(ctx context.Context, userID int64, event string, data any) bool {
	ctx = context.WithoutCancel(ctx)

	registration, found, err := d.webhooks.Get(ctx, userID)
	if err != nil {
		d.logger.Warn("webhook lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	if !found {
		d.logger.Debug("no webhook registered", zap.Int64("user_id", userID), zap.String("event", event))
		return false
	}

	now := d.now().UTC()
	body, err := json.Marshal(Payload{Event: event, Timestamp: now.Format(timestampLayout), Data: data})
	if err != nil {
		d.logger.Error("webhook payload encode failed", zap.Int64("user_id", userID), zap.String("event", event), zap.Error(err))
		return false
	}

	delivery := domain.Delivery{
		ID:        d.newID(),
		UserID:    userID,
		Event:     event,
		URL:       registration.URL,
		State:     domain.DeliveryPending,
		CreatedAt: now,
	}

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			d.sleep(ctx, d.backoff*time.Duration(attempt-1))
		}

		status, err := d.post(ctx, registration.URL, body, event, delivery.ID, attempt)
		d.metrics.WebhookAttempt(err)
		delivery.Attempts = attempt
		delivery.StatusCode = status
		if err == nil {
			delivery.State = domain.DeliveryDelivered
			delivery.LastError = ""
			d.finish(ctx, delivery)
			d.logger.Info(
				"webhook delivered",
				zap.String("delivery_id", delivery.ID),
				zap.Int64("user_id", userID),
				zap.String("event", event),
				zap.Int("attempt", attempt),
				zap.Int("status", status),
			)
			return true
		}

		delivery.LastError = err.Error()
		d.logger.Warn(
			"webhook attempt failed",
			zap.String("delivery_id", delivery.ID),
			zap.Int64("user_id", userID),
			zap.String("event", event),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.maxAttempts),
			zap.Error(err),
		)
	}

	delivery.State = domain.DeliveryFailed
	d.finish(ctx, delivery)
	d.logger.Error(
		"webhook delivery failed",
		zap.String("delivery_id", delivery.ID),
		zap.Int64("user_id", userID),
		zap.String("event", event),
		zap.Int("attempts", delivery.Attempts),
		zap.String("last_error", delivery.LastError),
	)
	return false
}

func (d *Dispatcher) post(ctx context.Context, target string, body []byte, event, deliveryID string, attempt int) (int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("X-Webhook-Event", event)
	request.Header.Set("X-Webhook-Delivery", deliveryID)
	request.Header.Set("X-Webhook-Attempt", fmt.Sprint(attempt))

	response, err := d.client.Do(request)
	if err != nil {
		return 0, err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxDrainBytes))

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response.StatusCode, fmt.Errorf("unexpected status %d", response.StatusCode)
	}
	return response.StatusCode, nil
}

func (d *Dispatcher) finish(ctx context.Context, delivery domain.Delivery) {
	delivery.FinishedAt = d.now().UTC()
	d.metrics.WebhookDelivery(delivery.Event, string(delivery.State))
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, delivery); err != nil {
		d.logger.Warn("failed to record webhook delivery", zap.String("delivery_id", delivery.ID), zap.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
