package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryWebhooks struct {
	urls map[int64]string
}

func (m memoryWebhooks) Get(_ context.Context, userID int64) (domain.WebhookRegistration, bool, error) {
	url, ok := m.urls[userID]
	if !ok {
		return domain.WebhookRegistration{}, false, nil
	}
	return domain.WebhookRegistration{UserID: userID, URL: url}, true, nil
}

func (m memoryWebhooks) Set(context.Context, domain.WebhookRegistration) error { return nil }
func (m memoryWebhooks) Delete(context.Context, int64) error                   { return nil }

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

type captureRecorder struct {
	mu         sync.Mutex
	deliveries []domain.Delivery
}

func (c *captureRecorder) Record(_ context.Context, delivery domain.Delivery) error {
	c.mu.Lock()
	c.deliveries = append(c.deliveries, delivery)
	c.mu.Unlock()
	return nil
}

func statusServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestSendNotificationRetriesThreeTimes(t *testing.T) {
	server, hits := statusServer(t, http.StatusInternalServerError)
	sleeps := &recordedSleeps{}
	recorder := &captureRecorder{}
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, time.Second, zap.NewNop(),
		WithSleeper(sleeps.sleep), WithRecorder(recorder))

	ok := dispatcher.SendNotification(context.Background(), 1, EventPriceAlert, map[string]any{"symbol": "BTC"})

	assert.False(t, ok)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)

	require.Len(t, recorder.deliveries, 1)
	delivery := recorder.deliveries[0]
	assert.Equal(t, domain.DeliveryFailed, delivery.State)
	assert.Equal(t, 3, delivery.Attempts)
	assert.Equal(t, http.StatusInternalServerError, delivery.StatusCode)
	assert.Contains(t, delivery.LastError, "500")
	assert.NotEmpty(t, delivery.ID)
}

func TestSendNotificationSucceedsFirstAttempt(t *testing.T) {
	server, hits := statusServer(t, http.StatusOK)
	sleeps := &recordedSleeps{}
	recorder := &captureRecorder{}
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, time.Second, zap.NewNop(),
		WithSleeper(sleeps.sleep), WithRecorder(recorder))

	assert.True(t, dispatcher.SendNotification(context.Background(), 1, EventTest, nil))
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, sleeps.delays)
	require.Len(t, recorder.deliveries, 1)
	assert.Equal(t, domain.DeliveryDelivered, recorder.deliveries[0].State)
	assert.Equal(t, 1, recorder.deliveries[0].Attempts)
}

func TestSendNotificationRecoversOnRetry(t *testing.T) {
	server, hits := statusServer(t, http.StatusBadGateway, http.StatusNotFound, http.StatusAccepted)
	sleeps := &recordedSleeps{}
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, time.Second, zap.NewNop(),
		WithSleeper(sleeps.sleep))

	assert.True(t, dispatcher.SendNotification(context.Background(), 1, EventMarketAlert, nil))
	assert.Equal(t, int32(3), hits.Load())
	assert.Len(t, sleeps.delays, 2)
}

func TestSendNotificationWithoutWebhook(t *testing.T) {
	server, hits := statusServer(t, http.StatusOK)
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, time.Second, zap.NewNop())

	assert.False(t, dispatcher.SendNotification(context.Background(), 7, EventPriceAlert, map[string]any{"symbol": "BTC"}))
	assert.Zero(t, hits.Load())
}

func TestSendNotificationNetworkError(t *testing.T) {
	server, _ := statusServer(t, http.StatusOK)
	url := server.URL
	server.Close()

	sleeps := &recordedSleeps{}
	recorder := &captureRecorder{}
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: url}}, time.Second, zap.NewNop(),
		WithSleeper(sleeps.sleep), WithRecorder(recorder))

	assert.False(t, dispatcher.SendNotification(context.Background(), 1, EventTest, nil))
	assert.Len(t, sleeps.delays, 2)
	require.Len(t, recorder.deliveries, 1)
	assert.Equal(t, 3, recorder.deliveries[0].Attempts)
	assert.Zero(t, recorder.deliveries[0].StatusCode)
}

func TestSendNotificationTimesOutSlowReceivers(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, 20*time.Millisecond, zap.NewNop(),
		WithSleeper(func(context.Context, time.Duration) {}), WithMaxAttempts(1))

	assert.False(t, dispatcher.SendNotification(context.Background(), 1, EventTest, nil))
}

func TestSendNotificationBackoffSpacing(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, time.Second, zap.NewNop(),
		WithBackoff(20*time.Millisecond))

	assert.False(t, dispatcher.SendNotification(context.Background(), 1, EventTest, nil))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 40*time.Millisecond)
}

func TestSendNotificationIgnoresCallerCancellation(t *testing.T) {
	server, hits := statusServer(t, http.StatusOK)
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{1: server.URL}}, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, dispatcher.SendNotification(ctx, 1, EventTest, nil))
	assert.Equal(t, int32(1), hits.Load())
}

func TestPayloadShape(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	fixed := time.Date(2024, 3, 9, 16, 5, 7, 250_000_000, time.FixedZone("CET", 3600))
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{42: server.URL}}, time.Second, zap.NewNop(),
		WithClock(func() time.Time { return fixed }))

	trigger := domain.Trigger{
		Symbol:   "DOT",
		Price:    5.0,
		Alert:    domain.PriceAlert{UserID: 42, Symbol: "DOT", TargetPrice: 5.0, Direction: domain.DirectionAbove},
		Snapshot: domain.PriceSnapshot{Symbol: "DOT", Price: 5.0, Change24h: 3.5},
	}
	require.True(t, dispatcher.SendPriceAlert(context.Background(), trigger))

	request := <-received
	assert.Equal(t, http.MethodPost, request.Method)
	assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
	assert.Equal(t, EventPriceAlert, request.Header.Get("X-Webhook-Event"))
	assert.NotEmpty(t, request.Header.Get("X-Webhook-Delivery"))

	var payload struct {
		Event     string         `json:"event"`
		Timestamp string         `json:"timestamp"`
		Data      map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-bodies, &payload))
	assert.Equal(t, "price_alert", payload.Event)
	assert.Equal(t, "2024-03-09T15:05:07.250Z", payload.Timestamp)
	assert.Equal(t, map[string]any{
		"symbol":       "DOT",
		"currentPrice": 5.0,
		"targetPrice":  5.0,
		"direction":    "above",
		"change24h":    3.5,
	}, payload.Data)
}

func TestTypedWrappers(t *testing.T) {
	events := make(chan string, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload Payload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		events <- payload.Event
	}))
	defer server.Close()

	ctx := context.Background()
	dispatcher := NewDispatcher(memoryWebhooks{urls: map[int64]string{3: server.URL}}, time.Second, zap.NewNop())

	assert.True(t, dispatcher.SendWhaleAlert(ctx, 3, WhaleTransaction{Symbol: "ETH", Amount: 10000, AmountUSD: 3e7}))
	assert.True(t, dispatcher.SendMarketAlert(ctx, 3, MarketEvent{Title: "Fear index", Severity: "high"}))
	assert.True(t, dispatcher.SendAnomalyAlert(ctx, 3, Anomaly{Symbol: "SOL", Kind: "volume_spike", Value: 4.2}))
	assert.True(t, dispatcher.TestWebhook(ctx, 3))
	assert.False(t, dispatcher.TestWebhook(ctx, 4))

	close(events)
	var got []string
	for event := range events {
		got = append(got, event)
	}
	assert.Equal(t, []string{EventWhaleAlert, EventMarketAlert, EventAnomalyAlert, EventTest}, got)
}
