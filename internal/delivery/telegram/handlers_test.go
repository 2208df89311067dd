package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/infra/kv"
	"github.com/NasaVasa/pricewatch/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.messages = append(s.messages, msg)
	}
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) last() tgbotapi.MessageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[len(s.messages)-1]
}

type fixedPrices map[string]float64

func (p fixedPrices) GetPrices(_ context.Context, symbols []string) (map[string]domain.PriceSnapshot, error) {
	out := make(map[string]domain.PriceSnapshot)
	for _, symbol := range symbols {
		if price, ok := p[symbol]; ok {
			out[symbol] = domain.PriceSnapshot{Symbol: symbol, Price: price}
		}
	}
	return out, nil
}

type noopMonitor struct{}

func (noopMonitor) StartMonitoring(context.Context, ...string) {}

type staticTester bool

func (s staticTester) TestWebhook(context.Context, int64) bool { return bool(s) }

type stubDeliveries []domain.Delivery

func (s stubDeliveries) Recent(context.Context, int64, int) ([]domain.Delivery, error) {
	return s, nil
}

func newTestHandlers(deliveries domain.DeliveryLog) *Handlers {
	return newTestHandlersWithUsers(usecase.NewUserUsecase(nil, zap.NewNop()), deliveries)
}

func newTestHandlersWithUsers(users *usecase.UserUsecase, deliveries domain.DeliveryLog) *Handlers {
	logger := zap.NewNop()
	store := cache.NewResilient(nil, cache.NewMemoryStore())
	provider := fixedPrices{"BTC": 60000, "ETH": 3000}
	priceCache := kv.NewPriceCache(store, 0, logger)
	priceUC := usecase.NewPriceUsecase(provider, priceCache, store, 0, logger)

	return NewHandlers(
		users,
		usecase.NewAlertUsecase(kv.NewAlertRegistry(store, logger), noopMonitor{}, logger),
		priceUC,
		usecase.NewPortfolioUsecase(kv.NewPortfolioRepository(store, logger), priceUC),
		usecase.NewWebhookUsecase(kv.NewWebhookRepository(store, logger), staticTester(true), logger),
		deliveries,
		logger,
	)
}

func commandUpdate(text string) tgbotapi.Update {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 500},
		From:     &tgbotapi.User{ID: 42, UserName: "trader"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func run(t *testing.T, h *Handlers, sender *recordingSender, text string) string {
	t.Helper()
	h.HandleUpdate(context.Background(), sender, commandUpdate(text))
	msg := sender.last()
	assert.Equal(t, int64(500), msg.ChatID)
	return msg.Text
}

func TestHandlersAlertFlow(t *testing.T) {
	h := newTestHandlers(nil)
	sender := &recordingSender{}

	assert.Equal(t, "Alert set: BTC above 70000", run(t, h, sender, "/alert btc above 70000"))
	assert.Equal(t, "Alert set: ETH below 2500.5", run(t, h, sender, "/alert ETH < 2500.5"))
	assert.Equal(t, "Your alerts:\nBTC above 70000\nETH below 2500.5\n", run(t, h, sender, "/alerts"))

	assert.Equal(t, "No matching alert.", run(t, h, sender, "/unalert BTC below"))
	assert.Equal(t, "Alert on BTC removed.", run(t, h, sender, "/unalert btc above"))
	assert.Equal(t, "Removed 1 alert(s).", run(t, h, sender, "/clearalerts"))
	assert.Equal(t, "No alerts yet. Use /alert to create one.", run(t, h, sender, "/alerts"))
}

func TestHandlersInputErrors(t *testing.T) {
	h := newTestHandlers(nil)
	sender := &recordingSender{}

	assert.Contains(t, run(t, h, sender, "/alert BTC"), "Usage: /alert")
	assert.Equal(t, "Invalid direction. Use above or below.", run(t, h, sender, "/alert BTC up 1"))
	assert.Equal(t, "Invalid price. Use a positive number like 70000.", run(t, h, sender, "/alert BTC above -1"))
	assert.Equal(t, "Invalid symbol. Use a ticker like BTC.", run(t, h, sender, "/alert B$C above 1"))
	assert.Equal(t, "Price not available for that symbol.", run(t, h, sender, "/price DOGE"))
	assert.Equal(t, "Invalid webhook URL. Use an http:// or https:// address.", run(t, h, sender, "/webhook ftp://x"))
	assert.Contains(t, run(t, h, sender, "/nope"), "Unknown command.")
}

func TestHandlersPricesAndPortfolio(t *testing.T) {
	h := newTestHandlers(nil)
	sender := &recordingSender{}

	assert.Equal(t, "BTC: $60000 (24h 0.00%, vol $0.00)\n", run(t, h, sender, "/price btc"))
	assert.Equal(t, "BTC: $60000 (24h 0.00%, vol $0.00)\nXRP: not available\n", run(t, h, sender, "/price btc,xrp"))

	assert.Contains(t, run(t, h, sender, "/portfolio"), "Your portfolio is empty")
	assert.Equal(t, "Portfolio saved with 2 holding(s).", run(t, h, sender, "/setportfolio btc=0.5 ETH=2"))
	assert.Equal(t, "Your portfolio:\n0.5 BTC = $30000.00\n2 ETH = $6000.00\nTotal: $36000.00", run(t, h, sender, "/portfolio"))
	assert.Contains(t, run(t, h, sender, "/setportfolio BTC"), "Usage: /setportfolio")
}

func TestHandlersWebhook(t *testing.T) {
	h := newTestHandlers(stubDeliveries{{Event: "test", State: domain.DeliveryFailed, Attempts: 3, LastError: "unexpected status 500"}})
	sender := &recordingSender{}

	assert.Contains(t, run(t, h, sender, "/webhook"), "No webhook set")
	assert.Equal(t, "Webhook saved. Use /testwebhook to try it.", run(t, h, sender, "/webhook https://example.com/hook"))
	assert.Equal(t, "Your webhook: https://example.com/hook", run(t, h, sender, "/webhook"))
	assert.Equal(t, "Test webhook delivered.", run(t, h, sender, "/testwebhook"))
	assert.Contains(t, run(t, h, sender, "/deliveries"), "test failed after 3 attempt(s): unexpected status 500")
	assert.Equal(t, "Webhook removed.", run(t, h, sender, "/webhook off"))
}

func TestHandlersDeliveriesDisabled(t *testing.T) {
	h := newTestHandlers(nil)
	sender := &recordingSender{}
	assert.Equal(t, "Delivery history is not enabled.", run(t, h, sender, "/deliveries"))
}

func TestHandlersIgnoreNonCommands(t *testing.T) {
	h := newTestHandlers(nil)
	sender := &recordingSender{}

	h.HandleUpdate(context.Background(), sender, tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}}})
	h.HandleUpdate(context.Background(), sender, tgbotapi.Update{})
	assert.Empty(t, sender.messages)
}

func TestNotifierNotifyTrigger(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewNotifier(sender, nil, zap.NewNop())

	notifier.NotifyTrigger(context.Background(), domain.Trigger{
		Symbol:   "DOT",
		Price:    5,
		Alert:    domain.PriceAlert{UserID: 42, Symbol: "DOT", TargetPrice: 5, Direction: domain.DirectionAbove},
		Snapshot: domain.PriceSnapshot{Change24h: 3.456},
	})

	require.Len(t, sender.messages, 1)
	assert.Equal(t, int64(42), sender.messages[0].ChatID)
	assert.Equal(t, "Price alert: DOT is above 5 (now 5, 24h 3.46%)", sender.messages[0].Text)
}

func TestStartRegistersNotificationChat(t *testing.T) {
	users := usecase.NewUserUsecase(nil, zap.NewNop())
	h := newTestHandlersWithUsers(users, nil)
	sender := &recordingSender{}

	assert.True(t, strings.HasPrefix(run(t, h, sender, "/start"), "Welcome to pricewatch."))

	alerts := &recordingSender{}
	NewNotifier(alerts, users, zap.NewNop()).NotifyTrigger(context.Background(), domain.Trigger{
		Symbol: "BTC",
		Price:  70000,
		Alert:  domain.PriceAlert{UserID: 42, Symbol: "BTC", TargetPrice: 70000, Direction: domain.DirectionAbove},
	})
	require.Len(t, alerts.messages, 1)
	assert.Equal(t, int64(500), alerts.messages[0].ChatID, "notifications go to the chat used for /start")
}
