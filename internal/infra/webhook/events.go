package webhook

import (
	"context"

	"github.com/NasaVasa/pricewatch/internal/domain"
)

const (
	EventPriceAlert   = "price_alert"
	EventWhaleAlert   = "whale_alert"
	EventMarketAlert  = "market_alert"
	EventAnomalyAlert = "anomaly_alert"
	EventTest         = "test"
)

type PriceAlertData struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"currentPrice"`
	TargetPrice  float64 `json:"targetPrice"`
	Direction    string  `json:"direction"`
	Change24h    float64 `json:"change24h"`
}

type WhaleTransaction struct {
	Symbol     string  `json:"symbol"`
	Blockchain string  `json:"blockchain,omitempty"`
	Amount     float64 `json:"amount"`
	AmountUSD  float64 `json:"amountUsd"`
	From       string  `json:"from,omitempty"`
	To         string  `json:"to,omitempty"`
	TxHash     string  `json:"txHash,omitempty"`
}

type MarketEvent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Symbols     []string `json:"symbols,omitempty"`
}

type Anomaly struct {
	Symbol      string  `json:"symbol"`
	Kind        string  `json:"kind"`
	Severity    string  `json:"severity"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

type testData struct {
	Message string `json:"message"`
	Test    bool   `json:"test"`
}

func (d *Dispatcher) SendPriceAlert(ctx context.Context, trigger domain.Trigger) bool {
	return d.SendNotification(ctx, trigger.Alert.UserID, EventPriceAlert, PriceAlertData{
		Symbol:       trigger.Symbol,
		CurrentPrice: trigger.Price,
		TargetPrice:  trigger.Alert.TargetPrice,
		Direction:    string(trigger.Alert.Direction),
		Change24h:    trigger.Snapshot.Change24h,
	})
}

func (d *Dispatcher) SendWhaleAlert(ctx context.Context, userID int64, tx WhaleTransaction) bool {
	return d.SendNotification(ctx, userID, EventWhaleAlert, tx)
}

func (d *Dispatcher) SendMarketAlert(ctx context.Context, userID int64, event MarketEvent) bool {
	return d.SendNotification(ctx, userID, EventMarketAlert, event)
}

func (d *Dispatcher) SendAnomalyAlert(ctx context.Context, userID int64, anomaly Anomaly) bool {
	return d.SendNotification(ctx, userID, EventAnomalyAlert, anomaly)
}

func (d *Dispatcher) TestWebhook(ctx context.Context, userID int64) bool {
	return d.SendNotification(ctx, userID, EventTest, testData{
		Message: "This is a test notification from pricewatch.",
		Test:    true,
	})
}
