package telegram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/shopspring/decimal"
)

func formatNumber(value float64) string {
	return decimal.NewFromFloat(value).String()
}

func formatMoney(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(2)
}

// FormatTrigger renders the chat message sent when an alert fires.
func FormatTrigger(trigger domain.Trigger) string {
	return fmt.Sprintf(
		"Price alert: %s is %s %s (now %s, 24h %s%%)",
		trigger.Symbol,
		trigger.Alert.Direction,
		formatNumber(trigger.Alert.TargetPrice),
		formatNumber(trigger.Price),
		decimal.NewFromFloat(trigger.Snapshot.Change24h).StringFixed(2),
	)
}

func formatAlerts(alerts []domain.PriceAlert) string {
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Symbol < alerts[j].Symbol })
	var builder strings.Builder
	builder.WriteString("Your alerts:\n")
	for _, alert := range alerts {
		builder.WriteString(fmt.Sprintf("%s %s %s\n", alert.Symbol, alert.Direction, formatNumber(alert.TargetPrice)))
	}
	return builder.String()
}

func formatPrices(symbols []string, snapshots map[string]domain.PriceSnapshot) string {
	var builder strings.Builder
	for _, symbol := range symbols {
		symbol = domain.NormalizeSymbol(symbol)
		snapshot, ok := snapshots[symbol]
		if !ok {
			builder.WriteString(fmt.Sprintf("%s: not available\n", symbol))
			continue
		}
		builder.WriteString(fmt.Sprintf(
			"%s: $%s (24h %s%%, vol $%s)\n",
			symbol,
			formatNumber(snapshot.Price),
			decimal.NewFromFloat(snapshot.Change24h).StringFixed(2),
			formatMoney(snapshot.Volume24h),
		))
	}
	return builder.String()
}

func formatValuation(valuation domain.PortfolioValuation) string {
	if len(valuation.Holdings) == 0 {
		return "Your portfolio is empty. Use /setportfolio BTC=0.5 ETH=2"
	}

	symbols := make([]string, 0, len(valuation.Holdings))
	for symbol := range valuation.Holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var builder strings.Builder
	builder.WriteString("Your portfolio:\n")
	for _, symbol := range symbols {
		value, ok := valuation.Values[symbol]
		if !ok {
			builder.WriteString(fmt.Sprintf("%s %s = price unavailable\n", formatNumber(valuation.Holdings[symbol]), symbol))
			continue
		}
		builder.WriteString(fmt.Sprintf("%s %s = $%s\n", formatNumber(valuation.Holdings[symbol]), symbol, formatMoney(value)))
	}
	builder.WriteString(fmt.Sprintf("Total: $%s", formatMoney(valuation.Total)))
	return builder.String()
}

func formatDeliveries(deliveries []domain.Delivery) string {
	var builder strings.Builder
	builder.WriteString("Recent deliveries:\n")
	for _, delivery := range deliveries {
		line := fmt.Sprintf("%s %s %s after %d attempt(s)", delivery.CreatedAt.Format("2006-01-02 15:04"), delivery.Event, delivery.State, delivery.Attempts)
		if delivery.LastError != "" {
			line += ": " + delivery.LastError
		}
		builder.WriteString(line + "\n")
	}
	return builder.String()
}
