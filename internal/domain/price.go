package domain

import (
	"context"
	"strings"
	"time"
)

type PriceSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change24h"`
	Volume24h float64   `json:"volume24h"`
	MarketCap float64   `json:"marketCap"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PriceProvider fetches current prices for a batch of symbols. Symbols the
// provider does not know are absent from the result.
type PriceProvider interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]PriceSnapshot, error)
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
