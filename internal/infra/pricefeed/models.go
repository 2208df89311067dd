package pricefeed

import (
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
)

// simplePriceResponse is keyed by coin id.
type simplePriceResponse map[string]simpleQuote

type simpleQuote struct {
	Price     *float64 `json:"usd"`
	MarketCap float64  `json:"usd_market_cap"`
	Volume24h float64  `json:"usd_24h_vol"`
	Change24h float64  `json:"usd_24h_change"`
}

func (q simpleQuote) snapshot(symbol string, updatedAt time.Time) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Symbol:    symbol,
		Price:     *q.Price,
		Change24h: q.Change24h,
		Volume24h: q.Volume24h,
		MarketCap: q.MarketCap,
		UpdatedAt: updatedAt,
	}
}
