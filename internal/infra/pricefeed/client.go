package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"go.uber.org/zap"
)

const quoteCurrency = "usd"

var ErrRateLimited = errors.New("price api rate limited")

// Client talks to a CoinGecko-compatible /simple/price endpoint. Symbols are
// translated to provider coin ids through ids; unknown symbols fall back to
// their lower-cased form.
type Client struct {
	baseURL string
	apiKey  string
	ids     map[string]string
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time
}

func NewClient(baseURL, apiKey string, timeout time.Duration, ids map[string]string, logger *zap.Logger) *Client {
	normalized := make(map[string]string, len(ids))
	for symbol, id := range ids {
		normalized[domain.NormalizeSymbol(symbol)] = strings.TrimSpace(id)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		ids:     normalized,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Client) GetPrices(ctx context.Context, symbols []string) (map[string]domain.PriceSnapshot, error) {
	if len(symbols) == 0 {
		return map[string]domain.PriceSnapshot{}, nil
	}

	symbolsByID := make(map[string][]string, len(symbols))
	for _, symbol := range symbols {
		symbol = domain.NormalizeSymbol(symbol)
		id := c.coinID(symbol)
		symbolsByID[id] = append(symbolsByID[id], symbol)
	}
	ids := make([]string, 0, len(symbolsByID))
	for id := range symbolsByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", quoteCurrency)
	query.Set("include_market_cap", "true")
	query.Set("include_24hr_vol", "true")
	query.Set("include_24hr_change", "true")
	endpoint := c.baseURL + "/simple/price?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		request.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	c.logger.Debug("price request start", zap.Strings("ids", ids))
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Error("price request failed", zap.Strings("ids", ids), zap.Error(err))
		return nil, err
	}
	defer response.Body.Close()

	c.logger.Debug(
		"price request complete",
		zap.Strings("ids", ids),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("price api error: status %d", response.StatusCode)
	}

	var payload simplePriceResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	updatedAt := c.now().UTC()
	snapshots := make(map[string]domain.PriceSnapshot, len(symbols))
	for id, quote := range payload {
		if quote.Price == nil {
			continue
		}
		for _, symbol := range symbolsByID[id] {
			snapshots[symbol] = quote.snapshot(symbol, updatedAt)
		}
	}
	return snapshots, nil
}

func (c *Client) coinID(symbol string) string {
	if id, ok := c.ids[symbol]; ok && id != "" {
		return id
	}
	return strings.ToLower(symbol)
}
