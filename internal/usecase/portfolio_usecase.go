package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var ErrInvalidHolding = errors.New("invalid holding")

// PriceLookup fetches current snapshots for a batch of symbols.
type PriceLookup interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]domain.PriceSnapshot, error)
}

type PortfolioUsecase struct {
	portfolios domain.PortfolioRepository
	prices     PriceLookup
	validate   *validator.Validate
}

func NewPortfolioUsecase(portfolios domain.PortfolioRepository, prices PriceLookup) *PortfolioUsecase {
	return &PortfolioUsecase{portfolios: portfolios, prices: prices, validate: newValidator()}
}

func (u *PortfolioUsecase) Get(ctx context.Context, userID int64) (domain.Portfolio, error) {
	return u.portfolios.Get(ctx, userID)
}

// Set replaces the user's holdings. Amounts must be non-negative.
func (u *PortfolioUsecase) Set(ctx context.Context, userID int64, holdings map[string]float64) (domain.Portfolio, error) {
	normalized := make(map[string]float64, len(holdings))
	for symbol, amount := range holdings {
		s, err := normalizeSymbol(u.validate, symbol)
		if err != nil {
			return domain.Portfolio{}, fmt.Errorf("%w: %q", ErrInvalidHolding, symbol)
		}
		if amount < 0 {
			return domain.Portfolio{}, fmt.Errorf("%w: %s amount must not be negative", ErrInvalidHolding, s)
		}
		normalized[s] = amount
	}

	portfolio := domain.Portfolio{UserID: userID, Holdings: normalized}
	if err := u.portfolios.Set(ctx, portfolio); err != nil {
		return domain.Portfolio{}, err
	}
	return portfolio, nil
}

// Value prices every holding. Symbols without a current price are listed in
// Missing and contribute nothing to the total.
func (u *PortfolioUsecase) Value(ctx context.Context, userID int64) (domain.PortfolioValuation, error) {
	portfolio, err := u.portfolios.Get(ctx, userID)
	if err != nil {
		return domain.PortfolioValuation{}, err
	}

	valuation := domain.PortfolioValuation{
		Holdings: portfolio.Holdings,
		Prices:   make(map[string]float64, len(portfolio.Holdings)),
		Values:   make(map[string]float64, len(portfolio.Holdings)),
	}
	if len(portfolio.Holdings) == 0 {
		return valuation, nil
	}

	symbols := make([]string, 0, len(portfolio.Holdings))
	for symbol := range portfolio.Holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	snapshots, err := u.prices.GetPrices(ctx, symbols)
	if err != nil {
		return domain.PortfolioValuation{}, err
	}

	total := decimal.Zero
	for _, symbol := range symbols {
		snapshot, ok := snapshots[symbol]
		if !ok {
			valuation.Missing = append(valuation.Missing, symbol)
			continue
		}
		value := decimal.NewFromFloat(portfolio.Holdings[symbol]).Mul(decimal.NewFromFloat(snapshot.Price))
		valuation.Prices[symbol] = snapshot.Price
		valuation.Values[symbol] = value.InexactFloat64()
		total = total.Add(value)
	}
	valuation.Total = total.InexactFloat64()
	return valuation, nil
}

// ParseHoldings reads SYMBOL=AMOUNT pairs.
func ParseHoldings(args []string) (map[string]float64, error) {
	holdings := make(map[string]float64, len(args))
	for _, arg := range args {
		symbol, amount, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not SYMBOL=AMOUNT", ErrInvalidHolding, arg)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil || value.IsNegative() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHolding, arg)
		}
		holdings[domain.NormalizeSymbol(symbol)] = value.InexactFloat64()
	}
	return holdings, nil
}
