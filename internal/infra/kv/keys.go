package kv

import (
	"strconv"
	"strings"
)

const (
	alertPrefix     = "alert:"
	pricePrefix     = "price:"
	portfolioPrefix = "portfolio:"
	webhookPrefix   = "webhook:"
)

func alertKey(userID int64, symbol string) string {
	return alertUserPrefix(userID) + symbol
}

func alertUserPrefix(userID int64) string {
	return alertPrefix + strconv.FormatInt(userID, 10) + ":"
}

// parseAlertKey splits "alert:{userId}:{symbol}".
func parseAlertKey(key string) (int64, string, bool) {
	rest, ok := strings.CutPrefix(key, alertPrefix)
	if !ok {
		return 0, "", false
	}
	rawUser, symbol, ok := strings.Cut(rest, ":")
	if !ok || symbol == "" {
		return 0, "", false
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return userID, symbol, true
}

func priceKey(symbol string) string {
	return pricePrefix + symbol
}

func portfolioKey(userID int64) string {
	return portfolioPrefix + strconv.FormatInt(userID, 10)
}

func webhookKey(userID int64) string {
	return webhookPrefix + strconv.FormatInt(userID, 10)
}
