package telegram

import (
	"errors"
	"strings"
)

const HelpText = `Commands:
/start - register
/help - show this help
/alert <SYMBOL> <above|below> <price> - alert when the price crosses a target
/alerts - list your alerts
/unalert <SYMBOL> <above|below> - remove an alert
/clearalerts - remove all your alerts
/price <SYMBOL> [SYMBOL...] - current prices
/portfolio - value your holdings
/setportfolio <SYMBOL=AMOUNT> [...] - replace your holdings
/webhook <url|off> - set or remove your webhook
/testwebhook - send a test webhook
/deliveries - recent webhook deliveries

Notes:
- One alert per symbol: a new alert replaces the previous one.
- > and >= mean above, < and <= mean below. Alerts fire once and are removed.
Example:
/alert BTC above 70000
/setportfolio BTC=0.5 ETH=2
`

var ErrInvalidArguments = errors.New("invalid arguments")

func ParseAlertArgs(args string) (symbol, direction, price string, err error) {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		return "", "", "", ErrInvalidArguments
	}
	return parts[0], parts[1], parts[2], nil
}

func ParseUnalertArgs(args string) (symbol, direction string, err error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "", "", ErrInvalidArguments
	}
	return parts[0], parts[1], nil
}

// ParseSymbols accepts symbols separated by spaces or commas.
func ParseSymbols(args string) ([]string, error) {
	symbols := strings.FieldsFunc(args, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(symbols) == 0 {
		return nil, ErrInvalidArguments
	}
	return symbols, nil
}

// ParseWebhookArg returns the URL to register, or remove=true for "off".
func ParseWebhookArg(args string) (url string, remove bool, err error) {
	parts := strings.Fields(args)
	if len(parts) != 1 {
		return "", false, ErrInvalidArguments
	}
	switch strings.ToLower(parts[0]) {
	case "off", "remove", "delete":
		return "", true, nil
	}
	return parts[0], false, nil
}
