package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const recentDeliveries = 10

type Handlers struct {
	userUC      *usecase.UserUsecase
	alertUC     *usecase.AlertUsecase
	priceUC     *usecase.PriceUsecase
	portfolioUC *usecase.PortfolioUsecase
	webhookUC   *usecase.WebhookUsecase
	deliveries  domain.DeliveryLog
	logger      *zap.Logger
}

// NewHandlers accepts a nil delivery log when the database is disabled.
func NewHandlers(
	userUC *usecase.UserUsecase,
	alertUC *usecase.AlertUsecase,
	priceUC *usecase.PriceUsecase,
	portfolioUC *usecase.PortfolioUsecase,
	webhookUC *usecase.WebhookUsecase,
	deliveries domain.DeliveryLog,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userUC:      userUC,
		alertUC:     alertUC,
		priceUC:     priceUC,
		portfolioUC: portfolioUC,
		webhookUC:   webhookUC,
		deliveries:  deliveries,
		logger:      logger,
	}
}

func (h *Handlers) HandleUpdate(ctx context.Context, sender Sender, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	if update.Message.From == nil {
		return
	}
	if update.Message.IsCommand() {
		h.handleCommand(ctx, sender, update)
		return
	}
}

func (h *Handlers) handleCommand(ctx context.Context, sender Sender, update tgbotapi.Update) {
	command := update.Message.Command()
	args := update.Message.CommandArguments()
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	username := update.Message.From.UserName

	h.logger.Info(
		"telegram command received",
		zap.Int64("chat_id", chatID),
		zap.Int64("telegram_user_id", userID),
		zap.String("username", username),
		zap.String("command", command),
		zap.String("args", args),
	)

	var text string
	switch command {
	case "start":
		text = h.start(ctx, userID, chatID, username)
	case "help":
		text = HelpText
	case "alert":
		text = h.setAlert(ctx, userID, args)
	case "alerts":
		text = h.listAlerts(ctx, userID)
	case "unalert":
		text = h.removeAlert(ctx, userID, args)
	case "clearalerts":
		text = h.clearAlerts(ctx, userID)
	case "price":
		text = h.prices(ctx, args)
	case "portfolio":
		text = h.portfolio(ctx, userID)
	case "setportfolio":
		text = h.setPortfolio(ctx, userID, args)
	case "webhook":
		text = h.webhook(ctx, userID, args)
	case "testwebhook":
		text = h.testWebhook(ctx, userID)
	case "deliveries":
		text = h.recentDeliveries(ctx, userID)
	default:
		h.logger.Warn("unknown command", zap.Int64("telegram_user_id", userID), zap.String("command", command))
		text = "Unknown command.\n\n" + HelpText
	}
	h.reply(sender, chatID, text)
}

func (h *Handlers) start(ctx context.Context, userID, chatID int64, username string) string {
	if _, err := h.userUC.Register(ctx, userID, chatID, username); err != nil {
		h.logger.Warn("start command failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
		return "Failed to register. Please try again."
	}
	h.logger.Info("start command complete", zap.Int64("telegram_user_id", userID), zap.Int64("chat_id", chatID))
	return "Welcome to pricewatch. Alerts will be sent to this chat.\n\n" + HelpText
}

func (h *Handlers) setAlert(ctx context.Context, userID int64, args string) string {
	symbol, direction, price, err := ParseAlertArgs(args)
	if err != nil {
		return "Usage: /alert <SYMBOL> <above|below> <price>"
	}
	alert, err := h.alertUC.SetAlert(ctx, userID, symbol, direction, price)
	if err != nil {
		h.logger.Warn("alert command failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
		return h.errorMessage(err)
	}
	return fmt.Sprintf("Alert set: %s %s %s", alert.Symbol, alert.Direction, formatNumber(alert.TargetPrice))
}

func (h *Handlers) listAlerts(ctx context.Context, userID int64) string {
	alerts, err := h.alertUC.ListAlerts(ctx, userID)
	if err != nil {
		h.logger.Warn("alerts list failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
		return h.errorMessage(err)
	}
	if len(alerts) == 0 {
		return "No alerts yet. Use /alert to create one."
	}
	return formatAlerts(alerts)
}

func (h *Handlers) removeAlert(ctx context.Context, userID int64, args string) string {
	symbol, direction, err := ParseUnalertArgs(args)
	if err != nil {
		return "Usage: /unalert <SYMBOL> <above|below>"
	}
	removed, err := h.alertUC.RemoveAlert(ctx, userID, symbol, direction)
	if err != nil {
		return h.errorMessage(err)
	}
	if !removed {
		return "No matching alert."
	}
	return fmt.Sprintf("Alert on %s removed.", domain.NormalizeSymbol(symbol))
}

func (h *Handlers) clearAlerts(ctx context.Context, userID int64) string {
	count, err := h.alertUC.ClearAlerts(ctx, userID)
	if err != nil {
		return h.errorMessage(err)
	}
	return fmt.Sprintf("Removed %d alert(s).", count)
}

func (h *Handlers) prices(ctx context.Context, args string) string {
	symbols, err := ParseSymbols(args)
	if err != nil {
		return "Usage: /price <SYMBOL> [SYMBOL...]"
	}
	if len(symbols) == 1 {
		snapshot, err := h.priceUC.GetPrice(ctx, symbols[0])
		if err != nil {
			return h.errorMessage(err)
		}
		return formatPrices(symbols, map[string]domain.PriceSnapshot{snapshot.Symbol: snapshot})
	}
	snapshots, err := h.priceUC.GetPrices(ctx, symbols)
	if err != nil {
		return h.errorMessage(err)
	}
	return formatPrices(symbols, snapshots)
}

func (h *Handlers) portfolio(ctx context.Context, userID int64) string {
	valuation, err := h.portfolioUC.Value(ctx, userID)
	if err != nil {
		h.logger.Warn("portfolio valuation failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
		return h.errorMessage(err)
	}
	return formatValuation(valuation)
}

func (h *Handlers) setPortfolio(ctx context.Context, userID int64, args string) string {
	holdings, err := usecase.ParseHoldings(strings.Fields(args))
	if err != nil || len(holdings) == 0 {
		return "Usage: /setportfolio <SYMBOL=AMOUNT> [...]"
	}
	portfolio, err := h.portfolioUC.Set(ctx, userID, holdings)
	if err != nil {
		return h.errorMessage(err)
	}
	return fmt.Sprintf("Portfolio saved with %d holding(s).", len(portfolio.Holdings))
}

func (h *Handlers) webhook(ctx context.Context, userID int64, args string) string {
	if strings.TrimSpace(args) == "" {
		registration, found, err := h.webhookUC.Get(ctx, userID)
		if err != nil {
			return h.errorMessage(err)
		}
		if !found {
			return "No webhook set. Usage: /webhook <url|off>"
		}
		return "Your webhook: " + registration.URL
	}

	url, remove, err := ParseWebhookArg(args)
	if err != nil {
		return "Usage: /webhook <url|off>"
	}
	if remove {
		if err := h.webhookUC.Remove(ctx, userID); err != nil {
			return h.errorMessage(err)
		}
		return "Webhook removed."
	}
	if _, err := h.webhookUC.Register(ctx, userID, url); err != nil {
		return h.errorMessage(err)
	}
	return "Webhook saved. Use /testwebhook to try it."
}

func (h *Handlers) testWebhook(ctx context.Context, userID int64) string {
	if h.webhookUC.Test(ctx, userID) {
		return "Test webhook delivered."
	}
	return "Test webhook failed. Check that /webhook is set and the URL answers with 2xx."
}

func (h *Handlers) recentDeliveries(ctx context.Context, userID int64) string {
	if h.deliveries == nil {
		return "Delivery history is not enabled."
	}
	deliveries, err := h.deliveries.Recent(ctx, userID, recentDeliveries)
	if err != nil {
		return h.errorMessage(err)
	}
	if len(deliveries) == 0 {
		return "No webhook deliveries yet."
	}
	return formatDeliveries(deliveries)
}

func (h *Handlers) errorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrInvalidSymbol):
		return "Invalid symbol. Use a ticker like BTC."
	case errors.Is(err, usecase.ErrInvalidDirection):
		return "Invalid direction. Use above or below."
	case errors.Is(err, usecase.ErrInvalidPrice):
		return "Invalid price. Use a positive number like 70000."
	case errors.Is(err, usecase.ErrInvalidHolding):
		return "Invalid holding. Use SYMBOL=AMOUNT with a non-negative amount."
	case errors.Is(err, usecase.ErrInvalidWebhookURL):
		return "Invalid webhook URL. Use an http:// or https:// address."
	case errors.Is(err, usecase.ErrPriceNotFound):
		return "Price not available for that symbol."
	}

	h.logger.Warn("unhandled error", zap.Error(err))
	return "Something went wrong. Please try again."
}

func (h *Handlers) reply(sender Sender, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := sender.Send(msg); err != nil {
		h.logger.Warn("failed to send message", zap.Error(err))
	}
}
