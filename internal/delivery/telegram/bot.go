package telegram

import (
	"context"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the Bot API used to send messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api         *tgbotapi.BotAPI
	handlers    *Handlers
	pollTimeout int
}

func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

func NewBot(api *tgbotapi.BotAPI, handlers *Handlers, pollTimeout int) *Bot {
	return &Bot{api: api, handlers: handlers, pollTimeout: pollTimeout}
}

func (b *Bot) Start(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(config)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handlers.HandleUpdate(ctx, b.api, update)
		}
	}
}

// ChatResolver maps an alert owner to the chat that receives notifications.
type ChatResolver interface {
	ChatID(ctx context.Context, telegramUserID int64) int64
}

type Notifier struct {
	sender Sender
	chats  ChatResolver
	logger *zap.Logger
}

func NewNotifier(sender Sender, chats ChatResolver, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, chats: chats, logger: logger}
}

func (n *Notifier) Notify(chatID int64, text string) error {
	n.logger.Info("telegram notify send", zap.Int64("chat_id", chatID), zap.String("text", text))
	_, err := n.sender.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		n.logger.Warn("failed to notify", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return err
}

// NotifyTrigger tells the alert owner that the alert fired, in the chat the
// owner registered with /start.
func (n *Notifier) NotifyTrigger(ctx context.Context, trigger domain.Trigger) {
	chatID := trigger.Alert.UserID
	if n.chats != nil {
		chatID = n.chats.ChatID(ctx, trigger.Alert.UserID)
	}
	_ = n.Notify(chatID, FormatTrigger(trigger))
}
