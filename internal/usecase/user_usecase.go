package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"go.uber.org/zap"
)

// UserUsecase registers chat users and resolves the chat their alert
// notifications go to. Resolved chats are kept in memory.
type UserUsecase struct {
	users  domain.UserRepository
	logger *zap.Logger

	mu    sync.RWMutex
	chats map[int64]int64
}

// NewUserUsecase accepts a nil repository; registrations then live only in
// memory.
func NewUserUsecase(users domain.UserRepository, logger *zap.Logger) *UserUsecase {
	return &UserUsecase{users: users, logger: logger, chats: make(map[int64]int64)}
}

// Register records chatID as the notification chat of the user.
func (u *UserUsecase) Register(ctx context.Context, telegramUserID, chatID int64, username string) (domain.User, error) {
	user := domain.User{TelegramUserID: telegramUserID, ChatID: chatID, Username: username}
	if u.users != nil {
		if err := u.users.Upsert(ctx, user); err != nil {
			return domain.User{}, err
		}
		if stored, err := u.users.GetByTelegramID(ctx, telegramUserID); err == nil {
			user = stored
		}
	}
	u.remember(telegramUserID, chatID)
	return user, nil
}

// ChatID returns the registered notification chat. Users that never
// registered are notified in their private chat, whose ID equals the user ID.
func (u *UserUsecase) ChatID(ctx context.Context, telegramUserID int64) int64 {
	u.mu.RLock()
	chatID, ok := u.chats[telegramUserID]
	u.mu.RUnlock()
	if ok {
		return chatID
	}
	if u.users == nil {
		return telegramUserID
	}

	user, err := u.users.GetByTelegramID(ctx, telegramUserID)
	switch {
	case err == nil:
		u.remember(telegramUserID, user.ChatID)
		return user.ChatID
	case errors.Is(err, domain.ErrNotFound):
		return telegramUserID
	default:
		u.logger.Warn("chat lookup failed, using private chat", zap.Int64("telegram_user_id", telegramUserID), zap.Error(err))
		return telegramUserID
	}
}

func (u *UserUsecase) remember(telegramUserID, chatID int64) {
	u.mu.Lock()
	u.chats[telegramUserID] = chatID
	u.mu.Unlock()
}
