package domain

import "time"

// User is a registered chat user. ChatID is the chat that receives the user's
// alert notifications.
type User struct {
	TelegramUserID int64
	ChatID         int64
	Username       string
	RegisteredAt   time.Time
	LastSeenAt     time.Time
}
