package db

import "time"

type userModel struct {
	TelegramUserID int64 `gorm:"primaryKey;autoIncrement:false"`
	ChatID         int64 `gorm:"not null"`
	Username       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userModel) TableName() string {
	return "users"
}

type deliveryModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     int64  `gorm:"index:idx_deliveries_user_created,priority:1;not null"`
	Event      string `gorm:"size:32;not null"`
	URL        string `gorm:"not null"`
	State      string `gorm:"size:16;not null"`
	Attempts   int    `gorm:"not null"`
	StatusCode int
	LastError  string
	CreatedAt  time.Time `gorm:"index:idx_deliveries_user_created,priority:2"`
	FinishedAt time.Time
}

func (deliveryModel) TableName() string {
	return "webhook_deliveries"
}
