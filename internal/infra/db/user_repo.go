package db

import (
	"context"
	"errors"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramUserID int64) (domain.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).Where("telegram_user_id = ?", telegramUserID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		TelegramUserID: model.TelegramUserID,
		ChatID:         model.ChatID,
		Username:       model.Username,
		RegisteredAt:   model.CreatedAt,
		LastSeenAt:     model.UpdatedAt,
	}, nil
}

// Upsert inserts the user or refreshes chat and username of an existing row.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) error {
	model := userModel{
		TelegramUserID: user.TelegramUserID,
		ChatID:         user.ChatID,
		Username:       user.Username,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_id", "username", "updated_at"}),
	}).Create(&model).Error
}
