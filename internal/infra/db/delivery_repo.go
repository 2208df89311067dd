package db

import (
	"context"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository keeps the terminal outcome of every webhook delivery.
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record upserts by delivery ID.
func (r *DeliveryRepository) Record(ctx context.Context, delivery domain.Delivery) error {
	model := mapDeliveryToModel(delivery)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

// Recent returns the user's latest deliveries, newest first.
func (r *DeliveryRepository) Recent(ctx context.Context, userID int64, limit int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = 10
	}
	var models []deliveryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	deliveries := make([]domain.Delivery, 0, len(models))
	for _, model := range models {
		deliveries = append(deliveries, mapDeliveryToDomain(model))
	}
	return deliveries, nil
}

func mapDeliveryToModel(delivery domain.Delivery) deliveryModel {
	return deliveryModel{
		ID:         delivery.ID,
		UserID:     delivery.UserID,
		Event:      delivery.Event,
		URL:        delivery.URL,
		State:      string(delivery.State),
		Attempts:   delivery.Attempts,
		StatusCode: delivery.StatusCode,
		LastError:  delivery.LastError,
		CreatedAt:  delivery.CreatedAt,
		FinishedAt: delivery.FinishedAt,
	}
}

func mapDeliveryToDomain(model deliveryModel) domain.Delivery {
	return domain.Delivery{
		ID:         model.ID,
		UserID:     model.UserID,
		Event:      model.Event,
		URL:        model.URL,
		State:      domain.DeliveryState(model.State),
		Attempts:   model.Attempts,
		StatusCode: model.StatusCode,
		LastError:  model.LastError,
		CreatedAt:  model.CreatedAt,
		FinishedAt: model.FinishedAt,
	}
}
