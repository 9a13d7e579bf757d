package repository

import (
	"context"
	"errors"
	"time"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/postgres/mappers"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultOrderRepository struct {
	DB *gorm.DB
}

func NewDefaultOrderRepository(db *gorm.DB) *DefaultOrderRepository {
	return &DefaultOrderRepository{DB: db}
}

func (r *DefaultOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	orderModel := mappers.ToGORMOrder(order)
	if orderModel.Status == "" {
		orderModel.Status = domain.StatusPending
	}
	if orderModel.Version == 0 {
		orderModel.Version = 1
	}
	if err := r.DB.WithContext(ctx).Create(orderModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrVersionConflict
		}
		return err
	}
	return nil
}

func (r *DefaultOrderRepository) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var orderModel models.OrderModel
	if err := r.DB.WithContext(ctx).First(&orderModel, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return mappers.ToDomainOrder(&orderModel), nil
}

// CompareAndSetStatus is the single write path for order state. The version
// predicate makes concurrent writers lose cleanly instead of clobbering each
// other; losers get ErrVersionConflict and re-read.
func (r *DefaultOrderRepository) CompareAndSetStatus(ctx context.Context, orderID string, expectedVersion int64, newStatus domain.OrderStatus, lastError string) error {
	res := r.DB.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", orderID, expectedVersion).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"version":    expectedVersion + 1,
			"last_error": lastError,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetOrderByID(ctx, orderID); errors.Is(err, domain.ErrOrderNotFound) {
			return domain.ErrOrderNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}
