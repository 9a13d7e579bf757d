package mappers

import (
	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
	"github.com/thehieu03/Group3-SWP391-sub003/internal/infrastructure/postgres/models"
)

func ToGORMOrder(order *domain.Order) *models.OrderModel {
	return &models.OrderModel{
		ID:        order.ID,
		Status:    order.Status,
		Version:   order.Version,
		LastError: order.LastError,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func ToDomainOrder(model *models.OrderModel) *domain.Order {
	return &domain.Order{
		ID:        model.ID,
		Status:    model.Status,
		Version:   model.Version,
		LastError: model.LastError,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
