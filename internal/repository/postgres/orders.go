// internal/repository/postgres/orders.go
package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return translate(conn(ctx, r.db).Create(o).Error)
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := conn(ctx, r.db).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *OrderRepository) List(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]models.Order, int64, error) {
	query := conn(ctx, r.db).Model(&models.Order{})
	if f.BuyerID != nil {
		query = query.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.SellerID != nil {
		query = query.Where("seller_id = ?", *f.SellerID)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := applyPage(query.Preload("Items"), page, []string{"created_at", "total_amount", "status"}).Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, changes repository.OrderChanges) (*models.Order, error) {
	updates := map[string]interface{}{"status": to}
	if changes.DeliveredAt != nil {
		updates["delivered_at"] = *changes.DeliveredAt
	}
	if changes.CancelledAt != nil {
		updates["cancelled_at"] = *changes.CancelledAt
		updates["cancellation_reason"] = changes.CancellationReason
	}
	if changes.IsPaid {
		updates["is_paid"] = true
		updates["paid_at"] = changes.PaidAt
	}

	var order models.Order
	result := conn(ctx, r.db).Model(&order).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := conn(ctx, r.db).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, repository.ErrNotFound
		}
		return nil, repository.ErrStaleState
	}

	if err := conn(ctx, r.db).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
