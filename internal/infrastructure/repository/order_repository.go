package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	domainRepo "github.com/sangkips/storefront-api/internal/domain/repository"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error)
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetByTrackingID(ctx context.Context, trackingID string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "tracking_id = ?", trackingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) List(ctx context.Context, params *domainRepo.OrderFilterParams) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != "" {
		query = query.Where("order_status = ?", params.Status)
	}
	if params.Source != "" {
		query = query.Where("source = ?", params.Source)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(Paginate(&params.PaginationParams)).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	return orders, total, err
}

// UpdateStatus refuses to move an order out of a terminal state
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.OrderStatus, paymentStatus enum.PaymentStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND order_status <> ?", id, enum.OrderStatusCancelled).
		Updates(map[string]interface{}{
			"order_status":   status,
			"payment_status": paymentStatus,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete soft-deletes in one statement so the status it reports is the one
// the row had when this call removed it.
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) (enum.OrderStatus, bool, error) {
	var removed []struct{ OrderStatus enum.OrderStatus }
	err := r.db.WithContext(ctx).Raw(`
		UPDATE orders SET deleted_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
		RETURNING order_status`, id).Scan(&removed).Error
	if err != nil || len(removed) == 0 {
		return "", false, err
	}
	return removed[0].OrderStatus, true, nil
}

func (r *orderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}
