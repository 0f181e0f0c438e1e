package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/pkg/pagination"
)

// OrderFilterParams contains filter parameters for listing orders
type OrderFilterParams struct {
	pagination.PaginationParams
	UserID *uuid.UUID         `form:"-"`
	Status enum.OrderStatus   `form:"status"`
	Source enum.SourceChannel `form:"source"`
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create persists the order with its items. A tracking id collision
	// returns ErrDuplicateKey.
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*entity.Order, error)
	List(ctx context.Context, params *OrderFilterParams) ([]entity.Order, int64, error)
	// UpdateStatus sets order and payment status. It returns false when the
	// order was already in a terminal state.
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.OrderStatus, paymentStatus enum.PaymentStatus) (bool, error)
	// Delete removes the order and returns the status it had. removed is
	// false when the order was already gone, so concurrent deletes of one
	// order see exactly one success.
	Delete(ctx context.Context, id uuid.UUID) (status enum.OrderStatus, removed bool, err error)
	// GetByPaymentID returns the order paid with the gateway intent, or nil.
	GetByPaymentID(ctx context.Context, paymentID string) (*entity.Order, error)
}
