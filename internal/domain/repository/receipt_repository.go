package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/pkg/pagination"
)

// ReceiptFilterParams contains filter parameters for listing receipts
type ReceiptFilterParams struct {
	pagination.PaginationParams
	UserID *uuid.UUID `form:"-"`
}

// ReceiptRepository defines the interface for receipt data access
type ReceiptRepository interface {
	// Create persists the receipt. A second receipt for the same order or a
	// reused receipt number returns ErrDuplicateKey.
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Receipt, error)
	// List returns receipts newest first.
	List(ctx context.Context, params *ReceiptFilterParams) ([]entity.Receipt, int64, error)
	// MaxReceiptNumber returns the highest numeric suffix in use, 0 when empty.
	MaxReceiptNumber(ctx context.Context) (int64, error)
}

// SequenceRepository issues values from named monotonic counters
type SequenceRepository interface {
	// Next atomically increments the named counter and returns the new value.
	Next(ctx context.Context, name string) (int64, error)
	// EnsureAtLeast raises the counter to floor if it is lower.
	EnsureAtLeast(ctx context.Context, name string, floor int64) error
}
