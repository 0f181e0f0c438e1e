package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/pkg/pagination"
)

// ProductFilterParams contains filter parameters for listing products
type ProductFilterParams struct {
	pagination.PaginationParams
	Search   string `form:"search"`
	Category string `form:"category"`
	InStock  bool   `form:"in_stock"`
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context, params *ProductFilterParams) ([]entity.Product, int64, error)

	// SetStock overwrites the stock count (admin edit).
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	// DecrementClamped lowers stock by amount without going below zero.
	DecrementClamped(ctx context.Context, id uuid.UUID, amount int) error
	// AtomicDecrementBatch decrements every product only if all have enough
	// stock. It returns the ids that were short; nothing changes when any are.
	AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error)
	// AtomicIncrementBatch restores stock, used to compensate a failed placement.
	AtomicIncrementBatch(ctx context.Context, increments map[uuid.UUID]int) error
}
