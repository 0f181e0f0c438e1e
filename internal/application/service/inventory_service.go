package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"go.uber.org/zap"
)

// Availability is the result of a stock check
type Availability struct {
	Available    bool `json:"available"`
	CurrentStock int  `json:"current_stock"`
}

// InventoryService is the stock ledger. All stock mutations go through it.
type InventoryService struct {
	productRepo repository.ProductRepository
	metrics     *metrics.Registry
	logger      *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(productRepo repository.ProductRepository, m *metrics.Registry, logger *zap.Logger) *InventoryService {
	return &InventoryService{productRepo: productRepo, metrics: m, logger: logger}
}

// CheckAvailability reports whether requested units are in stock. A missing
// product is reported as unavailable rather than as an error.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID uuid.UUID, requested int) (Availability, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return Availability{}, fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return Availability{Available: false}, nil
	}
	return Availability{
		Available:    product.Stock >= requested,
		CurrentStock: product.Stock,
	}, nil
}

// Decrement lowers stock by qty, clamped at zero
func (s *InventoryService) Decrement(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return apperror.NewFieldError("quantity", "Quantity must be at least 1")
	}
	if err := s.productRepo.DecrementClamped(ctx, productID, qty); err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

// Reserve takes every quantity out of stock or none of them. products is used
// to name the short product in the returned InsufficientStock error.
func (s *InventoryService) Reserve(ctx context.Context, quantities map[uuid.UUID]int, products map[uuid.UUID]*entity.Product) error {
	failedIDs, err := s.productRepo.AtomicDecrementBatch(ctx, quantities)
	if err != nil {
		s.metrics.StockReservations.WithLabelValues("error").Inc()
		return fmt.Errorf("reserve stock: %w", err)
	}
	if len(failedIDs) == 0 {
		s.metrics.StockReservations.WithLabelValues("reserved").Inc()
		return nil
	}

	s.metrics.StockReservations.WithLabelValues("insufficient").Inc()
	short := failedIDs[0]
	name := short.String()
	if p, ok := products[short]; ok {
		name = p.Name
	}
	available := 0
	if current, err := s.productRepo.GetByID(ctx, short); err == nil && current != nil {
		available = current.Stock
	}
	return apperror.NewInsufficientStockError(name, available, quantities[short])
}

// Release puts reserved quantities back into stock
func (s *InventoryService) Release(ctx context.Context, quantities map[uuid.UUID]int) error {
	if err := s.productRepo.AtomicIncrementBatch(ctx, quantities); err != nil {
		s.logger.Error("failed to release stock", zap.Error(err), zap.Int("products", len(quantities)))
		return fmt.Errorf("release stock: %w", err)
	}
	s.metrics.StockReservations.WithLabelValues("released").Inc()
	return nil
}

// SetStock overwrites a product's stock count
func (s *InventoryService) SetStock(ctx context.Context, productID uuid.UUID, stock int) (*entity.Product, error) {
	if stock < 0 {
		return nil, apperror.NewFieldError("stock", "Stock cannot be negative")
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}
	if err := s.productRepo.SetStock(ctx, productID, stock); err != nil {
		return nil, fmt.Errorf("set stock: %w", err)
	}
	product.Stock = stock
	s.logger.Info("stock set", zap.String("product_id", productID.String()), zap.Int("stock", stock))
	return product, nil
}
