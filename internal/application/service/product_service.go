package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/sangkips/storefront-api/pkg/pagination"
)

// ProductService handles catalog lookups and admin edits
type ProductService struct {
	productRepo repository.ProductRepository
	inventory   *InventoryService
}

// NewProductService creates a new product service
func NewProductService(productRepo repository.ProductRepository, inventory *InventoryService) *ProductService {
	return &ProductService{productRepo: productRepo, inventory: inventory}
}

// ProductInput represents the create/update product input
type ProductInput struct {
	Name          string
	Description   string
	Category      string
	Price         int64
	DiscountPrice *int64
	Stock         *int
}

func (in *ProductInput) validate() error {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(in.Name) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "Name is required"})
	}
	if in.Price < 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "price", Message: "Price cannot be negative"})
	} else if !money.InRange(in.Price) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "price", Message: "Price is too large"})
	}
	if in.DiscountPrice != nil && (*in.DiscountPrice < 0 || *in.DiscountPrice > in.Price) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "discount_price", Message: "Discount price must be between 0 and the price"})
	}
	if in.Stock != nil && *in.Stock < 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "stock", Message: "Stock cannot be negative"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, input *ProductInput) (*entity.Product, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can manage products")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product := &entity.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Category:      strings.TrimSpace(input.Category),
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct edits catalog fields. Stock changes go through the ledger.
func (s *ProductService) UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, input *ProductInput) (*entity.Product, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can manage products")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Category = strings.TrimSpace(input.Category)
	product.Price = input.Price
	product.DiscountPrice = input.DiscountPrice
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	if input.Stock != nil && *input.Stock != product.Stock {
		return s.inventory.SetStock(ctx, id, *input.Stock)
	}
	return product, nil
}

// SetStock is the admin stock edit
func (s *ProductService) SetStock(ctx context.Context, actor Actor, id uuid.UUID, stock int) (*entity.Product, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can manage products")
	}
	return s.inventory.SetStock(ctx, id, stock)
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}
	return product, nil
}

// ListProducts returns a page of products
func (s *ProductService) ListProducts(ctx context.Context, params *repository.ProductFilterParams) (*pagination.PaginatedResult[entity.Product], error) {
	params.Validate()
	products, total, err := s.productRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return pagination.NewPaginatedResult(products, &params.PaginationParams, total), nil
}
