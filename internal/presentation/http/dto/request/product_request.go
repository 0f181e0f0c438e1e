package request

import (
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/shopspring/decimal"
)

// ProductRequest represents a product create or update request
type ProductRequest struct {
	Name          string           `json:"name" binding:"required,min=2,max=255"`
	Description   string           `json:"description"`
	Category      string           `json:"category" binding:"max=120"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	Stock         *int             `json:"stock" binding:"omitempty,min=0"`
}

// ToInput converts the request for the product service
func (r *ProductRequest) ToInput() *service.ProductInput {
	return &service.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Price:         money.FromDecimal(r.Price),
		DiscountPrice: money.FromOptional(r.DiscountPrice),
		Stock:         r.Stock,
	}
}

// UpdateStockRequest sets the absolute stock of a product
type UpdateStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

// ProductFilterRequest represents product filter parameters
type ProductFilterRequest struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	InStock  bool   `form:"in_stock"`
	Page     int    `form:"page"`
	PerPage  int    `form:"per_page"`
}
