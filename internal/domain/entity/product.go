package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/pkg/money"
	"gorm.io/gorm"
)

// Product represents a catalog item with its live stock count
type Product struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description,omitempty"`
	Category      string         `gorm:"size:120;index" json:"category,omitempty"`
	Price         int64          `gorm:"not null;default:0" json:"-"` // Stored in minor units
	DiscountPrice *int64         `json:"-"`                           // Stored in minor units
	Stock         int            `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// UnitPrice is the price charged per unit: the discount price when it undercuts the list price.
func (p *Product) UnitPrice() int64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 && *p.DiscountPrice < p.Price {
		return *p.DiscountPrice
	}
	return p.Price
}

// MarshalJSON renders prices as decimals
func (p Product) MarshalJSON() ([]byte, error) {
	type Alias Product
	return json.Marshal(&struct {
		Alias
		Price         float64  `json:"price"`
		DiscountPrice *float64 `json:"discount_price,omitempty"`
	}{
		Alias:         Alias(p),
		Price:         money.Float(p.Price),
		DiscountPrice: money.FloatPtr(p.DiscountPrice),
	})
}
