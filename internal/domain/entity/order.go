package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/pkg/money"
	"gorm.io/gorm"
)

// ShippingAddress is the customer/address snapshot taken at placement time
type ShippingAddress struct {
	Name    string `gorm:"size:255" json:"name"`
	Phone   string `gorm:"size:50" json:"phone"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Address string `gorm:"type:text" json:"address"`
	City    string `gorm:"size:120" json:"city,omitempty"`
	Zip     string `gorm:"size:20" json:"zip,omitempty"`
}

// Order represents a placed order from any channel
type Order struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	UserID          *uuid.UUID         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CreatedBy       *uuid.UUID         `gorm:"type:uuid" json:"created_by,omitempty"`
	TrackingID      string             `gorm:"size:20;uniqueIndex;not null" json:"tracking_id"`
	Source          enum.SourceChannel `gorm:"size:20;index" json:"source"`
	OrderStatus     enum.OrderStatus   `gorm:"size:20;not null;default:'pending'" json:"order_status"`
	PaymentMethod   string             `gorm:"size:50" json:"payment_method"`
	PaymentID       *string            `gorm:"size:255;uniqueIndex" json:"payment_id,omitempty"`
	PaymentStatus   enum.PaymentStatus `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	SubTotal        int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	DeliveryCharge  int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	DeliveryZone    string             `gorm:"size:50" json:"delivery_zone,omitempty"`
	Discount        int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	Total           int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	ShippingAddress ShippingAddress    `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	CreatedAt       time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	DeletedAt       gorm.DeletedAt     `gorm:"index" json:"-"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// MarshalJSON converts minor units to decimals for API responses
func (o Order) MarshalJSON() ([]byte, error) {
	type Alias Order
	return json.Marshal(&struct {
		Alias
		SubTotal       float64 `json:"subtotal"`
		DeliveryCharge float64 `json:"delivery_charge"`
		Discount       float64 `json:"discount"`
		Total          float64 `json:"total_amount"`
	}{
		Alias:          Alias(o),
		SubTotal:       money.Float(o.SubTotal),
		DeliveryCharge: money.Float(o.DeliveryCharge),
		Discount:       money.Float(o.Discount),
		Total:          money.Float(o.Total),
	})
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsOwnedBy reports whether the order belongs to the given user.
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// Quantities sums ordered quantities per product.
func (o *Order) Quantities() map[uuid.UUID]int {
	q := make(map[uuid.UUID]int, len(o.Items))
	for _, item := range o.Items {
		q[item.ProductID] += item.Quantity
	}
	return q
}

// OrderItem is a line of an order with name and price snapshots
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	UnitPrice int64     `gorm:"not null" json:"-"` // Stored in minor units
	Quantity  int       `gorm:"not null" json:"quantity"`
	Total     int64     `gorm:"not null" json:"-"` // Stored in minor units
}

// MarshalJSON converts minor units to decimals for API responses
func (i OrderItem) MarshalJSON() ([]byte, error) {
	type Alias OrderItem
	return json.Marshal(&struct {
		Alias
		UnitPrice float64 `json:"price"`
		Total     float64 `json:"total"`
	}{
		Alias:     Alias(i),
		UnitPrice: money.Float(i.UnitPrice),
		Total:     money.Float(i.Total),
	})
}

// BeforeCreate generates a UUID before creating a new order item
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
