package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/pkg/money"
	"gorm.io/gorm"
)

// Receipt is the immutable financial record of a completed sale
type Receipt struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptNumber   string             `gorm:"size:20;uniqueIndex;not null" json:"receipt_number"`
	OrderID         *uuid.UUID         `gorm:"type:uuid;uniqueIndex" json:"order_id,omitempty"`
	UserID          *uuid.UUID         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ReceiptType     enum.SourceChannel `gorm:"size:20;not null" json:"receipt_type"`
	TrackingID      string             `gorm:"size:20;index" json:"tracking_id,omitempty"`
	SubTotal        int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	DeliveryCharge  int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	Discount        int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	Total           int64              `gorm:"not null;default:0" json:"-"` // Stored in minor units
	CashReceived    *int64             `json:"-"`                           // Stored in minor units
	PaymentMethod   string             `gorm:"size:50" json:"payment_method"`
	PaymentStatus   enum.PaymentStatus `gorm:"size:20" json:"payment_status"`
	CustomerName    string             `gorm:"size:255" json:"customer_name,omitempty"`
	CustomerPhone   string             `gorm:"size:50" json:"customer_phone,omitempty"`
	CustomerAddress string             `gorm:"type:text" json:"customer_address,omitempty"`
	CustomerEmail   string             `gorm:"size:255" json:"customer_email,omitempty"`
	GeneratedAt     time.Time          `gorm:"not null;index" json:"generated_at"`
	GeneratedBy     *uuid.UUID         `gorm:"type:uuid" json:"generated_by,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`

	Items []ReceiptItem `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE" json:"items"`
}

// ChangeDue is the cash handed back on a POS sale.
func (r *Receipt) ChangeDue() int64 {
	if r.CashReceived == nil || *r.CashReceived < r.Total {
		return 0
	}
	return *r.CashReceived - r.Total
}

// MarshalJSON converts minor units to decimals for API responses
func (r Receipt) MarshalJSON() ([]byte, error) {
	type Alias Receipt
	return json.Marshal(&struct {
		Alias
		SubTotal       float64  `json:"subtotal"`
		DeliveryCharge float64  `json:"delivery_charge"`
		Discount       float64  `json:"discount"`
		Total          float64  `json:"total"`
		CashReceived   *float64 `json:"cash_received,omitempty"`
		Change         float64  `json:"change"`
	}{
		Alias:          Alias(r),
		SubTotal:       money.Float(r.SubTotal),
		DeliveryCharge: money.Float(r.DeliveryCharge),
		Discount:       money.Float(r.Discount),
		Total:          money.Float(r.Total),
		CashReceived:   money.FloatPtr(r.CashReceived),
		Change:         money.Float(r.ChangeDue()),
	})
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID uuid.UUID  `gorm:"type:uuid;not null;index" json:"-"`
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id,omitempty"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Quantity  int        `gorm:"not null" json:"quantity"`
	UnitPrice int64      `gorm:"not null" json:"-"`
	Total     int64      `gorm:"not null" json:"-"`
}

// MarshalJSON converts minor units to decimals for API responses
func (i ReceiptItem) MarshalJSON() ([]byte, error) {
	type Alias ReceiptItem
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

// BeforeCreate generates a UUID before creating a new receipt item
func (i *ReceiptItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ReceiptItem model
func (ReceiptItem) TableName() string {
	return "receipt_items"
}
