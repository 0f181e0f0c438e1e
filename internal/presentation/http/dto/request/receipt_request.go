package request

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/shopspring/decimal"
)

// ReceiptItemRequest is a line typed in by staff
type ReceiptItemRequest struct {
	ProductID string          `json:"product_id"`
	LegacyID  string          `json:"_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (r ReceiptItemRequest) toInput() service.ReceiptLineInput {
	line := service.ReceiptLineInput{
		Name:      r.Name,
		Quantity:  r.Quantity,
		UnitPrice: money.FromDecimal(r.Price),
	}
	// Counter sales may include items that are not in the catalogue
	for _, ref := range []string{r.ProductID, r.LegacyID} {
		if id, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
			line.ProductID = &id
			break
		}
	}
	return line
}

func receiptLines(items []ReceiptItemRequest) []service.ReceiptLineInput {
	lines := make([]service.ReceiptLineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.toInput())
	}
	return lines
}

// POSReceiptRequest represents a counter sale
type POSReceiptRequest struct {
	Items        []ReceiptItemRequest `json:"items"`
	SubTotal     *decimal.Decimal     `json:"subtotal"`
	Discount     decimal.Decimal      `json:"discount"`
	Total        *decimal.Decimal     `json:"total"`
	CashReceived *decimal.Decimal     `json:"cash_received"`
	CustomerName string               `json:"customer_name"`
}

// ToInput converts the request for the receipt service
func (r *POSReceiptRequest) ToInput() *service.POSReceiptInput {
	return &service.POSReceiptInput{
		Items:        receiptLines(r.Items),
		SubTotal:     money.FromOptional(r.SubTotal),
		Discount:     money.FromDecimal(r.Discount),
		Total:        money.FromOptional(r.Total),
		CashReceived: money.FromOptional(r.CashReceived),
		CustomerName: r.CustomerName,
	}
}

// ManualReceiptRequest represents an order taken by phone or social media
type ManualReceiptRequest struct {
	Items           []ReceiptItemRequest `json:"items"`
	CustomerName    string               `json:"customer_name"`
	CustomerPhone   string               `json:"customer_phone"`
	CustomerAddress string               `json:"customer_address"`
	CustomerEmail   string               `json:"customer_email" binding:"omitempty,email"`
	DeliveryCharge  decimal.Decimal      `json:"delivery_charge"`
	SubTotal        *decimal.Decimal     `json:"subtotal"`
	Total           *decimal.Decimal     `json:"total"`
	TrackingID      string               `json:"tracking_id"`
}

// ToInput converts the request for the receipt service
func (r *ManualReceiptRequest) ToInput() *service.ManualReceiptInput {
	return &service.ManualReceiptInput{
		Items: receiptLines(r.Items),
		Customer: entity.ShippingAddress{
			Name:    strings.TrimSpace(r.CustomerName),
			Phone:   strings.TrimSpace(r.CustomerPhone),
			Email:   strings.TrimSpace(r.CustomerEmail),
			Address: strings.TrimSpace(r.CustomerAddress),
		},
		DeliveryCharge: money.FromDecimal(r.DeliveryCharge),
		SubTotal:       money.FromOptional(r.SubTotal),
		Total:          money.FromOptional(r.Total),
		TrackingID:     r.TrackingID,
	}
}
