package request

import (
	"strings"

	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is a cart line. Clients identify the product with any of
// product_id, _id or id.
type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	LegacyID  string `json:"_id"`
	ID        string `json:"id"`
	Quantity  int    `json:"quantity"`
}

// ProductRef returns the first non-empty product reference
func (r OrderItemRequest) ProductRef() string {
	for _, ref := range []string{r.ProductID, r.LegacyID, r.ID} {
		if ref = strings.TrimSpace(ref); ref != "" {
			return ref
		}
	}
	return ""
}

// ShippingAddressRequest is the delivery contact of an order
type ShippingAddressRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
}

// ToEntity trims the address into its stored form
func (r ShippingAddressRequest) ToEntity() entity.ShippingAddress {
	return entity.ShippingAddress{
		Name:    strings.TrimSpace(r.Name),
		Phone:   strings.TrimSpace(r.Phone),
		Email:   strings.TrimSpace(r.Email),
		Address: strings.TrimSpace(r.Address),
		City:    strings.TrimSpace(r.City),
		Zip:     strings.TrimSpace(r.Zip),
	}
}

// CreateOrderRequest represents an order from any channel. Amounts are
// decimals in taka; the server recomputes them and only checks these.
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address"`
	DeliveryZone    string                 `json:"delivery_zone"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentID       string                 `json:"payment_id"`
	SubTotal        *decimal.Decimal       `json:"subtotal"`
	DeliveryCharge  *decimal.Decimal       `json:"delivery_charge"`
	Discount        decimal.Decimal        `json:"discount"`
	Total           *decimal.Decimal       `json:"total_amount"`
	OrderStatus     string                 `json:"order_status"`
}

// ToInput converts the request for the order service
func (r *CreateOrderRequest) ToInput(actor service.Actor, source enum.SourceChannel) *service.PlaceOrderInput {
	items := make([]service.LineItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, service.LineItemInput{ProductRef: item.ProductRef(), Quantity: item.Quantity})
	}
	return &service.PlaceOrderInput{
		Actor:          actor,
		Source:         source,
		Items:          items,
		Shipping:       r.ShippingAddress.ToEntity(),
		DeliveryZone:   r.DeliveryZone,
		PaymentMethod:  r.PaymentMethod,
		PaymentID:      strings.TrimSpace(r.PaymentID),
		Discount:       money.FromDecimal(r.Discount),
		SubTotal:       money.FromOptional(r.SubTotal),
		DeliveryCharge: money.FromOptional(r.DeliveryCharge),
		Total:          money.FromOptional(r.Total),
		Status:         enum.OrderStatus(strings.ToLower(strings.TrimSpace(r.OrderStatus))),
	}
}

// UpdateOrderStatusRequest represents an admin status change
type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"order_status" binding:"required"`
}

// OrderFilterRequest represents order list query parameters
type OrderFilterRequest struct {
	Status  string `form:"status"`
	Source  string `form:"source"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}
