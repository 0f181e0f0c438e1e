package request

import "github.com/shopspring/decimal"

// UpdateSettingsRequest changes the receipt header and QR link
type UpdateSettingsRequest struct {
	StoreName    *string `json:"store_name" binding:"omitempty,max=255"`
	StoreAddress *string `json:"store_address"`
	StorePhone   *string `json:"store_phone" binding:"omitempty,max=50"`
	ReceiptQRURL *string `json:"receipt_qr_url" binding:"omitempty,max=500"`
}

// PaymentIntentRequest starts a card payment for amount taka
type PaymentIntentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
