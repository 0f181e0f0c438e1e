package entity

import "time"

// DefaultReceiptQRURL is printed on receipts until an admin sets one.
const DefaultReceiptQRURL = "https://ecomstack.com"

// StoreSettings holds the store header and QR link printed on receipts
type StoreSettings struct {
	ID           uint      `gorm:"primary_key" json:"-"`
	StoreName    string    `gorm:"size:255" json:"store_name"`
	StoreAddress string    `gorm:"type:text" json:"store_address"`
	StorePhone   string    `gorm:"size:50" json:"store_phone"`
	ReceiptQRURL string    `gorm:"size:500" json:"receipt_qr_url"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for StoreSettings
func (StoreSettings) TableName() string {
	return "store_settings"
}

// QRURL returns the configured QR link or the default.
func (s *StoreSettings) QRURL() string {
	if s == nil || s.ReceiptQRURL == "" {
		return DefaultReceiptQRURL
	}
	return s.ReceiptQRURL
}
