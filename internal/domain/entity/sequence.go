package entity

import "time"

// ReceiptSequence is the name of the counter backing receipt numbers.
const ReceiptSequence = "receipt"

// Sequence is a named monotonic counter
type Sequence struct {
	Name      string    `gorm:"size:64;primary_key"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the Sequence model
func (Sequence) TableName() string {
	return "sequences"
}
