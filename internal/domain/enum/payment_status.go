package enum

// PaymentStatus tracks settlement of an order or receipt
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusReceived PaymentStatus = "received"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Payment methods accepted at checkout and on receipts.
const (
	PaymentMethodCOD     = "cod"
	PaymentMethodStripe  = "stripe"
	PaymentMethodCash    = "cash"
	PaymentMethodOffline = "offline"
)

func (s PaymentStatus) String() string {
	return string(s)
}
