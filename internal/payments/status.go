package payments

// PaymentStatus tracks a payment from creation through the gateway round
// trip. Webhooks drive the processing -> completed/failed transitions.
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusCompleted  PaymentStatus = "completed"
	StatusFailed     PaymentStatus = "failed"
	StatusRefunded   PaymentStatus = "refunded"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal checks if the payment can no longer change state.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// Supported payment methods. These double as the webhook provider names.
const (
	MethodMomo    = "momo"
	MethodVNPay   = "vnpay"
	MethodZaloPay = "zalopay"
	MethodCard    = "card"
)

// IsValidMethod checks if the payment method is supported
func IsValidMethod(method string) bool {
	switch method {
	case MethodMomo, MethodVNPay, MethodZaloPay, MethodCard:
		return true
	}
	return false
}
