package domain

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusApproved PaymentStatus = "approved"
	StatusDeclined PaymentStatus = "declined"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCard  PaymentMethod = "card"
	MethodPix   PaymentMethod = "pix"
	MethodOther PaymentMethod = "other"
)

// ParseMethod maps free input onto the known methods; unknown values become MethodOther.
func ParseMethod(s string) PaymentMethod {
	switch PaymentMethod(s) {
	case MethodCard, MethodPix:
		return PaymentMethod(s)
	}
	return MethodOther
}

// Webhook event types understood by the receiver.
const (
	EventCheckoutCompleted = "checkout_completed"
	EventPaymentFailed     = "payment_failed"
)

// Payer account payment_status values.
const (
	PayerStatusUnpaid = "unpaid"
	PayerStatusPaid   = "paid"
)

// Provider-native transaction statuses returned by search.
const (
	ProviderStatusApproved  = "approved"
	ProviderStatusPending   = "pending"
	ProviderStatusInProcess = "in_process"
)

const PurposeCheckout = "checkout"
