package domain

import "time"

type ProcessorEventKind string

const (
	ProcessorEventCheckoutCompleted ProcessorEventKind = "checkout_completed"
	ProcessorEventIgnored           ProcessorEventKind = "ignored"
)

// ProcessorEvent is a processor callback whose signature has already been
// verified. Checkout is set only when Kind is ProcessorEventCheckoutCompleted.
type ProcessorEvent struct {
	ID       string
	Kind     ProcessorEventKind
	Type     string
	Checkout *CheckoutCompleted
}

type CheckoutCompleted struct {
	SessionID  string
	ReceiptURL string
	OrderID    string
}

// ReceiptUnavailable stands in for the receipt URL when the processor
// could not be asked for it in time.
const ReceiptUnavailable = "receipt-unavailable"

type PaymentConfirmed struct {
	PaymentSessionID string `json:"paymentSessionId"`
	OrderID          string `json:"orderId"`
	ReceiptURL       string `json:"receiptUrl"`
}

type ProcessedEvent struct {
	EventID     string
	ProcessedAt time.Time
}
