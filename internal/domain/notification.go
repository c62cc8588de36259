package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SubjectPaymentPaid    = "payment.paid"
	SubjectOrderCreated   = "notification.order.created"
	SubjectLowStock       = "inventory.lowStock"
	producerSubjectPrefix = "notification.producer."
)

func ProducerSubject(producerID string) string {
	return producerSubjectPrefix + producerID
}

type NotificationType string

const (
	NotificationNewOrder NotificationType = "NEW_ORDER"
	NotificationLowStock NotificationType = "LOW_STOCK"
)

// NotificationEnvelope is what a single producer receives. ID is derived
// from the source event and the recipient's position, so a re-delivered
// envelope carries the same ID as the original.
type NotificationEnvelope struct {
	ID          uuid.UUID        `json:"id"`
	Type        NotificationType `json:"type"`
	RecipientID string           `json:"recipientId"`
	Payload     any              `json:"payload"`
}

type OrderCreatedEvent struct {
	OrderID     string          `json:"orderId"`
	ProducerIDs []string        `json:"producerIds"`
	ClientName  string          `json:"clientName"`
	Address     *string         `json:"address,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
	OrderDate   time.Time       `json:"orderDate"`
}

type LowStockEvent struct {
	ProducerID        string `json:"producerId"`
	ProductOfferID    string `json:"productOfferId"`
	AvailableQuantity int    `json:"availableQuantity"`
	MinimumThreshold  int    `json:"minimumThreshold"`
}

type OrderSummary struct {
	OrderID     string          `json:"orderId"`
	ClientName  string          `json:"clientName"`
	Address     *string         `json:"address,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
	OrderDate   time.Time       `json:"orderDate"`
}

type StockAlert struct {
	ProductOfferID    string `json:"productOfferId"`
	AvailableQuantity int    `json:"availableQuantity"`
	MinimumThreshold  int    `json:"minimumThreshold"`
}
