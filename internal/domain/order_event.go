package domain

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "order.created"
	EventPaymentInitiated = "payment.initiated"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// Envelope wraps every published event with identity and provenance.
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type OrderCreatedEvent struct {
	OrderID     uint64    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uint64    `json:"userId"`
	TotalCents  int64     `json:"totalCents"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PaymentInitiatedEvent struct {
	PaymentID     uint64 `json:"paymentId"`
	OrderID       uint64 `json:"orderId"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transactionId"`
	AmountCents   int64  `json:"amountCents"`
}

type PaymentSucceededEvent struct {
	PaymentID     uint64 `json:"paymentId"`
	OrderID       uint64 `json:"orderId"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transactionId"`
	AmountCents   int64  `json:"amountCents"`
}

type PaymentFailedEvent struct {
	PaymentID uint64 `json:"paymentId"`
	OrderID   uint64 `json:"orderId"`
	Provider  string `json:"provider"`
}
