package domain

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment records one payment attempt against an order. An order may have
// several attempts; SUCCESS and FAILED are terminal and sticky.
type Payment struct {
	ID            uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID       uint64          `json:"orderId" gorm:"not null;index"`
	Provider      string          `json:"provider" gorm:"size:32;not null"`
	TransactionID string          `json:"transactionId" gorm:"uniqueIndex;size:128"`
	AmountCents   int64           `json:"amountCents" gorm:"not null"`
	Status        PaymentStatus   `json:"status" gorm:"type:enum('pending','success','failed');default:'pending'"`
	RawResponse   json.RawMessage `json:"-" gorm:"type:json"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}
