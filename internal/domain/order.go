package domain

import "time"

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderPaid     OrderStatus = "paid"
	OrderCanceled OrderStatus = "canceled"
)

type Order struct {
	ID          uint64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      uint64      `json:"userId" gorm:"not null;index"`
	OrderNumber string      `json:"orderNumber" gorm:"uniqueIndex;size:64;not null"`
	Status      OrderStatus `json:"status" gorm:"type:enum('pending','paid','canceled');default:'pending'"`
	TotalCents  int64       `json:"totalCents" gorm:"not null"`
	Items       []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time   `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updatedAt" gorm:"autoUpdateTime"`
}

// OrderItem carries the price/name/sku snapshot taken at order creation.
// It is never updated afterwards, so order totals stay audit-stable even
// when the catalog changes.
type OrderItem struct {
	ID            uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID       uint64 `json:"orderId" gorm:"not null;index"`
	ProductID     uint64 `json:"productId" gorm:"not null;index"`
	Quantity      int    `json:"quantity" gorm:"not null"`
	PriceCents    int64  `json:"priceCents" gorm:"not null"`
	SubtotalCents int64  `json:"subtotalCents" gorm:"not null"`
	ProductName   string `json:"productName"`
	ProductSKU    string `json:"productSku"`
}
