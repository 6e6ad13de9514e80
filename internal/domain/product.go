package domain

import "time"

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

type Product struct {
	ID          uint64        `json:"id" gorm:"primaryKey;autoIncrement"`
	SKU         string        `json:"sku" gorm:"uniqueIndex;size:64;not null"`
	Name        string        `json:"name" gorm:"not null"`
	Description string        `json:"description"`
	PriceCents  int64         `json:"priceCents" gorm:"not null"`
	Stock       int           `json:"stock" gorm:"not null"`
	Status      ProductStatus `json:"status" gorm:"type:enum('active','inactive');default:'active'"`
	CategoryID  *uint64       `json:"categoryId" gorm:"index"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

type Category struct {
	ID       uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name     string  `json:"name" gorm:"not null"`
	ParentID *uint64 `json:"parentId" gorm:"index"`
}
