// Package repository defines the storage boundary the services depend on.
// Tx is the set of operations available inside one ambient transaction;
// Store adds the transaction primitive itself. Implementations: mysql
// (production, GORM) and memory (tests).
package repository

import (
	"context"
	"errors"

	"shop-service/internal/domain"
)

// ErrNotFound is returned by operations that cannot express absence through
// a nil result. Finders returning pointers report absence as (nil, nil).
var ErrNotFound = errors.New("record not found")

type ProductTx interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	FindProductByID(ctx context.Context, id uint64) (*domain.Product, error)
	FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, int64, error)
	FindActiveProductsByCategoryIDs(ctx context.Context, categoryIDs []uint64, excludeProductID uint64, limit int) ([]domain.Product, error)

	// LockProductStock takes an exclusive row lock on the product and
	// returns its current stock. The lock is held until the enclosing
	// transaction commits or rolls back.
	LockProductStock(ctx context.Context, productID uint64) (int, error)
	// ConditionalDecrementStock decrements stock by qty only when
	// stock >= qty, as a single guarded write. Returns the number of
	// affected rows (0 means the guard failed).
	ConditionalDecrementStock(ctx context.Context, productID uint64, qty int) (int64, error)
}

type CategoryTx interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type OrderTx interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	FindOrderByID(ctx context.Context, id uint64) (*domain.Order, error)
	// FindOrderByIDForUpdate reads the order under an exclusive row lock so
	// concurrent fulfillment attempts for the same order serialize and the
	// idempotency guard sees the latest committed status.
	FindOrderByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error)
	FindOrdersByUserID(ctx context.Context, userID uint64) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) error
}

type PaymentTx interface {
	CreatePayment(ctx context.Context, p *domain.Payment) error
	UpdatePayment(ctx context.Context, p *domain.Payment) error
	FindPaymentByID(ctx context.Context, id uint64) (*domain.Payment, error)
	FindPaymentByIDForUpdate(ctx context.Context, id uint64) (*domain.Payment, error)
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
}

type Tx interface {
	ProductTx
	CategoryTx
	OrderTx
	PaymentTx
}

type Store interface {
	Tx

	// InTx runs fn inside one datastore transaction. A non-nil error from
	// fn rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
