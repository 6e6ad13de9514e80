package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shop-service/internal/domain"
	"shop-service/internal/mocks"
	"shop-service/internal/providers"
	"shop-service/internal/repository/memory"
)

type fixture struct {
	store     *memory.Store
	publisher *mocks.MockPublisher
	orders    *OrderService
	payments  *PaymentService
}

func newFixture(t *testing.T, gateways ...providers.Provider) *fixture {
	t.Helper()

	store := memory.NewStore()
	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	orders := NewOrderService(store, publisher)
	payments := NewPaymentService(store, providers.NewRegistry(gateways...), orders, publisher)

	return &fixture{
		store:     store,
		publisher: publisher,
		orders:    orders,
		payments:  payments,
	}
}

func (f *fixture) seedProduct(t *testing.T, sku string, priceCents int64, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SKU:        sku,
		Name:       "Product " + sku,
		PriceCents: priceCents,
		Stock:      stock,
		Status:     domain.ProductActive,
	}
	require.NoError(t, f.store.CreateProduct(context.Background(), p))
	return p
}

func (f *fixture) seedOrder(t *testing.T, userID uint64, status domain.OrderStatus, items ...domain.OrderItem) *domain.Order {
	t.Helper()
	var total int64
	for i := range items {
		items[i].SubtotalCents = items[i].PriceCents * int64(items[i].Quantity)
		total += items[i].SubtotalCents
	}
	o := &domain.Order{
		UserID:      userID,
		OrderNumber: newOrderNumber(),
		Status:      status,
		TotalCents:  total,
		Items:       items,
	}
	require.NoError(t, f.store.CreateOrder(context.Background(), o))
	return o
}

func (f *fixture) seedPayment(t *testing.T, orderID uint64, provider, transactionID string, status domain.PaymentStatus) *domain.Payment {
	t.Helper()
	p := &domain.Payment{
		OrderID:       orderID,
		Provider:      provider,
		TransactionID: transactionID,
		Status:        status,
	}
	require.NoError(t, f.store.CreatePayment(context.Background(), p))
	return p
}

func (f *fixture) productStock(t *testing.T, id uint64) int {
	t.Helper()
	p, err := f.store.FindProductByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func (f *fixture) orderStatus(t *testing.T, id uint64) domain.OrderStatus {
	t.Helper()
	o, err := f.store.FindOrderByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o.Status
}

func (f *fixture) paymentStatus(t *testing.T, id uint64) domain.PaymentStatus {
	t.Helper()
	p, err := f.store.FindPaymentByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Status
}
