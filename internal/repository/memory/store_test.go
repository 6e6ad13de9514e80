package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-service/internal/domain"
	"shop-service/internal/repository"
)

func seedProduct(t *testing.T, s *Store, sku string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{SKU: sku, Name: "Product " + sku, PriceCents: 1000, Stock: stock, Status: domain.ProductActive}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestConditionalDecrementStock(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "SKU-1", 3)
	ctx := context.Background()

	affected, err := s.ConditionalDecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Guard failure: 2 > 1 remaining, nothing changes.
	affected, err = s.ConditionalDecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	got, err := s.FindProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	// Exact remainder is allowed.
	affected, err = s.ConditionalDecrementStock(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestInTx_RollbackRestoresWrites(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "SKU-1", 10)
	ctx := context.Background()

	order := &domain.Order{UserID: 1, OrderNumber: "ORD-1", Status: domain.OrderPending}
	require.NoError(t, s.CreateOrder(ctx, order))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.ConditionalDecrementStock(ctx, p.ID, 4); err != nil {
			return err
		}
		if err := tx.UpdateOrderStatus(ctx, order.ID, domain.OrderPaid); err != nil {
			return err
		}
		newOrder := &domain.Order{UserID: 2, OrderNumber: "ORD-2", Status: domain.OrderPending}
		if err := tx.CreateOrder(ctx, newOrder); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.FindProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	restored, err := s.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, restored.Status)

	orphan, err := s.FindOrderByID(ctx, order.ID+1)
	require.NoError(t, err)
	assert.Nil(t, orphan)
}

func TestInTx_CommitKeepsWrites(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "SKU-1", 10)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx repository.Tx) error {
		_, err := tx.ConditionalDecrementStock(ctx, p.ID, 4)
		return err
	})
	require.NoError(t, err)

	got, err := s.FindProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)
}

func TestLockProductStock_MissingRow(t *testing.T) {
	s := NewStore()

	_, err := s.LockProductStock(context.Background(), 999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	s := NewStore()
	seedProduct(t, s, "SKU-1", 1)

	err := s.CreateProduct(context.Background(), &domain.Product{SKU: "SKU-1", Name: "Other"})

	require.Error(t, err)
}

func TestCreatePayment_DuplicateTransactionID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreatePayment(ctx, &domain.Payment{OrderID: 1, TransactionID: "TRX-1"}))

	err := s.CreatePayment(ctx, &domain.Payment{OrderID: 2, TransactionID: "TRX-1"})

	require.Error(t, err)
}

func TestFindReturnsClones(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "SKU-1", 5)
	ctx := context.Background()

	got, err := s.FindProductByID(ctx, p.ID)
	require.NoError(t, err)
	got.Stock = 0

	again, err := s.FindProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, again.Stock)
}
