package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	"shop-service/internal/repository/memory"
)

func newProductService() (*ProductService, *memory.Store) {
	store := memory.NewStore()
	return NewProductService(store), store
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newProductService()

	p, err := svc.CreateProduct(context.Background(), ProductInput{
		SKU:        "SKU-1",
		Name:       "Widget",
		PriceCents: 1999,
		Stock:      50,
	})

	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, domain.ProductActive, p.Status)
	assert.Equal(t, int64(1999), p.PriceCents)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, _ := newProductService()

	tests := []struct {
		name     string
		input    ProductInput
		wantKind apperr.Kind
	}{
		{name: "missing sku", input: ProductInput{Name: "Widget"}, wantKind: apperr.KindValidation},
		{name: "missing name", input: ProductInput{SKU: "SKU-1"}, wantKind: apperr.KindValidation},
		{name: "negative price", input: ProductInput{SKU: "SKU-1", Name: "Widget", PriceCents: -1}, wantKind: apperr.KindValidation},
		{name: "negative stock", input: ProductInput{SKU: "SKU-1", Name: "Widget", Stock: -1}, wantKind: apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.wantKind))
		})
	}
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	svc, _ := newProductService()

	_, err := svc.CreateProduct(context.Background(), ProductInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), ProductInput{SKU: "SKU-1", Name: "Other widget"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestGetProduct(t *testing.T) {
	svc, _ := newProductService()
	created, err := svc.CreateProduct(context.Background(), ProductInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)

	got, err := svc.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetProduct(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListProducts_Pagination(t *testing.T) {
	svc, _ := newProductService()
	for i := 0; i < 25; i++ {
		_, err := svc.CreateProduct(context.Background(), ProductInput{
			SKU:  "SKU-" + string(rune('A'+i)),
			Name: "Widget",
		})
		require.NoError(t, err)
	}

	page, err := svc.ListProducts(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, 2, page.Page)

	// Out-of-range values fall back to defaults.
	page, err = svc.ListProducts(context.Background(), 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
}

func TestUpdateProduct(t *testing.T) {
	svc, store := newProductService()
	created, err := svc.CreateProduct(context.Background(), ProductInput{
		SKU: "SKU-1", Name: "Widget", PriceCents: 1000, Stock: 5,
	})
	require.NoError(t, err)

	newName := "Renamed widget"
	newPrice := int64(2000)
	inactive := domain.ProductInactive
	updated, err := svc.UpdateProduct(context.Background(), created.ID, ProductUpdate{
		Name:       &newName,
		PriceCents: &newPrice,
		Status:     &inactive,
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed widget", updated.Name)
	assert.Equal(t, int64(2000), updated.PriceCents)
	assert.Equal(t, domain.ProductInactive, updated.Status)
	// Stock is only ever consumed by fulfillment, never by catalog edits.
	assert.Equal(t, 5, updated.Stock)

	stored, err := store.FindProductByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Stock)
}

func TestUpdateProduct_SKUConflict(t *testing.T) {
	svc, _ := newProductService()
	_, err := svc.CreateProduct(context.Background(), ProductInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	other, err := svc.CreateProduct(context.Background(), ProductInput{SKU: "SKU-2", Name: "Other"})
	require.NoError(t, err)

	taken := "SKU-1"
	_, err = svc.UpdateProduct(context.Background(), other.ID, ProductUpdate{SKU: &taken})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc, _ := newProductService()
	name := "Widget"

	_, err := svc.UpdateProduct(context.Background(), 999, ProductUpdate{Name: &name})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
