// Package memory implements repository.Store in process memory with the
// same locking contract as the MySQL store: row locks taken inside a
// transaction block other transactions until commit or rollback, and a
// failed transaction leaves no writes behind. The service test suites use
// it to exercise concurrent fulfillment with real goroutines.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shop-service/internal/domain"
	"shop-service/internal/repository"
)

type lockKey struct {
	kind string
	id   uint64
}

type Store struct {
	mu sync.Mutex

	nextProductID  uint64
	nextCategoryID uint64
	nextOrderID    uint64
	nextItemID     uint64
	nextPaymentID  uint64

	products   map[uint64]*domain.Product
	categories map[uint64]*domain.Category
	orders     map[uint64]*domain.Order
	payments   map[uint64]*domain.Payment

	rowLocks map[lockKey]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		products:   make(map[uint64]*domain.Product),
		categories: make(map[uint64]*domain.Category),
		orders:     make(map[uint64]*domain.Order),
		payments:   make(map[uint64]*domain.Payment),
		rowLocks:   make(map[lockKey]*sync.Mutex),
	}
}

var _ repository.Store = (*Store)(nil)

type tx struct {
	s    *Store
	held []*sync.Mutex
	keys map[lockKey]bool
	undo []func()
}

func (s *Store) newTx() *tx {
	return &tx{s: s, keys: make(map[lockKey]bool)}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	t := s.newTx()
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	t.commit()
	return nil
}

// Auto-commit entry points: every Store method runs as its own one-shot
// transaction.

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	return s.one(func(t *tx) error { return t.CreateProduct(ctx, p) })
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	return s.one(func(t *tx) error { return t.UpdateProduct(ctx, p) })
}

func (s *Store) FindProductByID(ctx context.Context, id uint64) (*domain.Product, error) {
	return s.newTx().FindProductByID(ctx, id)
}

func (s *Store) FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.newTx().FindProductBySKU(ctx, sku)
}

func (s *Store) FindProductsByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	return s.newTx().FindProductsByIDs(ctx, ids)
}

func (s *Store) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, int64, error) {
	return s.newTx().ListProducts(ctx, offset, limit)
}

func (s *Store) FindActiveProductsByCategoryIDs(ctx context.Context, categoryIDs []uint64, excludeProductID uint64, limit int) ([]domain.Product, error) {
	return s.newTx().FindActiveProductsByCategoryIDs(ctx, categoryIDs, excludeProductID, limit)
}

func (s *Store) LockProductStock(ctx context.Context, productID uint64) (int, error) {
	t := s.newTx()
	defer t.commit()
	return t.LockProductStock(ctx, productID)
}

func (s *Store) ConditionalDecrementStock(ctx context.Context, productID uint64, qty int) (int64, error) {
	t := s.newTx()
	n, err := t.ConditionalDecrementStock(ctx, productID, qty)
	t.commit()
	return n, err
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	return s.one(func(t *tx) error { return t.CreateCategory(ctx, c) })
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.newTx().ListCategories(ctx)
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	return s.one(func(t *tx) error { return t.CreateOrder(ctx, o) })
}

func (s *Store) FindOrderByID(ctx context.Context, id uint64) (*domain.Order, error) {
	return s.newTx().FindOrderByID(ctx, id)
}

func (s *Store) FindOrderByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error) {
	t := s.newTx()
	defer t.commit()
	return t.FindOrderByIDForUpdate(ctx, id)
}

func (s *Store) FindOrdersByUserID(ctx context.Context, userID uint64) ([]domain.Order, error) {
	return s.newTx().FindOrdersByUserID(ctx, userID)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) error {
	return s.one(func(t *tx) error { return t.UpdateOrderStatus(ctx, orderID, status) })
}

func (s *Store) CreatePayment(ctx context.Context, p *domain.Payment) error {
	return s.one(func(t *tx) error { return t.CreatePayment(ctx, p) })
}

func (s *Store) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	return s.one(func(t *tx) error { return t.UpdatePayment(ctx, p) })
}

func (s *Store) FindPaymentByID(ctx context.Context, id uint64) (*domain.Payment, error) {
	return s.newTx().FindPaymentByID(ctx, id)
}

func (s *Store) FindPaymentByIDForUpdate(ctx context.Context, id uint64) (*domain.Payment, error) {
	t := s.newTx()
	defer t.commit()
	return t.FindPaymentByIDForUpdate(ctx, id)
}

func (s *Store) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return s.newTx().FindPaymentByTransactionID(ctx, transactionID)
}

func (s *Store) one(fn func(t *tx) error) error {
	t := s.newTx()
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	t.commit()
	return nil
}

// transaction mechanics

// acquire blocks until the row lock is available, unless this transaction
// already holds it. s.mu is never held while blocking.
func (t *tx) acquire(kind string, id uint64) {
	key := lockKey{kind: kind, id: id}
	if t.keys[key] {
		return
	}
	t.s.mu.Lock()
	m, ok := t.s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		t.s.rowLocks[key] = m
	}
	t.s.mu.Unlock()

	m.Lock()
	t.keys[key] = true
	t.held = append(t.held, m)
}

func (t *tx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
	t.keys = make(map[lockKey]bool)
}

func (t *tx) commit() {
	t.undo = nil
	t.releaseLocks()
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.undo = nil
	t.releaseLocks()
}

var _ repository.Tx = (*tx)(nil)

// products

func (t *tx) CreateProduct(ctx context.Context, p *domain.Product) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.products {
		if existing.SKU == p.SKU {
			return fmt.Errorf("duplicate sku %q", p.SKU)
		}
	}
	if p.ID == 0 {
		t.s.nextProductID++
		p.ID = t.s.nextProductID
	} else if p.ID > t.s.nextProductID {
		t.s.nextProductID = p.ID
	}
	id := p.ID
	t.s.products[id] = cloneProduct(p)
	t.undo = append(t.undo, func() { delete(t.s.products, id) })
	return nil
}

func (t *tx) UpdateProduct(ctx context.Context, p *domain.Product) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	prev, ok := t.s.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	restore := cloneProduct(prev)
	t.s.products[p.ID] = cloneProduct(p)
	t.undo = append(t.undo, func() { t.s.products[restore.ID] = restore })
	return nil
}

func (t *tx) FindProductByID(ctx context.Context, id uint64) (*domain.Product, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.products[id]
	if !ok {
		return nil, nil
	}
	return cloneProduct(p), nil
}

func (t *tx) FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, p := range t.s.products {
		if p.SKU == sku {
			return cloneProduct(p), nil
		}
	}
	return nil, nil
}

func (t *tx) FindProductsByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []domain.Product
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok {
			out = append(out, *cloneProduct(p))
		}
	}
	return out, nil
}

func (t *tx) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	all := make([]domain.Product, 0, len(t.s.products))
	for _, p := range t.s.products {
		all = append(all, *cloneProduct(p))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (t *tx) FindActiveProductsByCategoryIDs(ctx context.Context, categoryIDs []uint64, excludeProductID uint64, limit int) ([]domain.Product, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	wanted := make(map[uint64]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[id] = true
	}
	var out []domain.Product
	for _, p := range t.s.products {
		if p.ID == excludeProductID || p.Status != domain.ProductActive {
			continue
		}
		if p.CategoryID == nil || !wanted[*p.CategoryID] {
			continue
		}
		out = append(out, *cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock > out[j].Stock
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) LockProductStock(ctx context.Context, productID uint64) (int, error) {
	t.acquire("product", productID)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.products[productID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return p.Stock, nil
}

func (t *tx) ConditionalDecrementStock(ctx context.Context, productID uint64, qty int) (int64, error) {
	t.acquire("product", productID)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.products[productID]
	if !ok || p.Stock < qty {
		return 0, nil
	}
	prev := p.Stock
	p.Stock -= qty
	t.undo = append(t.undo, func() {
		if cur, ok := t.s.products[productID]; ok {
			cur.Stock = prev
		}
	})
	return 1, nil
}

// categories

func (t *tx) CreateCategory(ctx context.Context, c *domain.Category) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if c.ID == 0 {
		t.s.nextCategoryID++
		c.ID = t.s.nextCategoryID
	} else if c.ID > t.s.nextCategoryID {
		t.s.nextCategoryID = c.ID
	}
	id := c.ID
	cc := *c
	t.s.categories[id] = &cc
	t.undo = append(t.undo, func() { delete(t.s.categories, id) })
	return nil
}

func (t *tx) ListCategories(ctx context.Context) ([]domain.Category, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := make([]domain.Category, 0, len(t.s.categories))
	for _, c := range t.s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// orders

func (t *tx) CreateOrder(ctx context.Context, o *domain.Order) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if o.ID == 0 {
		t.s.nextOrderID++
		o.ID = t.s.nextOrderID
	} else if o.ID > t.s.nextOrderID {
		t.s.nextOrderID = o.ID
	}
	for i := range o.Items {
		if o.Items[i].ID == 0 {
			t.s.nextItemID++
			o.Items[i].ID = t.s.nextItemID
		}
		o.Items[i].OrderID = o.ID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	id := o.ID
	t.s.orders[id] = cloneOrder(o)
	t.undo = append(t.undo, func() { delete(t.s.orders, id) })
	return nil
}

func (t *tx) FindOrderByID(ctx context.Context, id uint64) (*domain.Order, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	o, ok := t.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (t *tx) FindOrderByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error) {
	t.acquire("order", id)
	return t.FindOrderByID(ctx, id)
}

func (t *tx) FindOrdersByUserID(ctx context.Context, userID uint64) ([]domain.Order, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []domain.Order
	for _, o := range t.s.orders {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	o, ok := t.s.orders[orderID]
	if !ok {
		return nil
	}
	prev := o.Status
	o.Status = status
	o.UpdatedAt = time.Now()
	t.undo = append(t.undo, func() {
		if cur, ok := t.s.orders[orderID]; ok {
			cur.Status = prev
		}
	})
	return nil
}

// payments

func (t *tx) CreatePayment(ctx context.Context, p *domain.Payment) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if p.TransactionID != "" {
		for _, existing := range t.s.payments {
			if existing.TransactionID == p.TransactionID {
				return fmt.Errorf("duplicate transaction id %q", p.TransactionID)
			}
		}
	}
	if p.ID == 0 {
		t.s.nextPaymentID++
		p.ID = t.s.nextPaymentID
	} else if p.ID > t.s.nextPaymentID {
		t.s.nextPaymentID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	id := p.ID
	t.s.payments[id] = clonePayment(p)
	t.undo = append(t.undo, func() { delete(t.s.payments, id) })
	return nil
}

func (t *tx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	prev, ok := t.s.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	restore := clonePayment(prev)
	p.UpdatedAt = time.Now()
	t.s.payments[p.ID] = clonePayment(p)
	t.undo = append(t.undo, func() { t.s.payments[restore.ID] = restore })
	return nil
}

func (t *tx) FindPaymentByID(ctx context.Context, id uint64) (*domain.Payment, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	p, ok := t.s.payments[id]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (t *tx) FindPaymentByIDForUpdate(ctx context.Context, id uint64) (*domain.Payment, error) {
	t.acquire("payment", id)
	return t.FindPaymentByID(ctx, id)
}

func (t *tx) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, p := range t.s.payments {
		if p.TransactionID == transactionID {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

// clone helpers keep callers from mutating shared state.

func cloneProduct(p *domain.Product) *domain.Product {
	cp := *p
	if p.CategoryID != nil {
		v := *p.CategoryID
		cp.CategoryID = &v
	}
	return &cp
}

func cloneOrder(o *domain.Order) *domain.Order {
	co := *o
	co.Items = make([]domain.OrderItem, len(o.Items))
	copy(co.Items, o.Items)
	return &co
}

func clonePayment(p *domain.Payment) *domain.Payment {
	cp := *p
	if p.RawResponse != nil {
		cp.RawResponse = append([]byte(nil), p.RawResponse...)
	}
	return &cp
}
