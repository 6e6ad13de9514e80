package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	rabbit "shop-service/internal/infra/rabbitmq"
	"shop-service/internal/repository"
)

type ItemInput struct {
	ProductID uint64
	Quantity  int
}

type OrderService struct {
	store     repository.Store
	publisher rabbit.PublisherInterface
}

func NewOrderService(store repository.Store, pub rabbit.PublisherInterface) *OrderService {
	return &OrderService{store: store, publisher: pub}
}

// CreateOrder persists a PENDING order with an immutable price/name/sku
// snapshot per line, priced from the catalog on the server side. Client
// amounts are never trusted.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, items []ItemInput) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "order needs at least one item")
	}
	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, apperr.Newf(apperr.KindValidation, "invalid quantity for product %d", it.ProductID)
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.store.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var total int64
	lines := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || p.Status != domain.ProductActive {
			return nil, apperr.Newf(apperr.KindValidation, "product %d is invalid or inactive", it.ProductID)
		}
		subtotal := p.PriceCents * int64(it.Quantity)
		total += subtotal
		lines = append(lines, domain.OrderItem{
			ProductID:     p.ID,
			Quantity:      it.Quantity,
			PriceCents:    p.PriceCents,
			SubtotalCents: subtotal,
			ProductName:   p.Name,
			ProductSKU:    p.SKU,
		})
	}

	order := &domain.Order{
		UserID:      userID,
		OrderNumber: newOrderNumber(),
		Status:      domain.OrderPending,
		TotalCents:  total,
		Items:       lines,
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	go s.publishOrderCreated(context.Background(), order)

	return order, nil
}

func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	evt := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalCents:  order.TotalCents,
		CreatedAt:   order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, domain.EventOrderCreated, evt); err != nil {
		log.Printf("Failed to publish %s for order %d: %v", domain.EventOrderCreated, order.ID, err)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uint64) (*domain.Order, error) {
	o, err := s.store.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.New(apperr.KindNotFound, "order not found")
	}
	if o.UserID != userID {
		return nil, apperr.New(apperr.KindForbidden, "order belongs to another user")
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uint64) ([]domain.Order, error) {
	return s.store.FindOrdersByUserID(ctx, userID)
}

// FulfillOrder atomically consumes stock for every order line and marks the
// order PAID. It must run inside the payment transaction handed in as tx;
// any error rolls the whole transition back.
//
// Protocol:
//  1. Lock the order row. Already PAID is a no-op (duplicate success
//     signals are expected); CANCELED is a conflict.
//  2. Sort lines by product id so every concurrent fulfillment acquires
//     product locks in the same global order and circular waits cannot form.
//  3. Per line: lock the product row, check stock, then decrement guarded
//     by stock >= qty in the same write. Any shortfall aborts everything.
func (s *OrderService) FulfillOrder(ctx context.Context, tx repository.Tx, orderID uint64) error {
	order, err := tx.FindOrderByIDForUpdate(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperr.New(apperr.KindNotFound, "order not found")
	}
	if order.Status == domain.OrderPaid {
		log.Printf("Order %d already paid, skipping fulfillment", orderID)
		return nil
	}
	if order.Status == domain.OrderCanceled {
		return apperr.New(apperr.KindConflict, "canceled order cannot be paid")
	}

	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	for _, item := range items {
		stock, err := tx.LockProductStock(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Newf(apperr.KindNotFound, "product %d not found", item.ProductID)
			}
			return err
		}
		if stock < item.Quantity {
			return apperr.Newf(apperr.KindConflict, "insufficient stock for product %d", item.ProductID)
		}
		affected, err := tx.ConditionalDecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.Newf(apperr.KindConflict, "insufficient stock for product %d", item.ProductID)
		}
	}

	return tx.UpdateOrderStatus(ctx, orderID, domain.OrderPaid)
}
