package mysql

import (
	"context"
	"errors"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// products

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *Store) FindProductByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var p domain.Product
	if err := s.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindProductsByIDs(ctx context.Context, ids []uint64) ([]domain.Product, error) {
	var out []domain.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Product
	err := s.db.WithContext(ctx).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) FindActiveProductsByCategoryIDs(ctx context.Context, categoryIDs []uint64, excludeProductID uint64, limit int) ([]domain.Product, error) {
	var out []domain.Product
	err := s.db.WithContext(ctx).
		Where("category_id IN ? AND id <> ? AND status = ?", categoryIDs, excludeProductID, domain.ProductActive).
		Order("stock DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LockProductStock(ctx context.Context, productID uint64) (int, error) {
	var p domain.Product
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "stock").
		Take(&p, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return p.Stock, nil
}

func (s *Store) ConditionalDecrementStock(ctx context.Context, productID uint64, qty int) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected, res.Error
}

// categories

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// orders

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	return s.db.WithContext(ctx).Create(o).Error
}

func (s *Store) FindOrderByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) FindOrderByIDForUpdate(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) FindOrdersByUserID(ctx context.Context, userID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) error {
	return s.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

// payments

func (s *Store) CreatePayment(ctx context.Context, p *domain.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *Store) FindPaymentByID(ctx context.Context, id uint64) (*domain.Payment, error) {
	var p domain.Payment
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindPaymentByIDForUpdate(ctx context.Context, id uint64) (*domain.Payment, error) {
	var p domain.Payment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	var p domain.Payment
	err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
