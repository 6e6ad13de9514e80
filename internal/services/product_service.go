package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	"shop-service/internal/repository"
)

const productCacheTTL = time.Minute

type ProductService struct {
	store       repository.Store
	redisClient *redis.Client
}

func NewProductService(store repository.Store) *ProductService {
	return &ProductService{store: store}
}

func (s *ProductService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

type ProductInput struct {
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	CategoryID  *uint64
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if in.SKU == "" || in.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "sku and name are required")
	}
	if in.PriceCents < 0 || in.Stock < 0 {
		return nil, apperr.New(apperr.KindValidation, "price and stock must be non-negative")
	}

	existing, err := s.store.FindProductBySKU(ctx, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Newf(apperr.KindConflict, "product with sku %s already exists", in.SKU)
	}

	p := &domain.Product{
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		Status:      domain.ProductActive,
		CategoryID:  in.CategoryID,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	cacheKey := fmt.Sprintf("product:%d", id)

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var p domain.Product
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	p, err := s.store.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(p); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return p, nil
}

type ProductPage struct {
	Data       []domain.Product `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int64            `json:"totalPages"`
}

func (s *ProductService) ListProducts(ctx context.Context, page, limit int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	products, total, err := s.store.ListProducts(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return &ProductPage{
		Data:       products,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

type ProductUpdate struct {
	SKU         *string
	Name        *string
	Description *string
	PriceCents  *int64
	Status      *domain.ProductStatus
	CategoryID  *uint64
}

// UpdateProduct never touches stock: stock is consumed only by order
// fulfillment.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint64, in ProductUpdate) (*domain.Product, error) {
	p, err := s.store.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}

	if in.SKU != nil && *in.SKU != p.SKU {
		other, err := s.store.FindProductBySKU(ctx, *in.SKU)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, apperr.Newf(apperr.KindConflict, "sku %s is already taken", *in.SKU)
		}
		p.SKU = *in.SKU
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return nil, apperr.New(apperr.KindValidation, "price must be non-negative")
		}
		p.PriceCents = *in.PriceCents
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	if s.redisClient != nil {
		s.redisClient.Del(ctx, fmt.Sprintf("product:%d", id))
	}
	return p, nil
}
