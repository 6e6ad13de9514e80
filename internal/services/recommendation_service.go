package services

import (
	"context"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	"shop-service/internal/repository"
)

const recommendationLimit = 10

// RecommendationService suggests products from the category subtree of a
// given product. The category tree is consumed read-only through
// CategoryService's cached id lookup.
type RecommendationService struct {
	store      repository.Store
	categories *CategoryService
}

func NewRecommendationService(store repository.Store, categories *CategoryService) *RecommendationService {
	return &RecommendationService{store: store, categories: categories}
}

// ForProduct returns up to 10 active products sharing the product's
// category subtree, the best-stocked first. A product without a category
// has no recommendations.
func (s *RecommendationService) ForProduct(ctx context.Context, productID uint64) ([]domain.Product, error) {
	product, err := s.store.FindProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperr.New(apperr.KindNotFound, "product not found")
	}
	if product.CategoryID == nil {
		return nil, nil
	}

	categoryIDs, err := s.categories.SubtreeIDs(ctx, *product.CategoryID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return s.store.FindActiveProductsByCategoryIDs(ctx, categoryIDs, productID, recommendationLimit)
}
