package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"shop-service/internal/apperr"
	"shop-service/internal/domain"
	"shop-service/internal/repository"
)

const (
	categoryTreeCacheKey = "category_tree:adjacency"
	categoryTreeCacheTTL = time.Hour
)

type CategoryService struct {
	store       repository.Store
	redisClient *redis.Client
}

func NewCategoryService(store repository.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

func (s *CategoryService) CreateCategory(ctx context.Context, name string, parentID *uint64) (*domain.Category, error) {
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "category name is required")
	}
	c := &domain.Category{Name: name, ParentID: parentID}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateTree(ctx)
	return c, nil
}

// adjacencyList maps every category id to its direct children. Cached in
// Redis so subtree lookups don't rescan the table on every request.
func (s *CategoryService) adjacencyList(ctx context.Context) (map[uint64][]uint64, error) {
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, categoryTreeCacheKey).Result()
		if err == nil {
			adj, err := decodeAdjacency(cached)
			if err == nil {
				return adj, nil
			}
		}
	}

	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	adj := make(map[uint64][]uint64, len(categories))
	for _, c := range categories {
		if _, ok := adj[c.ID]; !ok {
			adj[c.ID] = nil
		}
		if c.ParentID != nil {
			adj[*c.ParentID] = append(adj[*c.ParentID], c.ID)
		}
	}

	if s.redisClient != nil {
		if data, err := encodeAdjacency(adj); err == nil {
			s.redisClient.Set(ctx, categoryTreeCacheKey, data, categoryTreeCacheTTL)
		}
	}
	return adj, nil
}

// SubtreeIDs returns rootID plus every descendant category id, via
// iterative DFS over the cached adjacency list.
func (s *CategoryService) SubtreeIDs(ctx context.Context, rootID uint64) ([]uint64, error) {
	adj, err := s.adjacencyList(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := adj[rootID]; !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "category %d not found", rootID)
	}

	var result []uint64
	stack := []uint64{rootID}
	seen := map[uint64]bool{}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)
		stack = append(stack, adj[current]...)
	}
	return result, nil
}

func (s *CategoryService) invalidateTree(ctx context.Context) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, categoryTreeCacheKey)
	}
}

// JSON object keys must be strings, so the adjacency map round-trips
// through map[string][]uint64.

func encodeAdjacency(adj map[uint64][]uint64) ([]byte, error) {
	enc := make(map[string][]uint64, len(adj))
	for k, v := range adj {
		enc[strconv.FormatUint(k, 10)] = v
	}
	return json.Marshal(enc)
}

func decodeAdjacency(data string) (map[uint64][]uint64, error) {
	var enc map[string][]uint64
	if err := json.Unmarshal([]byte(data), &enc); err != nil {
		return nil, err
	}
	adj := make(map[uint64][]uint64, len(enc))
	for k, v := range enc {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, err
		}
		adj[id] = v
	}
	return adj, nil
}
