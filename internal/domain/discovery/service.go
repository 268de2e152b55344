// internal/domain/discovery/service.go
package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/your-org/shopping-agent/internal/config"
	"github.com/your-org/shopping-agent/internal/domain/product"
)

// SearchInput describes one multi-retailer search.
type SearchInput struct {
	Query     string   `json:"query"`
	Category  string   `json:"category,omitempty"`
	MinPrice  float64  `json:"min_price,omitempty"`
	MaxPrice  float64  `json:"max_price,omitempty"`
	Retailers []string `json:"retailers,omitempty"`
	InStock   *bool    `json:"in_stock,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Result is the merged outcome of an adapter fan-out. TotalFound counts the
// merged results before truncation to the caller's limit.
type Result struct {
	Products     []product.Product `json:"products"`
	TotalFound   int               `json:"total_found"`
	Retailers    []string          `json:"retailers"`
	SearchTimeMs int64             `json:"search_time_ms"`
}

// Service fans product searches out across retailer adapters
type Service struct {
	adapters    []Adapter
	db          *gorm.DB
	redisClient *redis.Client
	config      *config.Config
	logger      *logrus.Logger
}

// NewService creates a new discovery service over the given adapters.
func NewService(adapters []Adapter, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		adapters:    adapters,
		db:          db,
		redisClient: redisClient,
		config:      cfg,
		logger:      logger,
	}
}

// SearchProducts queries all active adapters concurrently and merges their
// results. A failing adapter is logged and excluded; the surviving adapters
// still produce a response. Results are sorted by ascending price and capped
// at the requested limit after merging.
func (s *Service) SearchProducts(ctx context.Context, input SearchInput) (*Result, error) {
	start := time.Now()

	if input.Limit <= 0 {
		input.Limit = s.config.Discovery.DefaultLimit
	}

	if cached := s.cachedResult(ctx, input); cached != nil {
		return cached, nil
	}

	activeAdapters := s.adapters
	if len(input.Retailers) > 0 {
		wanted := make(map[string]bool, len(input.Retailers))
		for _, id := range input.Retailers {
			wanted[id] = true
		}
		activeAdapters = nil
		for _, adapter := range s.adapters {
			if wanted[adapter.RetailerID()] {
				activeAdapters = append(activeAdapters, adapter)
			}
		}
	}

	if len(activeAdapters) == 0 {
		return &Result{
			Products:     []product.Product{},
			Retailers:    []string{},
			SearchTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	filters := Filters{
		Category: input.Category,
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
		InStock:  input.InStock,
		Limit:    int(math.Ceil(float64(input.Limit) / float64(len(activeAdapters)))),
	}

	type adapterResult struct {
		adapter  Adapter
		products []product.Product
		err      error
	}

	results := make([]adapterResult, len(activeAdapters))
	var wg sync.WaitGroup

	// Join-all fan-out: every adapter gets its own timeout and every result
	// is awaited; one adapter failing or hanging never aborts its siblings.
	for i, adapter := range activeAdapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			adapterCtx, cancel := context.WithTimeout(ctx, s.config.Discovery.AdapterTimeout)
			defer cancel()

			products, err := adapter.Search(adapterCtx, input.Query, filters)
			results[i] = adapterResult{adapter: adapter, products: products, err: err}
		}(i, adapter)
	}
	wg.Wait()

	var merged []product.Product
	var searched []string
	for _, r := range results {
		if r.err != nil {
			s.logger.WithError(r.err).WithField("retailer", r.adapter.RetailerName()).Error("retailer search failed")
			continue
		}
		merged = append(merged, r.products...)
		searched = append(searched, r.adapter.RetailerName())
	}
	if searched == nil {
		searched = []string{}
	}

	// Price is the sole relevance signal for now. Stable sort keeps adapter
	// order for equal prices.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Price < merged[j].Price
	})

	totalFound := len(merged)
	if len(merged) > input.Limit {
		merged = merged[:input.Limit]
	}
	if merged == nil {
		merged = []product.Product{}
	}

	s.persistProducts(ctx, merged)

	result := &Result{
		Products:     merged,
		TotalFound:   totalFound,
		Retailers:    searched,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}

	s.cacheResult(ctx, input, result)

	return result, nil
}

// GetProduct fetches one product from the catalog store with retailer and
// variants hydrated.
func (s *Service) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	var p product.Product
	err := s.db.WithContext(ctx).
		Preload("Retailer").
		Preload("Variants").
		Where("id = ?", productID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &p, nil
}

// GetProductsByCategory lists in-stock catalog products whose category
// contains the given text, case-insensitively, cheapest first.
func (s *Service) GetProductsByCategory(ctx context.Context, category string, limit int) ([]product.Product, error) {
	if limit <= 0 {
		limit = s.config.Discovery.DefaultLimit
	}

	var products []product.Product
	err := s.db.WithContext(ctx).
		Preload("Retailer").
		Preload("Variants").
		Where("LOWER(category) LIKE ? AND in_stock = ?", "%"+strings.ToLower(category)+"%", true).
		Order("price asc").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products by category: %w", err)
	}
	return products, nil
}

// persistProducts upserts discovered products into the catalog store so that
// point lookups and cart references resolve. Best effort: ingestion problems
// are logged, not surfaced.
func (s *Service) persistProducts(ctx context.Context, products []product.Product) {
	for i := range products {
		p := products[i]

		retailer := p.Retailer
		if retailer.ID != "" {
			if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&retailer).Error; err != nil {
				s.logger.WithError(err).WithField("retailer_id", retailer.ID).Warn("failed to persist retailer")
				continue
			}
		}

		variants := p.Variants
		p.Variants = nil
		p.Retailer = product.Retailer{}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "retailer_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "in_stock", "delivery_days", "image_url", "product_url"}),
		}).Create(&p).Error; err != nil {
			s.logger.WithError(err).WithField("product_id", p.ID).Warn("failed to persist product")
			continue
		}

		for j := range variants {
			v := variants[j]
			if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&v).Error; err != nil {
				s.logger.WithError(err).WithField("variant_id", v.ID).Warn("failed to persist variant")
			}
		}
	}
}

func (s *Service) searchCacheKey(input SearchInput) string {
	raw, _ := json.Marshal(input)
	return fmt.Sprintf("discovery:search:%x", sha256.Sum256(raw))
}

func (s *Service) cachedResult(ctx context.Context, input SearchInput) *Result {
	if s.redisClient == nil {
		return nil
	}

	data, err := s.redisClient.Get(ctx, s.searchCacheKey(input)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).Debug("discovery cache read failed")
		}
		return nil
	}

	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil
	}
	return &result
}

func (s *Service) cacheResult(ctx context.Context, input SearchInput, result *Result) {
	if s.redisClient == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, s.searchCacheKey(input), data, s.config.Discovery.CacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("discovery cache write failed")
	}
}
