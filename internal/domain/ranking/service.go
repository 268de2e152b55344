// internal/domain/ranking/service.go
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/product"
	"github.com/your-org/shopping-agent/internal/pkg/ai"
)

// Scoring weights. They must sum to 1.0.
const (
	weightPrice      = 0.35
	weightDelivery   = 0.25
	weightPreference = 0.25
	weightCoherence  = 0.15

	// preferenceScore is a placeholder until preference overlap is computed
	// from the spec's nice-to-haves.
	preferenceScore = 0.7
)

var strategies = []cart.Strategy{
	cart.StrategyBestValue,
	cart.StrategyFastestDelivery,
	cart.StrategyPremiumChoice,
}

// Breakdown lists a cart's items grouped by retailer.
type Breakdown struct {
	CartID    string          `json:"cart_id"`
	Retailers []RetailerGroup `json:"retailers"`
	TotalCost float64         `json:"total_cost"`
}

// RetailerGroup is one retailer's share of a cart.
type RetailerGroup struct {
	RetailerID   string      `json:"retailer_id"`
	RetailerName string      `json:"retailer_name"`
	Items        []cart.Item `json:"items"`
	Subtotal     float64     `json:"subtotal"`
}

// Comparison contrasts two candidate carts.
type Comparison struct {
	CartA          *cart.Cart `json:"cart_a"`
	CartB          *cart.Cart `json:"cart_b"`
	CostDifference float64    `json:"cost_difference"`
	Recommendation string     `json:"recommendation"`
}

// Service builds and scores candidate carts
type Service struct {
	db       *gorm.DB
	provider ai.CompletionProvider
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates a new ranking service. provider may be nil; explanations
// then come from the deterministic formatter only.
func NewService(db *gorm.DB, provider ai.CompletionProvider, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// GenerateRankedCarts builds one candidate cart per strategy from the product
// pool, scores the survivors, persists them, and returns them best first.
// Candidates over budget are dropped unless they use the Best Value strategy,
// which is always reported so callers can surface the overrun.
func (s *Service) GenerateRankedCarts(ctx context.Context, sessionID string, pool []product.Product, spec *intent.ShoppingSpec) ([]cart.Cart, error) {
	categories, byCategory := partitionByCategory(pool)
	if len(categories) == 0 {
		return []cart.Cart{}, nil
	}

	var ranked []cart.Cart
	for _, strategy := range strategies {
		picks := pickPerCategory(categories, byCategory, strategy)
		if len(picks) == 0 {
			continue
		}

		total := 0.0
		maxDeliveryDays := 0
		for _, p := range picks {
			total += p.Price
			if p.DeliveryDays > maxDeliveryDays {
				maxDeliveryDays = p.DeliveryDays
			}
		}

		budget := spec.Constraints.Budget
		if budget != nil && total > *budget && strategy != cart.StrategyBestValue {
			s.logger.WithFields(logrus.Fields{
				"session_id": sessionID,
				"strategy":   strategy,
				"total":      total,
				"budget":     *budget,
			}).Debug("candidate cart over budget, omitted")
			continue
		}

		deliveryDate := s.now().AddDate(0, 0, maxDeliveryDays)
		score := s.calculateScore(total, maxDeliveryDays, picks, spec)

		c := cart.Cart{
			ID:           uuid.New().String(),
			SessionID:    sessionID,
			Strategy:     strategy,
			TotalCost:    total,
			Score:        score,
			Explanation:  s.quickExplanation(strategy, total, deliveryDate, score, spec),
			DeliveryDate: &deliveryDate,
		}
		for _, p := range picks {
			variantID := s.chooseVariant(p, spec)
			c.Items = append(c.Items, cart.Item{
				ID:         uuid.New().String(),
				CartID:     c.ID,
				ProductID:  p.ID,
				VariantID:  variantID,
				Quantity:   1,
				UnitPrice:  p.Price,
				TotalPrice: p.Price,
			})
		}

		if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, fmt.Errorf("failed to persist candidate cart: %w", err)
		}
		ranked = append(ranked, c)
	}
	if ranked == nil {
		ranked = []cart.Cart{}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// calculateScore is a weighted sum of four sub-scores, each in [0,1], rounded
// to two decimals.
func (s *Service) calculateScore(total float64, maxDeliveryDays int, picks []product.Product, spec *intent.ShoppingSpec) float64 {
	priceScore := 0.5
	if spec.Constraints.Budget != nil && *spec.Constraints.Budget > 0 {
		priceScore = math.Max(0, 1 - total / *spec.Constraints.Budget)
	}

	deliveryScore := math.Max(0, 1-float64(maxDeliveryDays)/10)
	if spec.Constraints.Deadline != nil {
		projected := s.now().AddDate(0, 0, maxDeliveryDays)
		if !projected.After(*spec.Constraints.Deadline) {
			daysEarly := spec.Constraints.Deadline.Sub(projected).Hours() / 24
			deliveryScore = math.Min(1, daysEarly/7)
		} else {
			// Missing the deadline scores zero rather than falling back to
			// the no-deadline formula.
			deliveryScore = 0
		}
	}

	retailers := make(map[string]bool)
	for _, p := range picks {
		retailers[p.RetailerID] = true
	}
	coherenceScore := math.Max(0, 1-float64(len(retailers)-1)/3)

	score := weightPrice*priceScore +
		weightDelivery*deliveryScore +
		weightPreference*preferenceScore +
		weightCoherence*coherenceScore
	return math.Round(score*100) / 100
}

// quickExplanation is the deterministic one-liner attached to every cart; no
// completion provider involved.
func (s *Service) quickExplanation(strategy cart.Strategy, total float64, deliveryDate time.Time, score float64, spec *intent.ShoppingSpec) string {
	parts := []string{string(strategy)}

	if spec.Constraints.Budget != nil {
		diff := *spec.Constraints.Budget - total
		if diff >= 0 {
			parts = append(parts, fmt.Sprintf("$%.2f under budget", diff))
		} else {
			parts = append(parts, fmt.Sprintf("$%.2f over budget", -diff))
		}
	}

	if spec.Constraints.Deadline != nil {
		daysEarly := int(spec.Constraints.Deadline.Sub(deliveryDate).Hours() / 24)
		if daysEarly >= 0 {
			parts = append(parts, fmt.Sprintf("arrives %d days before your deadline", daysEarly))
		} else {
			parts = append(parts, "misses your deadline")
		}
	}

	parts = append(parts, fmt.Sprintf("score %.0f%%", score*100))
	return strings.Join(parts, ", ")
}

// RetailerBreakdown groups a cart's items by retailer with per-retailer
// subtotals.
func (s *Service) RetailerBreakdown(ctx context.Context, cartID string) (*Breakdown, error) {
	c, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string]*RetailerGroup)
	for _, item := range c.Items {
		if item.Product == nil {
			continue
		}
		id := item.Product.RetailerID
		g, ok := groups[id]
		if !ok {
			g = &RetailerGroup{
				RetailerID:   id,
				RetailerName: item.Product.Retailer.Name,
			}
			groups[id] = g
			order = append(order, id)
		}
		g.Items = append(g.Items, item)
		g.Subtotal += item.TotalPrice
	}

	breakdown := &Breakdown{CartID: c.ID, TotalCost: c.TotalCost, Retailers: []RetailerGroup{}}
	for _, id := range order {
		breakdown.Retailers = append(breakdown.Retailers, *groups[id])
	}
	return breakdown, nil
}

// Explain produces a longer rationale for a cart's ranking. It asks the
// completion provider when one is configured and falls back to a
// deterministic summary otherwise.
func (s *Service) Explain(ctx context.Context, cartID string) (string, error) {
	c, err := s.loadCart(ctx, cartID)
	if err != nil {
		return "", err
	}

	if s.provider != nil {
		if explanation, err := s.explainWithProvider(ctx, c); err == nil {
			return explanation, nil
		} else if !errors.Is(err, ai.ErrNotConfigured) && !errors.Is(err, ai.ErrQuotaExceeded) {
			s.logger.WithError(err).Warn("explanation provider failed, using fallback")
		}
	}

	return s.fallbackExplanation(c), nil
}

// Compare contrasts two carts from the same session and recommends one.
func (s *Service) Compare(ctx context.Context, cartAID, cartBID string) (*Comparison, error) {
	a, err := s.loadCart(ctx, cartAID)
	if err != nil {
		return nil, err
	}
	b, err := s.loadCart(ctx, cartBID)
	if err != nil {
		return nil, err
	}

	recommendation := a.ID
	if b.Score > a.Score {
		recommendation = b.ID
	}

	return &Comparison{
		CartA:          a,
		CartB:          b,
		CostDifference: a.TotalCost - b.TotalCost,
		Recommendation: recommendation,
	}, nil
}

func (s *Service) loadCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	var c cart.Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product.Retailer").
		Preload("Items.Variant").
		Where("id = ?", cartID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &c, nil
}

func (s *Service) explainWithProvider(ctx context.Context, c *cart.Cart) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"strategy":   c.Strategy,
		"total_cost": c.TotalCost,
		"score":      c.Score,
		"items":      c.Items,
	})
	if err != nil {
		return "", err
	}

	raw, err := s.provider.GenerateJSON(ctx,
		`You explain shopping cart recommendations. Respond with JSON: {"explanation": "two or three sentences on why this cart suits the shopper"}.`,
		string(payload))
	if err != nil {
		return "", err
	}

	var out struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode explanation: %w", err)
	}
	if out.Explanation == "" {
		return "", ai.ErrNoContent
	}
	return out.Explanation, nil
}

func (s *Service) fallbackExplanation(c *cart.Cart) string {
	retailers := make(map[string]bool)
	for _, item := range c.Items {
		if item.Product != nil {
			retailers[item.Product.RetailerID] = true
		}
	}

	explanation := fmt.Sprintf(
		"The %s cart covers %d items for $%.2f across %d retailers, scoring %.0f%% on price, delivery speed, preference fit, and retailer coherence.",
		c.Strategy, len(c.Items), c.TotalCost, len(retailers), c.Score*100)
	if c.DeliveryDate != nil {
		explanation += fmt.Sprintf(" Everything arrives by %s.", c.DeliveryDate.Format("Jan 2"))
	}
	return explanation
}

// chooseVariant picks the in-stock variant matching the spec's size for the
// product's category, defaulting to size M.
func (s *Service) chooseVariant(p product.Product, spec *intent.ShoppingSpec) *string {
	if len(p.Variants) == 0 {
		return nil
	}

	wanted := "M"
	for category, size := range spec.Constraints.Sizes {
		if strings.Contains(strings.ToLower(p.Category), strings.ToLower(category)) {
			wanted = size
			break
		}
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		if v.InStock && strings.EqualFold(v.Size, wanted) {
			return &v.ID
		}
	}
	for i := range p.Variants {
		if p.Variants[i].InStock {
			return &p.Variants[i].ID
		}
	}
	return nil
}

// partitionByCategory folds categories to lower case and preserves first-seen
// order so strategy ties resolve to the earliest pool element.
func partitionByCategory(pool []product.Product) ([]string, map[string][]product.Product) {
	var categories []string
	byCategory := make(map[string][]product.Product)
	for _, p := range pool {
		key := strings.ToLower(p.Category)
		if _, ok := byCategory[key]; !ok {
			categories = append(categories, key)
		}
		byCategory[key] = append(byCategory[key], p)
	}
	return categories, byCategory
}

func pickPerCategory(categories []string, byCategory map[string][]product.Product, strategy cart.Strategy) []product.Product {
	var picks []product.Product
	for _, category := range categories {
		candidates := byCategory[category]
		if len(candidates) == 0 {
			continue
		}

		best := candidates[0]
		for _, candidate := range candidates[1:] {
			switch strategy {
			case cart.StrategyBestValue:
				if candidate.Price < best.Price {
					best = candidate
				}
			case cart.StrategyFastestDelivery:
				if candidate.DeliveryDays < best.DeliveryDays {
					best = candidate
				}
			case cart.StrategyPremiumChoice:
				if candidate.Price > best.Price {
					best = candidate
				}
			}
		}
		picks = append(picks, best)
	}
	return picks
}
