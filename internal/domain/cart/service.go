// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/shopping-agent/internal/domain/product"
)

// ProductSource resolves products for cart mutations and optimization.
// The discovery service satisfies it.
type ProductSource interface {
	GetProduct(ctx context.Context, productID string) (*product.Product, error)
	GetProductsByCategory(ctx context.Context, category string, limit int) ([]product.Product, error)
}

// SessionLifecycle advances the owning session when a cart is chosen. The
// session service satisfies it.
type SessionLifecycle interface {
	MarkCartSelected(ctx context.Context, sessionID, cartID string) error
}

// Swap records one item replacement made during optimization.
type Swap struct {
	ItemID    string  `json:"item_id"`
	FromName  string  `json:"from_name"`
	ToName    string  `json:"to_name"`
	FromPrice float64 `json:"from_price"`
	ToPrice   float64 `json:"to_price"`
	Reason    string  `json:"reason"`
}

// OptimizeResult is the outcome of an optimization pass.
type OptimizeResult struct {
	Cart  *Cart  `json:"cart"`
	Goal  string `json:"goal"`
	Swaps []Swap `json:"swaps"`
}

// Service handles cart business logic
type Service struct {
	db       *gorm.DB
	products ProductSource
	sessions SessionLifecycle
	logger   *logrus.Logger
}

// NewService creates a new cart service.
func NewService(db *gorm.DB, products ProductSource, sessions SessionLifecycle, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		products: products,
		sessions: sessions,
		logger:   logger,
	}
}

// GetCart fetches one cart with its items, products and variants hydrated.
func (s *Service) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	var c Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product.Retailer").
		Preload("Items.Variant").
		Where("id = ?", cartID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &c, nil
}

// GetSessionCarts lists all candidate carts for a session, best score first.
func (s *Service) GetSessionCarts(ctx context.Context, sessionID string) ([]Cart, error) {
	var carts []Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product.Retailer").
		Preload("Items.Variant").
		Where("session_id = ?", sessionID).
		Order("score desc").
		Find(&carts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load session carts: %w", err)
	}
	return carts, nil
}

// AddItem appends a product line to a cart. The line price is the variant
// price when the variant carries an override, the base product price
// otherwise.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, variantID *string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		quantity = 1
	}

	if _, err := s.GetCart(ctx, cartID); err != nil {
		return nil, err
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	price := p.UnitPrice(s.findVariant(p, variantID))

	item := Item{
		ID:         uuid.New().String(),
		CartID:     cartID,
		ProductID:  productID,
		VariantID:  variantID,
		Quantity:   quantity,
		UnitPrice:  price,
		TotalPrice: price * float64(quantity),
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	if err := s.recomputeTotal(ctx, cartID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, cartID)
}

// UpdateItem changes an item's quantity or variant. Changing the variant
// re-resolves the line price against the current catalog.
func (s *Service) UpdateItem(ctx context.Context, cartID, itemID string, quantity *int, variantID *string) (*Cart, error) {
	var item Item
	err := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	newQuantity := item.Quantity
	if quantity != nil && *quantity > 0 {
		newQuantity = *quantity
	}

	newUnitPrice := item.UnitPrice
	updates := map[string]interface{}{}
	if variantID != nil {
		p, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		newUnitPrice = p.UnitPrice(s.findVariant(p, variantID))
		updates["variant_id"] = *variantID
	}

	updates["quantity"] = newQuantity
	updates["unit_price"] = newUnitPrice
	updates["total_price"] = newUnitPrice * float64(newQuantity)

	if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	if err := s.recomputeTotal(ctx, cartID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, cartID)
}

// RemoveItem deletes an item from a cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) (*Cart, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&Item{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	if err := s.recomputeTotal(ctx, cartID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, cartID)
}

// OptimizeCart swaps cart lines for catalog alternatives that better serve
// the given goal. cheaper picks the lowest price in the same category,
// faster the shortest delivery, better_match the highest price as a quality
// proxy. Lines with no strictly better alternative are left alone.
func (s *Service) OptimizeCart(ctx context.Context, cartID, goal string) (*OptimizeResult, error) {
	switch goal {
	case GoalCheaper, GoalFaster, GoalBetterMatch:
	default:
		return nil, ErrInvalidGoal
	}

	c, err := s.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	var swaps []Swap
	for _, item := range c.Items {
		if item.Product == nil {
			continue
		}

		alternatives, err := s.products.GetProductsByCategory(ctx, item.Product.Category, 20)
		if err != nil {
			s.logger.WithError(err).WithField("category", item.Product.Category).Warn("failed to load optimization alternatives")
			continue
		}

		best := s.pickAlternative(item, alternatives, goal)
		if best == nil || best.ID == item.ProductID {
			continue
		}

		if err := s.db.WithContext(ctx).Model(&Item{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"product_id":  best.ID,
				"variant_id":  nil,
				"unit_price":  best.Price,
				"total_price": best.Price * float64(item.Quantity),
			}).Error; err != nil {
			return nil, fmt.Errorf("failed to swap cart item: %w", err)
		}

		swaps = append(swaps, Swap{
			ItemID:    item.ID,
			FromName:  item.Product.Name,
			ToName:    best.Name,
			FromPrice: item.UnitPrice,
			ToPrice:   best.Price,
			Reason:    goal,
		})
	}
	if swaps == nil {
		swaps = []Swap{}
	}

	if err := s.recomputeTotal(ctx, cartID); err != nil {
		return nil, err
	}

	updated, err := s.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return &OptimizeResult{Cart: updated, Goal: goal, Swaps: swaps}, nil
}

// SelectCart marks one cart as the session's chosen solution and clears any
// previous selection, then moves the session into the cart stage.
func (s *Service) SelectCart(ctx context.Context, sessionID, cartID string) (*Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Cart{}).
			Where("session_id = ?", sessionID).
			Update("is_selected", false).Error; err != nil {
			return fmt.Errorf("failed to clear cart selection: %w", err)
		}

		result := tx.Model(&Cart{}).
			Where("id = ? AND session_id = ?", cartID, sessionID).
			Update("is_selected", true)
		if result.Error != nil {
			return fmt.Errorf("failed to select cart: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.MarkCartSelected(ctx, sessionID, cartID); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, cartID)
}

// recomputeTotal derives the cart total from its persisted lines so the
// stored total never drifts from the items.
func (s *Service) recomputeTotal(ctx context.Context, cartID string) error {
	var items []Item
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return fmt.Errorf("failed to load cart items: %w", err)
	}

	total := 0.0
	for _, item := range items {
		total += item.TotalPrice
	}

	if err := s.db.WithContext(ctx).Model(&Cart{}).
		Where("id = ?", cartID).
		Update("total_cost", total).Error; err != nil {
		return fmt.Errorf("failed to update cart total: %w", err)
	}
	return nil
}

func (s *Service) findVariant(p *product.Product, variantID *string) *product.Variant {
	if variantID == nil {
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == *variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// pickAlternative selects the best in-stock product for the goal across the
// category pool. The current product can win; callers skip the swap when it
// does.
func (s *Service) pickAlternative(item Item, alternatives []product.Product, goal string) *product.Product {
	var best *product.Product
	for i := range alternatives {
		alt := &alternatives[i]
		if !alt.InStock {
			continue
		}
		if !strings.EqualFold(alt.Category, item.Product.Category) {
			continue
		}
		if best == nil {
			best = alt
			continue
		}

		switch goal {
		case GoalCheaper:
			if alt.Price < best.Price {
				best = alt
			}
		case GoalFaster:
			if alt.DeliveryDays < best.DeliveryDays {
				best = alt
			}
		case GoalBetterMatch:
			if alt.Price > best.Price {
				best = alt
			}
		}
	}
	return best
}
