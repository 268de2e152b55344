// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"time"

	"github.com/your-org/shopping-agent/internal/domain/product"
)

var (
	// ErrNotFound is returned when a cart does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart item does not exist in the
	// given cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrProductNotFound is returned when an item references an unknown
	// product.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidGoal is returned for an unrecognized optimization goal.
	ErrInvalidGoal = errors.New("invalid optimization goal")
)

// Strategy identifies the assembly approach used to build a candidate cart.
type Strategy string

const (
	StrategyBestValue       Strategy = "Best Value"
	StrategyFastestDelivery Strategy = "Fastest Delivery"
	StrategyPremiumChoice   Strategy = "Premium Choice"
)

// Optimization goals accepted by OptimizeCart.
const (
	GoalCheaper     = "cheaper"
	GoalFaster      = "faster"
	GoalBetterMatch = "better_match"
)

// Cart is a complete candidate solution for a shopping session. A session
// typically holds several carts, one per strategy, with at most one selected.
type Cart struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    string     `gorm:"type:uuid;not null;index" json:"session_id"`
	Strategy     Strategy   `gorm:"size:50;not null" json:"strategy"`
	TotalCost    float64    `gorm:"not null;default:0" json:"total_cost"`
	Score        float64    `gorm:"not null;default:0" json:"score"`
	Explanation  string     `gorm:"type:text" json:"explanation"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	IsSelected   bool       `gorm:"not null;default:false" json:"is_selected"`
	Items        []Item     `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Item is one product line inside a cart.
type Item struct {
	ID        string  `gorm:"type:uuid;primaryKey" json:"id"`
	CartID    string  `gorm:"type:uuid;not null;index" json:"cart_id"`
	ProductID string  `gorm:"type:uuid;not null" json:"product_id"`
	VariantID *string `gorm:"type:uuid" json:"variant_id,omitempty"`
	Quantity  int     `gorm:"not null;default:1" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
	// TotalPrice is always UnitPrice times Quantity, recomputed on every
	// mutation.
	TotalPrice float64          `gorm:"not null" json:"total_price"`
	Product    *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant    *product.Variant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TableName overrides
func (Cart) TableName() string { return "carts" }
func (Item) TableName() string { return "cart_items" }
