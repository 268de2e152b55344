// internal/domain/checkout/entity.go
package checkout

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a checkout does not exist.
	ErrNotFound = errors.New("checkout not found")
	// ErrCartNotFound is returned when a checkout references an unknown cart.
	ErrCartNotFound = errors.New("cart not found")
	// ErrEmptyCart is returned when the chosen cart has no items.
	ErrEmptyCart = errors.New("cart has no items")
)

// Status of a checkout run.
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusComplete   Status = "COMPLETE"
)

// Order statuses within a checkout. Orders start pending, move to processing
// when their slot of the simulation window opens, and end confirmed.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderConfirmed  = "confirmed"
)

// StepNames are the fixed simulation phases, in order.
var StepNames = []string{
	"Validate Cart",
	"Process Payment",
	"Split Orders",
	"Submit to Retailers",
	"Confirm Orders",
}

// ShippingAddress is captured at checkout start.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PaymentMethod is captured at checkout start. Only the card's last four
// digits are ever stored.
type PaymentMethod struct {
	Type     string `json:"type"`
	LastFour string `json:"last_four,omitempty"`
}

// OrderItem is a frozen copy of one cart line at checkout time.
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	VariantID   *string `json:"variant_id,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// RetailerOrder is the per-retailer partition of a checkout. Confirmation
// codes are assigned exactly once, when the order confirms.
type RetailerOrder struct {
	RetailerID       string      `json:"retailer_id"`
	RetailerName     string      `json:"retailer_name"`
	Items            []OrderItem `json:"items"`
	Subtotal         float64     `json:"subtotal"`
	ShippingFee      float64     `json:"shipping_fee"`
	Total            float64     `json:"total"`
	Status           string      `json:"status"`
	ConfirmationCode string      `json:"confirmation_code,omitempty"`
}

// Checkout is one simulated checkout run over a selected cart.
type Checkout struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID       string          `gorm:"type:uuid;not null;index" json:"session_id"`
	CartID          string          `gorm:"type:uuid;not null" json:"cart_id"`
	Status          Status          `gorm:"size:20;not null" json:"status"`
	ShippingAddress ShippingAddress `gorm:"serializer:json" json:"shipping_address"`
	PaymentMethod   PaymentMethod   `gorm:"serializer:json" json:"payment_method"`
	RetailerOrders  []RetailerOrder `gorm:"serializer:json" json:"retailer_orders"`
	TotalCost       float64         `gorm:"not null" json:"total_cost"`
	StartedAt       time.Time       `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName overrides
func (Checkout) TableName() string { return "checkouts" }

// Step is one simulation phase with its derived state.
type Step struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusSnapshot is the derived view of a checkout at one instant.
type StatusSnapshot struct {
	CheckoutID     string          `json:"checkout_id"`
	Status         Status          `json:"status"`
	Progress       float64         `json:"progress"`
	CurrentStep    int             `json:"current_step"`
	Steps          []Step          `json:"steps"`
	RetailerOrders []RetailerOrder `json:"retailer_orders"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Summary is the final view of a finished (or in-flight) checkout.
type Summary struct {
	CheckoutID      string          `json:"checkout_id"`
	SessionID       string          `json:"session_id"`
	Status          Status          `json:"status"`
	TotalCost       float64         `json:"total_cost"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	RetailerOrders  []RetailerOrder `json:"retailer_orders"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}
