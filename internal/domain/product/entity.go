// internal/domain/product/entity.go
package product

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a product lookup misses.
var ErrNotFound = errors.New("product not found")

// Retailer represents one product source
type Retailer struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	LogoURL   string    `gorm:"size:500" json:"logo_url"`
	BaseURL   string    `gorm:"size:500" json:"base_url"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product represents an externally sourced catalog entry. Uniqueness is per
// (retailer, external id); ranking and cart logic copy values and never
// mutate products after ingestion.
type Product struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	ExternalID   string    `gorm:"not null;size:100;uniqueIndex:idx_retailer_external" json:"external_id"`
	RetailerID   string    `gorm:"not null;size:64;uniqueIndex:idx_retailer_external;index" json:"retailer_id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"size:255;index" json:"category"`
	Price        float64   `gorm:"not null" json:"price"`
	Currency     string    `gorm:"size:3;default:'USD'" json:"currency"`
	ImageURL     string    `gorm:"size:500" json:"image_url"`
	ProductURL   string    `gorm:"size:500" json:"product_url"`
	InStock      bool      `gorm:"default:true" json:"in_stock"`
	DeliveryDays int       `gorm:"default:0" json:"delivery_days"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Retailer Retailer  `gorm:"foreignKey:RetailerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"retailer"`
	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Variant represents a product variant (size, color, material)
type Variant struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	ProductID string    `gorm:"not null;size:64;index" json:"product_id"`
	Size      string    `gorm:"size:50" json:"size,omitempty"`
	Color     string    `gorm:"size:50" json:"color,omitempty"`
	Material  string    `gorm:"size:100" json:"material,omitempty"`
	Price     float64   `json:"price,omitempty"` // Overrides product price if set
	InStock   bool      `gorm:"default:true" json:"in_stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnitPrice returns the effective price for a product with an optional
// variant override applied.
func (p *Product) UnitPrice(variant *Variant) float64 {
	if variant != nil && variant.Price > 0 {
		return variant.Price
	}
	return p.Price
}

// TableName overrides
func (Retailer) TableName() string { return "retailers" }
func (Product) TableName() string  { return "products" }
func (Variant) TableName() string  { return "product_variants" }
