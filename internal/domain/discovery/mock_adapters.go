// internal/domain/discovery/mock_adapters.go
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/your-org/shopping-agent/internal/domain/product"
)

// mockAdapter serves a fixed in-memory catalog. Used until real retailer
// integrations replace it, and as the deterministic data source in tests
// and development.
type mockAdapter struct {
	retailer product.Retailer
	catalog  []mockProduct
}

type mockProduct struct {
	id           string
	externalID   string
	name         string
	description  string
	category     string
	price        float64
	imageURL     string
	deliveryDays int
	inStock      bool
}

func (m *mockAdapter) RetailerID() string   { return m.retailer.ID }
func (m *mockAdapter) RetailerName() string { return m.retailer.Name }

func (m *mockAdapter) Search(_ context.Context, query string, filters Filters) ([]product.Product, error) {
	queryLower := strings.ToLower(query)

	var results []product.Product
	for _, p := range m.catalog {
		matchesQuery := strings.Contains(strings.ToLower(p.name), queryLower) ||
			strings.Contains(strings.ToLower(p.description), queryLower) ||
			strings.Contains(strings.ToLower(p.category), queryLower)
		if !matchesQuery {
			continue
		}
		if filters.Category != "" && !strings.Contains(strings.ToLower(p.category), strings.ToLower(filters.Category)) {
			continue
		}
		if filters.MinPrice > 0 && p.price < filters.MinPrice {
			continue
		}
		if filters.MaxPrice > 0 && p.price > filters.MaxPrice {
			continue
		}
		if filters.InStock != nil && p.inStock != *filters.InStock {
			continue
		}

		results = append(results, m.toProduct(p))
		if filters.Limit > 0 && len(results) >= filters.Limit {
			break
		}
	}

	return results, nil
}

func (m *mockAdapter) toProduct(p mockProduct) product.Product {
	return product.Product{
		ID:           p.id,
		ExternalID:   p.externalID,
		RetailerID:   m.retailer.ID,
		Name:         p.name,
		Description:  p.description,
		Category:     p.category,
		Price:        p.price,
		Currency:     "USD",
		ImageURL:     p.imageURL,
		ProductURL:   fmt.Sprintf("%s/products/%s", m.retailer.BaseURL, p.externalID),
		InStock:      p.inStock,
		DeliveryDays: p.deliveryDays,
		Retailer:     m.retailer,
		Variants:     standardVariants(p.id),
	}
}

// standardVariants returns the S/M/L/XL ladder every mock product carries.
// XL is always out of stock.
func standardVariants(productID string) []product.Variant {
	return []product.Variant{
		{ID: productID + "-s", ProductID: productID, Size: "S", Color: "Black", InStock: true},
		{ID: productID + "-m", ProductID: productID, Size: "M", Color: "Black", InStock: true},
		{ID: productID + "-l", ProductID: productID, Size: "L", Color: "Black", InStock: true},
		{ID: productID + "-xl", ProductID: productID, Size: "XL", Color: "Black", InStock: false},
	}
}

// NewMockRetailerA serves outdoor and ski gear.
func NewMockRetailerA() Adapter {
	return &mockAdapter{
		retailer: product.Retailer{
			ID:       "retailer-a",
			Name:     "Mountain Gear Pro",
			Slug:     "mountain-gear-pro",
			LogoURL:  "https://placehold.co/100x100/1a365d/ffffff?text=MGP",
			BaseURL:  "https://retailer-a.mock",
			IsActive: true,
		},
		catalog: []mockProduct{
			{"ra-001", "RA-SKI-JKT-001", "Alpine Pro Ski Jacket", "Waterproof and breathable ski jacket with thermal insulation", "ski jacket", 189.99, "https://placehold.co/400x400/1a365d/ffffff?text=Ski+Jacket", 3, true},
			{"ra-002", "RA-SKI-PNT-001", "Summit Ski Pants", "Insulated ski pants with adjustable waist", "ski pants", 149.99, "https://placehold.co/400x400/2d3748/ffffff?text=Ski+Pants", 3, true},
			{"ra-003", "RA-SKI-GLV-001", "ThermoGrip Ski Gloves", "Waterproof gloves with touchscreen compatibility", "ski gloves", 59.99, "https://placehold.co/400x400/4a5568/ffffff?text=Gloves", 2, true},
			{"ra-004", "RA-SKI-GOG-001", "ClearVision Ski Goggles", "Anti-fog goggles with UV protection", "ski goggles", 89.99, "https://placehold.co/400x400/718096/ffffff?text=Goggles", 2, true},
			{"ra-005", "RA-SKI-BASE-001", "MerinoWarm Base Layer Set", "Merino wool base layer top and bottom", "base layer", 79.99, "https://placehold.co/400x400/a0aec0/ffffff?text=Base+Layer", 3, true},
			{"ra-006", "RA-HIK-BOT-001", "TrailBlazer Hiking Boots", "Waterproof hiking boots with ankle support", "hiking boots", 129.99, "https://placehold.co/400x400/2f855a/ffffff?text=Boots", 4, true},
			{"ra-007", "RA-CMP-TNT-001", "BaseCamp 2-Person Tent", "Lightweight camping tent with rainfly", "tent", 199.99, "https://placehold.co/400x400/276749/ffffff?text=Tent", 5, true},
		},
	}
}

// NewMockRetailerB serves discount sporting goods with faster delivery.
func NewMockRetailerB() Adapter {
	return &mockAdapter{
		retailer: product.Retailer{
			ID:       "retailer-b",
			Name:     "Summit Sports Outlet",
			Slug:     "summit-sports-outlet",
			LogoURL:  "https://placehold.co/100x100/744210/ffffff?text=SSO",
			BaseURL:  "https://retailer-b.mock",
			IsActive: true,
		},
		catalog: []mockProduct{
			{"rb-001", "RB-SKI-JKT-001", "PowderMax Ski Jacket", "Budget-friendly insulated ski jacket", "ski jacket", 119.99, "https://placehold.co/400x400/744210/ffffff?text=Ski+Jacket", 2, true},
			{"rb-002", "RB-SKI-PNT-001", "SlopeRider Ski Pants", "Water-resistant ski pants with reinforced knees", "ski pants", 89.99, "https://placehold.co/400x400/975a16/ffffff?text=Ski+Pants", 2, true},
			{"rb-003", "RB-SKI-GLV-001", "FrostShield Ski Gloves", "Insulated gloves with wrist leash", "ski gloves", 34.99, "https://placehold.co/400x400/b7791f/ffffff?text=Gloves", 1, true},
			{"rb-004", "RB-SKI-GOG-001", "SnowSight Ski Goggles", "Dual-lens goggles with ventilation", "ski goggles", 49.99, "https://placehold.co/400x400/d69e2e/ffffff?text=Goggles", 1, true},
			{"rb-005", "RB-SKI-HLM-001", "SafeRide Ski Helmet", "Certified ski helmet with adjustable fit", "ski helmet", 74.99, "https://placehold.co/400x400/ecc94b/1a202c?text=Helmet", 2, true},
			{"rb-006", "RB-RUN-SHO-001", "SwiftStride Running Shoes", "Cushioned running shoes for daily training", "running shoes", 94.99, "https://placehold.co/400x400/f6e05e/1a202c?text=Shoes", 2, false},
		},
	}
}

// NewMockRetailerC serves premium apparel with longer lead times.
func NewMockRetailerC() Adapter {
	return &mockAdapter{
		retailer: product.Retailer{
			ID:       "retailer-c",
			Name:     "Apex Alpine Boutique",
			Slug:     "apex-alpine-boutique",
			LogoURL:  "https://placehold.co/100x100/553c9a/ffffff?text=AAB",
			BaseURL:  "https://retailer-c.mock",
			IsActive: true,
		},
		catalog: []mockProduct{
			{"rc-001", "RC-SKI-JKT-001", "Glacier Elite Ski Jacket", "Premium three-layer shell with recycled insulation", "ski jacket", 349.99, "https://placehold.co/400x400/553c9a/ffffff?text=Ski+Jacket", 5, true},
			{"rc-002", "RC-SKI-PNT-001", "Couloir Pro Ski Pants", "Gore-Tex bib pants with full side zips", "ski pants", 289.99, "https://placehold.co/400x400/6b46c1/ffffff?text=Ski+Pants", 5, true},
			{"rc-003", "RC-SKI-GLV-001", "Leather Alpine Mittens", "Hand-stitched leather mittens with wool lining", "ski gloves", 119.99, "https://placehold.co/400x400/805ad5/ffffff?text=Mittens", 4, true},
			{"rc-004", "RC-SKI-BASE-001", "CloudSoft Base Layer", "Ultra-fine merino base layer set", "base layer", 159.99, "https://placehold.co/400x400/9f7aea/ffffff?text=Base+Layer", 4, true},
			{"rc-005", "RC-FSH-SWT-001", "Nordic Wool Sweater", "Hand-knit wool sweater in traditional patterns", "sweater", 189.99, "https://placehold.co/400x400/b794f4/1a202c?text=Sweater", 6, true},
		},
	}
}
