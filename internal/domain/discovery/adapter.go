// internal/domain/discovery/adapter.go
package discovery

import (
	"context"

	"github.com/your-org/shopping-agent/internal/domain/product"
)

// Filters narrows an adapter search. Zero values mean "no filter".
type Filters struct {
	Category string
	MinPrice float64
	MaxPrice float64
	InStock  *bool
	Limit    int
}

// Adapter is the uniform search contract over one retailer's catalog.
// Implementations return an empty slice for "no results" and reserve errors
// for genuine failures (network, configuration). The discovery engine
// isolates each adapter's failure from its siblings.
type Adapter interface {
	RetailerID() string
	RetailerName() string
	Search(ctx context.Context, query string, filters Filters) ([]product.Product, error)
}
