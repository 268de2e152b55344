// internal/interfaces/http/handlers/discovery.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/domain/discovery"
	"github.com/your-org/shopping-agent/internal/domain/product"
)

// DiscoveryHandler handles product discovery endpoints
type DiscoveryHandler struct {
	discovery *discovery.Service
	logger    *logrus.Logger
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(discoveryService *discovery.Service, logger *logrus.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discovery: discoveryService,
		logger:    logger,
	}
}

// Search handles GET /discovery/search
func (h *DiscoveryHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	input := discovery.SearchInput{
		Query:    query,
		Category: c.Query("category"),
	}
	if v := c.Query("min_price"); v != "" {
		input.MinPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.Query("max_price"); v != "" {
		input.MaxPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.Query("limit"); v != "" {
		input.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("in_stock"); v != "" {
		inStock := v == "true"
		input.InStock = &inStock
	}
	if v := c.QueryArray("retailer"); len(v) > 0 {
		input.Retailers = v
	}

	result, err := h.discovery.SearchProducts(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"data":    result,
	})
}

// GetProduct handles GET /discovery/products/:id
func (h *DiscoveryHandler) GetProduct(c *gin.Context) {
	p, err := h.discovery.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    p,
	})
}

// GetByCategory handles GET /discovery/categories/:category
func (h *DiscoveryHandler) GetByCategory(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	products, err := h.discovery.GetProductsByCategory(c.Request.Context(), c.Param("category"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Products retrieved successfully",
		"data": gin.H{
			"products": products,
			"count":    len(products),
		},
	})
}
