// internal/interfaces/http/handlers/ranking.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/ranking"
)

// RankingHandler handles cart ranking insight endpoints
type RankingHandler struct {
	ranking *ranking.Service
	logger  *logrus.Logger
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(rankingService *ranking.Service, logger *logrus.Logger) *RankingHandler {
	return &RankingHandler{
		ranking: rankingService,
		logger:  logger,
	}
}

// Explain handles GET /ranking/:cartId/explanation
func (h *RankingHandler) Explain(c *gin.Context) {
	explanation, err := h.ranking.Explain(c.Request.Context(), c.Param("cartId"))
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to explain cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Explanation generated successfully",
		"data": gin.H{
			"cart_id":     c.Param("cartId"),
			"explanation": explanation,
		},
	})
}

// Breakdown handles GET /ranking/:cartId/breakdown
func (h *RankingHandler) Breakdown(c *gin.Context) {
	breakdown, err := h.ranking.RetailerBreakdown(c.Request.Context(), c.Param("cartId"))
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build retailer breakdown"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Breakdown generated successfully",
		"data":    breakdown,
	})
}

// Compare handles GET /ranking/compare?cart_a=...&cart_b=...
func (h *RankingHandler) Compare(c *gin.Context) {
	cartA := c.Query("cart_a")
	cartB := c.Query("cart_b")
	if cartA == "" || cartB == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameters 'cart_a' and 'cart_b' are required"})
		return
	}

	comparison, err := h.ranking.Compare(c.Request.Context(), cartA, cartB)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compare carts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comparison generated successfully",
		"data":    comparison,
	})
}
