// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/session"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	carts  *cart.Service
	logger *logrus.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts *cart.Service, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		logger: logger,
	}
}

// GetCart handles GET /carts/:id
func (h *CartHandler) GetCart(c *gin.Context) {
	result, err := h.carts.GetCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    result,
	})
}

// GetSessionCarts handles GET /sessions/:id/carts
func (h *CartHandler) GetSessionCarts(c *gin.Context) {
	carts, err := h.carts.GetSessionCarts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Carts retrieved successfully",
		"data": gin.H{
			"carts": carts,
			"count": len(carts),
		},
	})
}

// AddItem handles POST /carts/:id/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req struct {
		ProductID string  `json:"product_id" binding:"required"`
		VariantID *string `json:"variant_id"`
		Quantity  int     `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.carts.AddItem(c.Request.Context(), c.Param("id"), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    result,
	})
}

// UpdateItem handles PUT /carts/:id/items/:itemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req struct {
		Quantity  *int    `json:"quantity"`
		VariantID *string `json:"variant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.carts.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("itemId"), req.Quantity, req.VariantID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    result,
	})
}

// RemoveItem handles DELETE /carts/:id/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	result, err := h.carts.RemoveItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item removed successfully",
		"data":    result,
	})
}

// Optimize handles POST /carts/:id/optimize
func (h *CartHandler) Optimize(c *gin.Context) {
	var req struct {
		Goal string `json:"goal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.carts.OptimizeCart(c.Request.Context(), c.Param("id"), req.Goal)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart optimized successfully",
		"data":    result,
	})
}

// SelectCart handles POST /sessions/:id/carts/:cartId/select
func (h *CartHandler) SelectCart(c *gin.Context) {
	result, err := h.carts.SelectCart(c.Request.Context(), c.Param("id"), c.Param("cartId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart selected successfully",
		"data":    result,
	})
}

func (h *CartHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found"})
	case errors.Is(err, cart.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart item not found"})
	case errors.Is(err, cart.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, cart.ErrInvalidGoal):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Goal must be one of: cheaper, faster, better_match"})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	default:
		h.logger.WithError(err).Error("cart operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart operation failed"})
	}
}
