// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/domain/checkout"
)

// CheckoutHandler handles simulated checkout endpoints
type CheckoutHandler struct {
	checkouts *checkout.Service
	logger    *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkouts *checkout.Service, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		logger:    logger,
	}
}

// StartCheckout handles POST /checkout
func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	var req struct {
		SessionID       string                   `json:"session_id" binding:"required"`
		CartID          string                   `json:"cart_id" binding:"required"`
		ShippingAddress checkout.ShippingAddress `json:"shipping_address" binding:"required"`
		PaymentMethod   checkout.PaymentMethod   `json:"payment_method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.checkouts.StartCheckout(c.Request.Context(), req.SessionID, req.CartID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrCartNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart not found for session"})
		case errors.Is(err, checkout.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart has no items"})
		default:
			h.logger.WithError(err).Error("checkout start failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start checkout"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout started successfully",
		"data":    result,
	})
}

// Status handles GET /checkout/:id/status
func (h *CheckoutHandler) Status(c *gin.Context) {
	snapshot, err := h.checkouts.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Checkout not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve checkout status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout status retrieved successfully",
		"data":    snapshot,
	})
}

// Summary handles GET /checkout/:id/summary
func (h *CheckoutHandler) Summary(c *gin.Context) {
	summary, err := h.checkouts.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Checkout not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve checkout summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary retrieved successfully",
		"data":    summary,
	})
}
