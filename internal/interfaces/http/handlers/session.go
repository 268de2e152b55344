// internal/interfaces/http/handlers/session.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/domain/cart"
	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/session"
)

// SessionHandler handles shopping session endpoints
type SessionHandler struct {
	sessions *session.Service
	intents  *intent.Service
	carts    *cart.Service
	logger   *logrus.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *session.Service, intents *intent.Service, carts *cart.Service, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		intents:  intents,
		carts:    carts,
		logger:   logger,
	}
}

// CreateSession handles POST /sessions. An optional initial message is parsed
// into a shopping spec immediately.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	response := gin.H{"session": sess}

	if req.Message != "" {
		parsed, err := h.intents.ParseIntent(c.Request.Context(), req.Message)
		if err == nil {
			spec := parsed.Spec()
			if sess, err = h.sessions.SetSpec(c.Request.Context(), sess.ID, spec); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store shopping spec"})
				return
			}
			h.sessions.RecordEvent(c.Request.Context(), sess.ID, session.EventIntentParsed, map[string]interface{}{
				"confidence": parsed.Confidence,
				"scenario":   parsed.Scenario,
			})
			response["session"] = sess
			response["parsed_intent"] = parsed
			response["questions"] = h.intents.MissingQuestions(spec)
		} else {
			h.logger.WithError(err).Warn("initial intent parse failed")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Session created successfully",
		"data":    response,
	})
}

// GetSession handles GET /sessions/:id with carts and events hydrated.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session"})
		return
	}

	carts, err := h.carts.GetSessionCarts(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session carts"})
		return
	}

	events, err := h.sessions.Events(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session retrieved successfully",
		"data": gin.H{
			"session": sess,
			"carts":   carts,
			"events":  events,
		},
	})
}

// UpdateSession handles PATCH /sessions/:id, replacing the shopping spec
// wholesale.
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	sessionID := c.Param("id")

	var req struct {
		ShoppingSpec *intent.ShoppingSpec `json:"shopping_spec" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.sessions.SetSpec(c.Request.Context(), sessionID, *req.ShoppingSpec)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session updated successfully",
		"data":    sess,
	})
}

// StartDiscovery handles POST /sessions/:id/discover by running the session
// service's discover-and-rank pipeline.
func (h *SessionHandler) StartDiscovery(c *gin.Context) {
	sessionID := c.Param("id")

	outcome, err := h.sessions.StartDiscovery(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, session.ErrSpecMissing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session has no shopping spec; parse intent first"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run discovery"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discovery completed successfully",
		"data": gin.H{
			"products_found": outcome.ProductsFound,
			"carts":          outcome.Carts,
		},
	})
}
