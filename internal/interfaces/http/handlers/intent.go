// internal/interfaces/http/handlers/intent.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/domain/intent"
	"github.com/your-org/shopping-agent/internal/domain/session"
	"github.com/your-org/shopping-agent/internal/pkg/ai"
)

// IntentHandler handles intent parsing and clarification endpoints
type IntentHandler struct {
	intents  *intent.Service
	sessions *session.Service
	logger   *logrus.Logger
}

// NewIntentHandler creates a new intent handler.
func NewIntentHandler(intents *intent.Service, sessions *session.Service, logger *logrus.Logger) *IntentHandler {
	return &IntentHandler{
		intents:  intents,
		sessions: sessions,
		logger:   logger,
	}
}

// ParseIntent handles POST /ai/parse-intent. When a session ID is supplied
// the parsed spec is stored on the session.
func (h *IntentHandler) ParseIntent(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	parsed, err := h.intents.ParseIntent(c.Request.Context(), req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse intent"})
		return
	}

	spec := parsed.Spec()
	if req.SessionID != "" {
		if _, err := h.sessions.SetSpec(c.Request.Context(), req.SessionID, spec); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store shopping spec"})
			return
		}
		h.sessions.RecordEvent(c.Request.Context(), req.SessionID, session.EventIntentParsed, map[string]interface{}{
			"confidence": parsed.Confidence,
			"scenario":   parsed.Scenario,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Intent parsed successfully",
		"data": gin.H{
			"parsed_intent": parsed,
			"shopping_spec": spec,
			"questions":     h.intents.MissingQuestions(spec),
		},
	})
}

// Clarify handles POST /ai/clarify: one clarification turn merged into the
// session's spec.
func (h *IntentHandler) Clarify(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Response  string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session"})
		return
	}

	currentSpec := intent.ShoppingSpec{}
	if sess.ShoppingSpec != nil {
		currentSpec = *sess.ShoppingSpec
	}

	result, err := h.intents.ProcessClarification(c.Request.Context(), req.SessionID, currentSpec, req.Response)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Clarification requires a configured completion provider"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process clarification"})
		return
	}

	updated, err := h.sessions.MergeSpec(c.Request.Context(), req.SessionID, result.UpdatedSpec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store shopping spec"})
		return
	}
	result.UpdatedSpec = *updated.ShoppingSpec
	h.sessions.RecordEvent(c.Request.Context(), req.SessionID, session.EventClarificationProcessed, map[string]interface{}{
		"is_complete": result.IsComplete,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Clarification processed successfully",
		"data":    result,
	})
}

// Questions handles GET /ai/questions/:sessionId, listing the clarifying
// questions still outstanding for the session's spec.
func (h *IntentHandler) Questions(c *gin.Context) {
	sessionID := c.Param("sessionId")

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session"})
		return
	}

	spec := intent.ShoppingSpec{}
	if sess.ShoppingSpec != nil {
		spec = *sess.ShoppingSpec
	}
	questions := h.intents.MissingQuestions(spec)

	c.JSON(http.StatusOK, gin.H{
		"message": "Questions retrieved successfully",
		"data": gin.H{
			"questions":   questions,
			"is_complete": len(questions) == 0,
		},
	})
}
