// internal/domain/session/entity.go
package session

import (
	"errors"
	"time"

	"github.com/your-org/shopping-agent/internal/domain/intent"
)

// ErrNotFound is returned when a session lookup misses.
var ErrNotFound = errors.New("session not found")

// ErrSpecMissing is returned when a phase requires a shopping spec that has
// not been set yet.
var ErrSpecMissing = errors.New("shopping specification not set")

// Status is the session phase. Transitions are linear and irreversible:
// BRIEFING -> DISCOVERING -> RANKING -> CART -> CHECKOUT -> COMPLETE,
// with FAILED as the terminal failure state.
type Status string

const (
	StatusBriefing    Status = "BRIEFING"
	StatusDiscovering Status = "DISCOVERING"
	StatusRanking     Status = "RANKING"
	StatusCart        Status = "CART"
	StatusCheckout    Status = "CHECKOUT"
	StatusComplete    Status = "COMPLETE"
	StatusFailed      Status = "FAILED"
)

// Session represents one shopping request lifecycle. Carts and checkouts
// reference sessions by ID; the core never deletes sessions.
type Session struct {
	ID           string               `gorm:"primaryKey;size:64" json:"id"`
	Status       Status               `gorm:"not null;default:'BRIEFING';size:20" json:"status"`
	ShoppingSpec *intent.ShoppingSpec `gorm:"serializer:json" json:"shopping_spec,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// EventType labels a session lifecycle event.
type EventType string

const (
	EventIntentParsed           EventType = "intent_parsed"
	EventClarificationProcessed EventType = "clarification_processed"
	EventDiscoveryCompleted     EventType = "discovery_completed"
	EventCartSelected           EventType = "cart_selected"
	EventCheckoutStarted        EventType = "checkout_started"
)

// Event is an append-only record of what happened to a session.
type Event struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	SessionID string      `gorm:"not null;size:64;index" json:"session_id"`
	EventType EventType   `gorm:"not null;size:50" json:"event_type"`
	EventData interface{} `gorm:"serializer:json" json:"event_data,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Session) TableName() string { return "sessions" }
func (Event) TableName() string   { return "session_events" }
