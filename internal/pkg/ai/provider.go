// internal/pkg/ai/provider.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConfigured is returned when no completion provider credentials are set.
var ErrNotConfigured = errors.New("ai: completion provider not configured")

// ErrQuotaExceeded marks rate-limit or quota failures from the provider.
// Callers are expected to fall back to deterministic behavior on this error.
var ErrQuotaExceeded = errors.New("ai: provider quota exceeded")

// ErrNoContent is returned when the provider responds without usable content.
var ErrNoContent = errors.New("ai: no content in provider response")

// CompletionProvider is a black-box JSON completion function. Implementations
// must return syntactically valid JSON text or an error; callers decode into
// strict shapes at the boundary and never pass raw provider output further.
type CompletionProvider interface {
	GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}
