// internal/pkg/ai/gemini.go
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/your-org/shopping-agent/internal/config"
)

// GeminiProvider is a thin wrapper around the official genai client.
type GeminiProvider struct {
	cli         *genai.Client
	model       string
	temperature float32
}

// NewGeminiProvider creates a Gemini-backed completion provider. Returns
// ErrNotConfigured when no API key is present so callers can install their
// fallback path without special-casing construction.
func NewGeminiProvider(ctx context.Context, cfg *config.Config) (*GeminiProvider, error) {
	if cfg.AI.GeminiAPIKey == "" {
		return nil, ErrNotConfigured
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.AI.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiProvider{
		cli:         cli,
		model:       cfg.AI.Model,
		temperature: float32(cfg.AI.Temperature),
	}, nil
}

// GenerateJSON sends the system instruction plus user content and requests
// application/json output.
func (g *GeminiProvider) GenerateJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	temp := g.temperature
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: user}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			ResponseMIMEType:  "application/json",
			Temperature:       &temp,
		},
	)
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("genai request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrNoContent
	}

	txt := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(txt) == "" {
		return nil, ErrNoContent
	}

	return json.RawMessage(txt), nil
}

// isQuotaError recognizes rate-limit and quota failures from the Gemini API.
func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}
