// internal/domain/intent/service.go
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/shopping-agent/internal/pkg/ai"
)

// ErrNoContent is returned when the provider answers without usable content.
var ErrNoContent = errors.New("intent: no content from completion provider")

const parsePrompt = `You are an AI shopping assistant. Parse the user's shopping request and extract:
1. The shopping scenario (e.g., "skiing outfit", "party supplies", "home office setup")
2. Must-have items
3. Nice-to-have items
4. Constraints: budget, deadline, sizes, colors, brand preferences

Return a JSON object with this structure:
{
  "scenario": "string",
  "extracted_constraints": {
    "budget": number or null,
    "deadline": "ISO date string" or null,
    "sizes": { "category": "size" } or null,
    "colors": ["color1", "color2"] or null,
    "brands_include": ["brand1"] or null
  },
  "clarifying_questions": ["question1", "question2"],
  "confidence": 0.0 to 1.0,
  "raw_items": ["item1", "item2"]
}

If information is missing, add clarifying questions. Be helpful and thorough.`

const clarifyPrompt = `You are a helpful shopping assistant. Parse clarification responses and update the shopping specification.`

// fallbackConfidence signals reduced reliability of the heuristic parser.
const fallbackConfidence = 0.6

var budgetPattern = regexp.MustCompile(`\$(\d+(?:,\d{3})*(?:\.\d{2})?)`)

// Ignored when tokenizing a message into candidate items.
var stopWords = map[string]bool{
	"need": true, "want": true, "buy": true, "get": true, "for": true,
	"the": true, "and": true, "with": true, "under": true, "about": true,
}

// scenarioRule maps a scenario label to its trigger keywords. First match wins,
// so the table order is significant.
type scenarioRule struct {
	scenario string
	keywords []string
}

var scenarioRules = []scenarioRule{
	{"skiing outfit", []string{"ski", "skiing", "snow", "winter"}},
	{"outdoor gear", []string{"hiking", "camping", "outdoor", "trek"}},
	{"home office", []string{"desk", "office", "computer", "monitor"}},
	{"party supplies", []string{"party", "birthday", "celebration"}},
	{"fashion shopping", []string{"clothes", "dress", "shirt", "pants", "shoes"}},
	{"electronics", []string{"phone", "laptop", "tablet", "headphones", "camera"}},
}

// One clarifying question per missing spec field, in fixed order.
var clarifyingQuestions = []struct {
	missing  func(ShoppingSpec) bool
	question string
}{
	{func(s ShoppingSpec) bool { return s.Constraints.Budget == nil }, "What's your budget for this purchase?"},
	{func(s ShoppingSpec) bool { return s.Constraints.Deadline == nil }, "When do you need these items delivered by?"},
	{func(s ShoppingSpec) bool { return len(s.Constraints.Sizes) == 0 }, "What sizes do you need? (e.g., S, M, L, or specific measurements)"},
	{func(s ShoppingSpec) bool { return len(s.Constraints.Colors) == 0 }, "Do you have any color preferences?"},
}

// Service parses free-text shopping requests into structured specs
type Service struct {
	provider ai.CompletionProvider
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates an intent parser. A nil provider means every parse
// takes the deterministic fallback path.
func NewService(provider ai.CompletionProvider, logger *logrus.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// ParseIntent extracts a structured shopping intent from a free-text message.
// The completion provider is the primary path; when it is unconfigured or
// over quota the deterministic fallback parser answers instead. Malformed or
// sparse input never fails.
func (s *Service) ParseIntent(ctx context.Context, message string) (*ParsedIntent, error) {
	if s.provider == nil {
		s.logger.Debug("completion provider not configured, using fallback intent parser")
		return s.fallbackParse(message), nil
	}

	raw, err := s.provider.GenerateJSON(ctx, parsePrompt, message)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) || errors.Is(err, ai.ErrQuotaExceeded) {
			s.logger.WithError(err).Warn("completion provider unavailable, using fallback intent parser")
			return s.fallbackParse(message), nil
		}
		if errors.Is(err, ai.ErrNoContent) {
			return nil, ErrNoContent
		}
		return nil, fmt.Errorf("intent parse failed: %w", err)
	}

	var parsed ParsedIntent
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode parsed intent: %w", err)
	}
	if parsed.ClarifyingQuestions == nil {
		parsed.ClarifyingQuestions = []string{}
	}
	if parsed.RawItems == nil {
		parsed.RawItems = []string{}
	}

	return &parsed, nil
}

// fallbackParse is the deterministic heuristic used when no provider is
// reachable. Same input yields the same output.
func (s *Service) fallbackParse(message string) *ParsedIntent {
	lower := strings.ToLower(message)

	rawItems := []string{}
	for _, word := range strings.Fields(message) {
		if len(word) <= 2 || stopWords[strings.ToLower(word)] {
			continue
		}
		rawItems = append(rawItems, word)
	}

	constraints := Constraints{}

	if m := budgetPattern.FindStringSubmatch(message); m != nil {
		var budget float64
		if _, err := fmt.Sscanf(strings.ReplaceAll(m[1], ",", ""), "%f", &budget); err == nil {
			constraints.Budget = &budget
		}
	}

	if strings.Contains(lower, "tomorrow") {
		deadline := s.now().AddDate(0, 0, 1)
		constraints.Deadline = &deadline
	} else if strings.Contains(lower, "next week") {
		deadline := s.now().AddDate(0, 0, 7)
		constraints.Deadline = &deadline
	}

	scenario := "general shopping"
	for _, rule := range scenarioRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				scenario = rule.scenario
				break
			}
		}
		if scenario != "general shopping" {
			break
		}
	}

	return &ParsedIntent{
		Scenario:             scenario,
		ExtractedConstraints: constraints,
		ClarifyingQuestions:  []string{},
		Confidence:           fallbackConfidence,
		RawItems:             rawItems,
	}
}

// ProcessClarification feeds one clarification turn through the completion
// provider. Merging the returned partial spec into the session spec is the
// caller's responsibility.
func (s *Service) ProcessClarification(ctx context.Context, sessionID string, currentSpec ShoppingSpec, userResponse string) (*ClarificationResult, error) {
	if s.provider == nil {
		return nil, ai.ErrNotConfigured
	}

	specJSON, err := json.MarshalIndent(currentSpec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode current spec: %w", err)
	}

	prompt := fmt.Sprintf(`Current shopping specification:
%s

User's clarification response: %q

Update the specification based on this response and determine if more clarification is needed.
Return JSON:
{
  "updated_spec": { ... updated fields ... },
  "is_complete": boolean,
  "next_question": "string or null"
}`, specJSON, userResponse)

	raw, err := s.provider.GenerateJSON(ctx, clarifyPrompt, prompt)
	if err != nil {
		if errors.Is(err, ai.ErrNoContent) {
			return nil, ErrNoContent
		}
		return nil, fmt.Errorf("clarification failed: %w", err)
	}

	var decoded struct {
		UpdatedSpec  ShoppingSpec `json:"updated_spec"`
		IsComplete   bool         `json:"is_complete"`
		NextQuestion string       `json:"next_question"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode clarification: %w", err)
	}

	return &ClarificationResult{
		SessionID:    sessionID,
		UpdatedSpec:  decoded.UpdatedSpec,
		IsComplete:   decoded.IsComplete,
		NextQuestion: decoded.NextQuestion,
	}, nil
}

// MissingQuestions returns one clarifying question per missing spec field,
// in fixed order: budget, deadline, sizes, colors. An empty result means the
// spec is complete enough to start discovery.
func (s *Service) MissingQuestions(spec ShoppingSpec) []string {
	questions := []string{}
	for _, q := range clarifyingQuestions {
		if q.missing(spec) {
			questions = append(questions, q.question)
		}
	}
	return questions
}
