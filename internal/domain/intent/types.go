// internal/domain/intent/types.go
package intent

import "time"

// Constraints holds the hard and soft limits extracted from a shopping request.
type Constraints struct {
	Budget        *float64          `json:"budget,omitempty"`
	Deadline      *time.Time        `json:"deadline,omitempty"`
	Sizes         map[string]string `json:"sizes,omitempty"`
	Colors        []string          `json:"colors,omitempty"`
	BrandsInclude []string          `json:"brands_include,omitempty"`
	BrandsExclude []string          `json:"brands_exclude,omitempty"`
	Currency      string            `json:"currency,omitempty"`
}

// ShoppingSpec is the structured representation of a shopping request.
// It is replaced wholesale on update; partial updates go through Merge.
type ShoppingSpec struct {
	Scenario    string      `json:"scenario"`
	MustHaves   []string    `json:"must_haves"`
	NiceToHaves []string    `json:"nice_to_haves"`
	Constraints Constraints `json:"constraints"`
}

// Merge overlays the non-zero fields of other onto a copy of s. Top-level
// fields replace wholesale; constraints merge one level deep.
func (s ShoppingSpec) Merge(other ShoppingSpec) ShoppingSpec {
	merged := s

	if other.Scenario != "" {
		merged.Scenario = other.Scenario
	}
	if len(other.MustHaves) > 0 {
		merged.MustHaves = other.MustHaves
	}
	if len(other.NiceToHaves) > 0 {
		merged.NiceToHaves = other.NiceToHaves
	}

	if other.Constraints.Budget != nil {
		merged.Constraints.Budget = other.Constraints.Budget
	}
	if other.Constraints.Deadline != nil {
		merged.Constraints.Deadline = other.Constraints.Deadline
	}
	if len(other.Constraints.Sizes) > 0 {
		merged.Constraints.Sizes = other.Constraints.Sizes
	}
	if len(other.Constraints.Colors) > 0 {
		merged.Constraints.Colors = other.Constraints.Colors
	}
	if len(other.Constraints.BrandsInclude) > 0 {
		merged.Constraints.BrandsInclude = other.Constraints.BrandsInclude
	}
	if len(other.Constraints.BrandsExclude) > 0 {
		merged.Constraints.BrandsExclude = other.Constraints.BrandsExclude
	}
	if other.Constraints.Currency != "" {
		merged.Constraints.Currency = other.Constraints.Currency
	}

	return merged
}

// ParsedIntent is the strict result shape of intent parsing.
type ParsedIntent struct {
	Scenario             string      `json:"scenario"`
	ExtractedConstraints Constraints `json:"extracted_constraints"`
	ClarifyingQuestions  []string    `json:"clarifying_questions"`
	Confidence           float64     `json:"confidence"`
	RawItems             []string    `json:"raw_items"`
}

// Spec converts a parsed intent into a fresh shopping spec.
func (p ParsedIntent) Spec() ShoppingSpec {
	constraints := p.ExtractedConstraints
	if constraints.Currency == "" {
		constraints.Currency = "USD"
	}
	return ShoppingSpec{
		Scenario:    p.Scenario,
		MustHaves:   p.RawItems,
		NiceToHaves: []string{},
		Constraints: constraints,
	}
}

// ClarificationResult is the outcome of one clarification turn.
type ClarificationResult struct {
	SessionID    string       `json:"session_id"`
	UpdatedSpec  ShoppingSpec `json:"updated_spec"`
	IsComplete   bool         `json:"is_complete"`
	NextQuestion string       `json:"next_question,omitempty"`
}
