// Package ai defines the semantic comparison capability used to check a
// role's stated purpose against an expected keyword profile.
package ai

import "context"

// Verdict is the structured answer of a comparator.
type Verdict struct {
	Match  bool    `json:"match"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
	Raw    string  `json:"-"`
}

// Comparator judges whether description agrees with the expected keywords.
type Comparator interface {
	Compare(ctx context.Context, description, expected string) (*Verdict, error)
}

// Generator sends a prompt to a language model and returns its text output.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
