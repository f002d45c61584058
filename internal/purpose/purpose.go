// Package purpose checks that a role's description agrees with the keyword
// profile expected for its company.
package purpose

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/spigell/cv-verifier/internal/ai"
	"github.com/spigell/cv-verifier/internal/logger"
	"github.com/spigell/cv-verifier/internal/resume"
	"github.com/spigell/cv-verifier/internal/utils"
)

const (
	// MatchThreshold is the keyword share the fallback needs for a match.
	MatchThreshold = 0.6

	ReasonMissingInput = "Missing input"
	ReasonHeuristic    = "heuristic fallback"

	SourceComparator = "comparator"
	SourceHeuristic  = "heuristic"
)

var keywordSeparators = regexp.MustCompile(`[,;\n]`)

// Details explains how a check was decided.
type Details struct {
	Score           float64 `json:"score"`
	Reason          string  `json:"reason"`
	Source          string  `json:"source,omitempty"`
	MatchedKeywords int     `json:"matched_keywords"`
	ExpectedCount   int     `json:"expected_count"`
}

// Check is the purpose verdict for one role.
type Check struct {
	RoleTitle string  `json:"role_title"`
	Matched   bool    `json:"matched"`
	Details   Details `json:"details"`
}

type Matcher struct {
	comparator ai.Comparator
	logger     *zap.Logger
}

// NewMatcher returns a Matcher. A nil comparator means every check uses the
// keyword heuristic.
func NewMatcher(comparator ai.Comparator, log *zap.Logger) *Matcher {
	return &Matcher{
		comparator: comparator,
		logger:     logger.WithFields(log, zap.String(logger.FieldStage, "purpose")),
	}
}

// CheckRoles runs Match for every role, in document order.
func (m *Matcher) CheckRoles(ctx context.Context, roles []resume.Role) []Check {
	checks := make([]Check, 0, len(roles))
	for _, role := range roles {
		check := m.Match(ctx, role.Description, role.ExpectedKeywords)
		check.RoleTitle = role.Title
		checks = append(checks, check)
	}
	return checks
}

// Match compares description with expected. Comparator failures of any kind
// fall back to the keyword heuristic.
func (m *Matcher) Match(ctx context.Context, description, expected string) Check {
	if strings.TrimSpace(description) == "" || strings.TrimSpace(expected) == "" {
		return Check{Details: Details{Reason: ReasonMissingInput}}
	}

	if m.comparator != nil {
		verdict, err := m.comparator.Compare(ctx, description, expected)
		if err == nil && verdict != nil {
			return Check{
				Matched: verdict.Match,
				Details: Details{
					Score:  verdict.Score,
					Reason: verdict.Reason,
					Source: SourceComparator,
				},
			}
		}
		m.logger.Warn("comparator failed, using keyword heuristic", zap.Error(err))
	}

	return Heuristic(description, expected)
}

// Heuristic scores the share of expected keywords that occur in description.
func Heuristic(description, expected string) Check {
	keywords := Keywords(expected)
	text := cases.Fold().String(description)

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}

	score := float64(matched) / float64(max(len(keywords), 1))

	return Check{
		Matched: score >= MatchThreshold,
		Details: Details{
			Score:           utils.Round2(score),
			Reason:          ReasonHeuristic,
			Source:          SourceHeuristic,
			MatchedKeywords: matched,
			ExpectedCount:   len(keywords),
		},
	}
}

// Keywords splits a keyword profile on commas, semicolons and newlines, or
// on whitespace when that yields nothing. Tokens are case-folded.
func Keywords(expected string) []string {
	fold := cases.Fold()

	var keywords []string
	for _, part := range keywordSeparators.Split(expected, -1) {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, fold.String(kw))
		}
	}
	if len(keywords) > 0 {
		return keywords
	}

	for _, part := range strings.Fields(expected) {
		keywords = append(keywords, fold.String(part))
	}
	return keywords
}
