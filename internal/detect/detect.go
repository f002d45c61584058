// Package detect finds inconsistencies between declared roles.
package detect

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/spigell/cv-verifier/internal/resume"
)

// Pair is an unordered pair of roles. First always precedes Second in the
// source document.
type Pair struct {
	First  resume.Role `json:"first"`
	Second resume.Role `json:"second"`
}

// Overlaps returns every pair of full-time roles whose intervals intersect.
// Roles without a known start are skipped.
func Overlaps(roles []resume.Role) []Pair {
	return pairs(roles, func(r resume.Role) bool { return r.FullTime }, nil)
}

// LocationConflicts returns every pair of roles whose intervals intersect
// while their declared locations are both set and differ.
func LocationConflicts(roles []resume.Role) []Pair {
	return pairs(roles, func(r resume.Role) bool { return NormalizeLocation(r.Location) != "" },
		func(a, b resume.Role) bool {
			return NormalizeLocation(a.Location) != NormalizeLocation(b.Location)
		})
}

// NormalizeLocation case-folds and trims a location for comparison.
func NormalizeLocation(location string) string {
	return cases.Fold().String(strings.TrimSpace(location))
}

// Intersects reports whether the closed intervals of a and b share at least
// one point. An absent or ongoing end is unbounded.
func Intersects(a, b resume.Role) bool {
	latestStart := later(a.Start.Time, b.Start.Time)
	earliestEnd := earlier(a.End.Upper(), b.End.Upper())
	return !latestStart.After(earliestEnd)
}

func pairs(roles []resume.Role, keep func(resume.Role) bool, conflict func(a, b resume.Role) bool) []Pair {
	candidates := make([]resume.Role, 0, len(roles))
	for _, r := range roles {
		if !r.Start.IsKnown() || !keep(r) {
			continue
		}
		candidates = append(candidates, r)
	}

	result := []Pair{}
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if !Intersects(a, b) {
				continue
			}
			if conflict != nil && !conflict(a, b) {
				continue
			}
			result = append(result, Pair{First: a, Second: b})
		}
	}

	return result
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
