package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/cv-verifier/internal/detect"
	"github.com/spigell/cv-verifier/internal/purpose"
	"github.com/spigell/cv-verifier/internal/resume"
	"github.com/spigell/cv-verifier/internal/risk"
	"github.com/spigell/cv-verifier/internal/search"
)

const (
	StageExtract   = "extract"
	StageSearch    = "search"
	StageActivity  = "activity"
	StageOverlap   = "overlap"
	StageLocation  = "location"
	StagePurpose   = "purpose"
	StageRisk      = "risk"
	noExternalData = "no external data"
)

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	name string
	fn   func(ctx context.Context, deps Deps, state *State) Outcome
}

// NewStage names fn as a Stage.
func NewStage(name string, fn func(ctx context.Context, deps Deps, state *State) Outcome) Stage {
	return StageFunc{name: name, fn: fn}
}

func (s StageFunc) Name() string { return s.name }

func (s StageFunc) Apply(ctx context.Context, deps Deps, state *State) Outcome {
	return s.fn(ctx, deps, state)
}

// DefaultStages returns the analysis stages in their fixed order.
func DefaultStages() []Stage {
	return []Stage{
		NewStage(StageExtract, extractStage),
		NewStage(StageSearch, searchStage),
		NewStage(StageActivity, activityStage),
		NewStage(StageOverlap, overlapStage),
		NewStage(StageLocation, locationStage),
		NewStage(StagePurpose, purposeStage),
		NewStage(StageRisk, riskStage),
	}
}

func extractStage(ctx context.Context, deps Deps, state *State) Outcome {
	text := state.input.Text
	if strings.TrimSpace(text) == "" && state.input.Path != "" && deps.Text != nil {
		text = deps.Text.Text(ctx, state.input.Path)
	}
	if strings.TrimSpace(text) == "" {
		state.Document = resume.Empty()
		return degraded("no text extracted")
	}
	if deps.Extractor == nil {
		state.Document = resume.Empty()
		return degraded("extractor is not configured")
	}

	state.Document = deps.Extractor.Extract(text)
	if len(state.Document.Roles) == 0 {
		return degraded("no roles recognised")
	}
	return ok()
}

func searchStage(ctx context.Context, deps Deps, state *State) Outcome {
	query := search.Query(state.input.CandidateName, state.Document.FirstTitle())

	if deps.Search == nil {
		state.SearchResults = []search.Result{search.Placeholder(query)}
		return degraded(noExternalData)
	}

	state.SearchResults = deps.Search.Search(ctx, query, deps.SearchLimit)
	if len(state.SearchResults) == 1 {
		switch state.SearchResults[0] {
		case search.Placeholder(query), search.Failure(query):
			return degraded(noExternalData)
		}
	}
	return ok()
}

func activityStage(ctx context.Context, deps Deps, state *State) Outcome {
	if deps.Activity == nil {
		return degraded("activity verifier is not configured")
	}

	state.Activity = deps.Activity.Verify(ctx, state.Document)

	failed := 0
	for _, r := range state.Activity {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return degraded(fmt.Sprintf("%d of %d repositories could not be checked", failed, len(state.Activity)))
	}
	return ok()
}

func overlapStage(_ context.Context, _ Deps, state *State) Outcome {
	state.Overlaps = detect.Overlaps(state.Document.Roles)
	return ok()
}

func locationStage(_ context.Context, _ Deps, state *State) Outcome {
	state.LocationConflicts = detect.LocationConflicts(state.Document.Roles)
	return ok()
}

func purposeStage(ctx context.Context, deps Deps, state *State) Outcome {
	matcher := deps.Purpose
	if matcher == nil {
		matcher = purpose.NewMatcher(nil, deps.Logger)
	}

	state.PurposeChecks = matcher.CheckRoles(ctx, state.Document.Roles)

	fallback := 0
	for _, c := range state.PurposeChecks {
		if c.Details.Source != purpose.SourceComparator {
			fallback++
		}
	}
	if fallback > 0 {
		return degraded(fmt.Sprintf("%d of %d roles checked without comparator", fallback, len(state.PurposeChecks)))
	}
	return ok()
}

func riskStage(_ context.Context, _ Deps, state *State) Outcome {
	assessment := risk.Aggregate(risk.Inputs{
		Overlaps:          state.Overlaps,
		LocationConflicts: state.LocationConflicts,
		PurposeChecks:     state.PurposeChecks,
		Activity:          state.Activity,
	})
	state.Risk = &assessment
	return ok()
}
