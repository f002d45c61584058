// Package pipeline runs the fixed sequence of analysis stages over one
// candidate document.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/activity"
	"github.com/spigell/cv-verifier/internal/detect"
	"github.com/spigell/cv-verifier/internal/logger"
	"github.com/spigell/cv-verifier/internal/purpose"
	"github.com/spigell/cv-verifier/internal/resume"
	"github.com/spigell/cv-verifier/internal/risk"
	"github.com/spigell/cv-verifier/internal/search"
)

// Status is the outcome of a single stage.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Stage is one step of the analysis. Apply reads and extends the state.
type Stage interface {
	Name() string
	Apply(ctx context.Context, deps Deps, state *State) Outcome
}

// Outcome describes how a stage went. Reason is set unless Status is ok.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// StageRecord is the outcome of a stage as stored on the state.
type StageRecord struct {
	Name string `json:"name"`
	Outcome
	Duration time.Duration `json:"duration"`
}

// Searcher runs an enrichment query. It never fails.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []search.Result
}

// Deps aggregates the collaborators shared by all stages. They are built
// once per process and only read afterwards.
type Deps struct {
	Extractor   *resume.Extractor
	Text        resume.TextSource
	Search      Searcher
	SearchLimit int
	Activity    *activity.Verifier
	Purpose     *purpose.Matcher
	Logger      *zap.Logger
}

// Input identifies the document to analyse. Text wins over Path.
type Input struct {
	SubmissionID  string
	CandidateName string
	Path          string
	Text          string
}

// State accumulates the results of every stage of one run.
type State struct {
	Document          *resume.Document           `json:"parsed_document"`
	SearchResults     []search.Result            `json:"external_search_results"`
	Activity          map[string]activity.Result `json:"activity_by_repository"`
	Overlaps          []detect.Pair              `json:"overlap_pairs"`
	LocationConflicts []detect.Pair              `json:"location_conflict_pairs"`
	PurposeChecks     []purpose.Check            `json:"purpose_checks"`
	Risk              *risk.Assessment           `json:"risk,omitempty"`
	Error             string                     `json:"error,omitempty"`
	Stages            []StageRecord              `json:"stages"`

	input Input
}

// Failed reports whether a stage aborted the run.
func (s *State) Failed() bool { return s.Error != "" }

// Pipeline is a fixed, ordered list of stages.
type Pipeline struct {
	deps   Deps
	stages []Stage
	logger *zap.Logger
}

// New returns a pipeline running DefaultStages.
func New(deps Deps) *Pipeline {
	return NewWithStages(deps, DefaultStages())
}

// NewWithStages returns a pipeline running the given stages in order.
func NewWithStages(deps Deps, stages []Stage) *Pipeline {
	deps.Logger = logger.WithFields(deps.Logger)
	return &Pipeline{deps: deps, stages: stages, logger: deps.Logger}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}

// Run executes every stage once, in order, and returns the terminal state.
// A panicking stage stops the run; the state then carries Error instead of
// a risk assessment.
func (p *Pipeline) Run(ctx context.Context, in Input) *State {
	state := &State{
		Document: resume.Empty(),
		Activity: map[string]activity.Result{},
		Stages:   make([]StageRecord, 0, len(p.stages)),
		input:    in,
	}

	log := logger.WithSubmission(p.logger, in.SubmissionID)
	deps := p.deps
	deps.Logger = log

	for _, stage := range p.stages {
		started := time.Now()
		outcome, err := apply(ctx, stage, deps, state)
		record := StageRecord{Name: stage.Name(), Outcome: outcome, Duration: time.Since(started)}
		state.Stages = append(state.Stages, record)

		fields := []zap.Field{
			zap.String(logger.FieldStage, record.Name),
			zap.String("status", string(record.Status)),
			zap.Duration("duration", record.Duration),
		}
		if record.Reason != "" {
			fields = append(fields, zap.String("reason", record.Reason))
		}

		if err != nil {
			log.Error("pipeline stage failed", append(fields, zap.Error(err))...)
			state.Risk = nil
			state.Error = err.Error()
			return state
		}

		log.Info("pipeline stage", fields...)
	}

	return state
}

func apply(ctx context.Context, stage Stage, deps Deps, state *State) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("%s: %v", stage.Name(), r)
			outcome = Outcome{Status: StatusFailed, Reason: fmt.Sprint(r)}
		}
	}()

	return stage.Apply(ctx, deps, state), nil
}

func ok() Outcome { return Outcome{Status: StatusOK} }

func degraded(reason string) Outcome { return Outcome{Status: StatusDegraded, Reason: reason} }
