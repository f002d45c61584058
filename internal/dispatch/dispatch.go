// Package dispatch runs analyses in the background on a bounded number of
// worker slots.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/spigell/cv-verifier/internal/logger"
	"github.com/spigell/cv-verifier/internal/pipeline"
)

const (
	defaultRunTimeout  = 10 * time.Minute
	defaultSaveTimeout = 30 * time.Second
)

// Runner analyses one document.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) *pipeline.State
}

// Sink receives the terminal state of a run.
type Sink interface {
	SaveResult(ctx context.Context, submissionID string, state *pipeline.State) error
}

type Dispatcher struct {
	runner      Runner
	sink        Sink
	slots       *semaphore.Weighted
	runTimeout  time.Duration
	saveTimeout time.Duration
	wg          sync.WaitGroup
	logger      *zap.Logger
}

// New returns a Dispatcher running at most slots analyses at once. The run
// timeout starts once a slot is acquired. A nil sink discards results.
func New(runner Runner, sink Sink, slots int, runTimeout time.Duration, log *zap.Logger) *Dispatcher {
	if slots < 1 {
		slots = 1
	}
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &Dispatcher{
		runner:      runner,
		sink:        sink,
		slots:       semaphore.NewWeighted(int64(slots)),
		runTimeout:  runTimeout,
		saveTimeout: defaultSaveTimeout,
		logger:      logger.WithFields(log, zap.String("component", "dispatch")),
	}
}

// Submit schedules an analysis and returns immediately. The run is detached
// from the caller: cancelling the caller's context does not stop it.
func (d *Dispatcher) Submit(in pipeline.Input) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(in)
	}()
}

// Wait blocks until every submitted analysis has been delivered.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(in pipeline.Input) {
	log := logger.WithSubmission(d.logger, in.SubmissionID)

	// Queue time does not count against the run budget.
	if err := d.slots.Acquire(context.Background(), 1); err != nil {
		log.Error("no worker slot available", zap.Error(err))
		d.deliver(log, in.SubmissionID, &pipeline.State{Error: fmt.Sprintf("no worker slot available: %v", err)})
		return
	}

	d.deliver(log, in.SubmissionID, d.analyse(log, in))
}

// analyse runs the pipeline on an acquired slot. A crashing runner yields a
// failed state instead of nothing.
func (d *Dispatcher) analyse(log *zap.Logger, in pipeline.Input) (state *pipeline.State) {
	defer d.slots.Release(1)
	defer func() {
		if r := recover(); r != nil {
			log.Error("analysis crashed", zap.Any("panic", r))
			state = &pipeline.State{Error: fmt.Sprintf("analysis crashed: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.runTimeout)
	defer cancel()

	state = d.runner.Run(ctx, in)
	if state == nil {
		state = &pipeline.State{Error: "analysis produced no result"}
	}
	return state
}

// deliver hands state to the sink on its own deadline, so an exhausted run
// budget does not prevent the result from being stored.
func (d *Dispatcher) deliver(log *zap.Logger, submissionID string, state *pipeline.State) {
	if d.sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("saving analysis result crashed", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.saveTimeout)
	defer cancel()

	if err := d.sink.SaveResult(ctx, submissionID, state); err != nil {
		log.Warn("saving analysis result failed", zap.Error(err))
		return
	}

	log.Info("analysis delivered", zap.Bool("failed", state.Failed()))
}
