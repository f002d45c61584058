package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/config"
	"github.com/spigell/cv-verifier/internal/dispatch"
	"github.com/spigell/cv-verifier/internal/pipeline"
	"github.com/spigell/cv-verifier/internal/risk"
	"github.com/spigell/cv-verifier/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyse résumé files and print their risk assessment",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("name", "n", "", "candidate name used for the search enrichment query")
	analyzeCmd.Flags().BoolP("save", "s", false, "store every analysis as a new submission")
	analyzeCmd.Flags().Bool("full", false, "print the whole analysis state instead of the summary")
}

// summary is the printed form of one analysis.
type summary struct {
	File         string                 `json:"file"`
	SubmissionID string                 `json:"submission_id,omitempty"`
	Risk         *risk.Assessment       `json:"risk,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Roles        int                    `json:"roles"`
	Overlaps     int                    `json:"overlaps"`
	Conflicts    int                    `json:"location_conflicts"`
	Stages       []pipeline.StageRecord `json:"stages"`
	State        *pipeline.State        `json:"state,omitempty"`
}

// collector keeps the delivered states and forwards them to an optional
// store.
type collector struct {
	mu     sync.Mutex
	states map[string]*pipeline.State
	next   dispatch.Sink
}

func (c *collector) SaveResult(ctx context.Context, id string, state *pipeline.State) error {
	c.mu.Lock()
	c.states[id] = state
	c.mu.Unlock()

	if c.next == nil {
		return nil
	}
	return c.next.SaveResult(ctx, id, state)
}

func analyze(cmd *cobra.Command, files []string) {
	ctx := context.Background()
	e := newEnv()
	logger := e.logger

	logger.Info("starting the analysis", zap.String("app", config.App), zap.String("version", version), zap.Int("files", len(files)))

	p, err := e.newPipeline(ctx)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	name, _ := cmd.Flags().GetString("name")
	save, _ := cmd.Flags().GetBool("save")
	full, _ := cmd.Flags().GetBool("full")

	sink := &collector{states: map[string]*pipeline.State{}}

	ids := make([]string, len(files))
	if save {
		st, err := e.openStore(ctx)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer st.Close()
		sink.next = st

		for i, file := range files {
			sub, err := st.CreateSubmission(ctx, store.Candidate{FirstName: name}, file)
			if err != nil {
				logger.Fatal("creating a submission", zap.String("file", file), zap.Error(err))
			}
			ids[i] = sub.ID
		}
	} else {
		for i := range files {
			ids[i] = fmt.Sprintf("%d", i)
		}
	}

	d := dispatch.New(p, sink, e.cfg.Workers.Slots, e.cfg.Workers.RunTimeout, logger)
	for i, file := range files {
		d.Submit(pipeline.Input{SubmissionID: ids[i], CandidateName: name, Path: file})
	}
	d.Wait()

	summaries := make([]summary, 0, len(files))
	for i, file := range files {
		state, ok := sink.states[ids[i]]
		if !ok {
			summaries = append(summaries, summary{File: file, Error: "analysis was not delivered"})
			continue
		}
		s := summarize(file, state)
		if save {
			s.SubmissionID = ids[i]
		}
		if full {
			s.State = state
		}
		summaries = append(summaries, s)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}
}

func summarize(file string, state *pipeline.State) summary {
	s := summary{
		File:      file,
		Risk:      state.Risk,
		Error:     state.Error,
		Overlaps:  len(state.Overlaps),
		Conflicts: len(state.LocationConflicts),
		Stages:    state.Stages,
	}
	if state.Document != nil {
		s.Roles = len(state.Document.Roles)
	}
	return s
}
