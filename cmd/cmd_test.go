package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/pipeline"
	"github.com/spigell/cv-verifier/internal/resume"
	"github.com/spigell/cv-verifier/internal/risk"
	"github.com/spigell/cv-verifier/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cmd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestHandleReview(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sub, err := st.CreateSubmission(ctx, store.Candidate{FirstName: "Jane", LastName: "Doe"}, "cv.pdf")
	require.NoError(t, err)

	require.NoError(t, handleReview(ctx, st, zap.NewNop(), sub, PromptApprove))
	got, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusApproved, got.Status)

	require.NoError(t, handleReview(ctx, st, zap.NewNop(), got, PromptFullResult))
	assert.ErrorIs(t, handleReview(ctx, st, zap.NewNop(), got, PromptExit), errExit)
	assert.Error(t, handleReview(ctx, st, zap.NewNop(), got, "dance"))
}

func TestCollectorForwards(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sub, err := st.CreateSubmission(ctx, store.Candidate{FirstName: "Jane"}, "cv.txt")
	require.NoError(t, err)

	c := &collector{states: map[string]*pipeline.State{}, next: st}
	state := &pipeline.State{Risk: &risk.Assessment{Score: 0.5, Decision: risk.Accept}}
	require.NoError(t, c.SaveResult(ctx, sub.ID, state))

	assert.Same(t, state, c.states[sub.ID])
	got, err := st.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Accept", got.Decision)
}

func TestSummarize(t *testing.T) {
	state := &pipeline.State{
		Document: &resume.Document{Roles: make([]resume.Role, 3)},
		Risk:     &risk.Assessment{Score: 1.8, Decision: risk.Reject},
		Stages:   []pipeline.StageRecord{{Name: pipeline.StageExtract}},
	}

	s := summarize("cv.pdf", state)
	assert.Equal(t, 3, s.Roles)
	assert.Equal(t, risk.Reject, s.Risk.Decision)
	assert.Len(t, s.Stages, 1)
	assert.Nil(t, s.State)
}
