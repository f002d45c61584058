package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
	deadline   bool
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	_, s.deadline = ctx.Deadline()
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func TestPromptComparatorCompare(t *testing.T) {
	stub := &stubGenerator{response: `{"match": true, "score": 0.9, "reason": "freight software"}`}
	c := NewPromptComparator(stub, "stub", time.Second, 0, zap.NewNop())

	verdict, err := c.Compare(context.Background(), "We build freight routing software", "logistics, software")
	require.NoError(t, err)

	assert.True(t, verdict.Match)
	assert.Equal(t, 0.9, verdict.Score)
	assert.Equal(t, "freight software", verdict.Reason)
	assert.Contains(t, stub.lastPrompt, `"We build freight routing software"`)
	assert.Contains(t, stub.lastPrompt, `"logistics, software"`)
	assert.True(t, stub.deadline, "each call must be bounded by a timeout")
}

func TestPromptComparatorGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	c := NewPromptComparator(stub, "stub", 0, 0, nil)

	_, err := c.Compare(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestPromptComparatorUnconfigured(t *testing.T) {
	var c *PromptComparator
	_, err := c.Compare(context.Background(), "a", "b")
	require.Error(t, err)

	_, err = NewPromptComparator(nil, "none", 0, 0, nil).Compare(context.Background(), "a", "b")
	require.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		match   bool
		score   float64
		wantErr bool
	}{
		{name: "plain", raw: `{"match": false, "score": 0.1, "reason": "unrelated"}`, score: 0.1},
		{name: "code fence", raw: "```json\n{\"match\": true, \"score\": 1, \"reason\": \"ok\"}\n```", match: true, score: 1},
		{name: "surrounding prose", raw: "Sure! {\"match\": true, \"score\": 0.75} Hope this helps.", match: true, score: 0.75},
		{name: "no json", raw: "I cannot answer that", wantErr: true},
		{name: "broken json", raw: `{"match": true, "score": }`, wantErr: true},
		{name: "string score", raw: `{"match": true, "score": "0.8"}`, wantErr: true},
		{name: "score out of range", raw: `{"match": true, "score": 7}`, wantErr: true},
		{name: "missing match", raw: `{"score": 0.4}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verdict, err := ParseVerdict(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.match, verdict.Match)
			assert.Equal(t, tt.score, verdict.Score)
			assert.Equal(t, tt.raw, verdict.Raw)
		})
	}
}
