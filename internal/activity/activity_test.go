package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-verifier/internal/dates"
	"github.com/spigell/cv-verifier/internal/github"
	"github.com/spigell/cv-verifier/internal/resume"
)

type call struct {
	repo         string
	since, until time.Time
}

type fakeSource struct {
	mu     sync.Mutex
	counts map[string]int
	errs   map[string]error
	calls  []call
}

func (f *fakeSource) ListCommits(_ context.Context, repo string, since, until time.Time) ([]github.Commit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{repo: repo, since: since, until: until})
	f.mu.Unlock()

	if err := f.errs[repo]; err != nil {
		return nil, err
	}
	commits := make([]github.Commit, 0, f.counts[repo])
	for i := 0; i < f.counts[repo]; i++ {
		commits = append(commits, github.Commit{SHA: fmt.Sprintf("%s-%d", repo, i)})
	}
	return commits, nil
}

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newVerifier(source CommitSource, concurrency int, log *zap.Logger) *Verifier {
	v := NewVerifier(source, concurrency, log)
	v.now = func() time.Time { return fixedNow }
	return v
}

func TestScore(t *testing.T) {
	counts := []int{0, 1, 5, 6, 20, 21}
	want := []float64{0.0, 0.3, 0.3, 0.6, 0.6, 1.0}

	for i, c := range counts {
		assert.Equal(t, want[i], Score(c), "count %d", c)
	}
}

func TestVerifyQueriesFromRoleStartToNow(t *testing.T) {
	source := &fakeSource{counts: map[string]int{"acme/tool": 7}}
	doc := &resume.Document{
		Roles: []resume.Role{
			{Title: "Engineer", Start: dates.On(2020, 1, 1), End: dates.On(2021, 1, 1)},
			{Title: "Intern"},
		},
		RepositoryURLs: []string{"https://github.com/acme/tool"},
	}

	results := newVerifier(source, 1, nil).Verify(context.Background(), doc)

	require.Len(t, source.calls, 1)
	assert.Equal(t, "acme/tool", source.calls[0].repo)
	assert.Equal(t, dates.On(2020, 1, 1).Time, source.calls[0].since)
	assert.Equal(t, fixedNow, source.calls[0].until)

	got := results["https://github.com/acme/tool"]
	assert.Equal(t, 7, got.CommitCount)
	assert.Equal(t, 0.6, got.Score)
	assert.Empty(t, got.Error)
	assert.Len(t, got.Commits, 7)
}

func TestVerifyFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	source := &fakeSource{
		counts: map[string]int{"acme/ok": 2},
		errs:   map[string]error{"acme/down": errors.New("connection refused")},
	}
	doc := &resume.Document{
		Roles:          []resume.Role{{Title: "Engineer", Start: dates.On(2020, 1, 1)}},
		RepositoryURLs: []string{"https://github.com/acme/down", "https://github.com/acme/ok", "https://github.com/"},
	}

	results := newVerifier(source, 4, zap.New(core)).Verify(context.Background(), doc)
	require.Len(t, results, 3)

	down := results["https://github.com/acme/down"]
	assert.Equal(t, Result{Commits: []github.Commit{}, Error: FetchFailed}, down)

	assert.Equal(t, 2, results["https://github.com/acme/ok"].CommitCount)
	assert.NotEmpty(t, results["https://github.com/"].Error)
	assert.Equal(t, 2, TotalCommits(results))

	assert.Equal(t, 1, logs.FilterMessage("failed to fetch commits").Len())
}

func TestVerifyLaterRoleWins(t *testing.T) {
	source := &fakeSource{counts: map[string]int{"acme/tool": 3}}
	doc := &resume.Document{
		Roles: []resume.Role{
			{Title: "Engineer", Start: dates.On(2018, 1, 1)},
			{Title: "Manager", Start: dates.On(2022, 1, 1)},
		},
		RepositoryURLs: []string{"https://github.com/acme/tool"},
	}

	results := newVerifier(source, 2, nil).Verify(context.Background(), doc)

	assert.Len(t, source.calls, 2)
	assert.Len(t, results, 1)
	assert.Equal(t, 3, results["https://github.com/acme/tool"].CommitCount)
}

func TestVerifyWithoutSource(t *testing.T) {
	doc := &resume.Document{
		Roles:          []resume.Role{{Title: "Engineer", Start: dates.On(2020, 1, 1)}},
		RepositoryURLs: []string{"https://github.com/acme/tool"},
	}

	results := newVerifier(nil, 1, nil).Verify(context.Background(), doc)
	assert.Equal(t, 0, results["https://github.com/acme/tool"].CommitCount)
	assert.NotEmpty(t, results["https://github.com/acme/tool"].Error)
}

func TestVerifyEmptyDocument(t *testing.T) {
	v := newVerifier(&fakeSource{}, 1, nil)
	assert.Empty(t, v.Verify(context.Background(), nil))
	assert.Empty(t, v.Verify(context.Background(), resume.Empty()))
	assert.Equal(t, 0, TotalCommits(nil))
}
