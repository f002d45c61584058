// Package activity checks declared roles against public commit history.
package activity

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-verifier/internal/github"
	"github.com/spigell/cv-verifier/internal/logger"
	"github.com/spigell/cv-verifier/internal/resume"
)

// FetchFailed annotates results whose commit history could not be fetched.
const FetchFailed = "Failed to fetch commits"

// CommitSource lists commits of a repository within a time window.
type CommitSource interface {
	ListCommits(ctx context.Context, repo string, since, until time.Time) ([]github.Commit, error)
}

// Result is the activity found in one repository.
type Result struct {
	Commits     []github.Commit `json:"commits"`
	CommitCount int             `json:"commit_count"`
	Score       float64         `json:"score"`
	Error       string          `json:"error,omitempty"`
}

// Score maps a commit count onto the activity step function.
func Score(commits int) float64 {
	switch {
	case commits <= 0:
		return 0.0
	case commits <= 5:
		return 0.3
	case commits <= 20:
		return 0.6
	default:
		return 1.0
	}
}

// TotalCommits sums commit counts over all checked repositories.
func TotalCommits(results map[string]Result) int {
	total := 0
	for _, r := range results {
		total += r.CommitCount
	}
	return total
}

type Verifier struct {
	source      CommitSource
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// NewVerifier returns a Verifier. A concurrency below 2 keeps queries
// sequential.
func NewVerifier(source CommitSource, concurrency int, log *zap.Logger) *Verifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Verifier{
		source:      source,
		concurrency: concurrency,
		now:         time.Now,
		logger:      logger.WithFields(log, zap.String(logger.FieldStage, "activity")),
	}
}

type query struct {
	order int
	url   string
	role  resume.Role
}

// Verify queries every repository for every role with a known start. The
// window runs from the role start to now. Results are keyed by repository
// URL; when several roles query the same repository the latest role in
// document order wins. Failures never leave Verify; they turn into empty
// results annotated with a reason.
func (v *Verifier) Verify(ctx context.Context, doc *resume.Document) map[string]Result {
	results := make(map[string]Result)
	if doc == nil {
		return results
	}

	var queries []query
	for _, role := range doc.Roles {
		if !role.Start.IsKnown() {
			continue
		}
		for _, url := range doc.RepositoryURLs {
			queries = append(queries, query{order: len(queries), url: url, role: role})
		}
	}
	if len(queries) == 0 {
		return results
	}

	until := v.now()
	collected := make([]Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, q := range queries {
		g.Go(func() error {
			collected[q.order] = v.check(gctx, q, until)
			return nil
		})
	}
	_ = g.Wait()

	for _, q := range queries {
		results[q.url] = collected[q.order]
	}

	return results
}

func (v *Verifier) check(ctx context.Context, q query, until time.Time) Result {
	log := v.logger.With(zap.String("repository", q.url), zap.String("role", q.role.Label()))

	if v.source == nil {
		log.Warn("commit source is not configured")
		return failed("Commit source not configured")
	}

	repo, ok := resume.RepositoryID(q.url)
	if !ok {
		log.Warn("repository url is not recognised")
		return failed("Unrecognised repository URL")
	}

	commits, err := v.source.ListCommits(ctx, repo, q.role.Start.Time, until)
	if err != nil {
		log.Warn("failed to fetch commits", zap.Error(err))
		return failed(FetchFailed)
	}
	if commits == nil {
		commits = []github.Commit{}
	}

	log.Debug("commits fetched", zap.Int("count", len(commits)))

	return Result{
		Commits:     commits,
		CommitCount: len(commits),
		Score:       Score(len(commits)),
	}
}

func failed(reason string) Result {
	return Result{Commits: []github.Commit{}, Error: reason}
}
