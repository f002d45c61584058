package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/spigell/cv-verifier/internal/pipeline"
)

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT PRIMARY KEY,
	candidate     JSONB NOT NULL,
	document_path TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	approved_at   TIMESTAMPTZ,
	rejected_at   TIMESTAMPTZ,
	score         DOUBLE PRECISION,
	decision      TEXT,
	error         TEXT,
	result        JSONB
);

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, candidate Candidate, documentPath string) (*Submission, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	candidateJSON, err := json.Marshal(candidate)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal candidate")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO submissions (id, candidate, document_path, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, candidateJSON, documentPath, string(StatusPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert submission")
	}

	return newSubmission(id, candidate, documentPath, now), nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, id string, state *pipeline.State) error {
	r, err := resultRow(state)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions SET result = $1, score = $2, decision = $3, error = $4 WHERE id = $5`,
		r.payload, r.score, r.decision, r.errText, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save result %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	approvedAt, rejectedAt := statusTimes(status, time.Now().UTC())

	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions SET status = $1, approved_at = $2, rejected_at = $3 WHERE id = $4`,
		string(status), approvedAt, rejectedAt, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrap(ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	var (
		sub           Submission
		status        string
		candidateJSON []byte
		decision      *string
		errText       *string
		result        []byte
	)

	err := s.pool.QueryRow(ctx,
		`SELECT id, candidate, document_path, status, created_at, approved_at, rejected_at, score, decision, error, result
		 FROM submissions WHERE id = $1`,
		id,
	).Scan(&sub.ID, &candidateJSON, &sub.DocumentPath, &status, &sub.CreatedAt,
		&sub.ApprovedAt, &sub.RejectedAt, &sub.Score, &decision, &errText, &result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get submission")
	}

	if err := json.Unmarshal(candidateJSON, &sub.Candidate); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal candidate")
	}
	sub.Status = Status(status)
	if decision != nil {
		sub.Decision = *decision
	}
	if errText != nil {
		sub.Error = *errText
	}
	if len(result) > 0 {
		sub.Result = json.RawMessage(result)
	}

	return &sub, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, statsQuery).Scan(&st.Total, &st.Approved, &st.Rejected, &st.Pending)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}
