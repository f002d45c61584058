package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/spigell/cv-verifier/internal/pipeline"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id            TEXT PRIMARY KEY,
	candidate     TEXT NOT NULL,
	document_path TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	created_at    DATETIME NOT NULL,
	approved_at   DATETIME,
	rejected_at   DATETIME,
	score         REAL,
	decision      TEXT,
	error         TEXT,
	result        TEXT
);

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSubmission(ctx context.Context, candidate Candidate, documentPath string) (*Submission, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	candidateJSON, err := json.Marshal(candidate)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal candidate")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, candidate, document_path, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(candidateJSON), documentPath, string(StatusPending), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert submission")
	}

	return newSubmission(id, candidate, documentPath, now), nil
}

func (s *SQLiteStore) SaveResult(ctx context.Context, id string, state *pipeline.State) error {
	r, err := resultRow(state)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET result = ?, score = ?, decision = ?, error = ? WHERE id = ?`,
		r.payload, r.score, r.decision, r.errText, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save result %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	approvedAt, rejectedAt := statusTimes(status, time.Now().UTC())

	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, approved_at = ?, rejected_at = ? WHERE id = ?`,
		string(status), approvedAt, rejectedAt, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update status %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, candidate, document_path, status, created_at, approved_at, rejected_at, score, decision, error, result
		 FROM submissions WHERE id = ?`,
		id,
	)

	var (
		sub           Submission
		candidateJSON string
		approvedAt    sql.NullTime
		rejectedAt    sql.NullTime
		score         sql.NullFloat64
		decision      sql.NullString
		errText       sql.NullString
		result        sql.NullString
	)

	err := row.Scan(&sub.ID, &candidateJSON, &sub.DocumentPath, &sub.Status, &sub.CreatedAt,
		&approvedAt, &rejectedAt, &score, &decision, &errText, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan submission")
	}

	if err := json.Unmarshal([]byte(candidateJSON), &sub.Candidate); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
	}
	if approvedAt.Valid {
		sub.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		sub.RejectedAt = &rejectedAt.Time
	}
	if score.Valid {
		sub.Score = &score.Float64
	}
	sub.Decision = decision.String
	sub.Error = errText.String
	if result.Valid {
		sub.Result = json.RawMessage(result.String)
	}

	return &sub, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, statsQuery).Scan(&st.Total, &st.Approved, &st.Rejected, &st.Pending)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

const statsQuery = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)
FROM submissions`

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrap(ErrNotFound, id)
	}
	return nil
}
