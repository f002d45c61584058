// Package store persists candidate submissions and their analysis results.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/spigell/cv-verifier/internal/pipeline"
)

// ErrNotFound is returned when a submission does not exist.
var ErrNotFound = eris.New("submission not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", eris.Errorf("unknown status %q", s)
	}
}

// Candidate holds the personal details entered with a submission.
type Candidate struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	NationalID string `json:"national_id,omitempty"`
}

// FullName joins the non-empty name parts.
func (c Candidate) FullName() string {
	return strings.Join(strings.Fields(c.FirstName+" "+c.MiddleName+" "+c.LastName), " ")
}

// Submission is a stored candidate document and its analysis.
type Submission struct {
	ID           string     `json:"id"`
	Candidate    Candidate  `json:"candidate"`
	DocumentPath string     `json:"document_path"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`

	// Set once the analysis has been delivered.
	Score    *float64        `json:"score,omitempty"`
	Decision string          `json:"decision,omitempty"`
	Error    string          `json:"error,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// Analysed reports whether a result has been stored.
func (s *Submission) Analysed() bool { return len(s.Result) > 0 }

// Stats are the submission counts per status.
type Stats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// Store is the persistence collaborator of the analysis pipeline.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateSubmission(ctx context.Context, candidate Candidate, documentPath string) (*Submission, error)
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	SaveResult(ctx context.Context, id string, state *pipeline.State) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	Stats(ctx context.Context) (*Stats, error)
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(dsn)
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("unsupported store driver %q", driver)
	}
}

// row is the column form of an analysis result.
type row struct {
	payload  string
	score    *float64
	decision *string
	errText  *string
}

func resultRow(state *pipeline.State) (row, error) {
	if state == nil {
		return row{}, eris.New("analysis state is required")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return row{}, eris.Wrap(err, "marshal analysis state")
	}

	r := row{payload: string(payload)}
	if state.Risk != nil {
		score := state.Risk.Score
		decision := state.Risk.Decision.String()
		r.score = &score
		r.decision = &decision
	}
	if state.Error != "" {
		errText := state.Error
		r.errText = &errText
	}
	return r, nil
}

// statusTimes returns the approved_at and rejected_at values for a status.
func statusTimes(status Status, now time.Time) (approvedAt, rejectedAt *time.Time) {
	switch status {
	case StatusApproved:
		return &now, nil
	case StatusRejected:
		return nil, &now
	default:
		return nil, nil
	}
}

func newSubmission(id string, candidate Candidate, documentPath string, now time.Time) *Submission {
	return &Submission{
		ID:           id,
		Candidate:    candidate,
		DocumentPath: documentPath,
		Status:       StatusPending,
		CreatedAt:    now,
	}
}
