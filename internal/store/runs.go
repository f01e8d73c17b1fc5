package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// ErrRunNotFound is returned by Finish for an unknown run ID
var ErrRunNotFound = errors.New("run not found")

// binderSeparator joins binder names in the binders column
const binderSeparator = ","

// Run is one recorded generation run
type Run struct {
	ID         string     `json:"id"`
	App        string     `json:"app"`
	Version    string     `json:"version"`
	Binders    []string   `json:"binders"`
	OutputDir  string     `json:"output_dir"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunStore records generation runs in the database
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new run store
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Start records a run in the running state and returns its ID.
// Binder names must not contain the column separator.
func (s *RunStore) Start(app, version, outputDir string, binders []string) (string, error) {
	for _, b := range binders {
		if strings.Contains(b, binderSeparator) {
			return "", fmt.Errorf("failed to record run: binder %q contains %q", b, binderSeparator)
		}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO generation_runs (id, app_name, app_version, binders, output_dir, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, app, version, strings.Join(binders, binderSeparator), outputDir, RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// Finish sets the final status of a run. errMsg is stored only when non-empty.
func (s *RunStore) Finish(id, status, errMsg string) error {
	result, err := s.db.Exec(`
		UPDATE generation_runs SET status = $1, error = $2, finished_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, status, sql.NullString{String: errMsg, Valid: errMsg != ""}, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Get returns a run by ID, or nil if it does not exist
func (s *RunStore) Get(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, app_name, app_version, binders, output_dir, status, error, started_at, finished_at
		FROM generation_runs
		WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first
func (s *RunStore) Recent(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, app_name, app_version, binders, output_dir, status, error, started_at, finished_at
		FROM generation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var binders string
	var errMsg sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.App,
		&run.Version,
		&binders,
		&run.OutputDir,
		&run.Status,
		&errMsg,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if binders != "" {
		run.Binders = strings.Split(binders, binderSeparator)
	}
	run.Error = errMsg.String
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
