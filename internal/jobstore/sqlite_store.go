package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/petrijr/copilot/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// Per-id atomicity comes from single-statement updates: the version bump,
// the terminal-state guard and the field replacement happen in one UPDATE,
// so concurrent writers cannot interleave a lost update.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			message TEXT NOT NULL,
			last_stage TEXT NOT NULL,
			version INTEGER NOT NULL,
			process BLOB,
			data BLOB,
			form BLOB
		);`,
	)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context) (*api.Job, error) {
	job := newJob(uuid.NewString())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, state, message, last_stage, version)
		VALUES (?, ?, ?, ?, ?)`,
		job.ID,
		string(job.State),
		job.Message,
		string(job.LastUpdatedStage),
		job.Version,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) Get(ctx context.Context, jobID string) (*api.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, state, message, last_stage, version, process, data, form
		FROM jobs
		WHERE id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) TransitionState(ctx context.Context, jobID string, state api.JobState, message string) (*api.Job, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = ?, message = ?, version = version + 1
		WHERE id = ? AND state NOT IN (?, ?)`,
		string(state),
		message,
		jobID,
		string(api.StateCompleted),
		string(api.StateFailed),
	)
	if err != nil {
		return nil, err
	}
	if err := s.checkMutated(ctx, res, jobID); err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID)
}

func (s *SQLiteStore) CommitArtifact(ctx context.Context, jobID string, stage api.StageTag, artifact any) (*api.Job, error) {
	var column string
	switch stage {
	case api.StageProcess:
		if _, ok := artifact.(*api.ProcessGraph); !ok {
			return nil, artifactTypeError(stage, artifact)
		}
		column = "process"
	case api.StageData:
		if _, ok := artifact.(*api.DataModel); !ok {
			return nil, artifactTypeError(stage, artifact)
		}
		column = "data"
	case api.StageForm:
		if _, ok := artifact.(*api.FormModel); !ok {
			return nil, artifactTypeError(stage, artifact)
		}
		column = "form"
	default:
		return nil, artifactTypeError(stage, artifact)
	}

	blob, err := encodeArtifact(artifact)
	if err != nil {
		return nil, err
	}

	// column is one of three hardcoded names, never user input.
	query := fmt.Sprintf(`
		UPDATE jobs
		SET %s = ?, state = ?, last_stage = ?, version = version + 1
		WHERE id = ? AND state NOT IN (?, ?)`, column)

	res, err := s.db.ExecContext(ctx, query,
		blob,
		string(api.StateProcessing),
		string(stage),
		jobID,
		string(api.StateCompleted),
		string(api.StateFailed),
	)
	if err != nil {
		return nil, err
	}
	if err := s.checkMutated(ctx, res, jobID); err != nil {
		return nil, err
	}
	return s.Get(ctx, jobID)
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*api.Job, error) {
	query := `
		SELECT id, state, message, last_stage, version, process, data, form
		FROM jobs`
	var args []any
	var clauses []string

	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, string(filter.State))
	}
	if filter.Stage != "" {
		clauses = append(clauses, "last_stage = ?")
		args = append(args, string(filter.Stage))
	}

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*api.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// checkMutated distinguishes "no such job" from "job already terminal" when
// a guarded UPDATE touched no rows.
func (s *SQLiteStore) checkMutated(ctx context.Context, res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var state string
	err = s.db.QueryRowContext(ctx, `SELECT state FROM jobs WHERE id = ?`, jobID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return api.ErrJobNotFound
	}
	if err != nil {
		return err
	}
	return api.ErrJobTerminal
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*api.Job, error) {
	var job api.Job
	var state, stage string
	var process, data, form []byte

	err := row.Scan(&job.ID, &state, &job.Message, &stage, &job.Version, &process, &data, &form)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	job.State = api.JobState(state)
	job.LastUpdatedStage = api.StageTag(stage)

	if job.Process, err = decodeArtifact[api.ProcessGraph](process); err != nil {
		return nil, err
	}
	if job.Data, err = decodeArtifact[api.DataModel](data); err != nil {
		return nil, err
	}
	if job.Form, err = decodeArtifact[api.FormModel](form); err != nil {
		return nil, err
	}

	return &job, nil
}
