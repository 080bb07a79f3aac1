package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tomeforge/internal/jobs"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// Store wraps access to the jobs table. Records are created by the
// submission gateway and mutated only by the worker; the status
// endpoint reads them as-is.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// Ping verifies database connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// CreateJob inserts a new job row in the queued state. The source
// document must already be durably stored and referenceable by
// SourceKey before this is called, so a worker that dequeues the id
// can always resolve both the record and the document.
func (s *Store) CreateJob(ctx context.Context, job jobs.Job) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO jobs (id, status, source_key, source_name, target_language, complexity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		job.ID, string(jobs.StatusQueued), job.SourceKey, job.SourceName,
		job.TargetLanguage, string(job.Complexity))
	return err
}

// GetJob fetches a single job by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (jobs.Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, status, source_key, source_name, target_language, complexity,
		       result_key, result_preview, result_size, result_generator,
		       error_kind, error_message, created_at, updated_at
		FROM jobs WHERE id = $1`, id)

	var (
		job        jobs.Job
		status     string
		complexity string
		resKey     sql.NullString
		resPreview sql.NullString
		resSize    sql.NullInt64
		resGen     sql.NullString
		errKind    sql.NullString
		errMsg     sql.NullString
	)
	err := row.Scan(&job.ID, &status, &job.SourceKey, &job.SourceName,
		&job.TargetLanguage, &complexity,
		&resKey, &resPreview, &resSize, &resGen,
		&errKind, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return jobs.Job{}, ErrNotFound
	}
	if err != nil {
		return jobs.Job{}, err
	}

	job.Status = jobs.Status(status)
	job.Complexity = jobs.Complexity(complexity)
	if resKey.Valid {
		job.Result = &jobs.Result{
			ArtifactKey: resKey.String,
			Preview:     resPreview.String,
			SizeBytes:   resSize.Int64,
			Generator:   resGen.String,
		}
	}
	if errKind.Valid {
		job.Failure = &jobs.Failure{
			Kind:    jobs.ErrorKind(errKind.String),
			Message: errMsg.String,
		}
	}
	return job, nil
}

// MarkProcessing transitions a queued job to processing. The update is
// guarded on the current status so a redelivered message can never pull
// a terminal job back into flight; callers check the record first, this
// guard is the backstop for the race between two workers.
func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE jobs SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, string(jobs.StatusProcessing), string(jobs.StatusQueued))
	return err
}

// MarkCompleted writes the terminal completed state together with the
// artifact result in a single statement.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, res jobs.Result) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE jobs SET status = $2, result_key = $3, result_preview = $4,
		       result_size = $5, result_generator = $6, updated_at = now()
		WHERE id = $1`,
		id, string(jobs.StatusCompleted),
		res.ArtifactKey, res.Preview, res.SizeBytes, res.Generator)
	return err
}

// MarkFailed writes the terminal failed state with a coarse error kind
// and a human-readable message.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, kind jobs.ErrorKind, msg string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE jobs SET status = $2, error_kind = $3, error_message = $4, updated_at = now()
		WHERE id = $1`,
		id, string(jobs.StatusFailed), string(kind), msg)
	return err
}

// DeleteTerminalJobsBefore removes completed/failed jobs older than the
// cutoff. Used by optional retention cleanup.
func (s *Store) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE created_at < $1 AND status IN ($2, $3)`,
		cutoff, string(jobs.StatusCompleted), string(jobs.StatusFailed))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
