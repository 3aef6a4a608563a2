package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrArchiveNotConfigured is returned when no database is wired in.
	ErrArchiveNotConfigured = errors.New("job archive repository not configured")
	// ErrJobIDRequired is returned when a job id is missing.
	ErrJobIDRequired = errors.New("job id is required")
)

// JobArchiveRepo persists terminal jobs to Postgres for audit and retention.
// The live lifecycle state stays in memory; the archive only ever sees
// completed or failed jobs.
type JobArchiveRepo struct {
	DB *sql.DB
}

// NewJobArchiveRepo constructs a JobArchiveRepo.
func NewJobArchiveRepo(db *sql.DB) *JobArchiveRepo {
	return &JobArchiveRepo{DB: db}
}

// ArchiveJob stores or updates the terminal record of a job.
func (r *JobArchiveRepo) ArchiveJob(ctx context.Context, job *model.Job) error {
	if r == nil || r.DB == nil {
		return ErrArchiveNotConfigured
	}
	if job == nil || job.ID == "" {
		return ErrJobIDRequired
	}

	meta, err := marshalNullable(job.ExecutionMeta)
	if err != nil {
		return fmt.Errorf("encode execution meta: %w", err)
	}
	result, err := marshalNullable(job.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	jobErr, err := marshalNullable(job.Error)
	if err != nil {
		return fmt.Errorf("encode error: %w", err)
	}

	var paymentID any
	if job.PaymentRequest != nil {
		paymentID = job.PaymentRequest.PaymentID
	}

	const query = `
		INSERT INTO job_archive (
			id, state, payment_id, payment_status, execution_backend,
			execution_meta, result, error, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			state = EXCLUDED.state,
			payment_status = EXCLUDED.payment_status,
			execution_backend = EXCLUDED.execution_backend,
			execution_meta = EXCLUDED.execution_meta,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at;`

	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		string(job.State),
		paymentID,
		job.PaymentStatus,
		string(job.Backend),
		meta,
		result,
		jobErr,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive job %s: %w", job.ID, apperrors.MapDBError(err))
	}
	return nil
}

// GetArchivedJob retrieves an archived terminal job by id.
func (r *JobArchiveRepo) GetArchivedJob(ctx context.Context, id string) (*model.Job, error) {
	if r == nil || r.DB == nil {
		return nil, ErrArchiveNotConfigured
	}
	if id == "" {
		return nil, ErrJobIDRequired
	}

	const query = `
		SELECT id, state, payment_id, payment_status, execution_backend,
			execution_meta, result, error, created_at, updated_at
		FROM job_archive
		WHERE id = $1`

	var (
		job       model.Job
		state     string
		backend   string
		paymentID sql.NullString
		meta      []byte
		result    []byte
		jobErr    []byte
	)
	row := r.DB.QueryRowContext(ctx, query, id)
	err := row.Scan(
		&job.ID, &state, &paymentID, &job.PaymentStatus, &backend,
		&meta, &result, &jobErr, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("archived job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get archived job %s: %w", id, apperrors.MapDBError(err))
	}

	job.State = model.JobState(state)
	job.Backend = model.ExecutionBackend(backend)
	if paymentID.Valid {
		job.PaymentRequest = &model.PaymentRequest{PaymentID: paymentID.String}
	}
	if err := unmarshalNullable(meta, &job.ExecutionMeta); err != nil {
		return nil, fmt.Errorf("decode execution meta: %w", err)
	}
	if err := unmarshalNullable(result, &job.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if err := unmarshalNullable(jobErr, &job.Error); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	return &job, nil
}

func marshalNullable(v any) ([]byte, error) {
	if isNilPointer(v) {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

func isNilPointer(v any) bool {
	switch t := v.(type) {
	case *model.ExecutionMeta:
		return t == nil
	case *model.ReviewReport:
		return t == nil
	case *model.JobError:
		return t == nil
	default:
		return v == nil
	}
}
