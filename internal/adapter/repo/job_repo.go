package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. The
// mutation queries are all guarded by status = 'processing' so a terminal
// job can never be written again; zero matched rows surfaces as
// domain.ErrNotFound.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, owner_id, kind, title, prompt, lyrics, visibility, locale, status,
	external_task_id, progress, status_message, result_audio_url,
	error_code, error_detail, source_reference, created_at, updated_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO generation_jobs (id, owner_id, kind, title, prompt, lyrics, visibility, locale, status, progress, status_message, source_reference)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.OwnerID,
		job.Kind,
		job.Title,
		job.Prompt,
		job.Lyrics,
		job.Visibility,
		job.Locale,
		job.Status,
		job.Progress,
		job.StatusMessage,
		job.SourceReference,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1;`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByOwner returns the owner's jobs, newest first.
func (r *JobRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListProcessing returns every job still in processing, for the startup
// recovery scan.
func (r *JobRepositoryPG) ListProcessing(ctx context.Context) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+`
FROM generation_jobs
WHERE status = $1
ORDER BY created_at;
`, domain.JobStatusProcessing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// SetExternalTask records the upstream task id on a still-processing job.
func (r *JobRepositoryPG) SetExternalTask(ctx context.Context, jobID, taskID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET external_task_id = $2, updated_at = now()
WHERE id = $1 AND status = $3;
`, jobID, taskID, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProgress persists a poll tick. GREATEST keeps progress monotonic
// even if a slow write lands after a later tick.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, progress int, message string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET progress = GREATEST(progress, $2), status_message = $3, updated_at = now()
WHERE id = $1 AND status = $4;
`, jobID, progress, message, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSucceeded transitions the job into its terminal success state.
func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, jobID, audioURL string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET status = $2, progress = 100, status_message = 'done', result_audio_url = $3, updated_at = now()
WHERE id = $1 AND status = $4;
`, jobID, domain.JobStatusSucceeded, audioURL, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed transitions the job into its terminal failed state.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, errorCode, reason string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET status = $2, progress = 100, status_message = $4, error_code = $3, error_detail = $4, updated_at = now()
WHERE id = $1 AND status = $5;
`, jobID, domain.JobStatusFailed, errorCode, reason, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Kind,
		&job.Title,
		&job.Prompt,
		&job.Lyrics,
		&job.Visibility,
		&job.Locale,
		&job.Status,
		&job.ExternalTaskID,
		&job.Progress,
		&job.StatusMessage,
		&job.ResultAudioURL,
		&job.ErrorCode,
		&job.ErrorDetail,
		&job.SourceReference,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
