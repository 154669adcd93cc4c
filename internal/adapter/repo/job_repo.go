package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipforge/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. Status
// updates carry a rank guard in SQL mirroring domain.JobStatus.Rank, so a
// stale writer matches zero rows instead of regressing the lifecycle.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record, assigning the durable id when absent.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	query := `
INSERT INTO generation_jobs (id, provider_job_id, asset_id, status, progress, error_message, seed, request_payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ProviderJobID,
		job.AssetID,
		job.Status,
		job.Progress,
		job.ErrorMessage,
		job.Seed,
		nullableBytes(job.RequestPayload),
		job.CreatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	query := `
SELECT id, provider_job_id, asset_id, status, progress, COALESCE(error_message, ''), seed, request_payload, created_at, started_at, completed_at
FROM generation_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.GenerationJob
	if err := row.Scan(
		&job.ID,
		&job.ProviderJobID,
		&job.AssetID,
		&job.Status,
		&job.Progress,
		&job.ErrorMessage,
		&job.Seed,
		&job.RequestPayload,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// UpdateStatusForward applies the patch only when the target status outranks
// the stored one. Timestamps are written once; later writers cannot reset them.
func (r *JobRepositoryPG) UpdateStatusForward(ctx context.Context, jobID string, patch domain.JobPatch) (bool, error) {
	query := `
UPDATE generation_jobs
SET status = $2,
    progress = COALESCE($3, progress),
    error_message = CASE WHEN $4 = '' THEN error_message ELSE $4 END,
    started_at = COALESCE(started_at, $5),
    completed_at = COALESCE(completed_at, $6)
WHERE id = $1
  AND (CASE status
	WHEN 'pending' THEN 0
	WHEN 'processing' THEN 1
	WHEN 'completed' THEN 2
	WHEN 'failed' THEN 2
	ELSE -1
      END) < (CASE $2::text
	WHEN 'pending' THEN 0
	WHEN 'processing' THEN 1
	WHEN 'completed' THEN 2
	WHEN 'failed' THEN 2
	ELSE -1
      END);
`
	tag, err := r.pool.Exec(ctx, query,
		jobID,
		patch.Status,
		patch.Progress,
		patch.ErrorMessage,
		patch.StartedAt,
		patch.CompletedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateProgress raises progress while the job is still processing. Stale or
// backward writes match zero rows and are dropped.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	query := `
UPDATE generation_jobs
SET progress = $2
WHERE id = $1 AND status = 'processing' AND progress < $2;
`
	_, err := r.pool.Exec(ctx, query, jobID, progress)
	return err
}

// SetProviderJobID stores the provider-assigned operation identifier.
func (r *JobRepositoryPG) SetProviderJobID(ctx context.Context, jobID, providerJobID string) error {
	query := `
UPDATE generation_jobs
SET provider_job_id = $2
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, providerJobID)
	return err
}

// Delete removes the job record. Used only to clean up after a failed create.
func (r *JobRepositoryPG) Delete(ctx context.Context, jobID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM generation_jobs WHERE id = $1;`, jobID)
	return err
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
