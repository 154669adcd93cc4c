package domain

import "context"

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, jobID string) (*GenerationJob, error)
	// UpdateStatusForward applies the patch only when it moves the stored
	// status rank strictly forward. It reports whether the write was applied;
	// a rejected write is not an error. This is the only status write path, so
	// a stale or racing writer can never regress a terminal state.
	UpdateStatusForward(ctx context.Context, jobID string, patch JobPatch) (bool, error)
	// UpdateProgress raises progress while the job is processing. Writes that
	// would lower progress or touch a non-processing job are silently dropped.
	UpdateProgress(ctx context.Context, jobID string, progress int) error
	// SetProviderJobID records the provider-assigned identifier once dispatch
	// succeeds, when it differs from the pre-generated correlation id.
	SetProviderJobID(ctx context.Context, jobID, providerJobID string) error
	Delete(ctx context.Context, jobID string) error
}

// AssetRepository handles persistence for output asset records.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, assetID string) (*Asset, error)
	// UpdateStatus mirrors the owning job's status onto the asset. The write
	// is forward-only and idempotent; an empty fileURL leaves the stored URL
	// untouched.
	UpdateStatus(ctx context.Context, assetID string, status JobStatus, fileURL string) error
	Delete(ctx context.Context, assetID string) error
}
