// Package memory provides in-memory repository implementations. They back the
// orchestrator tests and let the service run without a database in
// development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/domain"
)

// JobRepository is a map-backed domain.JobRepository with the same
// forward-only update semantics as the PostgreSQL implementation.
type JobRepository struct {
	mu   sync.Mutex
	jobs map[string]*domain.GenerationJob
}

func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]*domain.GenerationJob)}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.GenerationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

func (r *JobRepository) UpdateStatusForward(ctx context.Context, jobID string, patch domain.JobPatch) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !job.Status.CanTransitionTo(patch.Status) {
		return false, nil
	}
	job.Status = patch.Status
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.ErrorMessage != "" {
		job.ErrorMessage = patch.ErrorMessage
	}
	if job.StartedAt == nil && patch.StartedAt != nil {
		t := *patch.StartedAt
		job.StartedAt = &t
	}
	if job.CompletedAt == nil && patch.CompletedAt != nil {
		t := *patch.CompletedAt
		job.CompletedAt = &t
	}
	return true, nil
}

func (r *JobRepository) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status == domain.JobStatusProcessing && progress > job.Progress {
		job.Progress = progress
	}
	return nil
}

func (r *JobRepository) SetProviderJobID(ctx context.Context, jobID, providerJobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.ProviderJobID = providerJobID
	return nil
}

func (r *JobRepository) Delete(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
	return nil
}

// Len reports the number of stored jobs. Test helper.
func (r *JobRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// AssetRepository is a map-backed domain.AssetRepository.
type AssetRepository struct {
	mu     sync.Mutex
	assets map[string]*domain.Asset
}

func NewAssetRepository() *AssetRepository {
	return &AssetRepository{assets: make(map[string]*domain.Asset)}
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *asset
	r.assets[asset.ID] = &stored
	return nil
}

func (r *AssetRepository) GetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[assetID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snapshot := *asset
	return &snapshot, nil
}

func (r *AssetRepository) UpdateStatus(ctx context.Context, assetID string, status domain.JobStatus, fileURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[assetID]
	if !ok {
		return domain.ErrNotFound
	}
	if !asset.Status.CanTransitionTo(status) {
		return nil
	}
	asset.Status = status
	if fileURL != "" {
		asset.FileURL = fileURL
	}
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AssetRepository) Delete(ctx context.Context, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assets, assetID)
	return nil
}

// Len reports the number of stored assets. Test helper.
func (r *AssetRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assets)
}

var (
	_ domain.JobRepository   = (*JobRepository)(nil)
	_ domain.AssetRepository = (*AssetRepository)(nil)
)
