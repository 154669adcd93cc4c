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

// AssetRepositoryPG implements domain.AssetRepository using PostgreSQL.
type AssetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs a new asset repository instance.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepositoryPG {
	return &AssetRepositoryPG{pool: pool}
}

// Create inserts a new asset record, assigning the id when absent.
func (r *AssetRepositoryPG) Create(ctx context.Context, asset *domain.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now
	query := `
INSERT INTO assets (id, owner_id, group_id, prompt, status, file_url, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		asset.ID,
		asset.OwnerID,
		asset.GroupID,
		asset.Prompt,
		asset.Status,
		asset.FileURL,
		nullableBytes(asset.Metadata),
		asset.CreatedAt,
		asset.UpdatedAt,
	)
	return err
}

// GetByID fetches an asset by its identifier.
func (r *AssetRepositoryPG) GetByID(ctx context.Context, assetID string) (*domain.Asset, error) {
	query := `
SELECT id, owner_id, COALESCE(group_id, ''), prompt, status, COALESCE(file_url, ''), metadata, created_at, updated_at
FROM assets
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, assetID)
	var asset domain.Asset
	if err := row.Scan(
		&asset.ID,
		&asset.OwnerID,
		&asset.GroupID,
		&asset.Prompt,
		&asset.Status,
		&asset.FileURL,
		&asset.Metadata,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// UpdateStatus mirrors the owning job's status onto the asset. The same rank
// guard as the job table makes the mirror write idempotent and forward-only.
func (r *AssetRepositoryPG) UpdateStatus(ctx context.Context, assetID string, status domain.JobStatus, fileURL string) error {
	query := `
UPDATE assets
SET status = $2,
    file_url = CASE WHEN $3 = '' THEN file_url ELSE $3 END,
    updated_at = NOW()
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
	_, err := r.pool.Exec(ctx, query, assetID, status, fileURL)
	return err
}

// Delete removes the asset record. Used to avoid orphans when job creation
// fails after the asset row was written.
func (r *AssetRepositoryPG) Delete(ctx context.Context, assetID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1;`, assetID)
	return err
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
