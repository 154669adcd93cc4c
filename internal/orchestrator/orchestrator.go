// Package orchestrator owns the generation job lifecycle: it validates and
// persists new jobs, drives provider dispatch and polling from a detached
// background task, and reconciles provider state into the record store.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/ident"
	"clipforge/internal/provider"
)

const (
	initialProgress = 5
	// syntheticStep advances progress when the provider gives no hint. Capped
	// below 100 so pollers never see completion before a terminal signal.
	syntheticStep = 7
	progressCap   = 95
)

// Archiver mirrors a finished clip into durable storage and returns the URL
// it should be served from. Optional; when nil the provider URL is stored
// as-is.
type Archiver interface {
	Archive(ctx context.Context, jobID, srcURL string) (string, error)
}

// Options tunes the background polling loop. Tests shrink both values.
type Options struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
	// RefreshTimeout bounds the opportunistic provider poll performed on the
	// status read path.
	RefreshTimeout time.Duration
	Archiver       Archiver
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 5 * time.Minute
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 10 * time.Second
	}
	return o
}

// Orchestrator is stateless between invocations; every observation and write
// goes through the repositories, so any instance can serve any job.
type Orchestrator struct {
	jobs    domain.JobRepository
	assets  domain.AssetRepository
	adapter provider.Adapter
	logger  zerolog.Logger
	opts    Options
	wg      sync.WaitGroup
}

func New(jobs domain.JobRepository, assets domain.AssetRepository, adapter provider.Adapter, logger zerolog.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		jobs:    jobs,
		assets:  assets,
		adapter: adapter,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

// CreateInput carries a validated caller request into the orchestrator.
type CreateInput struct {
	OwnerID     string
	Prompt      string
	Duration    string
	AspectRatio string
	GroupID     string
}

// CreateResult echoes the identifiers the caller needs to poll.
type CreateResult struct {
	JobID         string
	ProviderJobID string
	AssetID       string
	Status        domain.JobStatus
	Seed          int32
}

// JobView is the lifecycle snapshot returned by Status.
type JobView struct {
	ID           string
	Status       domain.JobStatus
	Progress     int
	ErrorMessage string
	VideoURL     string
	Prompt       string
}

// requestSnapshot is the immutable audit copy of what is sent to the
// provider, captured at creation time.
type requestSnapshot struct {
	Prompt        string `json:"prompt"`
	Duration      string `json:"duration,omitempty"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	Seed          int32  `json:"seed"`
	ProviderJobID string `json:"provider_job_id"`
}

// Create validates the prompt, persists the pending job with its parent
// asset, and hands the job to a detached background task. It returns as soon
// as the records exist; it never waits on the provider.
func (o *Orchestrator) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if in.OwnerID == "" {
		return nil, domain.ErrUnauthorized
	}

	providerJobID := ident.ProviderJobID(prompt)
	seed := ident.Seed()
	payload, err := json.Marshal(requestSnapshot{
		Prompt:        prompt,
		Duration:      in.Duration,
		AspectRatio:   in.AspectRatio,
		Seed:          seed,
		ProviderJobID: providerJobID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request snapshot: %w", err)
	}

	asset := &domain.Asset{
		OwnerID:  in.OwnerID,
		GroupID:  in.GroupID,
		Prompt:   prompt,
		Status:   domain.JobStatusPending,
		Metadata: payload,
	}
	if err := o.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}

	job := &domain.GenerationJob{
		ProviderJobID:  providerJobID,
		AssetID:        asset.ID,
		Status:         domain.JobStatusPending,
		Seed:           seed,
		RequestPayload: payload,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		// No orphan pending assets without a job behind them.
		if derr := o.assets.Delete(ctx, asset.ID); derr != nil {
			o.logger.Error().Err(derr).Str("asset_id", asset.ID).Msg("orchestrator: orphan asset cleanup failed")
		}
		return nil, fmt.Errorf("create job: %w", err)
	}

	o.spawn(job.ID)

	return &CreateResult{
		JobID:         job.ID,
		ProviderJobID: providerJobID,
		AssetID:       asset.ID,
		Status:        domain.JobStatusPending,
		Seed:          seed,
	}, nil
}

// spawn launches the background task for a job. The task derives its context
// from Background, never from the request: the caller closing its connection
// must not cancel generation.
func (o *Orchestrator) spawn(jobID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				o.logger.Error().Str("job_id", jobID).Interface("panic", rec).Msg("orchestrator: background task panicked")
				o.failJob(context.Background(), jobID, "", "internal error")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), o.opts.JobTimeout)
		defer cancel()
		o.run(ctx, jobID)
	}()
}

// Wait blocks until all background tasks finish. Used on shutdown and by
// tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, jobID string) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: load job for dispatch failed")
		return
	}

	started := time.Now().UTC()
	p := initialProgress
	if _, err := o.jobs.UpdateStatusForward(ctx, jobID, domain.JobPatch{
		Status:    domain.JobStatusProcessing,
		Progress:  &p,
		StartedAt: &started,
	}); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: mark processing failed")
	}
	if err := o.assets.UpdateStatus(ctx, job.AssetID, domain.JobStatusProcessing, ""); err != nil {
		o.logger.Error().Err(err).Str("asset_id", job.AssetID).Msg("orchestrator: mirror processing failed")
	}

	handle, err := o.adapter.Dispatch(ctx, requestFromJob(job))
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: dispatch failed")
		o.failJob(context.Background(), jobID, job.AssetID, sanitizeProviderError(err))
		return
	}
	if handle.ID != "" && handle.ID != job.ProviderJobID {
		if err := o.jobs.SetProviderJobID(ctx, jobID, handle.ID); err != nil {
			o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: store provider job id failed")
		}
	}

	progress := initialProgress
	for {
		select {
		case <-ctx.Done():
			o.failTimeout(jobID, job.AssetID)
			return
		case <-time.After(o.opts.PollInterval):
		}

		st, err := o.adapter.Poll(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				o.failTimeout(jobID, job.AssetID)
				return
			}
			// Transient poll failures are retried on the next tick until the
			// deadline; only the deadline or a provider-reported failure is
			// terminal.
			o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: poll failed, retrying")
			continue
		}

		terminal, next := o.reconcile(ctx, jobID, job.AssetID, st, progress)
		progress = next
		if terminal {
			return
		}
	}
}

// reconcile translates one normalized provider status into store writes. It
// returns whether a terminal state was reached and the progress watermark to
// carry forward. Safe to call concurrently from the background loop and the
// read-through refresh: every write is forward-only.
func (o *Orchestrator) reconcile(ctx context.Context, jobID, assetID string, st provider.Status, progress int) (bool, int) {
	switch st.State {
	case provider.StateSucceeded:
		outputURL := st.OutputURL
		if o.opts.Archiver != nil && outputURL != "" {
			if local, err := o.opts.Archiver.Archive(ctx, jobID, outputURL); err != nil {
				o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: archive clip failed, keeping provider url")
			} else {
				outputURL = local
			}
		}
		hundred := 100
		now := time.Now().UTC()
		applied, err := o.jobs.UpdateStatusForward(ctx, jobID, domain.JobPatch{
			Status:      domain.JobStatusCompleted,
			Progress:    &hundred,
			CompletedAt: &now,
		})
		if err != nil {
			o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: mark completed failed")
			return true, progress
		}
		if err := o.assets.UpdateStatus(ctx, assetID, domain.JobStatusCompleted, outputURL); err != nil {
			o.logger.Error().Err(err).Str("asset_id", assetID).Msg("orchestrator: mirror completed failed")
		}
		if applied {
			o.logger.Info().Str("job_id", jobID).Msg("orchestrator: job completed")
		}
		return true, 100

	case provider.StateFailed:
		msg := st.ErrorDetail
		if msg == "" {
			msg = "generation failed"
		}
		o.failJob(ctx, jobID, assetID, msg)
		return true, progress

	default: // queued or running
		next := progress + syntheticStep
		if st.Progress > next {
			next = st.Progress
		}
		if next > progressCap {
			next = progressCap
		}
		if next > progress {
			if err := o.jobs.UpdateProgress(ctx, jobID, next); err != nil {
				o.logger.Warn().Err(err).Str("job_id", jobID).Msg("orchestrator: progress update failed")
			}
		}
		return false, next
	}
}

// failJob makes the best-effort terminal transition to failed and mirrors it
// onto the asset. A no-op when the job is already terminal.
func (o *Orchestrator) failJob(ctx context.Context, jobID, assetID, msg string) {
	now := time.Now().UTC()
	applied, err := o.jobs.UpdateStatusForward(ctx, jobID, domain.JobPatch{
		Status:       domain.JobStatusFailed,
		ErrorMessage: msg,
		CompletedAt:  &now,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: mark failed failed")
		return
	}
	if assetID == "" {
		if job, jerr := o.jobs.GetByID(ctx, jobID); jerr == nil {
			assetID = job.AssetID
		}
	}
	if assetID != "" {
		if err := o.assets.UpdateStatus(ctx, assetID, domain.JobStatusFailed, ""); err != nil {
			o.logger.Error().Err(err).Str("asset_id", assetID).Msg("orchestrator: mirror failed state failed")
		}
	}
	if applied {
		o.logger.Info().Str("job_id", jobID).Str("reason", msg).Msg("orchestrator: job failed")
	}
}

func (o *Orchestrator) failTimeout(jobID, assetID string) {
	// The loop context is dead here; the terminal write gets a fresh one.
	o.failJob(context.Background(), jobID, assetID, "provider timed out")
}

// Status returns the lifecycle snapshot for a job owned by callerID. When the
// job is still processing it opportunistically re-polls the provider once and
// persists any resulting transition before answering; the forward-only write
// policy makes this safe against the background loop. Foreign or unknown jobs
// both report not-found so callers cannot probe for other users' jobs.
func (o *Orchestrator) Status(ctx context.Context, callerID, jobID string) (*JobView, error) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	asset, err := o.assets.GetByID(ctx, job.AssetID)
	if err != nil {
		return nil, err
	}
	if callerID == "" || asset.OwnerID != callerID {
		return nil, domain.ErrNotFound
	}

	if job.Status == domain.JobStatusProcessing {
		if job.StartedAt != nil && time.Since(*job.StartedAt) > o.opts.JobTimeout {
			// The background task is gone (crashed or lost to a restart) and
			// the ceiling has passed; settle the job on the read path.
			o.failJob(ctx, jobID, job.AssetID, "provider timed out")
		} else if job.ProviderJobID != "" {
			o.refresh(ctx, job)
		}
		if refreshed, rerr := o.jobs.GetByID(ctx, jobID); rerr == nil {
			job = refreshed
		}
		if refreshed, rerr := o.assets.GetByID(ctx, job.AssetID); rerr == nil {
			asset = refreshed
		}
	}

	return &JobView{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		VideoURL:     asset.FileURL,
		Prompt:       asset.Prompt,
	}, nil
}

// refresh performs the single read-through provider poll. Transport errors
// are swallowed: the background loop remains the authority.
func (o *Orchestrator) refresh(ctx context.Context, job *domain.GenerationJob) {
	pollCtx, cancel := context.WithTimeout(ctx, o.opts.RefreshTimeout)
	defer cancel()
	st, err := o.adapter.Poll(pollCtx, provider.Handle{ID: job.ProviderJobID})
	if err != nil {
		o.logger.Debug().Err(err).Str("job_id", job.ID).Msg("orchestrator: read-through refresh poll failed")
		return
	}
	o.reconcile(ctx, job.ID, job.AssetID, st, job.Progress)
}

func requestFromJob(job *domain.GenerationJob) provider.Request {
	var snap requestSnapshot
	_ = json.Unmarshal(job.RequestPayload, &snap)
	return provider.Request{
		ProviderJobID: job.ProviderJobID,
		Prompt:        snap.Prompt,
		Duration:      snap.Duration,
		AspectRatio:   snap.AspectRatio,
		Seed:          job.Seed,
	}
}

// sanitizeProviderError maps adapter errors onto user-facing messages.
// Transport internals never reach the caller.
func sanitizeProviderError(err error) string {
	if provider.IsTransport(err) {
		return "provider unreachable"
	}
	return err.Error()
}
