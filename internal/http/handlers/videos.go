package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clipforge/internal/domain"
	"clipforge/internal/orchestrator"
)

type videoGenerateRequest struct {
	Prompt       string `json:"prompt"`
	Duration     string `json:"duration"`
	AspectRatio  string `json:"aspectRatio"`
	AssetGroupID string `json:"assetGroupId"`
}

type videoGenerateResponse struct {
	Success       bool   `json:"success"`
	JobID         string `json:"job_id"`
	ProviderJobID string `json:"provider_job_id"`
	AssetID       string `json:"asset_id"`
	Status        string `json:"status"`
	Seed          int32  `json:"seed"`
}

type jobStatusBody struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"error_message,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	Prompt       string `json:"prompt"`
}

func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req videoGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	res, err := a.Orchestrator.Create(r.Context(), orchestrator.CreateInput{
		OwnerID:     userID,
		Prompt:      req.Prompt,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		GroupID:     req.AssetGroupID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPrompt):
			a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		case errors.Is(err, domain.ErrUnauthorized):
			a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		default:
			a.Logger.Error().Err(err).Msg("video generate failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to queue video job")
		}
		return
	}

	a.json(w, http.StatusAccepted, videoGenerateResponse{
		Success:       true,
		JobID:         res.JobID,
		ProviderJobID: res.ProviderJobID,
		AssetID:       res.AssetID,
		Status:        string(res.Status),
		Seed:          res.Seed,
	})
}

func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	view, err := a.Orchestrator.Status(r.Context(), userID, jobID)
	if err != nil {
		// Jobs owned by other users look identical to jobs that do not
		// exist, so ownership cannot be probed.
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("video status failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to fetch job")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"job": jobStatusBody{
			ID:           view.ID,
			Status:       string(view.Status),
			Progress:     view.Progress,
			ErrorMessage: view.ErrorMessage,
			VideoURL:     view.VideoURL,
			Prompt:       view.Prompt,
		},
	})
}
