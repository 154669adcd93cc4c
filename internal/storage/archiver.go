package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxClipBytes caps how much of a provider response the archiver will buffer.
const maxClipBytes = 512 << 20

// Archiver mirrors finished clips from the provider's CDN into the local
// FileStore so downloads keep working after provider URLs expire.
type Archiver struct {
	store      *FileStore
	baseURL    string
	httpClient *http.Client
}

// NewArchiver builds an Archiver serving stored files under baseURL.
func NewArchiver(store *FileStore, baseURL string, client *http.Client) (*Archiver, error) {
	if store == nil {
		return nil, errors.New("storage: file store is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Archiver{
		store:      store,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}, nil
}

// Archive downloads srcURL and persists it under a key derived from jobID,
// returning the locally served URL.
func (a *Archiver) Archive(ctx context.Context, jobID, srcURL string) (string, error) {
	if jobID == "" || srcURL == "" {
		return "", errors.New("storage: job id and source url are required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("storage: build download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: download clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage: download clip: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: read clip: %w", err)
	}
	if len(data) > maxClipBytes {
		return "", errors.New("storage: clip exceeds size limit")
	}

	key, err := a.store.Write(ctx, "videos/"+jobID+".mp4", data)
	if err != nil {
		return "", err
	}
	return a.baseURL + "/" + key, nil
}
