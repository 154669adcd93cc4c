// Package storage keeps generated clips on the local filesystem. Object
// storage can replace it later behind the same surface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists files under a single root directory. Keys are
// slash-separated relative paths and may not escape the root.
type FileStore struct {
	root string
}

// NewFileStore ensures root exists and returns a store over it.
func NewFileStore(root string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{root: root}, nil
}

// BasePath returns the store's root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Write stores data under key and returns the normalized key.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", clean, err)
	}
	return clean, nil
}

// normalizeKey cleans key and rejects anything that would resolve outside
// the store root.
func normalizeKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return clean, nil
}
