package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiverStoresClipAndReturnsLocalURL(t *testing.T) {
	payload := []byte("fake mp4 bytes")
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer src.Close()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	arc, err := NewArchiver(store, "http://localhost:8080/static/", src.Client())
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}

	url, err := arc.Archive(context.Background(), "job-abc", src.URL+"/clip.mp4")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	want := "http://localhost:8080/static/videos/job-abc.mp4"
	if url != want {
		t.Fatalf("url = %q, want %q", url, want)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "videos", "job-abc.mp4"))
	if err != nil {
		t.Fatalf("read stored clip: %v", err)
	}
	if !bytes.Equal(stored, payload) {
		t.Fatalf("stored bytes mismatch: %q", stored)
	}
}

func TestArchiverRejectsUpstreamError(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer src.Close()

	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	arc, err := NewArchiver(store, "http://localhost:8080/static", src.Client())
	if err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}

	if _, err := arc.Archive(context.Background(), "job-abc", src.URL); err == nil {
		t.Fatal("Archive accepted 404 upstream")
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write(context.Background(), "../escape.mp4", []byte("x")); err == nil {
		t.Fatal("Write accepted traversal key")
	}
}
