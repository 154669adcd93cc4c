package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestVeo(t *testing.T, handler http.HandlerFunc) *Veo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVeo(VeoOptions{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestVeoDispatchReturnsOperationHandle(t *testing.T) {
	var gotBody veoGenerateRequest
	adapter := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "operations/op-123"})
	})

	h, err := adapter.Dispatch(context.Background(), Request{
		ProviderJobID: "corr-1",
		Prompt:        "a red balloon drifting over mountains",
		Duration:      "10s",
		AspectRatio:   "16:9",
		Seed:          42,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if h.ID != "operations/op-123" {
		t.Fatalf("handle = %q, want operations/op-123", h.ID)
	}
	if len(gotBody.Instances) != 1 || gotBody.Instances[0].Prompt == "" {
		t.Fatalf("prompt not forwarded: %#v", gotBody)
	}
	if gotBody.Parameters.DurationSeconds != 10 || gotBody.Parameters.Seed != 42 {
		t.Fatalf("parameters not forwarded: %#v", gotBody.Parameters)
	}
}

func TestVeoPollNormalizesStates(t *testing.T) {
	cases := []struct {
		name      string
		body      map[string]any
		wantState State
		wantURL   string
		wantErrIn string
	}{{
		name:      "queued",
		body:      map[string]any{"name": "operations/op", "done": false, "metadata": map[string]any{"state": "PENDING"}},
		wantState: StateQueued,
	}, {
		name:      "running with progress",
		body:      map[string]any{"name": "operations/op", "done": false, "metadata": map[string]any{"state": "RUNNING", "progressPercent": 40}},
		wantState: StateRunning,
	}, {
		name: "succeeded",
		body: map[string]any{"name": "operations/op", "done": true, "response": map[string]any{
			"generateVideoResponse": map[string]any{
				"generatedSamples": []map[string]any{{"video": map[string]any{"uri": "https://files.example/video.mp4"}}},
			},
		}},
		wantState: StateSucceeded,
		wantURL:   "https://files.example/video.mp4",
	}, {
		name:      "provider failure carries detail",
		body:      map[string]any{"name": "operations/op", "done": true, "error": map[string]any{"code": 3, "message": "prompt rejected"}},
		wantState: StateFailed,
		wantErrIn: "prompt rejected",
	}, {
		name:      "done without output fails",
		body:      map[string]any{"name": "operations/op", "done": true},
		wantState: StateFailed,
		wantErrIn: "no video",
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(tc.body)
			})
			st, err := adapter.Poll(context.Background(), Handle{ID: "operations/op"})
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if st.State != tc.wantState {
				t.Fatalf("state = %s, want %s", st.State, tc.wantState)
			}
			if st.OutputURL != tc.wantURL {
				t.Fatalf("url = %q, want %q", st.OutputURL, tc.wantURL)
			}
			if tc.wantErrIn != "" && !strings.Contains(st.ErrorDetail, tc.wantErrIn) {
				t.Fatalf("detail = %q, want substring %q", st.ErrorDetail, tc.wantErrIn)
			}
		})
	}
}

func TestVeoTransportErrorIsDistinguishable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	adapter := NewVeo(VeoOptions{BaseURL: srv.URL, HTTPClient: srv.Client()})
	srv.Close() // connection refused from here on

	_, err := adapter.Poll(context.Background(), Handle{ID: "operations/op"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !IsTransport(err) {
		t.Fatalf("IsTransport(%v) = false, want true", err)
	}
}

func TestVeoAPIErrorIsNotTransport(t *testing.T) {
	adapter := newTestVeo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "invalid argument"}})
	})
	_, err := adapter.Dispatch(context.Background(), Request{ProviderJobID: "corr", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransport(err) {
		t.Fatalf("API rejection should not look like a transport failure: %v", err)
	}
}

func TestVeoCancelUnsupported(t *testing.T) {
	adapter := NewVeo(VeoOptions{})
	if err := adapter.Cancel(context.Background(), Handle{ID: "operations/op"}); err != ErrCancelUnsupported {
		t.Fatalf("Cancel = %v, want ErrCancelUnsupported", err)
	}
}
