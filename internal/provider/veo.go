package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// VeoOptions controls how the Veo adapter is configured.
type VeoOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Veo adapts the Google Veo long-running video generation API. Dispatch
// creates an operation; Poll reads it back and normalizes the result.
type Veo struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewVeo constructs the adapter with sane defaults. A nil HTTP client is
// replaced with one carrying a request timeout.
func NewVeo(opts VeoOptions) *Veo {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := opts.Model
	if model == "" {
		model = "veo-2.0-generate-001"
	}
	return &Veo{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
	}
}

func (v *Veo) Name() string { return "veo" }

type veoGenerateRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoInstance struct {
	Prompt string `json:"prompt"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	Seed            int32  `json:"seed,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
}

type veoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Metadata struct {
		State           string `json:"state,omitempty"`
		ProgressPercent int    `json:"progressPercent,omitempty"`
	} `json:"metadata"`
	Error *struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// Dispatch submits the generation request and returns the operation name as
// the handle. It is called exactly once per job; failures are terminal.
func (v *Veo) Dispatch(ctx context.Context, req Request) (Handle, error) {
	payload := veoGenerateRequest{
		Instances: []veoInstance{{Prompt: req.Prompt}},
		Parameters: veoParameters{
			AspectRatio:     req.AspectRatio,
			DurationSeconds: durationSeconds(req.Duration),
			Seed:            req.Seed,
			RequestID:       req.ProviderJobID,
		},
	}
	var op veoOperation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(v.model))
	if err := v.invoke(ctx, http.MethodPost, path, payload, &op); err != nil {
		return Handle{}, err
	}
	if op.Name == "" {
		return Handle{}, fmt.Errorf("veo: dispatch returned no operation name")
	}
	return Handle{ID: op.Name}, nil
}

// Poll reads the operation and maps it onto the normalized state union.
func (v *Veo) Poll(ctx context.Context, h Handle) (Status, error) {
	var op veoOperation
	path := "/" + strings.TrimLeft(h.ID, "/")
	if err := v.invoke(ctx, http.MethodGet, path, nil, &op); err != nil {
		return Status{}, err
	}
	if op.Error != nil {
		detail := op.Error.Message
		if detail == "" {
			detail = "generation failed"
		}
		return Status{State: StateFailed, ErrorDetail: detail}, nil
	}
	if op.Done {
		uri := firstSampleURI(op)
		if uri == "" {
			return Status{State: StateFailed, ErrorDetail: "provider returned no video"}, nil
		}
		return Status{State: StateSucceeded, Progress: 100, OutputURL: uri}, nil
	}
	state := StateRunning
	if strings.EqualFold(op.Metadata.State, "PENDING") || strings.EqualFold(op.Metadata.State, "QUEUED") {
		state = StateQueued
	}
	return Status{State: state, Progress: op.Metadata.ProgressPercent}, nil
}

// Cancel is not supported by the operations surface this adapter targets.
func (v *Veo) Cancel(ctx context.Context, h Handle) error {
	return ErrCancelUnsupported
}

func (v *Veo) invoke(ctx context.Context, method, path string, payload, out any) error {
	endpoint := v.baseURL + path
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("veo: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}
	if v.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", v.apiKey)
		req.URL.RawQuery = q.Encode()
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error struct {
				Message string `json:"message,omitempty"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("veo status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("veo status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("veo status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("veo: decode response: %w", err)
	}
	return nil
}

func firstSampleURI(op veoOperation) string {
	if op.Response == nil {
		return ""
	}
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}

func durationSeconds(duration string) int {
	switch strings.TrimSpace(duration) {
	case "10s":
		return 10
	case "15s":
		return 15
	case "5s", "":
		return 5
	default:
		return 5
	}
}

var _ Adapter = (*Veo)(nil)
