package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrMissingAPIKey is returned by NewClient when no credential is configured.
	ErrMissingAPIKey = errors.New("imagegen: API key is missing")
	// ErrUnavailable wraps transport-level failures reaching the backend.
	ErrUnavailable = errors.New("imagegen: backend unavailable")
)

// BackendError is a non-success outcome reported by the backend itself.
type BackendError struct {
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("imagegen: %s (%s)", e.Message, e.Code)
	}
	return "imagegen: " + e.Message
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	// PollInterval controls how often a pending remote job is re-checked.
	PollInterval time.Duration
}

// Client wraps the external image generation backend. Generation calls block
// until the remote job reaches a terminal state, so callers see a single
// synchronous operation.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
}

func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.APIKey)
	if token == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.aquarelle-inference.dev/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Client{
		httpClient:   client,
		baseURL:      base,
		token:        token,
		pollInterval: poll,
	}, nil
}

type generateRequest struct {
	Model          string  `json:"model"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Strength       float64 `json:"strength,omitempty"`
	ControlType    string  `json:"control_type,omitempty"`
	ControlWeight  float64 `json:"control_weight,omitempty"`
	Seed           *int    `json:"seed,omitempty"`
}

type jobEnvelope struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Output struct {
		ImageURL string `json:"image_url"`
	} `json:"output"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate submits one generation call and blocks until the remote job
// finishes, returning the output image reference.
func (c *Client) Generate(ctx context.Context, modelID string, params GenerateParams) (Result, error) {
	payload := generateRequest{
		Model:          modelID,
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		ImageURL:       params.ImageURL,
		Width:          params.Width,
		Height:         params.Height,
		Steps:          params.Steps,
		GuidanceScale:  params.GuidanceScale,
		Strength:       params.Strength,
		ControlType:    params.ControlType,
		ControlWeight:  params.ControlWeight,
		Seed:           params.Seed,
	}
	var env jobEnvelope
	if err := c.do(ctx, http.MethodPost, "/generations", payload, &env); err != nil {
		return Result{}, err
	}

	for {
		switch RemoteState(env.Status) {
		case RemoteSucceeded:
			if strings.TrimSpace(env.Output.ImageURL) == "" {
				return Result{}, &BackendError{Message: "missing output image url"}
			}
			return Result{ImageURL: env.Output.ImageURL, JobRef: env.JobID}, nil
		case RemoteFailed, RemoteCancelled:
			return Result{}, envelopeError(env)
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		if err := c.do(ctx, http.MethodGet, "/jobs/"+env.JobID, nil, &env); err != nil {
			return Result{}, err
		}
	}
}

// GetStatus reports the backend's view of a previously submitted job.
func (c *Client) GetStatus(ctx context.Context, jobRef string) (RemoteStatus, error) {
	if strings.TrimSpace(jobRef) == "" {
		return RemoteStatus{}, &BackendError{Message: "job ref required"}
	}
	var env jobEnvelope
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobRef, nil, &env); err != nil {
		return RemoteStatus{}, err
	}
	return env.remoteStatus(), nil
}

// Cancel asks the backend to stop a job and returns its resulting state.
func (c *Client) Cancel(ctx context.Context, jobRef string) (RemoteStatus, error) {
	if strings.TrimSpace(jobRef) == "" {
		return RemoteStatus{}, &BackendError{Message: "job ref required"}
	}
	var env jobEnvelope
	if err := c.do(ctx, http.MethodPost, "/jobs/"+jobRef+"/cancel", nil, &env); err != nil {
		return RemoteStatus{}, err
	}
	return env.remoteStatus(), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env jobEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &BackendError{Message: fmt.Sprintf("http %d", resp.StatusCode)}
		}
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return envelopeError(env)
	}
	if outEnv, ok := out.(*jobEnvelope); ok {
		*outEnv = env
	}
	return nil
}

func (env jobEnvelope) remoteStatus() RemoteStatus {
	return RemoteStatus{
		JobRef:   env.JobID,
		State:    RemoteState(env.Status),
		ImageURL: env.Output.ImageURL,
		Error:    env.Error.Message,
	}
}

func envelopeError(env jobEnvelope) error {
	msg := strings.TrimSpace(env.Error.Message)
	if msg == "" {
		msg = "generation failed"
	}
	return &BackendError{Code: env.Error.Code, Message: msg}
}
