// Package fal speaks the fal.ai queue protocol: submit a generation request,
// poll its status, and fetch the terminal result. Outbound calls are expected
// to be wrapped by the Executor in this package.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tryon-api/internal/infra"
)

// ErrNotConfigured indicates that the client was built without credentials.
var ErrNotConfigured = errors.New("fal: FAL_API_KEY is not set, fal.ai integration is unavailable")

// Queue status values as reported by the provider.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// LogEntry is one provider-side log line attached to a queued request.
type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Metrics carries provider-reported timings for a request.
type Metrics struct {
	InferenceTime *float64 `json:"inference_time"`
}

// QueueStatus is the provider's raw queue record for a request.
type QueueStatus struct {
	RequestID     string     `json:"request_id"`
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	ResponseURL   string     `json:"response_url"`
	StatusURL     string     `json:"status_url"`
	CancelURL     string     `json:"cancel_url"`
	Logs          []LogEntry `json:"logs,omitempty"`
	Metrics       *Metrics   `json:"metrics,omitempty"`
}

// SubmitOptions are queue-level knobs passed alongside the model input.
type SubmitOptions struct {
	Priority   string
	WebhookURL string
	Hint       string
}

// Options configures the fal queue client.
type Options struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the fal.ai queue API.
type Client struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run"
	}
	modelID := strings.TrimSpace(opts.ModelID)
	if modelID == "" {
		modelID = "fal-ai/nano-banana/edit"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		modelID:    modelID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string {
	return c.modelID
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit enqueues a generation request and returns the provider's queue record.
func (c *Client) Submit(ctx context.Context, input any, opts SubmitOptions) (*QueueStatus, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("fal: encode input: %w", err)
	}

	endpoint := c.baseURL + "/" + c.modelID
	if opts.WebhookURL != "" {
		endpoint += "?fal_webhook=" + url.QueryEscape(opts.WebhookURL)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.Priority != "" {
		req.Header.Set("X-Fal-Queue-Priority", opts.Priority)
	}
	if opts.Hint != "" {
		req.Header.Set("X-Fal-Runner-Hint", opts.Hint)
	}

	var status QueueStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", c.modelID).
		Str("request_id", status.RequestID).
		Str("status", status.Status).
		Msg("fal: request submitted")
	return &status, nil
}

// Status fetches the current queue record for a request. When logs is true the
// provider includes its log lines in the response.
func (c *Client) Status(ctx context.Context, requestID string, logs bool) (*QueueStatus, error) {
	endpoint := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, c.modelID, requestID)
	if logs {
		endpoint += "?logs=1"
	}

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var status QueueStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	if status.RequestID == "" {
		status.RequestID = requestID
	}
	return &status, nil
}

// Result fetches the terminal payload of a completed request into out.
func (c *Client) Result(ctx context.Context, requestID string, out any) error {
	endpoint := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, c.modelID, requestID)

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	if !c.HasCredentials() {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fal: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: raw}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fal: decode response: %w", err)
	}
	return nil
}
