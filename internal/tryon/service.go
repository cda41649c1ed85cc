package tryon

import (
	"context"
	"errors"

	"tryon-api/internal/infra"
	"tryon-api/internal/providers/fal"
)

// ErrInvalidRequest reports a submission that violates service invariants.
// Handler-level validation should reject these earlier; this is the last line
// of defense before the provider is contacted.
var ErrInvalidRequest = errors.New("tryon: prompt and at least one image url are required")

// MaxImageURLs bounds how many source images one submission may carry.
const MaxImageURLs = 10

// providerInput is the snake_case payload shape the model expects.
type providerInput struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls"`
	NumImages    *int     `json:"num_images,omitempty"`
	OutputFormat string   `json:"output_format,omitempty"`
	SyncMode     *bool    `json:"sync_mode,omitempty"`
}

// Service orchestrates the submit and status-poll paths against the provider,
// routing every outbound call through the retry executor and keeping the
// response cache populated.
type Service struct {
	client *fal.Client
	exec   *fal.Executor
	cache  *Cache
	logger infra.Logger
}

// NewService wires the generation service.
func NewService(client *fal.Client, exec *fal.Executor, cache *Cache, logger infra.Logger) *Service {
	return &Service{client: client, exec: exec, cache: cache, logger: logger}
}

// ModelID exposes the provider pipeline identifier in use.
func (s *Service) ModelID() string {
	return s.client.ModelID()
}

// Submit validates the request, enqueues it with the provider and returns the
// normalized job plus queue metadata.
func (s *Service) Submit(ctx context.Context, req Request) (*Response, error) {
	input, err := buildProviderInput(req)
	if err != nil {
		return nil, err
	}
	if !s.client.HasCredentials() {
		return nil, fal.ErrNotConfigured
	}

	queueStatus, err := fal.Do(ctx, s.exec, "queue.submit", func(ctx context.Context) (*fal.QueueStatus, error) {
		return s.client.Submit(ctx, input, fal.SubmitOptions{
			Priority:   req.Priority,
			WebhookURL: req.WebhookURL,
			Hint:       req.Hint,
		})
	})
	if err != nil {
		return nil, err
	}

	normalized := s.normalize(queueStatus)
	s.cache.SetStatus(ctx, normalized)

	return normalized, nil
}

// Status polls the provider for the current state of a request, preferring
// the cache when logs were not requested. On completion the terminal result
// is fetched and cached. Any failure invalidates both cache entries for the
// request before propagating.
func (s *Service) Status(ctx context.Context, requestID string, opts StatusOptions) (*StatusResponse, error) {
	if !opts.Logs {
		if cached := s.cache.GetStatus(ctx, requestID, opts.IncludeResult); cached != nil {
			return cached, nil
		}
	}

	resp, err := s.pollStatus(ctx, requestID, opts)
	if err != nil {
		if !opts.Logs {
			s.cache.Invalidate(ctx, requestID)
		}
		return nil, err
	}
	return resp, nil
}

func (s *Service) pollStatus(ctx context.Context, requestID string, opts StatusOptions) (*StatusResponse, error) {
	// Misconfiguration short-circuits before the executor so it is never
	// retried and never counts toward the breaker.
	if !s.client.HasCredentials() {
		return nil, fal.ErrNotConfigured
	}

	queueStatus, err := fal.Do(ctx, s.exec, "queue.status", func(ctx context.Context) (*fal.QueueStatus, error) {
		return s.client.Status(ctx, requestID, opts.Logs)
	})
	if err != nil {
		return nil, err
	}

	normalized := s.normalize(queueStatus)
	resp := &StatusResponse{Response: *normalized}

	// Log-bearing responses are not cached verbatim.
	if !opts.Logs {
		s.cache.SetStatus(ctx, normalized)
	}

	if opts.IncludeResult {
		if queueStatus.Status == fal.StatusCompleted {
			result, err := fal.Do(ctx, s.exec, "queue.result", func(ctx context.Context) (*Result, error) {
				var r Result
				if err := s.client.Result(ctx, requestID, &r); err != nil {
					return nil, err
				}
				return &r, nil
			})
			if err != nil {
				return nil, err
			}
			resp.Result = result
			s.cache.SetResult(ctx, requestID, result)
		} else if !opts.Logs {
			// A just-completed job can race between the status flip and the
			// cached result; an earlier completed read may still serve it.
			if cached := s.cache.GetResult(ctx, requestID); cached != nil {
				resp.Result = cached
			}
		}
	}

	return resp, nil
}

func buildProviderInput(req Request) (*providerInput, error) {
	if req.Prompt == "" || len(req.ImageURLs) == 0 || len(req.ImageURLs) > MaxImageURLs {
		return nil, ErrInvalidRequest
	}
	return &providerInput{
		Prompt:       req.Prompt,
		ImageURLs:    req.ImageURLs,
		NumImages:    req.NumImages,
		OutputFormat: req.OutputFormat,
		SyncMode:     req.SyncMode,
	}, nil
}

func mapQueueState(raw string) State {
	switch raw {
	case fal.StatusInQueue:
		return StateQueued
	case fal.StatusInProgress:
		return StateProcessing
	case fal.StatusCompleted:
		return StateCompleted
	default:
		return StateQueued
	}
}

func (s *Service) normalize(status *fal.QueueStatus) *Response {
	job := Job{
		ID:            status.RequestID,
		ModelID:       s.client.ModelID(),
		Status:        mapQueueState(status.Status),
		QueuePosition: status.QueuePosition,
		Logs:          status.Logs,
	}
	if status.Metrics != nil {
		job.Metrics = &Metrics{InferenceTime: status.Metrics.InferenceTime}
	}
	return &Response{
		Job: job,
		Queue: QueueMetadata{
			RequestID:   status.RequestID,
			StatusURL:   status.StatusURL,
			ResponseURL: status.ResponseURL,
			CancelURL:   status.CancelURL,
			RawStatus:   status.Status,
		},
	}
}
