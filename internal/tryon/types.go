// Package tryon orchestrates hairstyle try-on jobs against the generative
// provider: submission, status polling, response caching, and per-client
// ownership tracking.
package tryon

import (
	"tryon-api/internal/providers/fal"
)

// State is the gateway's normalized job lifecycle state.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
)

// Job is the client-facing projection of a provider queue request. The
// gateway never mutates job state locally; it is a read-through view of
// provider state.
type Job struct {
	ID            string         `json:"id"`
	ModelID       string         `json:"modelId"`
	Status        State          `json:"status"`
	QueuePosition *int           `json:"queuePosition,omitempty"`
	Logs          []fal.LogEntry `json:"logs,omitempty"`
	Metrics       *Metrics       `json:"metrics,omitempty"`
}

// Metrics carries provider-reported timings.
type Metrics struct {
	InferenceTime *float64 `json:"inferenceTime"`
}

// QueueMetadata is the provider's queue record paired 1:1 with a Job.
// RawStatus preserves the provider's status string, distinct from the
// normalized Job status.
type QueueMetadata struct {
	RequestID   string `json:"requestId"`
	StatusURL   string `json:"statusUrl"`
	ResponseURL string `json:"responseUrl"`
	CancelURL   string `json:"cancelUrl"`
	RawStatus   string `json:"rawStatus"`
}

// Request is the validated, sanitized submission input.
type Request struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"imageUrls"`
	NumImages    *int     `json:"numImages,omitempty"`
	OutputFormat string   `json:"outputFormat,omitempty"`
	SyncMode     *bool    `json:"syncMode,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	WebhookURL   string   `json:"webhookUrl,omitempty"`
	Hint         string   `json:"hint,omitempty"`
}

// ResultImage is one generated output image.
type ResultImage struct {
	URL string `json:"url"`
}

// Result is the terminal payload of a completed job. It is cached
// independently of the short-lived status record because a completed result
// is immutable.
type Result struct {
	Images      []ResultImage `json:"images"`
	Description string        `json:"description"`
}

// Response pairs the normalized job with its queue metadata.
type Response struct {
	Job   Job           `json:"job"`
	Queue QueueMetadata `json:"queue"`
}

// StatusResponse extends Response with the result once available.
type StatusResponse struct {
	Response
	Result *Result `json:"result,omitempty"`
}

// StatusOptions control a status poll.
type StatusOptions struct {
	IncludeResult bool
	Logs          bool
}
