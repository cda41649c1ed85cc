package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tryon-api/internal/middleware"
	"tryon-api/internal/providers/fal"
	"tryon-api/internal/ratelimit"
	"tryon-api/internal/tryon"
	"tryon-api/internal/urlcheck"
)

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrRequestTooLarge reports a body above the configured byte cap.
var ErrRequestTooLarge = errors.New("request body exceeds allowed size")

type submitPayload struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"imageUrls"`
	NumImages    *int     `json:"numImages"`
	OutputFormat *string  `json:"outputFormat"`
	SyncMode     *bool    `json:"syncMode"`
	Priority     *string  `json:"priority"`
	WebhookURL   *string  `json:"webhookUrl"`
	Hint         *string  `json:"hint"`
}

type providerMeta struct {
	RequestID   string `json:"requestId"`
	RawStatus   string `json:"rawStatus"`
	StatusURL   string `json:"statusUrl"`
	ResponseURL string `json:"responseUrl"`
}

type tryOnMeta struct {
	ModelID  string       `json:"modelId"`
	Provider providerMeta `json:"provider"`
}

type tryOnData struct {
	Job    tryon.Job     `json:"job"`
	Result *tryon.Result `json:"result,omitempty"`
}

type tryOnEnvelope struct {
	Data tryOnData `json:"data"`
	Meta tryOnMeta `json:"meta"`
}

func buildMeta(resp *tryon.Response) tryOnMeta {
	return tryOnMeta{
		ModelID: resp.Job.ModelID,
		Provider: providerMeta{
			RequestID:   resp.Queue.RequestID,
			RawStatus:   resp.Queue.RawStatus,
			StatusURL:   resp.Queue.StatusURL,
			ResponseURL: resp.Queue.ResponseURL,
		},
	}
}

// SubmitTryOn queues a hairstyle transformation with the provider.
func (a *App) SubmitTryOn(w http.ResponseWriter, r *http.Request) {
	if middleware.UserIDFromContext(r.Context()) == "" {
		a.error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign-in required to queue hairstyle transformations.")
		return
	}

	clientKey := middleware.ClientKey(r)

	if err := a.TryOnLimiter.Check(clientKey); err != nil {
		a.handleError(w, err)
		return
	}

	payload, err := a.parseSubmitBody(r)
	if err != nil {
		a.handleError(w, err)
		return
	}

	req, err := a.validateSubmit(payload)
	if err != nil {
		a.handleError(w, err)
		return
	}

	if err := a.Tracker.EnsureCapacity(clientKey); err != nil {
		a.handleError(w, err)
		return
	}

	resp, err := a.Service.Submit(r.Context(), req)
	if err != nil {
		a.handleError(w, err)
		return
	}
	a.Tracker.Register(clientKey, resp.Job.ID)

	a.json(w, http.StatusAccepted, tryOnEnvelope{
		Data: tryOnData{Job: resp.Job},
		Meta: buildMeta(resp),
	})
}

// TryOnStatus reports the current provider state of a queued job.
func (a *App) TryOnStatus(w http.ResponseWriter, r *http.Request) {
	if middleware.UserIDFromContext(r.Context()) == "" {
		a.error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign-in required to view hairstyle transformation status.")
		return
	}

	clientKey := middleware.ClientKey(r)
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "jobId is required", "jobId")
		return
	}

	if err := a.TryOnLimiter.Check(clientKey); err != nil {
		a.handleError(w, err)
		return
	}

	a.Tracker.Sweep()

	opts := tryon.StatusOptions{
		IncludeResult: !strings.EqualFold(r.URL.Query().Get("includeResult"), "false"),
		Logs:          strings.EqualFold(r.URL.Query().Get("logs"), "true"),
	}

	resp, err := a.Service.Status(r.Context(), jobID, opts)
	if err != nil {
		a.handleError(w, err)
		return
	}

	if resp.Job.Status == tryon.StateCompleted {
		a.Tracker.Release(resp.Job.ID)
	}

	a.json(w, http.StatusOK, tryOnEnvelope{
		Data: tryOnData{Job: resp.Job, Result: resp.Result},
		Meta: buildMeta(&resp.Response),
	})
}

func (a *App) parseSubmitBody(r *http.Request) (*submitPayload, error) {
	maxBytes := a.Config.MaxRequestBodyBytes

	if header := r.Header.Get("Content-Length"); header != "" {
		if declared, err := strconv.ParseInt(header, 10, 64); err == nil && declared > maxBytes {
			return nil, ErrRequestTooLarge
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrRequestTooLarge
		}
		return nil, err
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &ValidationError{Field: "payload", Message: "Request body must be a JSON object"}
	}

	var payload submitPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &ValidationError{Field: typeErr.Field, Message: typeErr.Field + " has the wrong type"}
		}
		return nil, &ValidationError{Field: "payload", Message: "Invalid JSON payload"}
	}
	return &payload, nil
}

func (a *App) validateSubmit(payload *submitPayload) (tryon.Request, error) {
	var req tryon.Request

	prompt := strings.TrimSpace(payload.Prompt)
	if prompt == "" {
		return req, &ValidationError{Field: "prompt", Message: "prompt is required"}
	}

	if len(payload.ImageURLs) == 0 {
		return req, &ValidationError{Field: "imageUrls", Message: "imageUrls must include at least one image URL"}
	}
	if len(payload.ImageURLs) > tryon.MaxImageURLs {
		return req, &ValidationError{
			Field:   "imageUrls",
			Message: fmt.Sprintf("Maximum %d image URLs allowed", tryon.MaxImageURLs),
		}
	}

	imageURLs := make([]string, 0, len(payload.ImageURLs))
	for _, raw := range payload.ImageURLs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > urlcheck.DefaultMaxLength {
			return req, &ValidationError{
				Field:   "imageUrls",
				Message: fmt.Sprintf("URL exceeds maximum length of %d characters", urlcheck.DefaultMaxLength),
			}
		}
		if result := a.URLValidator.Validate(trimmed); !result.Valid {
			return req, &ValidationError{Field: "imageUrls", Message: urlReasonMessage(result.Reason)}
		}
		imageURLs = append(imageURLs, trimmed)
	}
	if len(imageURLs) == 0 {
		return req, &ValidationError{Field: "imageUrls", Message: "imageUrls cannot be empty"}
	}

	if payload.NumImages != nil {
		if *payload.NumImages < 1 || *payload.NumImages > 4 {
			return req, &ValidationError{Field: "numImages", Message: "numImages must be between 1 and 4"}
		}
		req.NumImages = payload.NumImages
	}

	if payload.OutputFormat != nil {
		format := *payload.OutputFormat
		if format != "jpeg" && format != "png" {
			return req, &ValidationError{Field: "outputFormat", Message: `outputFormat must be either "jpeg" or "png"`}
		}
		req.OutputFormat = format
	}

	req.SyncMode = payload.SyncMode

	if payload.Priority != nil {
		priority := *payload.Priority
		if priority != "low" && priority != "normal" {
			return req, &ValidationError{Field: "priority", Message: `priority must be either "low" or "normal"`}
		}
		req.Priority = priority
	}

	if payload.WebhookURL != nil {
		webhook := strings.TrimSpace(*payload.WebhookURL)
		if webhook != "" {
			if result := a.URLValidator.Validate(webhook); !result.Valid {
				return req, &ValidationError{Field: "webhookUrl", Message: urlReasonMessage(result.Reason)}
			}
			req.WebhookURL = webhook
		}
	}

	if payload.Hint != nil {
		req.Hint = strings.TrimSpace(*payload.Hint)
	}

	req.Prompt = prompt
	req.ImageURLs = imageURLs
	return req, nil
}

func urlReasonMessage(reason urlcheck.Reason) string {
	switch reason {
	case urlcheck.ReasonInvalidLength:
		return "image URL exceeds maximum allowed length"
	case urlcheck.ReasonMalformed:
		return "image URL must be a valid URL"
	case urlcheck.ReasonProtocolNotAllowed:
		return "image URL must use http or https"
	case urlcheck.ReasonPrivateHost:
		return "image URL host is not allowed"
	case urlcheck.ReasonHostNotWhitelisted:
		return "image URL host is not whitelisted"
	default:
		return "invalid image URL"
	}
}

func (a *App) handleError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", validationErr.Message, validationErr.Field)
		return
	}

	if errors.Is(err, ErrRequestTooLarge) {
		a.error(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request body exceeds allowed size")
		return
	}

	var limitErr *ratelimit.Error
	if errors.As(err, &limitErr) {
		w.Header().Set("Retry-After", strconv.Itoa(limitErr.RetryAfterSeconds()))
		a.error(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please slow down.")
		return
	}

	if errors.Is(err, tryon.ErrQueueLimit) {
		a.error(w, http.StatusTooManyRequests, "QUEUE_LIMIT_REACHED", "Too many pending try-ons. Please wait for existing jobs to finish.")
		return
	}

	if errors.Is(err, tryon.ErrInvalidRequest) {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "payload")
		return
	}

	var apiErr *fal.APIError
	if errors.As(err, &apiErr) {
		code := "FAL_API_ERROR"
		if apiErr.StatusCode == http.StatusNotFound {
			code = "TRY_ON_NOT_FOUND"
		}
		if apiErr.StatusCode >= http.StatusInternalServerError {
			a.Logger.Error().Int("status", apiErr.StatusCode).Str("message", apiErr.Message()).Msg("provider api error")
		}
		a.error(w, apiErr.StatusCode, code, apiErr.Message())
		return
	}

	if errors.Is(err, fal.ErrNotConfigured) {
		a.Logger.Error().Err(err).Msg("provider configuration error")
		a.error(w, http.StatusServiceUnavailable, "TRY_ON_SERVICE_UNAVAILABLE", "AI try-on service is not configured")
		return
	}

	if errors.Is(err, fal.ErrCircuitOpen) {
		a.error(w, http.StatusServiceUnavailable, "TRY_ON_SERVICE_THROTTLED", "AI try-on service is temporarily unavailable. Please wait and try again.")
		return
	}

	a.Logger.Error().Err(err).Msg("unexpected try-on error")
	a.error(w, http.StatusInternalServerError, "TRY_ON_ERROR", "Unable to process try-on request")
}
