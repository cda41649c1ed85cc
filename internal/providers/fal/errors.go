package fal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a structured error response from the provider. Body holds the
// raw response so callers can surface the provider's own message.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal: status %d: %s", e.StatusCode, e.Message())
}

// Message extracts a human-readable message from the provider error body.
// The queue API reports validation failures as a detail array of {msg} items;
// other failures carry a message or detail string.
func (e *APIError) Message() string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil {
		if len(body.Detail) > 0 {
			var items []struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
				msgs := make([]string, 0, len(items))
				for _, item := range items {
					if item.Msg != "" {
						msgs = append(msgs, item.Msg)
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, "; ")
				}
			}
			var detail string
			if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
				return detail
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if raw := strings.TrimSpace(string(e.Body)); raw != "" {
		return raw
	}
	return http.StatusText(e.StatusCode)
}
