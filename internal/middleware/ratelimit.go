package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tryon-api/internal/ratelimit"
)

// ClientKey derives the identity a request is limited and tracked under.
// Authenticated users come first so one account cannot widen its quota by
// rotating proxies; anonymous traffic degrades to forwarding headers and
// finally a shared bucket.
func ClientKey(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return "user:" + id
	}
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return "user:" + id
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if first := strings.TrimSpace(strings.Split(xf, ",")[0]); first != "" {
			return "ip:" + first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return "ip:" + ip
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return "ip:" + ip
	}
	if ip := ClientIP(r); ip != "" {
		return "ip:" + ip
	}
	return "anonymous"
}

// RateLimit applies a shared fixed-window limiter to every request passing
// through it, annotating responses with the usual X-RateLimit headers.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			if err := limiter.Check(key); err != nil {
				retryAfter := "1"
				var limitErr *ratelimit.Error
				if errors.As(err, &limitErr) {
					retryAfter = strconv.Itoa(limitErr.RetryAfterSeconds())
				}
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Max()))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry after "+retryAfter+"s")
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Max()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
			next.ServeHTTP(w, r)
		})
	}
}
