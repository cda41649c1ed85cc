package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tryon-api/internal/ratelimit"
)

func TestClientKey(t *testing.T) {
	tests := []struct {
		name     string
		authUser string
		setup    func(r *http.Request)
		want     string
	}{
		{
			name:     "authenticated user wins",
			authUser: "u-1",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.1")
			},
			want: "user:u-1",
		},
		{
			name: "x-user-id header",
			setup: func(r *http.Request) {
				r.Header.Set("X-User-ID", "u-2")
			},
			want: "user:u-2",
		},
		{
			name: "first forwarded hop",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.2")
			},
			want: "ip:203.0.113.1",
		},
		{
			name: "x-real-ip fallback",
			setup: func(r *http.Request) {
				r.Header.Set("X-Real-IP", "203.0.113.9")
			},
			want: "ip:203.0.113.9",
		},
		{
			name: "cf-connecting-ip fallback",
			setup: func(r *http.Request) {
				r.Header.Set("CF-Connecting-IP", "203.0.113.10")
			},
			want: "ip:203.0.113.10",
		},
		{
			name: "remote addr fallback",
			want: "ip:198.51.100.10",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "198.51.100.10:1234"
			if tc.authUser != "" {
				req = req.WithContext(ContextWithUserID(req.Context(), tc.authUser))
			}
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := ClientKey(req); got != tc.want {
				t.Fatalf("ClientKey() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", "u-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	if first.Code != http.StatusOK {
		t.Fatalf("first request: %d", first.Code)
	}
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Fatalf("remaining after first = %q, want %q", got, "1")
	}

	do()
	third := do()
	if third.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: %d, want 429", third.Code)
	}
	if third.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
	if got := third.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining on 429 = %q, want %q", got, "0")
	}
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", user)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("u-1"); code != http.StatusOK {
		t.Fatalf("u-1 first request: %d", code)
	}
	if code := do("u-1"); code != http.StatusTooManyRequests {
		t.Fatalf("u-1 second request: %d, want 429", code)
	}
	if code := do("u-2"); code != http.StatusOK {
		t.Fatalf("u-2 should have its own window: %d", code)
	}
}
