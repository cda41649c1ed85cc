package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthAnonymousPassesThrough(t *testing.T) {
	var gotUser string
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous request: %d", rec.Code)
	}
	if gotUser != "" {
		t.Fatalf("expected no user id, got %q", gotUser)
	}
}

func TestAuthValidTokenSetsUser(t *testing.T) {
	token, err := SignToken("secret", TokenClaims{
		Sub:    "u-1",
		Locale: "es",
		Exp:    time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	var gotUser, gotLocale string
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotLocale = LocaleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotUser != "u-1" {
		t.Fatalf("user id = %q, want %q", gotUser, "u-1")
	}
	if gotLocale != "es" {
		t.Fatalf("locale = %q, want %q", gotLocale, "es")
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	expired, _ := SignToken("secret", TokenClaims{Sub: "u-1", Exp: time.Now().Add(-time.Hour).Unix()})
	wrongKey, _ := SignToken("other-secret", TokenClaims{Sub: "u-1"})

	tests := []struct {
		name  string
		value string
	}{
		{"malformed scheme", "Token abc"},
		{"garbage token", "Bearer not.a.token"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tc.value)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body["error"] != "UNAUTHORIZED" {
				t.Fatalf("error code = %q, want UNAUTHORIZED", body["error"])
			}
		})
	}
}
