package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis_rate/v9"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// TestAuthenticate verifies bearer tokens are checked and the subject becomes the user id.
func TestAuthenticate(t *testing.T) {
	user := uuid.New()
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer " + signToken(t, testSecret, user.String(), time.Now().Add(time.Hour)), http.StatusOK},
		{"lower-case scheme", "bearer " + signToken(t, testSecret, user.String(), time.Now().Add(time.Hour)), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", user.String(), time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, user.String(), time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"subject not a uuid", "Bearer " + signToken(t, testSecret, "alice", time.Now().Add(time.Hour)), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID uuid.UUID
			var gotToken string
			handler := Authenticate([]byte(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = userIDFromContext(r)
				gotToken = accessTokenFromContext(r)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if gotID != user {
					t.Errorf("user id = %s, want %s", gotID, user)
				}
				if gotToken == "" {
					t.Error("access token not stored in context")
				}
			}
		})
	}
}

// TestUserIDFromContextUnset verifies that unauthenticated requests carry no user.
func TestUserIDFromContextUnset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := userIDFromContext(req); ok {
		t.Error("expected no user id")
	}

	rec := httptest.NewRecorder()
	if _, ok := mustUserID(rec, req); ok || rec.Code != http.StatusUnauthorized {
		t.Errorf("mustUserID = %v, status %d", ok, rec.Code)
	}
}

// TestRequestLogging verifies that the logging middleware calls the next handler and records status.
func TestRequestLogging(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

// TestRequestMetrics verifies requests are counted by method and status and
// timed by route pattern.
func TestRequestMetrics(t *testing.T) {
	m := metrics.NewTestManager()
	r := chi.NewRouter()
	r.Use(RequestMetrics(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for range 2 {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	}

	if got := testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "418")); got != 2 {
		t.Errorf("request counter = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.HistogramRequestDuration); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(m.GaugeRequests); got != 0 {
		t.Errorf("in-flight gauge = %v, want 0", got)
	}
}

// TestCORSPreflight verifies that preflight requests from an allowed origin
// are answered without reaching the handler.
func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called for preflight")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/today", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}
	if rec.Code >= 300 {
		t.Errorf("status = %d, want 2xx", rec.Code)
	}
}

// TestCORSOtherOrigin verifies that unlisted origins get no CORS headers.
func TestCORSOtherOrigin(t *testing.T) {
	handler := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow origin = %q, want none", got)
	}
}

type testRequestRateLimiter struct {
	// key to remaining requests
	Limits map[string]int
}

func (l *testRequestRateLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	res := &redis_rate.Result{Limit: limit, RetryAfter: 30 * time.Second}
	if l.Limits[key] <= 0 {
		return res, nil
	}
	res.Allowed = 1
	l.Limits[key]--
	return res, nil
}

// TestRateLimit verifies requests beyond the limit are rejected with 429 and counted.
func TestRateLimit(t *testing.T) {
	m := metrics.NewTestManager()
	limiter := &testRequestRateLimiter{Limits: map[string]int{"login:192.0.2.1": 2}}
	handler := RateLimit(limiter, "login", 2, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if i == 2 && rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After header")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i, codes[i], want[i])
		}
	}
	if got := testutil.ToFloat64(m.CounterRateLimitedRequests); got != 1 {
		t.Errorf("rate limited counter = %v, want 1", got)
	}
}

// TestRateLimitDisabled verifies a nil limiter passes every request through.
func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(nil, "login", 1, metrics.NewTestManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
}
