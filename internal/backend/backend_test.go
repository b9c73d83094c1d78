package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/supabase-community/gotrue-go/types"
)

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New(`response status code 400: {"error":"invalid_grant"}`), true},
		{errors.New(`response status code 401`), true},
		{types.ErrInvalidTokenRequest, true},
		{errors.New("dial tcp 10.0.0.1:4000: connection refused"), false},
		{errors.New("response status code 500: request 84003 failed"), false},
		{errors.New("response status code 500"), false},
	}
	for _, tt := range tests {
		if got := isAuthFailure(tt.err); got != tt.want {
			t.Errorf("isAuthFailure(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "anon-key", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// TestDeleteAccount verifies the edge function is called with the user's token and the project key.
func TestDeleteAccount(t *testing.T) {
	var gotPath, gotAuth, gotKey, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	if err := c.DeleteAccount(context.Background(), "user-token"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/functions/v1/delete-user-account" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotKey != "anon-key" {
		t.Errorf("apikey = %q", gotKey)
	}
}

func TestDeleteAccountErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"unauthorized without body", http.StatusUnauthorized, ``},
		{"error in ok body", http.StatusOK, `{"error":"user not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			if err := c.DeleteAccount(context.Background(), "tok"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
