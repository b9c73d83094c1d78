// Package backend calls the hosted backend for what the database cannot do
// itself: password sign-in and removal of the auth account.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// DeleteAccountFunction is the edge function that removes the auth user.
const DeleteAccountFunction = "delete-user-account"

var ErrInvalidCredentials = errors.New("invalid email or password")

// Session is the token pair returned by a sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	UserID       string `json:"user_id"`
}

// Client wraps the backend SDK. Edge functions are called over plain HTTP
// because the SDK does not export its function invoker.
type Client struct {
	functionsURL string
	anonKey      string
	sdk          *supabase.Client
	httpClient   *http.Client
	log          *slog.Logger
}

// New connects a client with the project's anonymous key.
func New(url, anonKey string, log *slog.Logger) (*Client, error) {
	sdk, err := supabase.NewClient(url, anonKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	return &Client{
		functionsURL: strings.TrimRight(url, "/") + supabase.FUNCTIONS_URL,
		anonKey:      anonKey,
		sdk:          sdk,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}, nil
}

// SignIn exchanges an email and password for tokens.
func (c *Client) SignIn(email, password string) (*Session, error) {
	resp, err := c.sdk.Auth.Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		if isAuthFailure(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    resp.ExpiresAt,
		UserID:       resp.User.ID.String(),
	}, nil
}

// isAuthFailure reports whether the auth service rejected the credentials
// rather than failing. The SDK reports the status only as
// "response status code N: body".
func isAuthFailure(err error) bool {
	if errors.Is(err, types.ErrInvalidTokenRequest) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "response status code 400") ||
		strings.HasPrefix(msg, "response status code 401") ||
		strings.Contains(msg, `"invalid_grant"`)
}

// DeleteAccount invokes the account removal function as the user holding accessToken.
func (c *Client) DeleteAccount(ctx context.Context, accessToken string) error {
	u := c.functionsURL + "/" + DeleteAccountFunction
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoking %s: %w", DeleteAccountFunction, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: read body: %w", err)
	}

	var out struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return fmt.Errorf("%s returned %d: %s", DeleteAccountFunction, resp.StatusCode, out.Error)
		}
		return fmt.Errorf("%s returned %d", DeleteAccountFunction, resp.StatusCode)
	}
	if out.Error != "" {
		return fmt.Errorf("%s: %s", DeleteAccountFunction, out.Error)
	}
	c.log.Info("auth account deleted")
	return nil
}
