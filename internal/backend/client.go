// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	xerrors "duka-admin/internal/pkg/errors"

	"go.uber.org/zap"
)

// Client is the gateway's only path to the POS backend. It attaches the
// bearer credential, speaks JSON unless the body is multipart, and converts
// HTTP failures into the error taxonomy the session layer understands. It
// performs exactly one fetch per call: no retries, no recovery.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

func NewClient(base string, logger *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimSuffix(base, "/"),
		http:   &http.Client{},
		logger: logger,
	}
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.base
}

type errorPayload struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a bearer token. A rejected login surfaces
// the backend's message wrapped in ErrAuthentication; a transport failure
// surfaces ErrNetwork.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", xerrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		if msg == "" {
			msg = xerrors.ErrAuthentication.Error()
		}
		return "", fmt.Errorf("%w: %s", xerrors.ErrAuthentication, msg)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("%w: backend returned no token", xerrors.ErrAuthentication)
	}
	return payload.Token, nil
}

// Me fetches the current-user profile as a raw payload for the normalizer.
// A 401 surfaces ErrUnauthorized so the caller tears the session down.
func (c *Client) Me(ctx context.Context, token string) (map[string]any, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode user payload: %w", err)
	}
	return raw, nil
}

// ChangePassword submits a password change for the current user.
func (c *Client) ChangePassword(ctx context.Context, token, current, updated string) error {
	body, _ := json.Marshal(map[string]string{
		"current_password": current,
		"new_password":     updated,
	})
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/change-password", token, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// RequestPasswordReset asks the backend to start a password reset.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body, _ := json.Marshal(map[string]string{"email": email})
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", "", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ResetPassword completes a password reset with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body, _ := json.Marshal(map[string]string{"token": resetToken, "new_password": newPassword})
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/reset-password", "", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Forward relays an inbound console request to the backend verbatim, with the
// session's bearer credential attached. The caller owns the response body.
func (c *Client) Forward(ctx context.Context, token string, r *http.Request) (*http.Response, error) {
	target := c.base + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to build forwarded request: %w", err)
	}
	applyHeaders(req, token, r.Header.Get("Content-Type"))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrNetwork, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, xerrors.ErrUnauthorized
	}
	return resp, nil
}

// do issues a request and maps the response status into the error taxonomy.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	applyHeaders(req, token, contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		return nil, xerrors.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg := readErrorMessage(resp.Body)
		resp.Body.Close()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("backend request failed: %s", msg)
	}
	return resp, nil
}

// applyHeaders attaches the bearer credential and a JSON content type. A
// multipart body keeps its own content type: overriding it would destroy the
// boundary parameter.
func applyHeaders(req *http.Request, token, contentType string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if strings.HasPrefix(contentType, "multipart/") {
		req.Header.Set("Content-Type", contentType)
		return
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		return
	}
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

func readErrorMessage(body io.Reader) string {
	var payload errorPayload
	if err := json.NewDecoder(io.LimitReader(body, 1<<16)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}
