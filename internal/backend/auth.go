package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"aistudio/internal/types"
)

// AuthResponse is the reply of /api/auth/login and /api/auth/register.
// Success with a missing User or SessionToken is a degraded reply the
// caller must not treat as a session.
type AuthResponse struct {
	Success      bool               `json:"success"`
	User         *types.UserProfile `json:"user,omitempty"`
	SessionToken string             `json:"sessionToken,omitempty"`
	Message      string             `json:"message,omitempty"`
	UserID       string             `json:"userId,omitempty"`
}

// Complete reports whether the reply carries everything a session needs.
func (r AuthResponse) Complete() bool {
	return r.Success && r.User != nil && r.User.Username != "" && r.SessionToken != ""
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// Validate asks whether token is still live. Any error (transport, non-2xx,
// bad body) is returned as is; callers fail closed on it.
func (c *Client) Validate(ctx context.Context, token string) (bool, error) {
	var out validateResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/validate", token, nil, "", &out); err != nil {
		return false, fmt.Errorf("validate session: %w", err)
	}
	return out.Valid, nil
}

// Login submits username and password.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (AuthResponse, error) {
	body := map[string]string{"username": creds.Username, "password": creds.Password}
	return c.authenticate(ctx, "/api/auth/login", body)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, creds types.Credentials) (AuthResponse, error) {
	body := map[string]string{"username": creds.Username, "email": creds.Email, "password": creds.Password}
	return c.authenticate(ctx, "/api/auth/register", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (AuthResponse, error) {
	var out AuthResponse
	err := c.postJSON(ctx, path, "", body, &out)

	// A rejected login is commonly a 401 with {success:false, message}.
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return AuthResponse{Success: false, Message: statusErr.Message}, nil
	}
	if err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// Logout invalidates token server-side. The reply body is ignored.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, "", nil)
}
