package mangadex

import (
	"context"
	"errors"
	"fmt"
)

// TokenPair is what the auth endpoints return. Refresh is empty when the
// server did not rotate the refresh token.
type TokenPair struct {
	Session string
	Refresh string
}

// Login exchanges username and password for a session.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var resp tokenResponse
	if err := c.api.Post(ctx, "/auth/login", body, "", &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return toTokenPair(resp)
}

// Refresh exchanges a refresh token for a new session token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var resp tokenResponse
	if err := c.api.Post(ctx, "/auth/refresh", map[string]string{"token": refreshToken}, "", &resp); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return toTokenPair(resp)
}

func toTokenPair(resp tokenResponse) (*TokenPair, error) {
	if resp.Token.Session == "" {
		return nil, errors.New("auth response carried no session token")
	}
	return &TokenPair{Session: resp.Token.Session, Refresh: resp.Token.Refresh}, nil
}
