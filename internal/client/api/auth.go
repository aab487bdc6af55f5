package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"medbook/internal/domain"
)

// Login checks the credentials and starts a session in the store.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Tokens, error) {
	c.store.SetLoading(true)
	defer c.store.SetLoading(false)

	var tokens domain.Tokens
	_, err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, domain.LoginRequest{
		Email:    email,
		Password: password,
	}, &tokens)
	if err != nil {
		c.store.SetError(err.Error())
		return nil, err
	}

	if err := c.store.Login(tokens.AccessToken, tokens.RefreshToken, tokens.User); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Profile, error) {
	var profile domain.Profile
	if _, err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// RefreshSession exchanges the refresh token for a new access token.
func (c *Client) RefreshSession(ctx context.Context) error {
	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		return ErrUnauthorized
	}

	var token domain.AccessToken
	_, err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", nil, domain.RefreshTokenRequest{
		RefreshToken: refreshToken,
	}, &token)
	if err != nil {
		return err
	}

	return c.store.Refresh(token.AccessToken, token.ExpiresAt)
}

// Logout ends the session on the server when possible and always clears the
// local one.
func (c *Client) Logout(ctx context.Context) error {
	if refreshToken := c.store.RefreshToken(); refreshToken != "" {
		_, err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, domain.RefreshTokenRequest{
			RefreshToken: refreshToken,
		}, nil)
		var apiErr *APIError
		if err != nil && !errors.As(err, &apiErr) {
			c.logger.Warn("не удалось завершить сессию на сервере", zap.Error(err))
		}
	}
	return c.store.Logout()
}

// UpdateProfile changes the signed-in user's name and phone.
func (c *Client) UpdateProfile(ctx context.Context, req domain.UpdateProfileDTO) (*domain.User, error) {
	var user domain.User
	if _, err := c.doJSON(ctx, http.MethodPut, "/users/me", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if _, err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
