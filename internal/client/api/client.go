// Package api is the HTTP client of the MedBook REST API. It attaches the
// session's access token, renews it shortly before expiry and ends the
// session when the server rejects it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"medbook/internal/client/session"
)

// LoginRoute is where the user is sent after the session is lost.
const LoginRoute = "/login"

var ErrUnauthorized = errors.New("сессия истекла, войдите снова")

// RedirectError is returned when the server rejected the session. The local
// session has already been cleared when it is returned.
type RedirectError struct {
	Target string
	Err    error
}

func (e *RedirectError) Error() string {
	return e.Err.Error()
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Page describes one page of a paginated list.
type Page struct {
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Page
}

type Client struct {
	baseURL string
	http    *http.Client
	store   *session.Store
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func NewClient(baseURL string, store *session.Store, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() *session.Store {
	return c.store
}

// doJSON sends in as the JSON body and decodes the data field into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out interface{}) (*envelope, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	env, err := c.send(ctx, method, path, query, body, contentType)
	if err != nil {
		return nil, err
	}

	if err := decodeData(env, out); err != nil {
		return nil, err
	}
	return env, nil
}

func decodeData(env *envelope, out interface{}) error {
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("ошибка разбора ответа сервера: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*envelope, error) {
	public := isPublicPath(path)
	if !public {
		c.refreshIfNeeded(ctx)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.store.AccessToken(); token != "" && !public {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("сервер недоступен", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("ошибка соединения с сервером: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа сервера: %w", err)
	}

	env := &envelope{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("ошибка разбора ответа сервера: %w", err)
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && !public {
		c.logger.Info("сервер отклонил сессию", zap.String("path", path))
		if err := c.store.Logout(); err != nil {
			c.logger.Warn("не удалось очистить сессию", zap.Error(err))
		}
		return nil, &RedirectError{Target: LoginRoute, Err: ErrUnauthorized}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("ошибка запроса",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	return env, nil
}

// refreshIfNeeded renews the access token when it is about to expire. A
// failed renewal is only logged, the request then goes out with the old token.
func (c *Client) refreshIfNeeded(ctx context.Context) {
	if !c.store.ShouldRefresh() || c.store.RefreshToken() == "" {
		return
	}
	if err := c.RefreshSession(ctx); err != nil {
		c.logger.Warn("не удалось обновить токен доступа", zap.Error(err))
	}
}

// isPublicPath lists the calls that must not carry or renew a session.
func isPublicPath(path string) bool {
	switch path {
	case "/auth/login", "/auth/register", "/auth/refresh", "/auth/logout":
		return true
	}
	return false
}
