package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

const streamMessageAppointment = "appointment"

type streamMessage struct {
	Type  string                   `json:"type"`
	Event *domain.AppointmentEvent `json:"event"`
}

// Subscribe opens the appointment update stream. The returned channel is
// closed when ctx is done or the server drops the connection.
func (c *Client) Subscribe(ctx context.Context) (<-chan domain.AppointmentEvent, error) {
	c.refreshIfNeeded(ctx)

	token := c.store.AccessToken()
	if token == "" {
		return nil, &RedirectError{Target: LoginRoute, Err: ErrUnauthorized}
	}

	endpoint, err := c.streamURL(token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			if err := c.store.Logout(); err != nil {
				c.logger.Warn("не удалось очистить сессию", zap.Error(err))
			}
			return nil, &RedirectError{Target: LoginRoute, Err: ErrUnauthorized}
		}
		return nil, fmt.Errorf("ошибка подключения к потоку событий: %w", err)
	}

	events := make(chan domain.AppointmentEvent, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warn("поток событий прерван", zap.Error(err))
				}
				return
			}

			var msg streamMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.logger.Warn("некорректное сообщение в потоке событий", zap.Error(err))
				continue
			}
			if msg.Type != streamMessageAppointment || msg.Event == nil {
				continue
			}

			select {
			case events <- *msg.Event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// streamURL turns http://host/api/v1 into ws://host/ws/appointments.
func (c *Client) streamURL(token string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("некорректный адрес API: %w", err)
	}

	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/api/v1") + "/ws/appointments"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	return u.String(), nil
}
