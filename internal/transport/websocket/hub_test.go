package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

type staticTokens map[string]domain.Claims

func (s staticTokens) ParseToken(_ context.Context, token string) (domain.Claims, error) {
	claims, ok := s[token]
	if !ok {
		return domain.Claims{}, errors.New("bad token")
	}
	return claims, nil
}

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(staticTokens{
		"patient-1": {UserID: "p1", Role: domain.UserRolePatient},
		"patient-2": {UserID: "p2", Role: domain.UserRolePatient},
		"admin":     {UserID: "a1", Role: domain.UserRoleAdmin},
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/appointments", hub.HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/appointments"
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubDeliversToOwnerAndAdmins(t *testing.T) {
	hub, url := newTestHub(t)

	owner := dial(t, url, "patient-1")
	other := dial(t, url, "patient-2")
	admin := dial(t, url, "admin")

	require.Eventually(t, func() bool { return hub.ConnectedClients() == 3 }, 2*time.Second, 10*time.Millisecond)

	at := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	err := hub.Publish(context.Background(), domain.AppointmentEvent{
		Event:               domain.AppointmentEventCancelled,
		AppointmentID:       "ap1",
		PatientID:           "p1",
		DoctorID:            "d1",
		AppointmentDateTime: at,
		Status:              domain.AppointmentStatusCancelled,
		OccurredAt:          at.Add(-time.Hour),
	})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{owner, admin} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageTypeAppointment, msg.Type)
		require.NotNil(t, msg.Event)
		assert.Equal(t, "ap1", msg.Event.AppointmentID)
		assert.Equal(t, domain.AppointmentStatusCancelled, msg.Event.Status)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHubRejectsMissingAndInvalidToken(t *testing.T) {
	_, url := newTestHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubUnregistersClosedClient(t *testing.T) {
	hub, url := newTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=patient-1", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
