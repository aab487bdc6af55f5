package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medbook/internal/client/session"
	"medbook/internal/domain"
)

var testUser = domain.Profile{ID: "p1", Name: "Иван Петров", Email: "ivan@example.com", Role: domain.UserRolePatient}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "p1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func success(data interface{}) map[string]interface{} {
	return map[string]interface{}{"status": "success", "data": data}
}

func failure(status int, msg string) map[string]interface{} {
	return map[string]interface{}{"status": "error", "message": msg, "code": status}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore(&session.MemoryPersister{}, zap.NewNop())
	return NewClient(srv.URL+"/api/v1", store, zap.NewNop()), store
}

func TestLoginStoresSession(t *testing.T) {
	access := token(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, r.Header.Get("Authorization"))
		if req.Password != "secret123" {
			writeJSON(w, http.StatusUnauthorized, failure(http.StatusUnauthorized, "неверный email или пароль"))
			return
		}
		writeJSON(w, http.StatusOK, success(domain.Tokens{AccessToken: access, RefreshToken: "r1", User: testUser}))
	})
	client, store := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "ivan@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, errors.Is(err, ErrUnauthorized), "bad credentials are not a lost session")
	assert.Equal(t, "неверный email или пароль", store.Snapshot().Error)
	assert.False(t, store.IsAuthenticated())

	_, err = client.Login(context.Background(), "ivan@example.com", "secret123")
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, access, snap.AccessToken)
	assert.Equal(t, "r1", snap.RefreshToken)
	assert.Equal(t, domain.UserRolePatient, snap.User.Role)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.Loading)
}

func TestUnauthorizedEndsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, failure(http.StatusUnauthorized, "недействительный токен"))
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(token(t, time.Now().Add(time.Hour)), "r1", testUser))

	_, _, err := client.Appointments(context.Background(), AppointmentQuery{})
	require.ErrorIs(t, err, ErrUnauthorized)

	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, LoginRoute, redirect.Target)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.AccessToken())
}

func TestRequestsCarryBearerToken(t *testing.T) {
	access := token(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, success(domain.User{ID: "p1", Role: domain.UserRolePatient}))
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(access, "r1", testUser))

	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p1", user.ID)
}

func TestUpdateProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var req domain.UpdateProfileDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Phone)
		assert.Nil(t, req.Name)
		writeJSON(w, http.StatusOK, success(domain.User{ID: "p1", Phone: *req.Phone}))
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(token(t, time.Now().Add(time.Hour)), "r1", testUser))

	phone := "+79123456789"
	user, err := client.UpdateProfile(context.Background(), domain.UpdateProfileDTO{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, user.Phone)
}

func TestRefreshBeforeExpiringRequest(t *testing.T) {
	fresh := token(t, time.Now().Add(time.Hour))
	var refreshed int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req domain.RefreshTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "r1", req.RefreshToken)
		refreshed++
		writeJSON(w, http.StatusOK, success(domain.AccessToken{AccessToken: fresh, ExpiresAt: time.Now().Add(time.Hour).Unix()}))
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, success(domain.User{ID: "p1"}))
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(token(t, time.Now().Add(2*time.Minute)), "r1", testUser))

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, fresh, store.AccessToken())
	assert.Equal(t, "r1", store.RefreshToken())
	assert.False(t, store.ShouldRefresh())
}

func TestRefreshFailureDoesNotBlockRequest(t *testing.T) {
	stale := token(t, time.Now().Add(2*time.Minute))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, failure(http.StatusUnauthorized, "недействительный токен"))
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+stale, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, success(domain.User{ID: "p1"}))
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(stale, "r1", testUser))

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.True(t, store.IsAuthenticated())
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/appointments/a1/cancel", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		writeJSON(w, http.StatusConflict, failure(http.StatusConflict, "запись уже завершена или отменена"))
	})
	mux.HandleFunc("/api/v1/doctors/d1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(token(t, time.Now().Add(time.Hour)), "r1", testUser))

	_, err := client.CancelAppointment(context.Background(), "a1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "запись уже завершена или отменена", err.Error())
	assert.True(t, store.IsAuthenticated())

	_, err = client.Doctor(context.Background(), "d1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestPaginatedList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/doctors", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Терапевт", r.URL.Query().Get("specialization"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "success",
			"data":        []domain.Doctor{{ID: "d1", Name: "Анна Смирнова"}},
			"total_count": 11,
			"page":        1,
			"page_size":   10,
			"total_pages": 2,
		})
	})
	client, _ := newTestClient(t, mux)

	doctors, page, err := client.Doctors(context.Background(), DoctorQuery{Specialization: "Терапевт", Limit: 10})
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, 11, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
}

func TestAvailableSlots(t *testing.T) {
	slot := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/doctors/d1/available-slots", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-03-09", r.URL.Query().Get("date"))
		writeJSON(w, http.StatusOK, success(map[string]interface{}{"doctor_id": "d1", "date": "2026-03-09", "slots": []time.Time{slot}}))
	})
	client, _ := newTestClient(t, mux)

	slots, err := client.AvailableSlots(context.Background(), "d1", "2026-03-09")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Equal(slot))
}

func TestLogoutClearsLocalSessionWhenServerFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(token(t, time.Now().Add(time.Hour)), "r1", testUser))

	require.NoError(t, client.Logout(context.Background()))
	assert.False(t, store.IsAuthenticated())
}

func TestUploadDoctorPhoto(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/doctors/d1/photo", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "doctor.png", header.Filename)
		writeJSON(w, http.StatusOK, success(map[string]string{"profile_image_url": "http://s3.test/medbook/doctors/x.png"}))
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(token(t, time.Now().Add(time.Hour)), "r1", testUser))

	url, err := client.UploadDoctorPhoto(context.Background(), "d1", "doctor.png", strings.NewReader("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://s3.test/medbook/doctors/x.png", url)
}

func TestStreamURL(t *testing.T) {
	c := NewClient("https://clinic.example/api/v1/", nil, zap.NewNop())
	u, err := c.streamURL("abc")
	require.NoError(t, err)
	assert.Equal(t, "wss://clinic.example/ws/appointments?token=abc", u)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	access := token(t, time.Now().Add(time.Hour))
	upgrader := websocket.Upgrader{}
	var wg sync.WaitGroup
	wg.Add(1)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != access {
			writeJSON(w, http.StatusUnauthorized, failure(http.StatusUnauthorized, "недействительный токен"))
			return
		}
		defer wg.Done()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(map[string]interface{}{"type": "ping-like"})
		_ = conn.WriteJSON(map[string]interface{}{
			"type": "appointment",
			"event": domain.AppointmentEvent{
				Event:         domain.AppointmentEventCancelled,
				AppointmentID: "a1",
				PatientID:     "p1",
				Status:        domain.AppointmentStatusCancelled,
			},
		})
		// wait for the client to hang up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	client, store := newTestClient(t, mux)
	require.NoError(t, store.Login(access, "r1", testUser))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := client.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "a1", ev.AppointmentID)
		assert.Equal(t, domain.AppointmentStatusCancelled, ev.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	for range events {
	}
	wg.Wait()
}

func TestSubscribeWithoutSession(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	_, err := client.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
