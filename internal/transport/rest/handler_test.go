package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/service"
	"medbook/internal/transport/websocket"
)

const (
	patientToken = "patient-token"
	adminToken   = "admin-token"
)

type fakeAuth struct {
	service.AuthService
}

func (fakeAuth) ParseToken(_ context.Context, token string) (domain.Claims, error) {
	switch token {
	case patientToken:
		return domain.Claims{UserID: "p1", Role: domain.UserRolePatient}, nil
	case adminToken:
		return domain.Claims{UserID: "a1", Role: domain.UserRoleAdmin}, nil
	}
	return domain.Claims{}, domain.ErrInvalidToken
}

func (fakeAuth) Login(_ context.Context, dto domain.LoginRequest, _, _ string) (*domain.Tokens, error) {
	if dto.Password != "secret123" {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.Tokens{
		AccessToken:  patientToken,
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         domain.Profile{ID: "p1", Email: dto.Email, Role: domain.UserRolePatient},
	}, nil
}

type fakeUsers struct {
	service.UserService
}

func (fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Name: "Иван Петров", Role: domain.UserRolePatient, IsActive: true}, nil
}

func (fakeUsers) UpdateProfile(_ context.Context, id string, dto domain.UpdateProfileDTO) (*domain.User, error) {
	if dto.Name == nil && dto.Phone == nil {
		return nil, domain.ErrInvalidInput
	}
	user := &domain.User{ID: id, Name: "Иван Петров", Role: domain.UserRolePatient, IsActive: true}
	if dto.Name != nil {
		user.Name = *dto.Name
	}
	if dto.Phone != nil {
		user.Phone = *dto.Phone
	}
	return user, nil
}

func (fakeUsers) List(_ context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	return []domain.User{{ID: "p1"}, {ID: "a1"}}, 2, nil
}

type fakeDoctors struct {
	service.DoctorService
	storage bool
}

func (f fakeDoctors) UploadPhoto(_ context.Context, id string, photo []byte, filename string) (string, error) {
	if !f.storage {
		return "", service.ErrStorageUnavailable
	}
	return "http://s3.test/medbook/doctors/" + id + ".png", nil
}

type fakeSchedules struct {
	service.ScheduleService
}

func (fakeSchedules) AvailableSlots(_ context.Context, doctorID, date string) ([]time.Time, error) {
	if date != "2026-03-09" {
		return nil, fmt.Errorf("%w: дата", domain.ErrInvalidInput)
	}
	return []time.Time{time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)}, nil
}

// fakeAppointments keeps appointments in memory and applies the shared transition rules.
type fakeAppointments struct {
	service.AppointmentService
	mu    sync.Mutex
	now   time.Time
	items map[string]*domain.Appointment
	seq   int
}

func (f *fakeAppointments) Book(_ context.Context, actor domain.Claims, dto domain.CreateAppointmentDTO) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := domain.ValidateSlotTime(dto.AppointmentDateTime, f.now); err != nil {
		return nil, err
	}
	for _, a := range f.items {
		if a.DoctorID == dto.DoctorID && a.AppointmentDateTime.Equal(dto.AppointmentDateTime) && a.Status != domain.AppointmentStatusCancelled {
			return nil, domain.ErrSlotUnavailable
		}
	}
	f.seq++
	a := &domain.Appointment{
		ID:                  fmt.Sprintf("ap%d", f.seq),
		DoctorID:            dto.DoctorID,
		PatientID:           actor.UserID,
		AppointmentDateTime: dto.AppointmentDateTime,
		Status:              domain.AppointmentStatusScheduled,
		Reason:              dto.Reason,
	}
	f.items[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAppointments) transition(actor domain.Claims, id string, action domain.Action) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if actor.Role != domain.UserRoleAdmin && a.PatientID != actor.UserID {
		return nil, domain.ErrForbidden
	}
	if err := domain.ValidateTransition(a, action, f.now); err != nil {
		return nil, err
	}
	a.Status = domain.TargetStatus(action)
	cp := *a
	return &cp, nil
}

func (f *fakeAppointments) Cancel(_ context.Context, actor domain.Claims, id string) (*domain.Appointment, error) {
	return f.transition(actor, id, domain.ActionCancel)
}

func (f *fakeAppointments) Complete(_ context.Context, actor domain.Claims, id string) (*domain.Appointment, error) {
	return f.transition(actor, id, domain.ActionComplete)
}

func (f *fakeAppointments) List(_ context.Context, actor domain.Claims, filter domain.AppointmentFilter) ([]domain.Appointment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []domain.Appointment{}
	for _, a := range f.items {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		list = append(list, *a)
	}
	return list, len(list), nil
}

type testServer struct {
	router       *gin.Engine
	appointments *fakeAppointments
	now          time.Time
}

func newTestServer(t *testing.T, withStorage bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	appointments := &fakeAppointments{now: now, items: map[string]*domain.Appointment{}}
	services := &service.Services{
		Auth:        fakeAuth{},
		User:        fakeUsers{},
		Doctor:      fakeDoctors{storage: withStorage},
		Schedule:    fakeSchedules{},
		Appointment: appointments,
	}

	cfg := &config.Config{RateLimit: config.RateLimitConfig{RPS: 0.001, Burst: 2}}
	logger := zap.NewNop()
	hub := websocket.NewHub(services.Auth, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := gin.New()
	NewHandler(services, logger, cfg, hub).InitRoutes(ctx, router)

	return &testServer{router: router, appointments: appointments, now: now}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var body struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "success", body.Status)
	require.NoError(t, json.Unmarshal(body.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponseBody {
	t.Helper()
	var body errorResponseBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", decodeError(t, w).Status)

	w = s.do(http.MethodGet, "/api/v1/users/me", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/users/me", patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user domain.User
	decodeData(t, w, &user)
	assert.Equal(t, "p1", user.ID)
}

func TestUpdateOwnProfile(t *testing.T) {
	s := newTestServer(t, false)
	name := "Иван Сидоров"

	w := s.do(http.MethodPut, "/api/v1/users/me", "", domain.UpdateProfileDTO{Name: &name})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPut, "/api/v1/users/me", patientToken, domain.UpdateProfileDTO{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	var user domain.User
	decodeData(t, w, &user)
	assert.Equal(t, "p1", user.ID)
	assert.Equal(t, name, user.Name)

	w = s.do(http.MethodPut, "/api/v1/users/me", patientToken, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the admin-only route stays closed to patients
	w = s.do(http.MethodPut, "/api/v1/users/p1", patientToken, domain.UpdateUserDTO{Name: &name})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutesRejectPatients(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/api/v1/users", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/appointments", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page paginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "success", page.Status)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "ivan@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, domain.ErrInvalidCredentials.Error(), decodeError(t, w).Message)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "ivan@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var tokens domain.Tokens
	decodeData(t, w, &tokens)
	assert.Equal(t, patientToken, tokens.AccessToken)
	assert.Equal(t, domain.UserRolePatient, tokens.User.Role)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "ivan@example.com", Password: "secret123"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestAppointmentLifecycle(t *testing.T) {
	s := newTestServer(t, false)
	at := s.now.Add(time.Hour)

	w := s.do(http.MethodPost, "/api/v1/appointments", patientToken, domain.CreateAppointmentDTO{
		DoctorID: "d1", AppointmentDateTime: at, Reason: "Кашель",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var booked domain.Appointment
	decodeData(t, w, &booked)
	assert.Equal(t, domain.AppointmentStatusScheduled, booked.Status)
	assert.Equal(t, "p1", booked.PatientID)

	w = s.do(http.MethodPost, "/api/v1/appointments", patientToken, domain.CreateAppointmentDTO{
		DoctorID: "d1", AppointmentDateTime: at,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/appointments", patientToken, domain.CreateAppointmentDTO{
		DoctorID: "d1", AppointmentDateTime: s.now.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID+"/complete", patientToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID+"/complete", adminToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID+"/cancel", patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled domain.Appointment
	decodeData(t, w, &cancelled)
	assert.Equal(t, domain.AppointmentStatusCancelled, cancelled.Status)

	w = s.do(http.MethodPatch, "/api/v1/appointments/"+booked.ID+"/cancel", patientToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPatch, "/api/v1/appointments/missing/cancel", patientToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/appointments?limit=10", patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page paginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 10, page.PageSize)
}

func TestAppointmentListRejectsBadFilter(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/api/v1/appointments?status=ARCHIVED", patientToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/appointments?date_from=09.03.2026", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailableSlots(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodGet, "/api/v1/doctors/d1/available-slots", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/doctors/d1/available-slots?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/doctors/d1/available-slots?date=2026-03-09", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp availableSlotsResponse
	decodeData(t, w, &resp)
	assert.Equal(t, "d1", resp.DoctorID)
	require.Len(t, resp.Slots, 1)
	assert.True(t, resp.Slots[0].Equal(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)))
}

func multipartPhoto(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "doctor.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadDoctorPhoto(t *testing.T) {
	for _, tc := range []struct {
		name    string
		storage bool
		want    int
	}{
		{"stored", true, http.StatusOK},
		{"no storage", false, http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.storage)
			body, contentType := multipartPhoto(t)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors/d1/photo", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+adminToken)
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			require.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				var resp photoResponse
				decodeData(t, w, &resp)
				assert.Contains(t, resp.ProfileImageURL, "/doctors/d1")
			}
		})
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: чужая запись", domain.ErrForbidden), http.StatusForbidden},
		{domain.ErrInactiveUser, http.StatusForbidden},
		{domain.ErrTerminalState, http.StatusConflict},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrSlotUnavailable, http.StatusConflict},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrCompleteInFuture, http.StatusUnprocessableEntity},
		{domain.ErrTimeInPast, http.StatusUnprocessableEntity},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFromError(tt.err), tt.err.Error())
	}
}
