package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/repository"
)

type memStore struct {
	mu           sync.Mutex
	seq          int
	users        map[string]*domain.User
	sessions     map[string]domain.Session
	doctors      map[string]*domain.Doctor
	schedules    map[string]*domain.Schedule
	appointments map[string]*domain.Appointment
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*domain.User{},
		sessions:     map[string]domain.Session{},
		doctors:      map[string]*domain.Doctor{},
		schedules:    map[string]*domain.Schedule{},
		appointments: map[string]*domain.Appointment{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		User:        &fakeUserRepo{m},
		Auth:        &fakeAuthRepo{m},
		Doctor:      &fakeDoctorRepo{m},
		Schedule:    &fakeScheduleRepo{m},
		Appointment: &fakeAppointmentRepo{m},
	}
}

type fakeUserRepo struct{ m *memStore }

func (r *fakeUserRepo) Create(_ context.Context, dto domain.CreateUserDTO) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == dto.Email {
			return "", domain.ErrAlreadyExists
		}
	}
	id := r.m.nextID("u")
	r.m.users[id] = &domain.User{
		ID: id, Name: dto.Name, Email: dto.Email, Phone: dto.Phone,
		PasswordHash: dto.Password, Role: dto.Role, IsActive: true,
	}
	return id, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, id string, dto domain.UpdateUserDTO) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Email != nil {
		u.Email = *dto.Email
	}
	if dto.Phone != nil {
		u.Phone = *dto.Phone
	}
	if dto.Role != nil {
		u.Role = *dto.Role
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, filter domain.UserFilter) ([]domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	users := []domain.User{}
	for _, u := range r.m.users {
		if filter.Role == nil || u.Role == *filter.Role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *fakeUserRepo) CountByFilter(ctx context.Context, filter domain.UserFilter) (int, error) {
	users, err := r.List(ctx, filter)
	return len(users), err
}

type fakeAuthRepo struct{ m *memStore }

func (r *fakeAuthRepo) CreateSession(_ context.Context, session domain.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.sessions[session.ID] = session
	return nil
}

func (r *fakeAuthRepo) GetSessionByRefreshHash(_ context.Context, hash string) (*domain.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.sessions {
		if s.RefreshHash == hash {
			cp := s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAuthRepo) DeleteSession(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.sessions, id)
	return nil
}

func (r *fakeAuthRepo) DeleteSessionsByUserID(_ context.Context, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, s := range r.m.sessions {
		if s.UserID == userID {
			delete(r.m.sessions, id)
		}
	}
	return nil
}

func (r *fakeAuthRepo) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, s := range r.m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.m.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeDoctorRepo struct{ m *memStore }

func (r *fakeDoctorRepo) Create(_ context.Context, dto domain.CreateDoctorDTO) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id := r.m.nextID("d")
	r.m.doctors[id] = &domain.Doctor{
		ID: id, Name: dto.Name, Specialization: dto.Specialization,
		Qualification: dto.Qualification, Experience: dto.Experience, Bio: dto.Bio, IsActive: true,
	}
	return id, nil
}

func (r *fakeDoctorRepo) GetByID(_ context.Context, id string) (*domain.Doctor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.doctors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDoctorRepo) Update(_ context.Context, id string, dto domain.UpdateDoctorDTO) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.doctors[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.Name != nil {
		d.Name = *dto.Name
	}
	if dto.Specialization != nil {
		d.Specialization = *dto.Specialization
	}
	if dto.Bio != nil {
		d.Bio = *dto.Bio
	}
	if dto.IsActive != nil {
		d.IsActive = *dto.IsActive
	}
	return nil
}

func (r *fakeDoctorRepo) Delete(ctx context.Context, id string) error {
	inactive := false
	return r.Update(ctx, id, domain.UpdateDoctorDTO{IsActive: &inactive})
}

func (r *fakeDoctorRepo) List(_ context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	doctors := []domain.Doctor{}
	for _, d := range r.m.doctors {
		if filter.Specialization != nil && d.Specialization != *filter.Specialization {
			continue
		}
		doctors = append(doctors, *d)
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })
	return doctors, nil
}

func (r *fakeDoctorRepo) CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error) {
	doctors, err := r.List(ctx, filter)
	return len(doctors), err
}

func (r *fakeDoctorRepo) ListSpecializations(context.Context) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	seen := map[string]bool{}
	var specs []string
	for _, d := range r.m.doctors {
		if !seen[d.Specialization] {
			seen[d.Specialization] = true
			specs = append(specs, d.Specialization)
		}
	}
	sort.Strings(specs)
	return specs, nil
}

func (r *fakeDoctorRepo) UpdateProfileImage(_ context.Context, id string, url string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.doctors[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.ProfileImageURL = url
	return nil
}

type fakeScheduleRepo struct{ m *memStore }

func (r *fakeScheduleRepo) Create(_ context.Context, doctorID string, dto domain.CreateScheduleDTO) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id := r.m.nextID("s")
	r.m.schedules[id] = &domain.Schedule{
		ID: id, DoctorID: doctorID, DayOfWeek: *dto.DayOfWeek,
		StartTime: dto.StartTime, EndTime: dto.EndTime, SlotDurationMinutes: dto.SlotDurationMinutes,
	}
	return id, nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id string) (*domain.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeScheduleRepo) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.schedules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.schedules, id)
	return nil
}

func (r *fakeScheduleRepo) ListByDoctor(_ context.Context, doctorID string) ([]domain.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var list []domain.Schedule
	for _, s := range r.m.schedules {
		if s.DoctorID == doctorID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func (r *fakeScheduleRepo) ListByDoctorAndDay(ctx context.Context, doctorID string, day time.Weekday) ([]domain.Schedule, error) {
	all, _ := r.ListByDoctor(ctx, doctorID)
	var list []domain.Schedule
	for _, s := range all {
		if s.DayOfWeek == day {
			list = append(list, s)
		}
	}
	return list, nil
}

type fakeAppointmentRepo struct{ m *memStore }

func (r *fakeAppointmentRepo) Create(_ context.Context, patientID string, dto domain.CreateAppointmentDTO) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.appointments {
		if a.DoctorID == dto.DoctorID && a.AppointmentDateTime.Equal(dto.AppointmentDateTime) && a.Status != domain.AppointmentStatusCancelled {
			return "", domain.ErrSlotUnavailable
		}
	}
	id := r.m.nextID("a")
	r.m.appointments[id] = &domain.Appointment{
		ID: id, DoctorID: dto.DoctorID, PatientID: patientID,
		AppointmentDateTime: dto.AppointmentDateTime, Status: domain.AppointmentStatusScheduled,
		Reason: dto.Reason, Notes: dto.Notes,
	}
	return id, nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.appointments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	if d, ok := r.m.doctors[a.DoctorID]; ok {
		snap := d.Snapshot()
		cp.Doctor = &snap
	}
	if u, ok := r.m.users[a.PatientID]; ok {
		cp.Patient = &domain.PatientSnapshot{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, id string, dto domain.UpdateAppointmentDTO) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.appointments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if dto.Reason != nil {
		a.Reason = *dto.Reason
	}
	if dto.Notes != nil {
		a.Notes = *dto.Notes
	}
	return nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id string, status domain.AppointmentStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.appointments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != domain.AppointmentStatusScheduled {
		return domain.ErrInvalidTransition
	}
	a.Status = status
	return nil
}

func (r *fakeAppointmentRepo) Reschedule(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.appointments[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, other := range r.m.appointments {
		if other.ID != id && other.DoctorID == a.DoctorID && other.AppointmentDateTime.Equal(at) && other.Status != domain.AppointmentStatusCancelled {
			return domain.ErrSlotUnavailable
		}
	}
	a.AppointmentDateTime = at
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	list := []domain.Appointment{}
	for _, a := range r.m.appointments {
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AppointmentDateTime.After(list[j].AppointmentDateTime) })
	return list, nil
}

func (r *fakeAppointmentRepo) CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error) {
	list, err := r.List(ctx, filter)
	return len(list), err
}

func (r *fakeAppointmentRepo) BookedTimes(_ context.Context, doctorID string, from, to time.Time) ([]time.Time, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var booked []time.Time
	for _, a := range r.m.appointments {
		t := a.AppointmentDateTime
		if a.DoctorID == doctorID && a.Status != domain.AppointmentStatusCancelled && !t.Before(from) && t.Before(to) {
			booked = append(booked, t)
		}
	}
	return booked, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AppointmentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.AppointmentEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.AppointmentEventType
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SigningKey:      "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

type testEnv struct {
	store    *memStore
	services *Services
	events   *recordingPublisher
	now      time.Time
}

// newTestEnv wires services over the in-memory store with a frozen clock.
func newTestEnv(now time.Time) *testEnv {
	store := newMemStore()
	publisher := &recordingPublisher{}
	services := NewServices(Deps{
		Repos:    store.repositories(),
		Logger:   zap.NewNop(),
		Config:   testConfig(),
		Events:   publisher,
		Location: time.UTC,
	})

	clock := func() time.Time { return now }
	services.Auth.(*AuthServiceImpl).now = clock
	services.Schedule.(*ScheduleServiceImpl).now = clock
	services.Appointment.(*AppointmentServiceImpl).now = clock

	return &testEnv{store: store, services: services, events: publisher, now: now}
}
