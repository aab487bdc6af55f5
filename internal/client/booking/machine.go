// Package booking keeps the client's list of appointments and moves them
// between statuses through the API. Every action is checked locally first
// with the same rules the server applies, and the server's answer always
// replaces the local copy.
package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"medbook/internal/client/api"
	"medbook/internal/domain"
)

// API is the part of the HTTP client the machine needs.
type API interface {
	Appointments(ctx context.Context, q api.AppointmentQuery) ([]domain.Appointment, api.Page, error)
	AllAppointments(ctx context.Context, q api.AppointmentQuery) ([]domain.Appointment, api.Page, error)
	BookAppointment(ctx context.Context, req domain.CreateAppointmentDTO) (*domain.Appointment, error)
	CancelAppointment(ctx context.Context, id string) (*domain.Appointment, error)
	CompleteAppointment(ctx context.Context, id string) (*domain.Appointment, error)
	RescheduleAppointment(ctx context.Context, id string, at time.Time) (*domain.Appointment, error)
}

const fetchPageSize = 100

type Machine struct {
	mu         sync.RWMutex
	items      map[string]domain.Appointment
	generation uint64

	api    API
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func NewMachine(client API, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		items:  make(map[string]domain.Appointment),
		api:    client,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the local list. Answers to requests sent before the call are
// dropped when they arrive.
func (m *Machine) Load(list []domain.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.items = make(map[string]domain.Appointment, len(list))
	for _, a := range list {
		m.items[a.ID] = a
	}
}

// Reset empties the list, as after a logout.
func (m *Machine) Reset() {
	m.Load(nil)
}

// Fetch loads every appointment visible to the caller. With all set it uses
// the admin listing.
func (m *Machine) Fetch(ctx context.Context, all bool) error {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()

	list := []domain.Appointment{}
	for offset := 0; ; offset += fetchPageSize {
		q := api.AppointmentQuery{Limit: fetchPageSize, Offset: offset}

		var (
			page  []domain.Appointment
			paged api.Page
			err   error
		)
		if all {
			page, paged, err = m.api.AllAppointments(ctx, q)
		} else {
			page, paged, err = m.api.Appointments(ctx, q)
		}
		if err != nil {
			return err
		}

		list = append(list, page...)
		if len(page) < fetchPageSize || offset+len(page) >= paged.TotalCount {
			break
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		m.logger.Debug("список записей заменен во время загрузки, ответ отброшен")
		return nil
	}
	m.generation++
	m.items = make(map[string]domain.Appointment, len(list))
	for _, a := range list {
		m.items[a.ID] = a
	}
	return nil
}

// Book creates a SCHEDULED appointment and adds it to the list.
func (m *Machine) Book(ctx context.Context, doctorID string, at time.Time, reason, notes string) (*domain.Appointment, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, fmt.Errorf("%w: не выбран врач", domain.ErrInvalidInput)
	}
	if err := domain.ValidateSlotTime(at, m.now()); err != nil {
		return nil, err
	}

	gen := m.currentGeneration()
	created, err := m.api.BookAppointment(ctx, domain.CreateAppointmentDTO{
		DoctorID:            doctorID,
		AppointmentDateTime: at,
		Reason:              reason,
		Notes:               notes,
	})
	if err != nil {
		return nil, err
	}

	m.apply(gen, *created)
	return created, nil
}

func (m *Machine) Cancel(ctx context.Context, id string) (*domain.Appointment, error) {
	return m.transition(ctx, id, domain.ActionCancel, func() (*domain.Appointment, error) {
		return m.api.CancelAppointment(ctx, id)
	})
}

// Complete is refused locally while the appointment still lies ahead.
func (m *Machine) Complete(ctx context.Context, id string) (*domain.Appointment, error) {
	return m.transition(ctx, id, domain.ActionComplete, func() (*domain.Appointment, error) {
		return m.api.CompleteAppointment(ctx, id)
	})
}

func (m *Machine) Reschedule(ctx context.Context, id string, at time.Time) (*domain.Appointment, error) {
	if err := domain.ValidateSlotTime(at, m.now()); err != nil {
		return nil, err
	}
	return m.transition(ctx, id, domain.ActionReschedule, func() (*domain.Appointment, error) {
		return m.api.RescheduleAppointment(ctx, id, at)
	})
}

// Reconcile applies an update pushed by the server. It returns false when the
// push is older than the local copy, would revive a cancelled or completed
// appointment, or changes nothing.
func (m *Machine) Reconcile(a domain.Appointment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[a.ID]
	if ok {
		if stale(current, a) {
			m.logger.Debug("устаревшее обновление записи отброшено",
				zap.String("id", a.ID),
				zap.String("status", string(a.Status)))
			return false
		}
		if current.Status == a.Status && current.AppointmentDateTime.Equal(a.AppointmentDateTime) &&
			current.UpdatedAt.Equal(a.UpdatedAt) {
			return false
		}
	}
	m.items[a.ID] = a
	return true
}

func stale(current, pushed domain.Appointment) bool {
	if !pushed.UpdatedAt.IsZero() && pushed.UpdatedAt.Before(current.UpdatedAt) {
		return true
	}
	return current.Status.IsTerminal() && !pushed.Status.IsTerminal()
}

func (m *Machine) Get(id string) (domain.Appointment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	return a, ok
}

// All returns every appointment, earliest first.
func (m *Machine) All() []domain.Appointment {
	return m.filter(func(domain.Appointment) bool { return true }, true)
}

// Upcoming returns scheduled appointments that have not started, earliest first.
func (m *Machine) Upcoming() []domain.Appointment {
	now := m.now()
	return m.filter(func(a domain.Appointment) bool { return a.IsUpcoming(now) }, true)
}

// Past returns everything that is not upcoming, latest first.
func (m *Machine) Past() []domain.Appointment {
	now := m.now()
	return m.filter(func(a domain.Appointment) bool { return !a.IsUpcoming(now) }, false)
}

func (m *Machine) transition(ctx context.Context, id string, action domain.Action, call func() (*domain.Appointment, error)) (*domain.Appointment, error) {
	m.mu.RLock()
	current, ok := m.items[id]
	gen := m.generation
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: запись %s", domain.ErrNotFound, id)
	}
	if err := domain.ValidateTransition(&current, action, m.now()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated, err := call()
	if err != nil {
		m.logger.Debug("действие с записью отклонено",
			zap.String("id", id),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, err
	}

	m.apply(gen, *updated)
	return updated, nil
}

func (m *Machine) apply(gen uint64, a domain.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		m.logger.Debug("ответ для замененного списка отброшен", zap.String("id", a.ID))
		return
	}
	m.items[a.ID] = a
}

func (m *Machine) currentGeneration() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

func (m *Machine) filter(keep func(domain.Appointment) bool, ascending bool) []domain.Appointment {
	m.mu.RLock()
	list := make([]domain.Appointment, 0, len(m.items))
	for _, a := range m.items {
		if keep(a) {
			list = append(list, a)
		}
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		ti, tj := list[i].AppointmentDateTime, list[j].AppointmentDateTime
		if ti.Equal(tj) {
			return list[i].ID < list[j].ID
		}
		if ascending {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
	return list
}
