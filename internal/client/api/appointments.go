package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"medbook/internal/domain"
	"medbook/pkg/validator"
)

type AppointmentQuery struct {
	Status    domain.AppointmentStatus
	DoctorID  string
	PatientID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

func (q AppointmentQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.DoctorID != "" {
		v.Set("doctor_id", q.DoctorID)
	}
	if q.PatientID != "" {
		v.Set("patient_id", q.PatientID)
	}
	if !q.From.IsZero() {
		v.Set("date_from", q.From.Format(validator.DateLayout))
	}
	if !q.To.IsZero() {
		v.Set("date_to", q.To.Format(validator.DateLayout))
	}
	setPaging(v, q.Limit, q.Offset)
	return v
}

// Appointments lists the caller's own appointments.
func (c *Client) Appointments(ctx context.Context, q AppointmentQuery) ([]domain.Appointment, Page, error) {
	return c.listAppointments(ctx, "/appointments", q)
}

func (c *Client) Appointment(ctx context.Context, id string) (*domain.Appointment, error) {
	return c.appointment(ctx, http.MethodGet, "/appointments/"+url.PathEscape(id), nil)
}

func (c *Client) BookAppointment(ctx context.Context, req domain.CreateAppointmentDTO) (*domain.Appointment, error) {
	return c.appointment(ctx, http.MethodPost, "/appointments", req)
}

func (c *Client) UpdateAppointment(ctx context.Context, id string, req domain.UpdateAppointmentDTO) (*domain.Appointment, error) {
	return c.appointment(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id), req)
}

func (c *Client) CancelAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	return c.appointment(ctx, http.MethodPatch, "/appointments/"+url.PathEscape(id)+"/cancel", nil)
}

func (c *Client) RescheduleAppointment(ctx context.Context, id string, at time.Time) (*domain.Appointment, error) {
	return c.appointment(ctx, http.MethodPatch, "/appointments/"+url.PathEscape(id)+"/reschedule",
		domain.RescheduleAppointmentDTO{AppointmentDateTime: at})
}

func (c *Client) CompleteAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	return c.appointment(ctx, http.MethodPatch, "/appointments/"+url.PathEscape(id)+"/complete", nil)
}

func (c *Client) appointment(ctx context.Context, method, path string, in interface{}) (*domain.Appointment, error) {
	var appointment domain.Appointment
	if _, err := c.doJSON(ctx, method, path, nil, in, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (c *Client) listAppointments(ctx context.Context, path string, q AppointmentQuery) ([]domain.Appointment, Page, error) {
	var appointments []domain.Appointment
	env, err := c.doJSON(ctx, http.MethodGet, path, q.values(), nil, &appointments)
	if err != nil {
		return nil, Page{}, err
	}
	return appointments, env.Page, nil
}
