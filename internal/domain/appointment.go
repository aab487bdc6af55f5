package domain

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted   AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled   AppointmentStatus = "CANCELLED"
	AppointmentStatusRescheduled AppointmentStatus = "RESCHEDULED"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

type DoctorSnapshot struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

type PatientSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Appointment struct {
	ID                  string            `json:"id"`
	DoctorID            string            `json:"doctor_id"`
	PatientID           string            `json:"patient_id"`
	AppointmentDateTime time.Time         `json:"appointment_date_time"`
	Status              AppointmentStatus `json:"status"`
	Reason              string            `json:"reason,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	Doctor              *DoctorSnapshot   `json:"doctor,omitempty"`
	Patient             *PatientSnapshot  `json:"patient,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsUpcoming is true for a scheduled appointment that has not started yet.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == AppointmentStatusScheduled && a.AppointmentDateTime.After(now)
}

type CreateAppointmentDTO struct {
	DoctorID            string    `json:"doctor_id" binding:"required"`
	AppointmentDateTime time.Time `json:"appointment_date_time" binding:"required"`
	Reason              string    `json:"reason"`
	Notes               string    `json:"notes"`
}

type UpdateAppointmentDTO struct {
	Reason *string `json:"reason"`
	Notes  *string `json:"notes"`
}

type RescheduleAppointmentDTO struct {
	AppointmentDateTime time.Time `json:"appointment_date_time" binding:"required"`
}

type AppointmentFilter struct {
	PatientID *string            `json:"patient_id"`
	DoctorID  *string            `json:"doctor_id"`
	Status    *AppointmentStatus `json:"status"`
	StartDate *time.Time         `json:"start_date"`
	EndDate   *time.Time         `json:"end_date"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}
