package domain

import (
	"time"
)

type AppointmentEventType string

const (
	AppointmentEventBooked      AppointmentEventType = "BOOKED"
	AppointmentEventCancelled   AppointmentEventType = "CANCELLED"
	AppointmentEventCompleted   AppointmentEventType = "COMPLETED"
	AppointmentEventRescheduled AppointmentEventType = "RESCHEDULED"
)

// EventForAction maps a successful transition to the event that announces it.
func EventForAction(action Action) AppointmentEventType {
	switch action {
	case ActionCancel:
		return AppointmentEventCancelled
	case ActionComplete:
		return AppointmentEventCompleted
	default:
		return AppointmentEventRescheduled
	}
}

// AppointmentEvent is published after every successful booking or transition.
// Notification consumers read it from the broker, connected clients receive it
// over the websocket stream.
type AppointmentEvent struct {
	Event               AppointmentEventType `json:"event"`
	AppointmentID       string               `json:"appointment_id"`
	PatientID           string               `json:"patient_id"`
	PatientEmail        string               `json:"patient_email,omitempty"`
	DoctorID            string               `json:"doctor_id"`
	DoctorName          string               `json:"doctor_name,omitempty"`
	AppointmentDateTime time.Time            `json:"appointment_date_time"`
	Status              AppointmentStatus    `json:"status"`
	Appointment         *Appointment         `json:"appointment,omitempty"`
	OccurredAt          time.Time            `json:"occurred_at"`
}

func NewAppointmentEvent(event AppointmentEventType, a *Appointment, now time.Time) AppointmentEvent {
	e := AppointmentEvent{
		Event:               event,
		AppointmentID:       a.ID,
		PatientID:           a.PatientID,
		DoctorID:            a.DoctorID,
		AppointmentDateTime: a.AppointmentDateTime,
		Status:              a.Status,
		Appointment:         a,
		OccurredAt:          now,
	}
	if a.Patient != nil {
		e.PatientEmail = a.Patient.Email
	}
	if a.Doctor != nil {
		e.DoctorName = a.Doctor.Name
	}
	return e
}
