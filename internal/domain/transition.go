package domain

import (
	"fmt"
	"time"
)

// Action is a patient or admin request that moves an appointment between states.
type Action string

const (
	ActionCancel     Action = "cancel"
	ActionComplete   Action = "complete"
	ActionReschedule Action = "reschedule"
)

// ValidateTransition decides whether action may be applied to a at the moment now.
// It is the single place both the client and the server ask before touching
// an appointment's status.
//
// Only SCHEDULED appointments are actionable. Completing is refused while the
// appointment still lies in the future. Rescheduling keeps the status at
// SCHEDULED and only moves the time, see ValidateSlotTime for the new value.
func ValidateTransition(a *Appointment, action Action, now time.Time) error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("%w: запись в статусе %s", ErrTerminalState, a.Status)
	}

	if a.Status != AppointmentStatusScheduled {
		return fmt.Errorf("%w: %s из статуса %s", ErrInvalidTransition, action, a.Status)
	}

	switch action {
	case ActionCancel, ActionReschedule:
		return nil
	case ActionComplete:
		if a.AppointmentDateTime.After(now) {
			return ErrCompleteInFuture
		}
		return nil
	default:
		return fmt.Errorf("%w: неизвестное действие %q", ErrInvalidTransition, action)
	}
}

// TargetStatus returns the resting status after a successful action.
func TargetStatus(action Action) AppointmentStatus {
	switch action {
	case ActionCancel:
		return AppointmentStatusCancelled
	case ActionComplete:
		return AppointmentStatusCompleted
	default:
		return AppointmentStatusScheduled
	}
}

// ValidateSlotTime checks a booking or reschedule target time.
func ValidateSlotTime(t time.Time, now time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("%w: время не указано", ErrTimeInPast)
	}
	if !t.After(now) {
		return ErrTimeInPast
	}
	return nil
}
