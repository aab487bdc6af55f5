package domain

import (
	"time"
)

const DefaultSlotDuration = 30

// Schedule is a weekly working window of a doctor.
type Schedule struct {
	ID                  string       `json:"id"`
	DoctorID            string       `json:"doctor_id"`
	DayOfWeek           time.Weekday `json:"day_of_week"`
	StartTime           string       `json:"start_time"`
	EndTime             string       `json:"end_time"`
	SlotDurationMinutes int          `json:"slot_duration_minutes"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

type CreateScheduleDTO struct {
	DayOfWeek           *time.Weekday `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime           string        `json:"start_time" binding:"required"`
	EndTime             string        `json:"end_time" binding:"required"`
	SlotDurationMinutes int           `json:"slot_duration_minutes"`
}
