package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbook/internal/domain"
)

func TestGenerateSlots(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	schedules := []domain.Schedule{
		{StartTime: "14:00", EndTime: "15:00", SlotDurationMinutes: 45},
		{StartTime: "09:00", EndTime: "10:00", SlotDurationMinutes: 20},
		{StartTime: "bad", EndTime: "10:00", SlotDurationMinutes: 20},
	}

	slots := generateSlots(schedules, day)
	require.Len(t, slots, 4)
	assert.Equal(t, "09:00", slots[0].Format("15:04"))
	assert.Equal(t, "09:40", slots[2].Format("15:04"))
	assert.Equal(t, "14:00", slots[3].Format("15:04"))

	assert.True(t, slotInSchedule(schedules, day.Add(9*time.Hour+20*time.Minute)))
	assert.False(t, slotInSchedule(schedules, day.Add(14*time.Hour+45*time.Minute)))
}

func TestAvailableSlots(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	slots, err := f.env.services.Schedule.AvailableSlots(ctx, f.doctorID, "2026-03-09")
	require.NoError(t, err)
	assert.Len(t, slots, 6)

	_, err = f.env.services.Appointment.Book(ctx, f.patient, domain.CreateAppointmentDTO{DoctorID: f.doctorID, AppointmentDateTime: f.at(9, 30)})
	require.NoError(t, err)

	f.env.services.Schedule.(*ScheduleServiceImpl).now = func() time.Time { return f.at(10, 0) }

	slots, err = f.env.services.Schedule.AvailableSlots(ctx, f.doctorID, "2026-03-09")
	require.NoError(t, err)
	var got []string
	for _, s := range slots {
		got = append(got, s.Format("15:04"))
	}
	assert.Equal(t, []string{"10:30", "11:00", "11:30"}, got)

	slots, err = f.env.services.Schedule.AvailableSlots(ctx, f.doctorID, "2026-03-10")
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = f.env.services.Schedule.AvailableSlots(ctx, f.doctorID, "10.03.2026")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateScheduleValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	monday, sunday, bad := time.Monday, time.Sunday, time.Weekday(7)

	_, err := f.env.services.Schedule.Create(ctx, f.doctorID, domain.CreateScheduleDTO{DayOfWeek: &monday, StartTime: "11:00", EndTime: "13:00"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = f.env.services.Schedule.Create(ctx, f.doctorID, domain.CreateScheduleDTO{DayOfWeek: &sunday, StartTime: "13:00", EndTime: "12:00"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.env.services.Schedule.Create(ctx, f.doctorID, domain.CreateScheduleDTO{DayOfWeek: &bad, StartTime: "09:00", EndTime: "12:00"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.env.services.Schedule.Create(ctx, f.doctorID, domain.CreateScheduleDTO{DayOfWeek: &sunday, StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := f.env.services.Schedule.Create(ctx, f.doctorID, domain.CreateScheduleDTO{DayOfWeek: &monday, StartTime: "12:00", EndTime: "13:00"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSlotDuration, s.SlotDurationMinutes)

	doctor, err := f.env.services.Doctor.GetByID(ctx, f.doctorID)
	require.NoError(t, err)
	assert.Len(t, doctor.Schedules, 2)
}
