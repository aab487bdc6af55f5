package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/pkg/validator"
)

const (
	minSlotDuration = 10
	maxSlotDuration = 120
)

type ScheduleServiceImpl struct {
	repo            repository.ScheduleRepository
	doctorRepo      repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	loc             *time.Location
	logger          *zap.Logger
	now             func() time.Time
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	doctorRepo repository.DoctorRepository,
	appointmentRepo repository.AppointmentRepository,
	loc *time.Location,
	logger *zap.Logger,
) *ScheduleServiceImpl {
	return &ScheduleServiceImpl{
		repo:            repo,
		doctorRepo:      doctorRepo,
		appointmentRepo: appointmentRepo,
		loc:             loc,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *ScheduleServiceImpl) Create(ctx context.Context, doctorID string, dto domain.CreateScheduleDTO) (*domain.Schedule, error) {
	if _, err := s.doctorRepo.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}

	if dto.SlotDurationMinutes == 0 {
		dto.SlotDurationMinutes = domain.DefaultSlotDuration
	}
	if err := validateSchedule(dto); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByDoctorAndDay(ctx, doctorID, *dto.DayOfWeek)
	if err != nil {
		s.logger.Error("ошибка получения расписания", zap.Error(err))
		return nil, errors.New("ошибка при создании расписания")
	}
	for _, other := range existing {
		// "HH:MM" strings compare in clock order
		if dto.StartTime < other.EndTime && other.StartTime < dto.EndTime {
			return nil, fmt.Errorf("%w: пересечение с интервалом %s-%s", domain.ErrAlreadyExists, other.StartTime, other.EndTime)
		}
	}

	id, err := s.repo.Create(ctx, doctorID, dto)
	if err != nil {
		s.logger.Error("ошибка создания расписания", zap.Error(err))
		return nil, errors.New("ошибка при создании расписания")
	}

	return s.repo.GetByID(ctx, id)
}

func (s *ScheduleServiceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *ScheduleServiceImpl) ListByDoctor(ctx context.Context, doctorID string) ([]domain.Schedule, error) {
	if _, err := s.doctorRepo.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListByDoctor(ctx, doctorID)
}

// AvailableSlots lists the free slot start times of a doctor on date (YYYY-MM-DD):
// every slot of the weekly schedule for that weekday that is still in the future
// and not taken by a non-cancelled appointment.
func (s *ScheduleServiceImpl) AvailableSlots(ctx context.Context, doctorID string, date string) ([]time.Time, error) {
	day, ok := validator.ParseDate(date, s.loc)
	if !ok {
		return nil, fmt.Errorf("%w: дата должна быть в формате ГГГГ-ММ-ДД", domain.ErrInvalidInput)
	}

	doctor, err := s.doctorRepo.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive {
		return []time.Time{}, nil
	}

	schedules, err := s.repo.ListByDoctorAndDay(ctx, doctorID, day.Weekday())
	if err != nil {
		s.logger.Error("ошибка получения расписания", zap.Error(err))
		return nil, errors.New("ошибка при получении свободных слотов")
	}

	booked, err := s.appointmentRepo.BookedTimes(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("ошибка получения занятых слотов", zap.Error(err))
		return nil, errors.New("ошибка при получении свободных слотов")
	}

	taken := make(map[int64]bool, len(booked))
	for _, t := range booked {
		taken[t.Unix()] = true
	}

	now := s.now()
	slots := make([]time.Time, 0)
	for _, slot := range generateSlots(schedules, day) {
		if slot.After(now) && !taken[slot.Unix()] {
			slots = append(slots, slot)
		}
	}

	return slots, nil
}

// generateSlots expands schedules into slot start times on day. A slot must
// end no later than the window end.
func generateSlots(schedules []domain.Schedule, day time.Time) []time.Time {
	var slots []time.Time
	for _, schedule := range schedules {
		start, err1 := clockOn(day, schedule.StartTime)
		end, err2 := clockOn(day, schedule.EndTime)
		if err1 != nil || err2 != nil || schedule.SlotDurationMinutes <= 0 {
			continue
		}

		duration := time.Duration(schedule.SlotDurationMinutes) * time.Minute
		for current := start; !current.Add(duration).After(end); current = current.Add(duration) {
			slots = append(slots, current)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}

// slotInSchedule reports whether t is the start of one of the schedule slots.
func slotInSchedule(schedules []domain.Schedule, t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, slot := range generateSlots(schedules, day) {
		if slot.Equal(t) {
			return true
		}
	}
	return false
}

func clockOn(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(validator.ClockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func validateSchedule(dto domain.CreateScheduleDTO) error {
	if dto.DayOfWeek == nil || *dto.DayOfWeek < time.Sunday || *dto.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: день недели должен быть от 0 до 6", domain.ErrInvalidInput)
	}
	if !validator.ValidateClock(dto.StartTime) || !validator.ValidateClock(dto.EndTime) {
		return fmt.Errorf("%w: время должно быть в формате ЧЧ:ММ", domain.ErrInvalidInput)
	}
	if dto.StartTime >= dto.EndTime {
		return fmt.Errorf("%w: время начала должно быть раньше времени окончания", domain.ErrInvalidInput)
	}
	if dto.SlotDurationMinutes < minSlotDuration || dto.SlotDurationMinutes > maxSlotDuration {
		return fmt.Errorf("%w: длительность слота от %d до %d минут", domain.ErrInvalidInput, minSlotDuration, maxSlotDuration)
	}
	return nil
}
