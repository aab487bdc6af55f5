package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/events"
	"medbook/internal/repository"
	"medbook/pkg/validator"
)

type AppointmentServiceImpl struct {
	repo         repository.AppointmentRepository
	doctorRepo   repository.DoctorRepository
	scheduleRepo repository.ScheduleRepository
	events       events.Publisher
	loc          *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	scheduleRepo repository.ScheduleRepository,
	publisher events.Publisher,
	loc *time.Location,
	logger *zap.Logger,
) *AppointmentServiceImpl {
	return &AppointmentServiceImpl{
		repo:         repo,
		doctorRepo:   doctorRepo,
		scheduleRepo: scheduleRepo,
		events:       publisher,
		loc:          loc,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *AppointmentServiceImpl) Book(ctx context.Context, actor domain.Claims, dto domain.CreateAppointmentDTO) (*domain.Appointment, error) {
	if err := domain.ValidateSlotTime(dto.AppointmentDateTime, s.now()); err != nil {
		return nil, err
	}

	doctor, err := s.doctorRepo.GetByID(ctx, dto.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive {
		return nil, fmt.Errorf("%w: врач не принимает записи", domain.ErrSlotUnavailable)
	}

	if err := s.checkSchedule(ctx, dto.DoctorID, dto.AppointmentDateTime); err != nil {
		return nil, err
	}

	dto.Reason = validator.SanitizeString(dto.Reason)
	dto.Notes = validator.SanitizeString(dto.Notes)

	id, err := s.repo.Create(ctx, actor.UserID, dto)
	if err != nil {
		if !errors.Is(err, domain.ErrSlotUnavailable) {
			s.logger.Error("ошибка создания записи", zap.Error(err))
		}
		return nil, err
	}

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("создана запись на прием",
		zap.String("id", id),
		zap.String("doctorID", dto.DoctorID),
		zap.String("patientID", actor.UserID))
	s.publish(ctx, domain.AppointmentEventBooked, appointment)

	return appointment, nil
}

func (s *AppointmentServiceImpl) GetByID(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error) {
	return s.load(ctx, actor, id)
}

// Update changes reason and notes only. Terminal appointments are read-only.
func (s *AppointmentServiceImpl) Update(ctx context.Context, actor domain.Claims, id string, dto domain.UpdateAppointmentDTO) (*domain.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if appointment.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: запись в статусе %s", domain.ErrTerminalState, appointment.Status)
	}

	if dto.Reason != nil {
		reason := validator.SanitizeString(*dto.Reason)
		dto.Reason = &reason
	}
	if dto.Notes != nil {
		notes := validator.SanitizeString(*dto.Notes)
		dto.Notes = &notes
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *AppointmentServiceImpl) Cancel(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error) {
	return s.transition(ctx, actor, id, domain.ActionCancel)
}

func (s *AppointmentServiceImpl) Complete(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error) {
	if actor.Role != domain.UserRoleAdmin {
		return nil, fmt.Errorf("%w: завершить запись может только администратор", domain.ErrForbidden)
	}
	return s.transition(ctx, actor, id, domain.ActionComplete)
}

func (s *AppointmentServiceImpl) Reschedule(ctx context.Context, actor domain.Claims, id string, dto domain.RescheduleAppointmentDTO) (*domain.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := domain.ValidateTransition(appointment, domain.ActionReschedule, now); err != nil {
		return nil, err
	}
	if err := domain.ValidateSlotTime(dto.AppointmentDateTime, now); err != nil {
		return nil, err
	}
	if err := s.checkSchedule(ctx, appointment.DoctorID, dto.AppointmentDateTime); err != nil {
		return nil, err
	}

	if err := s.repo.Reschedule(ctx, id, dto.AppointmentDateTime); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("запись перенесена",
		zap.String("id", id),
		zap.Time("from", appointment.AppointmentDateTime),
		zap.Time("to", updated.AppointmentDateTime))
	s.publish(ctx, domain.AppointmentEventRescheduled, updated)

	return updated, nil
}

// List returns the actor's own appointments. Admins see every appointment
// matching the filter.
func (s *AppointmentServiceImpl) List(ctx context.Context, actor domain.Claims, filter domain.AppointmentFilter) ([]domain.Appointment, int, error) {
	if actor.Role != domain.UserRoleAdmin {
		filter.PatientID = &actor.UserID
	}

	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка записей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка записей")
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета записей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка записей")
	}

	return appointments, total, nil
}

func (s *AppointmentServiceImpl) transition(ctx context.Context, actor domain.Claims, id string, action domain.Action) (*domain.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateTransition(appointment, action, s.now()); err != nil {
		return nil, err
	}

	// the repository re-checks SCHEDULED, so a concurrent transition loses here
	if err := s.repo.UpdateStatus(ctx, id, domain.TargetStatus(action)); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("статус записи изменен",
		zap.String("id", id),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)),
		zap.String("by", actor.UserID))
	s.publish(ctx, domain.EventForAction(action), updated)

	return updated, nil
}

func (s *AppointmentServiceImpl) load(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != domain.UserRoleAdmin && appointment.PatientID != actor.UserID {
		return nil, fmt.Errorf("%w: запись принадлежит другому пациенту", domain.ErrForbidden)
	}

	return appointment, nil
}

func (s *AppointmentServiceImpl) checkSchedule(ctx context.Context, doctorID string, at time.Time) error {
	local := at.In(s.loc)

	schedules, err := s.scheduleRepo.ListByDoctorAndDay(ctx, doctorID, local.Weekday())
	if err != nil {
		s.logger.Error("ошибка получения расписания", zap.Error(err))
		return errors.New("ошибка при проверке доступности времени")
	}

	if !slotInSchedule(schedules, local) {
		return fmt.Errorf("%w: время вне расписания врача", domain.ErrSlotUnavailable)
	}

	return nil
}

func (s *AppointmentServiceImpl) publish(ctx context.Context, eventType domain.AppointmentEventType, appointment *domain.Appointment) {
	event := domain.NewAppointmentEvent(eventType, appointment, s.now())
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("ошибка публикации события",
			zap.String("event", string(eventType)),
			zap.String("appointmentID", appointment.ID),
			zap.Error(err))
	}
}
