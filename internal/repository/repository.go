package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"medbook/internal/domain"
)

type Repositories struct {
	User        UserRepository
	Auth        AuthRepository
	Doctor      DoctorRepository
	Schedule    ScheduleRepository
	Appointment AppointmentRepository
}

func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		Auth:        NewAuthRepository(db),
		Doctor:      NewDoctorRepository(db),
		Schedule:    NewScheduleRepository(db),
		Appointment: NewAppointmentRepository(db),
	}
}

type UserRepository interface {
	Create(ctx context.Context, user domain.CreateUserDTO) (string, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id string, user domain.UpdateUserDTO) error
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	CountByFilter(ctx context.Context, filter domain.UserFilter) (int, error)
}

type AuthRepository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSessionByRefreshHash(ctx context.Context, refreshHash string) (*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUserID(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, doctor domain.CreateDoctorDTO) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Doctor, error)
	Update(ctx context.Context, id string, doctor domain.UpdateDoctorDTO) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, error)
	CountByFilter(ctx context.Context, filter domain.DoctorFilter) (int, error)
	ListSpecializations(ctx context.Context) ([]string, error)
	UpdateProfileImage(ctx context.Context, id string, imageURL string) error
}

type ScheduleRepository interface {
	Create(ctx context.Context, doctorID string, schedule domain.CreateScheduleDTO) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	Delete(ctx context.Context, id string) error
	ListByDoctor(ctx context.Context, doctorID string) ([]domain.Schedule, error)
	ListByDoctorAndDay(ctx context.Context, doctorID string, day time.Weekday) ([]domain.Schedule, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, patientID string, appointment domain.CreateAppointmentDTO) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	Update(ctx context.Context, id string, appointment domain.UpdateAppointmentDTO) error
	// UpdateStatus moves a SCHEDULED appointment to status. It fails with
	// domain.ErrInvalidTransition if the row is no longer SCHEDULED.
	UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) error
	Reschedule(ctx context.Context, id string, dateTime time.Time) error
	List(ctx context.Context, filter domain.AppointmentFilter) ([]domain.Appointment, error)
	CountByFilter(ctx context.Context, filter domain.AppointmentFilter) (int, error)
	BookedTimes(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
