package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/events"
	"medbook/internal/repository"
	"medbook/internal/storage"
)

type Deps struct {
	Repos       *repository.Repositories
	Logger      *zap.Logger
	Config      *config.Config
	FileStorage storage.FileStorage
	Events      events.Publisher
	Location    *time.Location
}

type Services struct {
	User        UserService
	Auth        AuthService
	Doctor      DoctorService
	Schedule    ScheduleService
	Appointment AppointmentService
}

func NewServices(deps Deps) *Services {
	publisher := deps.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	return &Services{
		User:        NewUserService(deps.Repos.User, deps.Repos.Auth, deps.Logger),
		Auth:        NewAuthService(deps.Repos.Auth, deps.Repos.User, deps.Config.JWT, deps.Logger),
		Doctor:      NewDoctorService(deps.Repos.Doctor, deps.Repos.Schedule, deps.FileStorage, deps.Logger),
		Schedule:    NewScheduleService(deps.Repos.Schedule, deps.Repos.Doctor, deps.Repos.Appointment, loc, deps.Logger),
		Appointment: NewAppointmentService(deps.Repos.Appointment, deps.Repos.Doctor, deps.Repos.Schedule, publisher, loc, deps.Logger),
	}
}

type AuthService interface {
	Register(ctx context.Context, dto domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, dto domain.LoginRequest, userAgent, ip string) (*domain.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AccessToken, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseToken(ctx context.Context, token string) (domain.Claims, error)
	CleanupSessions(ctx context.Context) (int64, error)
}

type UserService interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, dto domain.UpdateUserDTO) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, dto domain.UpdateProfileDTO) (*domain.User, error)
	Deactivate(ctx context.Context, actorID, id string) error
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)
}

type DoctorService interface {
	Create(ctx context.Context, dto domain.CreateDoctorDTO) (*domain.Doctor, error)
	GetByID(ctx context.Context, id string) (*domain.Doctor, error)
	Update(ctx context.Context, id string, dto domain.UpdateDoctorDTO) (*domain.Doctor, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error)
	Specializations(ctx context.Context) ([]string, error)
	UploadPhoto(ctx context.Context, id string, photo []byte, filename string) (string, error)
}

type ScheduleService interface {
	Create(ctx context.Context, doctorID string, dto domain.CreateScheduleDTO) (*domain.Schedule, error)
	Delete(ctx context.Context, id string) error
	ListByDoctor(ctx context.Context, doctorID string) ([]domain.Schedule, error)
	AvailableSlots(ctx context.Context, doctorID string, date string) ([]time.Time, error)
}

// AppointmentService applies the appointment status rules on behalf of an actor.
// Patients act on their own appointments only, admins on every appointment.
type AppointmentService interface {
	Book(ctx context.Context, actor domain.Claims, dto domain.CreateAppointmentDTO) (*domain.Appointment, error)
	GetByID(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error)
	Update(ctx context.Context, actor domain.Claims, id string, dto domain.UpdateAppointmentDTO) (*domain.Appointment, error)
	Cancel(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error)
	Complete(ctx context.Context, actor domain.Claims, id string) (*domain.Appointment, error)
	Reschedule(ctx context.Context, actor domain.Claims, id string, dto domain.RescheduleAppointmentDTO) (*domain.Appointment, error)
	List(ctx context.Context, actor domain.Claims, filter domain.AppointmentFilter) ([]domain.Appointment, int, error)
}
