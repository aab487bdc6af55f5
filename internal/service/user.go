package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/pkg/validator"
)

type UserServiceImpl struct {
	repo     repository.UserRepository
	authRepo repository.AuthRepository
	logger   *zap.Logger
}

func NewUserService(repo repository.UserRepository, authRepo repository.AuthRepository, logger *zap.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:     repo,
		authRepo: authRepo,
		logger:   logger,
	}
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Info("ошибка получения пользователя по ID", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *UserServiceImpl) Update(ctx context.Context, id string, dto domain.UpdateUserDTO) (*domain.User, error) {
	if dto.Email != nil {
		email := validator.NormalizeEmail(*dto.Email)
		if !validator.ValidateEmail(email) {
			return nil, fmt.Errorf("%w: некорректный email", domain.ErrInvalidInput)
		}
		dto.Email = &email
	}

	if dto.Name != nil {
		if !validator.ValidateName(*dto.Name) {
			return nil, fmt.Errorf("%w: некорректное имя", domain.ErrInvalidInput)
		}
		name := validator.FormatName(*dto.Name)
		dto.Name = &name
	}

	if dto.Phone != nil && *dto.Phone != "" {
		if !validator.ValidatePhone(*dto.Phone) {
			return nil, fmt.Errorf("%w: некорректный телефон", domain.ErrInvalidInput)
		}
		phone := validator.FormatPhone(*dto.Phone)
		dto.Phone = &phone
	}

	if dto.Role != nil && !dto.Role.IsValid() {
		return nil, fmt.Errorf("%w: неизвестная роль %s", domain.ErrInvalidInput, *dto.Role)
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Error("ошибка обновления пользователя", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	if dto.IsActive != nil && !*dto.IsActive {
		s.revokeSessions(ctx, id)
	}

	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes the caller's own name and phone. Email, role and
// activity stay with the admin.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id string, dto domain.UpdateProfileDTO) (*domain.User, error) {
	if dto.Name == nil && dto.Phone == nil {
		return nil, fmt.Errorf("%w: нет изменяемых полей", domain.ErrInvalidInput)
	}
	return s.Update(ctx, id, domain.UpdateUserDTO{Name: dto.Name, Phone: dto.Phone})
}

// Deactivate is the soft delete of a user account. Admins cannot deactivate themselves.
func (s *UserServiceImpl) Deactivate(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return fmt.Errorf("%w: нельзя деактивировать собственный аккаунт", domain.ErrForbidden)
	}

	inactive := false
	if err := s.repo.Update(ctx, id, domain.UpdateUserDTO{IsActive: &inactive}); err != nil {
		return err
	}

	s.revokeSessions(ctx, id)
	s.logger.Info("пользователь деактивирован", zap.String("id", id), zap.String("by", actorID))
	return nil
}

func (s *UserServiceImpl) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка пользователей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка пользователей")
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета пользователей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка пользователей")
	}

	return users, total, nil
}

func (s *UserServiceImpl) revokeSessions(ctx context.Context, userID string) {
	if err := s.authRepo.DeleteSessionsByUserID(ctx, userID); err != nil {
		s.logger.Warn("ошибка удаления сессий пользователя", zap.String("userID", userID), zap.Error(err))
	}
}
