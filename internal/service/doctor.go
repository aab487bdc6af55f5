package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/internal/storage"
	"medbook/pkg/validator"
)

const doctorPhotoFolder = "doctors"

var ErrStorageUnavailable = errors.New("хранилище файлов не настроено")

type DoctorServiceImpl struct {
	repo         repository.DoctorRepository
	scheduleRepo repository.ScheduleRepository
	fileStorage  storage.FileStorage
	logger       *zap.Logger
}

func NewDoctorService(
	repo repository.DoctorRepository,
	scheduleRepo repository.ScheduleRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) *DoctorServiceImpl {
	return &DoctorServiceImpl{
		repo:         repo,
		scheduleRepo: scheduleRepo,
		fileStorage:  fileStorage,
		logger:       logger,
	}
}

func (s *DoctorServiceImpl) Create(ctx context.Context, dto domain.CreateDoctorDTO) (*domain.Doctor, error) {
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Specialization = strings.TrimSpace(dto.Specialization)
	if !validator.ValidateName(dto.Name) {
		return nil, fmt.Errorf("%w: некорректное имя врача", domain.ErrInvalidInput)
	}
	if dto.Specialization == "" {
		return nil, fmt.Errorf("%w: не указана специализация", domain.ErrInvalidInput)
	}
	dto.Bio = validator.SanitizeString(dto.Bio)

	id, err := s.repo.Create(ctx, dto)
	if err != nil {
		s.logger.Error("ошибка создания врача", zap.Error(err))
		return nil, errors.New("ошибка при создании врача")
	}

	s.logger.Info("создан врач", zap.String("id", id), zap.String("specialization", dto.Specialization))
	return s.repo.GetByID(ctx, id)
}

// GetByID returns the doctor together with the weekly schedule.
func (s *DoctorServiceImpl) GetByID(ctx context.Context, id string) (*domain.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	schedules, err := s.scheduleRepo.ListByDoctor(ctx, id)
	if err != nil {
		s.logger.Warn("ошибка получения расписания врача", zap.String("id", id), zap.Error(err))
	} else {
		doctor.Schedules = schedules
	}

	return doctor, nil
}

func (s *DoctorServiceImpl) Update(ctx context.Context, id string, dto domain.UpdateDoctorDTO) (*domain.Doctor, error) {
	if dto.Name != nil && !validator.ValidateName(*dto.Name) {
		return nil, fmt.Errorf("%w: некорректное имя врача", domain.ErrInvalidInput)
	}
	if dto.Bio != nil {
		bio := validator.SanitizeString(*dto.Bio)
		dto.Bio = &bio
	}

	if err := s.repo.Update(ctx, id, dto); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("ошибка обновления врача", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

func (s *DoctorServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("врач деактивирован", zap.String("id", id))
	return nil
}

func (s *DoctorServiceImpl) List(ctx context.Context, filter domain.DoctorFilter) ([]domain.Doctor, int, error) {
	doctors, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка получения списка врачей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка врачей")
	}

	total, err := s.repo.CountByFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ошибка подсчета врачей", zap.Error(err))
		return nil, 0, errors.New("ошибка при получении списка врачей")
	}

	return doctors, total, nil
}

func (s *DoctorServiceImpl) Specializations(ctx context.Context) ([]string, error) {
	return s.repo.ListSpecializations(ctx)
}

// UploadPhoto replaces the profile photo. The previous object is removed on a best effort basis.
func (s *DoctorServiceImpl) UploadPhoto(ctx context.Context, id string, photo []byte, filename string) (string, error) {
	if s.fileStorage == nil {
		return "", ErrStorageUnavailable
	}

	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.fileStorage.UploadImage(ctx, doctorPhotoFolder, photo, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		s.logger.Error("ошибка загрузки фото врача", zap.String("id", id), zap.Error(err))
		return "", errors.New("ошибка при загрузке фото")
	}

	if err := s.repo.UpdateProfileImage(ctx, id, url); err != nil {
		_ = s.fileStorage.DeleteFile(ctx, url)
		return "", err
	}

	if doctor.ProfileImageURL != "" {
		if err := s.fileStorage.DeleteFile(ctx, doctor.ProfileImageURL); err != nil {
			s.logger.Warn("не удалось удалить старое фото", zap.String("url", doctor.ProfileImageURL), zap.Error(err))
		}
	}

	return url, nil
}
