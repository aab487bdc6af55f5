package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medbook/config"
	"medbook/internal/domain"
	"medbook/internal/repository"
	"medbook/pkg/auth"
	"medbook/pkg/validator"
)

const refreshTokenBytes = 32

type tokenClaims struct {
	jwt.RegisteredClaims
	Role domain.UserRole `json:"role"`
	Name string          `json:"name,omitempty"`
}

type AuthServiceImpl struct {
	authRepo  repository.AuthRepository
	userRepo  repository.UserRepository
	jwtConfig config.JWTConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(authRepo repository.AuthRepository, userRepo repository.UserRepository, jwtConfig config.JWTConfig, logger *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		authRepo:  authRepo,
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a PATIENT account. Staff accounts are promoted by an admin.
func (s *AuthServiceImpl) Register(ctx context.Context, dto domain.RegisterRequest) (*domain.User, error) {
	email := validator.NormalizeEmail(dto.Email)
	if !validator.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: некорректный email", domain.ErrInvalidInput)
	}
	if !validator.ValidateName(dto.Name) {
		return nil, fmt.Errorf("%w: некорректное имя", domain.ErrInvalidInput)
	}
	if !validator.ValidatePassword(dto.Password) {
		return nil, fmt.Errorf("%w: пароль должен содержать не менее 8 символов, буквы и цифры", domain.ErrInvalidInput)
	}
	phone := ""
	if dto.Phone != "" {
		if !validator.ValidatePhone(dto.Phone) {
			return nil, fmt.Errorf("%w: некорректный телефон", domain.ErrInvalidInput)
		}
		phone = validator.FormatPhone(dto.Phone)
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existingUser != nil {
		return nil, fmt.Errorf("пользователь с таким email: %w", domain.ErrAlreadyExists)
	}

	hashedPassword, err := auth.HashPassword(dto.Password)
	if err != nil {
		s.logger.Error("ошибка при хешировании пароля", zap.Error(err))
		return nil, errors.New("ошибка при регистрации пользователя")
	}

	id, err := s.userRepo.Create(ctx, domain.CreateUserDTO{
		Name:     validator.FormatName(dto.Name),
		Email:    email,
		Phone:    phone,
		Password: hashedPassword,
		Role:     domain.UserRolePatient,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		s.logger.Error("ошибка при создании пользователя", zap.Error(err))
		return nil, errors.New("ошибка при регистрации пользователя")
	}

	s.logger.Info("зарегистрирован пользователь", zap.String("userID", id))
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthServiceImpl) Login(ctx context.Context, dto domain.LoginRequest, userAgent, ip string) (*domain.Tokens, error) {
	user, err := s.userRepo.GetByEmail(ctx, validator.NormalizeEmail(dto.Email))
	if err != nil {
		s.logger.Info("пользователь не найден", zap.String("email", dto.Email), zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(dto.Password, user.PasswordHash)
	if err != nil || !ok {
		s.logger.Info("неверный пароль", zap.String("userID", user.ID), zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}

	accessToken, expiresAt, err := s.generateAccessToken(user)
	if err != nil {
		s.logger.Error("ошибка генерации токенов", zap.Error(err))
		return nil, errors.New("ошибка при аутентификации")
	}

	refreshToken, err := auth.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		s.logger.Error("ошибка генерации refresh token", zap.Error(err))
		return nil, errors.New("ошибка при аутентификации")
	}

	now := s.now()
	session := domain.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		RefreshHash: auth.HashToken(refreshToken),
		UserAgent:   userAgent,
		IP:          ip,
		ExpiresAt:   now.Add(s.jwtConfig.RefreshTokenTTL),
		CreatedAt:   now,
	}

	if err := s.authRepo.CreateSession(ctx, session); err != nil {
		s.logger.Error("ошибка сохранения сессии", zap.Error(err))
		return nil, errors.New("ошибка при аутентификации")
	}

	return &domain.Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         user.Profile(),
	}, nil
}

// Refresh issues a new access token for a live session. The refresh token
// itself is not rotated.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*domain.AccessToken, error) {
	session, err := s.authRepo.GetSessionByRefreshHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		s.logger.Info("сессия для refresh token не найдена", zap.Error(err))
		return nil, domain.ErrInvalidToken
	}

	if session.ExpiresAt.Before(s.now()) {
		if err := s.authRepo.DeleteSession(ctx, session.ID); err != nil {
			s.logger.Warn("ошибка удаления просроченной сессии", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: refresh token истек", domain.ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		s.logger.Error("пользователь сессии не найден", zap.String("userID", session.UserID), zap.Error(err))
		return nil, domain.ErrInvalidToken
	}

	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}

	accessToken, expiresAt, err := s.generateAccessToken(user)
	if err != nil {
		s.logger.Error("ошибка генерации токенов", zap.Error(err))
		return nil, errors.New("ошибка при обновлении токенов")
	}

	return &domain.AccessToken{AccessToken: accessToken, ExpiresAt: expiresAt}, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.authRepo.GetSessionByRefreshHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		s.logger.Error("ошибка получения сессии при выходе", zap.Error(err))
		return errors.New("ошибка при выходе")
	}

	if err := s.authRepo.DeleteSession(ctx, session.ID); err != nil {
		s.logger.Error("ошибка удаления сессии", zap.Error(err))
		return errors.New("ошибка при выходе")
	}

	return nil
}

func (s *AuthServiceImpl) ParseToken(_ context.Context, tokenString string) (domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.SigningKey), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	return domain.Claims{UserID: claims.Subject, Role: claims.Role}, nil
}

func (s *AuthServiceImpl) CleanupSessions(ctx context.Context) (int64, error) {
	return s.authRepo.DeleteExpiredSessions(ctx, s.now())
}

func (s *AuthServiceImpl) generateAccessToken(user *domain.User) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtConfig.AccessTokenTTL)

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: user.Role,
		Name: user.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.SigningKey))
	if err != nil {
		return "", 0, fmt.Errorf("ошибка подписи access token: %w", err)
	}

	return signed, expiresAt.Unix(), nil
}
