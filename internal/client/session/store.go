// Package session holds the client's authentication state: tokens, the
// logged-in user and the transient loading and error flags.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

// RefreshWindow is how long before expiry the access token is renewed.
const RefreshWindow = 5 * time.Minute

var ErrNoSession = errors.New("нет активной сессии")

// State is the persisted part of the session. TokenExpiry is in Unix
// seconds, zero when unknown.
type State struct {
	AccessToken     string          `json:"token,omitempty"`
	RefreshToken    string          `json:"refreshToken,omitempty"`
	TokenExpiry     int64           `json:"tokenExpiry,omitempty"`
	User            *domain.Profile `json:"user"`
	IsAuthenticated bool            `json:"isAuthenticated"`
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Snapshot is a consistent copy of the whole session.
type Snapshot struct {
	State
	Loading bool
	Error   string
}

type Store struct {
	mu      sync.RWMutex
	state   State
	loading bool
	err     string

	persister Persister
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(persister Persister, logger *zap.Logger, opts ...Option) *Store {
	if persister == nil {
		persister = &MemoryPersister{}
	}
	s := &Store{
		persister: persister,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted record. A corrupt record is logged and the
// session starts empty. Only an unreadable record is returned as an error.
func (s *Store) Restore() error {
	state, err := s.persister.Load()
	if err != nil {
		if errors.Is(err, ErrCorruptRecord) {
			s.logger.Warn("сохраненная сессия повреждена, начинаем с пустой", zap.Error(err))
			s.reset()
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state == nil {
		s.state = State{}
		return nil
	}
	s.state = state.clone()
	s.state.IsAuthenticated = s.state.AccessToken != "" && s.state.User != nil
	return nil
}

// Login records a fresh session. The expiry is read from the token without
// checking its signature, the server has already accepted the credentials.
func (s *Store) Login(accessToken, refreshToken string, user domain.Profile) error {
	expiry := s.tokenExpiry(accessToken)

	s.mu.Lock()
	s.state = State{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		TokenExpiry:     expiry,
		User:            &user,
		IsAuthenticated: true,
	}
	s.err = ""
	state := s.state.clone()
	s.mu.Unlock()

	return s.save(state)
}

// Refresh replaces the access token. The user and the refresh token stay.
// A refresh that lands after Logout returns ErrNoSession and changes nothing.
func (s *Store) Refresh(accessToken string, expiry int64) error {
	if expiry <= 0 {
		expiry = 0
	}

	s.mu.Lock()
	if !s.state.IsAuthenticated || s.state.User == nil {
		s.mu.Unlock()
		s.logger.Debug("обновленный токен отброшен, сессия уже завершена")
		return ErrNoSession
	}
	s.state.AccessToken = accessToken
	s.state.TokenExpiry = expiry
	s.err = ""
	state := s.state.clone()
	s.mu.Unlock()

	return s.save(state)
}

// Logout drops every credential and the persisted record.
func (s *Store) Logout() error {
	s.reset()
	if err := s.persister.Clear(); err != nil {
		s.logger.Warn("не удалось удалить сохраненную сессию", zap.Error(err))
		return err
	}
	return nil
}

// ShouldRefresh reports whether the access token expires within RefreshWindow.
// It is false when the token or its expiry is unknown.
func (s *Store) ShouldRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.AccessToken == "" || s.state.TokenExpiry == 0 {
		return false
	}
	return s.state.TokenExpiry-s.now().Unix() < int64(RefreshWindow/time.Second)
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// SetError stores a message for display, an empty string clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.RefreshToken
}

func (s *Store) TokenExpiry() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.TokenExpiry
}

func (s *Store) User() *domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:   s.state.clone(),
		Loading: s.loading,
		Error:   s.err,
	}
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.loading = false
	s.err = ""
}

func (s *Store) save(state State) error {
	if err := s.persister.Save(state); err != nil {
		s.logger.Warn("не удалось сохранить сессию", zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) tokenExpiry(token string) int64 {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		s.logger.Warn("не удалось разобрать токен доступа", zap.Error(err))
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Unix()
}
