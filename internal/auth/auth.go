package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/database"
	"echo-viewer/internal/logging"
	"echo-viewer/internal/metrics"
)

// Password length bounds. bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "echo_session"

// Store is the persistence the Service needs. *database.Database implements
// it.
type Store interface {
	HasUsers(ctx context.Context) (bool, error)
	CreateUser(ctx context.Context, password string) error
	ValidatePassword(ctx context.Context, password string) (*database.User, error)
	CreateSession(ctx context.Context, userID int64, duration time.Duration) (*database.Session, error)
	ValidateSession(ctx context.Context, token string) (*database.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// Status is what an unauthenticated client may learn about auth.
type Status struct {
	Enabled       bool `json:"enabled"`
	SetupComplete bool `json:"setup_complete"`
}

// Service answers "is this caller allowed to write". When disabled it
// allows everything and never touches the store.
type Service struct {
	store           Store
	enabled         bool
	sessionDuration time.Duration
}

// New creates a Service. store may be nil when enabled is false.
func New(store Store, enabled bool, sessionDuration time.Duration) (*Service, error) {
	if enabled && store == nil {
		return nil, errors.New("auth enabled without a store")
	}
	if sessionDuration <= 0 {
		sessionDuration = database.DefaultSessionDuration
	}
	return &Service{store: store, enabled: enabled, sessionDuration: sessionDuration}, nil
}

// Disabled returns a Service that allows every caller.
func Disabled() *Service {
	return &Service{sessionDuration: database.DefaultSessionDuration}
}

// IsEnabled reports whether writes require a session.
func (s *Service) IsEnabled() bool {
	return s != nil && s.enabled
}

// SessionDuration is how long a new session lasts.
func (s *Service) SessionDuration() time.Duration {
	return s.sessionDuration
}

// IsAuthenticated reports whether token names a live session. Always true
// when auth is disabled.
func (s *Service) IsAuthenticated(ctx context.Context, token string) bool {
	if !s.IsEnabled() {
		return true
	}
	if token == "" {
		return false
	}
	if _, err := s.store.ValidateSession(ctx, token); err != nil {
		logging.Debug("Session rejected: %v", err)
		return false
	}
	return true
}

// Status reports whether auth is on and whether the password has been set.
func (s *Service) Status(ctx context.Context) (Status, error) {
	if !s.IsEnabled() {
		return Status{}, nil
	}
	has, err := s.store.HasUsers(ctx)
	if err != nil {
		return Status{}, apperrors.Wrap(apperrors.KindIO, "auth status", "", err)
	}
	return Status{Enabled: true, SetupComplete: has}, nil
}

// Setup sets the password. It only succeeds once, even when called
// concurrently.
func (s *Service) Setup(ctx context.Context, password string) error {
	if !s.IsEnabled() {
		return apperrors.New(apperrors.KindInvalidOperation, "setup", "", "authentication is disabled")
	}
	has, err := s.store.HasUsers(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindIO, "setup", "", err)
	}
	if has {
		return apperrors.New(apperrors.KindPermissionDenied, "setup", "", "setup already completed")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if err := s.store.CreateUser(ctx, password); err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return apperrors.New(apperrors.KindPermissionDenied, "setup", "", "setup already completed")
		}
		return apperrors.Wrap(apperrors.KindIO, "setup", "", err)
	}
	logging.Info("Initial password configured")
	return nil
}

// Login checks password and opens a session.
func (s *Service) Login(ctx context.Context, password string) (*database.Session, error) {
	if !s.IsEnabled() {
		return nil, apperrors.New(apperrors.KindInvalidOperation, "login", "", "authentication is disabled")
	}

	user, err := s.store.ValidatePassword(ctx, password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		if errors.Is(err, database.ErrInvalidPassword) || errors.Is(err, database.ErrNoUser) {
			logging.Warn("Failed login attempt")
			return nil, apperrors.New(apperrors.KindUnauthorized, "login", "", "")
		}
		return nil, apperrors.Wrap(apperrors.KindIO, "login", "", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()

	session, err := s.store.CreateSession(ctx, user.ID, s.sessionDuration)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIO, "login", "", err)
	}
	logging.Info("User logged in, session expires in %v", s.sessionDuration)
	return session, nil
}

// Logout ends the session named by token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if !s.IsEnabled() || token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, database.ErrInvalidSession) {
		return apperrors.Wrap(apperrors.KindIO, "logout", "", err)
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return apperrors.New(apperrors.KindInvalidOperation, "setup", "",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(password) > MaxPasswordLength:
		return apperrors.New(apperrors.KindInvalidOperation, "setup", "",
			fmt.Sprintf("password must not exceed %d characters", MaxPasswordLength))
	}
	return nil
}
