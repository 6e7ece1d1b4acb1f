package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

// SessionRecord is a stored login session.
type SessionRecord struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionStore captures the persistence operations needed by the service.
type SessionStore interface {
	CreateSession(ctx context.Context, session SessionRecord) error
	GetSession(ctx context.Context, token string) (SessionRecord, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error)
}

// AuthService handles login, session validation, and logout.
type AuthService struct {
	users          UserRepository
	sessions       SessionStore
	idGenerator    func() string
	tokenGenerator func() (string, error)
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an auth service with the provided dependencies.
func NewAuthService(users UserRepository, sessions SessionStore, idGenerator func() string, tokenGenerator func() (string, error), now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(users, sessions, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an auth service with a specified logger.
func NewAuthServiceWithLogger(users UserRepository, sessions SessionStore, idGenerator func() string, tokenGenerator func() (string, error), now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() (string, error) { return "", fmt.Errorf("token generator not configured") }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies credentials and issues a session token. Unknown usernames
// and wrong passwords both fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (session Session, user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Login", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "login succeeded")
	}()

	var stored StoredUser
	stored, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		return
	}

	if verifyErr := VerifyPassword(stored.PasswordHash, password); verifyErr != nil {
		if errors.Is(verifyErr, ErrPasswordMismatch) {
			err = ErrInvalidCredentials
			return
		}
		err = verifyErr
		return
	}

	var token string
	token, err = s.tokenGenerator()
	if err != nil {
		return
	}

	now := s.now()
	record := SessionRecord{
		ID:        s.idGenerator(),
		UserID:    stored.ID,
		Token:     token,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err = s.sessions.CreateSession(ctx, record); err != nil {
		return
	}

	session = Session{Token: record.Token, UserID: record.UserID, ExpiresAt: record.ExpiresAt}
	user = stored.User
	return
}

// ValidateSession resolves a session token to the acting principal. Tokens
// that are unknown, revoked, or expired fail with the matching sentinel.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if token == "" {
		return Principal{}, ErrInvalidCredentials
	}

	record, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}

	if record.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !s.now().Before(record.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	stored, err := s.users.GetUser(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}

	return Principal{UserID: stored.ID, Role: stored.Role}, nil
}

// Logout revokes the session token. Revoking an unknown or already revoked
// token is not an error; logout is idempotent from the caller's view.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if token == "" {
		return nil
	}

	logger := s.loggerWith(ctx, "Logout")

	err := s.sessions.RevokeSession(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		logger.ErrorContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// PruneExpiredSessions removes sessions past their expiry and returns the
// number removed.
func (s *AuthService) PruneExpiredSessions(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "PruneExpiredSessions")

	deleted, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		logger.ErrorContext(ctx, "failed to prune sessions", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}

	if deleted > 0 {
		logger.With("deleted_count", deleted).InfoContext(ctx, "expired sessions pruned")
	}
	return deleted, nil
}
