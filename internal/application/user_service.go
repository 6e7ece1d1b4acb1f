package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

// StoredUser is an account row including its credential hash. It stays inside
// the application and persistence layers; handlers only ever see User.
type StoredUser struct {
	User
	PasswordHash string
}

// UserRepository captures the persistence operations needed by the service.
type UserRepository interface {
	CreateUser(ctx context.Context, user StoredUser) error
	GetUser(ctx context.Context, id string) (StoredUser, error)
	GetUserByUsername(ctx context.Context, username string) (StoredUser, error)
	ListUsers(ctx context.Context) ([]StoredUser, error)
}

// UserService orchestrates validation, authorization, and persistence for accounts.
type UserService struct {
	users       UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new account for principals with
// the manage_users capability.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.Role.Has(CapabilityManageUsers) {
		err = ErrForbidden
		return
	}

	vErr := validateUserInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = CreatePasswordHash(params.Input.Password, DefaultArgon2idParams)
	if err != nil {
		return
	}

	now := s.now()
	stored := StoredUser{
		User: User{
			ID:          s.idGenerator(),
			Username:    strings.TrimSpace(params.Input.Username),
			DisplayName: strings.TrimSpace(params.Input.DisplayName),
			Role:        params.Input.Role,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		PasswordHash: hash,
	}

	if err = s.users.CreateUser(ctx, stored); err != nil {
		err = mapUserRepoError(err)
		return
	}

	user = stored.User
	return
}

// ListUsers returns all accounts for principals with the manage_users capability.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListUsers",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(users)).InfoContext(ctx, "users listed")
	}()

	if !principal.Role.Has(CapabilityManageUsers) {
		err = ErrForbidden
		return
	}

	var stored []StoredUser
	stored, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	users = make([]User, 0, len(stored))
	for _, u := range stored {
		users = append(users, u.User)
	}

	return
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Username) == "" {
		vErr.add("username", "username is required")
	}
	if input.Password == "" {
		vErr.add("password", "password is required")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if !input.Role.Valid() {
		vErr.add("role", "role must be member, approver, or admin")
	}

	return vErr
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrConflict
	}
	return err
}
