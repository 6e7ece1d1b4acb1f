package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/reservation-system/internal/application"
	"github.com/example/reservation-system/internal/config"
	httptransport "github.com/example/reservation-system/internal/http"
	"github.com/example/reservation-system/internal/persistence"
	"github.com/example/reservation-system/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Error("failed to reach storage", "error", err)
		os.Exit(1)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() (string, error) { return randomHex(32) }
	now := time.Now

	userRepo := newUserRepositoryAdapter(sqlite.NewUserRepository(pool))
	roomRepo := newRoomRepositoryAdapter(sqlite.NewRoomRepository(pool))
	reservationStore := newReservationStoreAdapter(sqlite.NewReservationRepository(pool))
	auditStore := newAuditStoreAdapter(sqlite.NewAuditRepository(pool))
	sessionStore := newSessionStoreAdapter(sqlite.NewSessionRepository(pool))

	reservationService := application.NewReservationServiceWithLogger(reservationStore, roomRepo, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, idGenerator, now, logger)
	auditService := application.NewAuditServiceWithLogger(auditStore, logger)
	authService := application.NewAuthServiceWithLogger(userRepo, sessionStore, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)

	if err := bootstrap(ctx, cfg, userRepo, roomRepo, idGenerator, now, logger); err != nil {
		logger.Error("failed to seed initial data", "error", err)
		os.Exit(1)
	}

	if _, err := authService.PruneExpiredSessions(ctx); err != nil {
		logger.Warn("failed to prune expired sessions", "error", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Users:        httptransport.NewUserHandler(userService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Decisions:    httptransport.NewDecisionHandler(auditService, logger),
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Login is the only endpoint reachable without a session.
		if strings.EqualFold(r.URL.Path, "/sessions") && r.Method == http.MethodPost {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// bootstrap ensures the configured admin account and default room exist so a
// fresh database is immediately usable.
func bootstrap(ctx context.Context, cfg config.Config, users *userRepositoryAdapter, rooms *roomRepositoryAdapter, idGenerator func() string, now func() time.Time, logger *slog.Logger) error {
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		_, err := users.GetUserByUsername(ctx, cfg.AdminUsername)
		switch {
		case err == nil:
			// Already seeded.
		case errors.Is(err, persistence.ErrNotFound):
			hash, hashErr := application.CreatePasswordHash(cfg.AdminPassword, application.DefaultArgon2idParams)
			if hashErr != nil {
				return fmt.Errorf("failed to hash admin password: %w", hashErr)
			}
			ts := now()
			admin := application.StoredUser{
				User: application.User{
					ID:          idGenerator(),
					Username:    cfg.AdminUsername,
					DisplayName: cfg.AdminUsername,
					Role:        application.RoleAdmin,
					CreatedAt:   ts,
					UpdatedAt:   ts,
				},
				PasswordHash: hash,
			}
			if createErr := users.CreateUser(ctx, admin); createErr != nil {
				return fmt.Errorf("failed to create admin account: %w", createErr)
			}
			logger.Info("admin account created", "username", cfg.AdminUsername)
		default:
			return fmt.Errorf("failed to look up admin account: %w", err)
		}
	}

	if cfg.DefaultRoom != "" {
		_, err := rooms.GetRoomByName(ctx, cfg.DefaultRoom)
		switch {
		case err == nil:
			// Already seeded.
		case errors.Is(err, persistence.ErrNotFound):
			room := application.Room{ID: idGenerator(), Name: cfg.DefaultRoom, CreatedAt: now()}
			if createErr := rooms.CreateRoom(ctx, room); createErr != nil {
				return fmt.Errorf("failed to create default room: %w", createErr)
			}
			logger.Info("default room created", "name", cfg.DefaultRoom)
		default:
			return fmt.Errorf("failed to look up default room: %w", err)
		}
	}

	return nil
}

func randomHex(bytes int) (string, error) {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.StoredUser) error {
	return a.repo.CreateUser(ctx, toPersistenceUser(user))
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.StoredUser, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.StoredUser{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByUsername(ctx context.Context, username string) (application.StoredUser, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.StoredUser{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.StoredUser, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.StoredUser, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) error {
	return a.repo.CreateRoom(ctx, persistence.Room{ID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt})
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) GetRoomByName(ctx context.Context, name string) (application.Room, error) {
	stored, err := a.repo.GetRoomByName(ctx, name)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

type reservationStoreAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationStoreAdapter(repo persistence.ReservationRepository) *reservationStoreAdapter {
	return &reservationStoreAdapter{repo: repo}
}

func (a *reservationStoreAdapter) InsertReservation(ctx context.Context, reservation application.Reservation) error {
	return a.repo.InsertReservation(ctx, toPersistenceReservation(reservation))
}

func (a *reservationStoreAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationStoreAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.repo.DeleteReservation(ctx, id)
}

func (a *reservationStoreAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	persistedFilter := persistence.ReservationFilter{
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
	}
	if filter.RoomID != "" {
		roomID := filter.RoomID
		persistedFilter.RoomID = &roomID
	}
	if filter.ExcludeStatus != "" {
		status := string(filter.ExcludeStatus)
		persistedFilter.ExcludeStatus = &status
	}

	models, err := a.repo.ListReservations(ctx, persistedFilter)
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationStoreAdapter) ApproveReservation(ctx context.Context, id string, stamp application.DecisionStamp) (application.Reservation, error) {
	stored, err := a.repo.ApproveReservation(ctx, id, toPersistenceStamp(stamp))
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationStoreAdapter) RejectReservation(ctx context.Context, id string, stamp application.DecisionStamp) (application.Reservation, error) {
	stored, err := a.repo.RejectReservation(ctx, id, toPersistenceStamp(stamp))
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

type auditStoreAdapter struct {
	repo persistence.AuditRepository
}

func newAuditStoreAdapter(repo persistence.AuditRepository) *auditStoreAdapter {
	return &auditStoreAdapter{repo: repo}
}

func (a *auditStoreAdapter) ListDecisions(ctx context.Context) ([]application.AuditDecision, error) {
	models, err := a.repo.ListDecisions(ctx)
	if err != nil {
		return nil, err
	}
	decisions := make([]application.AuditDecision, 0, len(models))
	for _, model := range models {
		decisions = append(decisions, application.AuditDecision{
			ID:            model.ID,
			ReservationID: model.ReservationID,
			OwnerID:       model.OwnerID,
			RoomID:        model.RoomID,
			Date:          model.Date,
			StartSlot:     model.StartSlot,
			EndSlot:       model.EndSlot,
			DecidedBy:     model.DecidedBy,
			DecidedAt:     model.DecidedAt,
			Outcome:       application.DecisionOutcome(model.Outcome),
		})
	}
	return decisions, nil
}

type sessionStoreAdapter struct {
	repo persistence.SessionRepository
}

func newSessionStoreAdapter(repo persistence.SessionRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo}
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session application.SessionRecord) error {
	return a.repo.CreateSession(ctx, persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	})
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, token string) (application.SessionRecord, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.SessionRecord{}, err
	}
	return application.SessionRecord{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Token:     stored.Token,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
		RevokedAt: cloneTime(stored.RevokedAt),
	}, nil
}

func (a *sessionStoreAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	return a.repo.RevokeSession(ctx, token, revokedAt)
}

func (a *sessionStoreAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error) {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toApplicationUser(model persistence.User) application.StoredUser {
	role, err := application.ParseRole(model.Role)
	if err != nil {
		role = application.RoleMember
	}
	return application.StoredUser{
		User: application.User{
			ID:          model.ID,
			Username:    model.Username,
			DisplayName: model.DisplayName,
			Role:        role,
			CreatedAt:   model.CreatedAt,
			UpdatedAt:   model.UpdatedAt,
		},
		PasswordHash: model.PasswordHash,
	}
}

func toPersistenceUser(user application.StoredUser) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		DisplayName:  user.DisplayName,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{ID: model.ID, Name: model.Name, CreatedAt: model.CreatedAt}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		RoomID:      model.RoomID,
		Date:        model.Date,
		StartSlot:   model.StartSlot,
		EndSlot:     model.EndSlot,
		Status:      application.ReservationStatus(model.Status),
		RequestedAt: model.RequestedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:          reservation.ID,
		OwnerID:     reservation.OwnerID,
		RoomID:      reservation.RoomID,
		Date:        reservation.Date,
		StartSlot:   reservation.StartSlot,
		EndSlot:     reservation.EndSlot,
		Status:      string(reservation.Status),
		RequestedAt: reservation.RequestedAt,
	}
}

func toPersistenceStamp(stamp application.DecisionStamp) persistence.DecisionStamp {
	return persistence.DecisionStamp{
		DecisionID: stamp.DecisionID,
		DecidedBy:  stamp.DecidedBy,
		DecidedAt:  stamp.DecidedAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
