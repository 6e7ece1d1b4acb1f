package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// RoomRepository exposes room catalog storage operations.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByName(ctx context.Context, name string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// ReservationFilter narrows reservation queries. DateFrom and DateTo are
// inclusive calendar-day bounds. ExcludeStatus hides reservations with the
// given status from the result.
type ReservationFilter struct {
	RoomID        *string
	DateFrom      *time.Time
	DateTo        *time.Time
	ExcludeStatus *string
}

// DecisionStamp identifies who decided a reservation's fate, and when. The
// repository combines it with a snapshot of the stored reservation to produce
// the audit record.
type DecisionStamp struct {
	DecisionID string
	DecidedBy  string
	DecidedAt  time.Time
}

// ReservationRepository stores live reservations and performs the two
// decision transitions. ApproveReservation and RejectReservation each mutate
// the reservation row and append the audit decision in a single transaction;
// both return ErrNotFound when the reservation is absent or no longer in the
// requested state, so of two racing decisions exactly one wins.
type ReservationRepository interface {
	InsertReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ApproveReservation(ctx context.Context, id string, stamp DecisionStamp) (Reservation, error)
	RejectReservation(ctx context.Context, id string, stamp DecisionStamp) (Reservation, error)
}

// AuditRepository reads the append-only decision ledger. Writes happen only
// through the reservation decision transitions.
type AuditRepository interface {
	ListDecisions(ctx context.Context) ([]AuditDecision, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int, error)
}
