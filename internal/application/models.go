package application

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusRequested ReservationStatus = "requested"
	StatusApproved  ReservationStatus = "approved"
	StatusRejected  ReservationStatus = "rejected"
)

// DecisionOutcome records how a pending reservation was resolved.
type DecisionOutcome string

const (
	OutcomeApproved DecisionOutcome = "approved"
	OutcomeRejected DecisionOutcome = "rejected"
)

// Principal identifies the authenticated actor performing an operation.
type Principal struct {
	UserID string
	Role   Role
}

// User is an account that can authenticate and own reservations.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Room is an entry in the bookable catalog. Rooms are immutable once created.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Reservation is a claim on a room for a half-open slot range on one day.
// StartSlot and EndSlot index 30-minute slots; slot n covers [n*30min,
// (n+1)*30min) from midnight.
type Reservation struct {
	ID          string
	OwnerID     string
	RoomID      string
	Date        time.Time
	StartSlot   int
	EndSlot     int
	Status      ReservationStatus
	RequestedAt time.Time
}

// AuditDecision is one immutable entry in the decision ledger. It snapshots
// the reservation at decision time, so the entry stays intact even after a
// rejected reservation's row is deleted.
type AuditDecision struct {
	ID            string
	ReservationID string
	OwnerID       string
	RoomID        string
	Date          time.Time
	StartSlot     int
	EndSlot       int
	DecidedBy     string
	DecidedAt     time.Time
	Outcome       DecisionOutcome
}

// Session is an authenticated login session.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// ReservationInput carries the user-supplied fields of a reservation request.
// The room may be referenced by ID or by exact name; ID wins when both are set.
type ReservationInput struct {
	RoomID    string
	RoomName  string
	Date      time.Time
	StartSlot int
	EndSlot   int
}

// CreateReservationParams bundles the acting principal with reservation input.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ListReservationsParams carries optional calendar filters.
type ListReservationsParams struct {
	Principal     Principal
	RoomID        string
	DateFrom      *time.Time
	DateTo        *time.Time
	ExcludeStatus string
}

// RoomInput carries the user-supplied fields of a new catalog entry.
type RoomInput struct {
	Name string
}

// CreateRoomParams bundles the acting principal with room input.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UserInput carries the user-supplied fields of a new account.
type UserInput struct {
	Username    string
	Password    string
	DisplayName string
	Role        Role
}

// CreateUserParams bundles the acting principal with account input.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}
