package persistence

import "time"

// Reservation status values as stored. StatusRejected never appears in the
// live reservations table: rejection removes the row and leaves only an audit
// decision behind. The value exists so calendar queries can still name it as
// an exclusion filter.
const (
	StatusRequested = "requested"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Decision outcome values recorded in the audit ledger.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// User represents an account in the reservation system.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a meeting room catalog entry. Rooms are immutable after
// creation.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Reservation represents a booking held in the live store. Date is the
// canonical UTC calendar day; StartSlot/EndSlot are half-open half-hour
// indexes within that day.
type Reservation struct {
	ID          string
	OwnerID     string
	RoomID      string
	Date        time.Time
	StartSlot   int
	EndSlot     int
	Status      string
	RequestedAt time.Time
}

// AuditDecision is an append-only record of one approve or reject decision,
// carrying a full snapshot of the reservation it judged.
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
	Outcome       string
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
