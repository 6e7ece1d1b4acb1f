package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/reservation-system/internal/overlap"
	"github.com/example/reservation-system/internal/persistence"
)

// ReservationFilter narrows reservation listings. Date bounds are inclusive
// calendar days.
type ReservationFilter struct {
	RoomID        string
	DateFrom      *time.Time
	DateTo        *time.Time
	ExcludeStatus ReservationStatus
}

// DecisionStamp identifies who resolved a reservation, and when.
type DecisionStamp struct {
	DecisionID string
	DecidedBy  string
	DecidedAt  time.Time
}

// ReservationStore captures the persistence operations needed by the service.
// ApproveReservation and RejectReservation must apply the state change and the
// audit record atomically, and fail with a not-found error when the
// reservation is no longer awaiting a decision.
type ReservationStore interface {
	InsertReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	ApproveReservation(ctx context.Context, id string, stamp DecisionStamp) (Reservation, error)
	RejectReservation(ctx context.Context, id string, stamp DecisionStamp) (Reservation, error)
}

// RoomResolver resolves catalog entries for reservation requests.
type RoomResolver interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByName(ctx context.Context, name string) (Room, error)
}

// ReservationService orchestrates conflict detection, the approval workflow,
// and persistence for reservations.
type ReservationService struct {
	reservations ReservationStore
	rooms        RoomResolver
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger

	// mu guards locks; each entry serializes the check-then-insert window
	// for one room on one day and is removed once its last holder releases.
	mu    sync.Mutex
	locks map[string]*slotLock
}

// slotLock is one room-day serialization point. refs counts holders and
// waiters so the entry can be evicted when it reaches zero.
type slotLock struct {
	mu   sync.Mutex
	refs int
}

// NewReservationService constructs a reservation service with the provided dependencies.
func NewReservationService(reservations ReservationStore, rooms RoomResolver, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationStore, rooms RoomResolver, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		locks:        make(map[string]*slotLock),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// lockSlot serializes reservation creation per room and day, so two requests
// for the same room-day cannot both pass conflict detection before either
// inserts.
func (s *ReservationService) lockSlot(roomID string, date time.Time) func() {
	key := roomID + "|" + date.UTC().Format("2006-01-02")

	s.mu.Lock()
	entry, ok := s.locks[key]
	if !ok {
		entry = &slotLock{}
		s.locks[key] = entry
	}
	entry.refs++
	s.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		s.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// CreateReservation validates the requested interval, checks it against all
// live reservations for the same room and day, and persists it in the
// requested state. Overlap with any requested or approved reservation fails
// the whole request with ErrConflict.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID, "room_id", reservation.RoomID).InfoContext(ctx, "reservation requested")
	}()

	vErr := validateReservationInput(params.Input)

	room, roomErr := s.resolveRoom(ctx, params.Input.RoomID, params.Input.RoomName)
	if roomErr != nil {
		var roomVErr *ValidationError
		if errors.As(roomErr, &roomVErr) {
			vErr.merge(roomVErr)
		} else if !vErr.HasErrors() {
			err = roomErr
			return
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	date := overlap.DateOf(params.Input.Date)

	unlock := s.lockSlot(room.ID, date)
	defer unlock()

	var existing []Reservation
	existing, err = s.reservations.ListReservations(ctx, ReservationFilter{
		RoomID:   room.ID,
		DateFrom: &date,
		DateTo:   &date,
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	candidate := overlap.Booking{
		ID:         "",
		ResourceID: room.ID,
		Interval:   overlap.Interval{Date: date, Start: params.Input.StartSlot, End: params.Input.EndSlot},
	}
	bookings := make([]overlap.Booking, 0, len(existing))
	for _, r := range existing {
		bookings = append(bookings, overlap.Booking{
			ID:         r.ID,
			ResourceID: r.RoomID,
			Interval:   overlap.Interval{Date: r.Date, Start: r.StartSlot, End: r.EndSlot},
		})
	}

	if conflicts := overlap.DetectConflicts(bookings, candidate); len(conflicts) > 0 {
		err = ErrConflict
		return
	}

	reservation = Reservation{
		ID:          s.idGenerator(),
		OwnerID:     params.Principal.UserID,
		RoomID:      room.ID,
		Date:        date,
		StartSlot:   params.Input.StartSlot,
		EndSlot:     params.Input.EndSlot,
		Status:      StatusRequested,
		RequestedAt: s.now(),
	}

	if err = s.reservations.InsertReservation(ctx, reservation); err != nil {
		err = mapReservationRepoError(err)
		reservation = Reservation{}
		return
	}

	return
}

// CancelReservation removes a reservation on behalf of its owner. Ownership is
// strict: no role, including admin, may cancel another user's reservation.
// Cancellation is not a decision and leaves no audit record.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, reservationID string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"principal_id", principal.UserID,
		"reservation_id", reservationID,
	)

	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if existing.OwnerID != principal.UserID {
		logger.ErrorContext(ctx, "failed to cancel reservation", "error", ErrForbidden, "error_kind", ErrorKind(ErrForbidden))
		return ErrForbidden
	}

	if err := s.reservations.DeleteReservation(ctx, reservationID); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "reservation cancelled")
	return nil
}

// ApproveReservation confirms a pending reservation. The approved reservation
// keeps its slot claim and continues to block overlapping requests.
func (s *ReservationService) ApproveReservation(ctx context.Context, principal Principal, reservationID string) (reservation Reservation, err error) {
	return s.decide(ctx, principal, reservationID, OutcomeApproved)
}

// RejectReservation denies a pending reservation and frees its slot for
// rebooking. The reservation row is removed; the decision survives in the
// audit ledger.
func (s *ReservationService) RejectReservation(ctx context.Context, principal Principal, reservationID string) (reservation Reservation, err error) {
	return s.decide(ctx, principal, reservationID, OutcomeRejected)
}

func (s *ReservationService) decide(ctx context.Context, principal Principal, reservationID string, outcome DecisionOutcome) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "DecideReservation",
		"principal_id", principal.UserID,
		"reservation_id", reservationID,
		"outcome", string(outcome),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to decide reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation decided")
	}()

	capability := CapabilityApprove
	if outcome == OutcomeRejected {
		capability = CapabilityReject
	}
	if !principal.Role.Has(capability) {
		err = ErrForbidden
		return
	}

	stamp := DecisionStamp{
		DecisionID: s.idGenerator(),
		DecidedBy:  principal.UserID,
		DecidedAt:  s.now(),
	}

	if outcome == OutcomeApproved {
		reservation, err = s.reservations.ApproveReservation(ctx, reservationID, stamp)
	} else {
		reservation, err = s.reservations.RejectReservation(ctx, reservationID, stamp)
	}
	if err != nil {
		err = mapReservationRepoError(err)
		reservation = Reservation{}
		return
	}

	return
}

// ListReservations returns reservations matching the filter for any
// authenticated user.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	filter := ReservationFilter{
		RoomID:        params.RoomID,
		ExcludeStatus: ReservationStatus(params.ExcludeStatus),
	}
	if params.DateFrom != nil {
		from := overlap.DateOf(*params.DateFrom)
		filter.DateFrom = &from
	}
	if params.DateTo != nil {
		to := overlap.DateOf(*params.DateTo)
		filter.DateTo = &to
	}

	reservations, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	return
}

// GetReservation returns a single reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, reservationID string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}

	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

func (s *ReservationService) resolveRoom(ctx context.Context, roomID, roomName string) (Room, error) {
	var (
		room Room
		err  error
	)
	switch {
	case roomID != "":
		room, err = s.rooms.GetRoom(ctx, roomID)
	case roomName != "":
		room, err = s.rooms.GetRoomByName(ctx, roomName)
	default:
		vErr := &ValidationError{}
		vErr.add("room", "room is required")
		return Room{}, vErr
	}
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return Room{}, ErrNotFound
		}
		return Room{}, err
	}
	return room, nil
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}

	interval := overlap.Interval{Date: input.Date, Start: input.StartSlot, End: input.EndSlot}
	if !interval.Valid() {
		vErr.add("slots", fmt.Sprintf("slots must satisfy 0 <= start < end <= %d", overlap.SlotsPerDay))
	}

	return vErr
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("slots", fmt.Sprintf("slots must satisfy 0 <= start < end <= %d", overlap.SlotsPerDay))
		return vErr
	}
	return err
}
