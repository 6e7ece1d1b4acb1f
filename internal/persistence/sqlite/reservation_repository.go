package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// InsertReservation inserts a new reservation row. No overlap checking happens
// here; callers are expected to have run conflict detection already.
func (r *ReservationRepository) InsertReservation(ctx context.Context, res persistence.Reservation) error {
	if res.ID == "" || res.OwnerID == "" || res.RoomID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO reservations (id, owner_id, room_id, date, start_slot, end_slot, status, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		res.ID,
		res.OwnerID,
		res.RoomID,
		res.Date.UTC().Format(dateLayout),
		res.StartSlot,
		res.EndSlot,
		res.Status,
		res.RequestedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, room_id, date, start_slot, end_slot, status, requested_at
		FROM reservations
		WHERE id = ?
	`

	var res persistence.Reservation
	var dateStr, requestedAtStr string

	err := r.helper.QueryRow(ctx, query, id).Scan(
		&res.ID,
		&res.OwnerID,
		&res.RoomID,
		&dateStr,
		&res.StartSlot,
		&res.EndSlot,
		&res.Status,
		&requestedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}

	if res.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if res.RequestedAt, err = time.Parse(time.RFC3339, requestedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse requested_at: %w", err)
	}

	return res, nil
}

// DeleteReservation removes a reservation by ID
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// ListReservations returns reservations matching the filter, ordered by date,
// start slot, then ID for a stable calendar ordering.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query := `
		SELECT id, owner_id, room_id, date, start_slot, end_slot, status, requested_at
		FROM reservations
		WHERE 1=1
	`
	var args []any

	if filter.RoomID != nil {
		query += " AND room_id = ?"
		args = append(args, *filter.RoomID)
	}
	if filter.DateFrom != nil {
		query += " AND date >= ?"
		args = append(args, filter.DateFrom.UTC().Format(dateLayout))
	}
	if filter.DateTo != nil {
		query += " AND date <= ?"
		args = append(args, filter.DateTo.UTC().Format(dateLayout))
	}
	if filter.ExcludeStatus != nil {
		query += " AND status != ?"
		args = append(args, *filter.ExcludeStatus)
	}

	query += " ORDER BY date ASC, start_slot ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation

	for rows.Next() {
		var res persistence.Reservation
		var dateStr, requestedAtStr string

		err := rows.Scan(
			&res.ID,
			&res.OwnerID,
			&res.RoomID,
			&dateStr,
			&res.StartSlot,
			&res.EndSlot,
			&res.Status,
			&requestedAtStr,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		if res.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		if res.RequestedAt, err = time.Parse(time.RFC3339, requestedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse requested_at: %w", err)
		}

		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reservations, nil
}

// ApproveReservation flips a requested reservation to approved and records the
// decision in the audit ledger within a single transaction. If the reservation
// is absent or no longer in the requested state, ErrNotFound is returned and
// nothing is written, so only one of two racing decisions can win.
func (r *ReservationRepository) ApproveReservation(ctx context.Context, id string, stamp persistence.DecisionStamp) (persistence.Reservation, error) {
	var res persistence.Reservation

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		found, err := r.lockRequested(tx, id)
		if err != nil {
			return err
		}

		result, err := r.helper.ExecTx(tx,
			"UPDATE reservations SET status = ? WHERE id = ? AND status = ?",
			persistence.StatusApproved, id, persistence.StatusRequested,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		if err := r.appendDecision(tx, found, stamp, persistence.OutcomeApproved); err != nil {
			return err
		}

		found.Status = persistence.StatusApproved
		res = found
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return res, nil
}

// RejectReservation removes a requested reservation and records the rejection
// in the audit ledger within a single transaction. The slot becomes free for
// rebooking as soon as the transaction commits.
func (r *ReservationRepository) RejectReservation(ctx context.Context, id string, stamp persistence.DecisionStamp) (persistence.Reservation, error) {
	var res persistence.Reservation

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		found, err := r.lockRequested(tx, id)
		if err != nil {
			return err
		}

		result, err := r.helper.ExecTx(tx,
			"DELETE FROM reservations WHERE id = ? AND status = ?",
			id, persistence.StatusRequested,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		if err := r.appendDecision(tx, found, stamp, persistence.OutcomeRejected); err != nil {
			return err
		}

		found.Status = persistence.StatusRejected
		res = found
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, err
	}

	return res, nil
}

// lockRequested loads a reservation inside the transaction and verifies it is
// still awaiting a decision.
func (r *ReservationRepository) lockRequested(tx *sql.Tx, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, room_id, date, start_slot, end_slot, status, requested_at
		FROM reservations
		WHERE id = ?
	`

	var res persistence.Reservation
	var dateStr, requestedAtStr string

	err := r.helper.QueryRowTx(tx, query, id).Scan(
		&res.ID,
		&res.OwnerID,
		&res.RoomID,
		&dateStr,
		&res.StartSlot,
		&res.EndSlot,
		&res.Status,
		&requestedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}

	if res.Status != persistence.StatusRequested {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	if res.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if res.RequestedAt, err = time.Parse(time.RFC3339, requestedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse requested_at: %w", err)
	}

	return res, nil
}

// appendDecision writes an audit ledger entry inside the decision transaction.
func (r *ReservationRepository) appendDecision(tx *sql.Tx, res persistence.Reservation, stamp persistence.DecisionStamp, outcome string) error {
	query := `
		INSERT INTO audit_decisions (id, reservation_id, owner_id, room_id, date, start_slot, end_slot, decided_by, decided_at, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.ExecTx(tx, query,
		stamp.DecisionID,
		res.ID,
		res.OwnerID,
		res.RoomID,
		res.Date.UTC().Format(dateLayout),
		res.StartSlot,
		res.EndSlot,
		stamp.DecidedBy,
		stamp.DecidedAt.UTC().Format(time.RFC3339),
		outcome,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}
