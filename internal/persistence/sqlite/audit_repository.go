package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

// AuditRepository implements persistence.AuditRepository using SQLite.
// The ledger is append-only: entries are written by the reservation
// repository's decision transactions and never updated or removed here.
type AuditRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAuditRepository creates a new SQLite audit repository
func NewAuditRepository(pool *ConnectionPool) *AuditRepository {
	return &AuditRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// ListDecisions returns all recorded decisions ordered by decision time then ID
func (r *AuditRepository) ListDecisions(ctx context.Context) ([]persistence.AuditDecision, error) {
	query := `
		SELECT id, reservation_id, owner_id, room_id, date, start_slot, end_slot, decided_by, decided_at, outcome
		FROM audit_decisions
		ORDER BY decided_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var decisions []persistence.AuditDecision

	for rows.Next() {
		var d persistence.AuditDecision
		var dateStr, decidedAtStr string

		err := rows.Scan(
			&d.ID,
			&d.ReservationID,
			&d.OwnerID,
			&d.RoomID,
			&dateStr,
			&d.StartSlot,
			&d.EndSlot,
			&d.DecidedBy,
			&decidedAtStr,
			&d.Outcome,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		if d.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		if d.DecidedAt, err = time.Parse(time.RFC3339, decidedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse decided_at: %w", err)
		}

		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return decisions, nil
}
