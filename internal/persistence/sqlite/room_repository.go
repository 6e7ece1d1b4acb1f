package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

// dateLayout is the storage format for calendar dates.
const dateLayout = "2006-01-02"

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a new room into the database
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO rooms (id, name, created_at)
		VALUES (?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.Name,
		room.CreatedAt.UTC().Format(time.RFC3339),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, created_at
		FROM rooms
		WHERE id = ?
	`

	return r.scanRoom(r.helper.QueryRow(ctx, query, id))
}

// GetRoomByName retrieves a room by its exact name
func (r *RoomRepository) GetRoomByName(ctx context.Context, name string) (persistence.Room, error) {
	if name == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, created_at
		FROM rooms
		WHERE name = ?
	`

	return r.scanRoom(r.helper.QueryRow(ctx, query, name))
}

// ListRooms returns all rooms ordered by name then ID
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	query := `
		SELECT id, name, created_at
		FROM rooms
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room

	for rows.Next() {
		var room persistence.Room
		var createdAtStr string

		if err := rows.Scan(&room.ID, &room.Name, &createdAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}

		if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

func (r *RoomRepository) scanRoom(row *sql.Row) (persistence.Room, error) {
	var room persistence.Room
	var createdAtStr string

	err := row.Scan(&room.ID, &room.Name, &createdAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}

	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return room, nil
}
