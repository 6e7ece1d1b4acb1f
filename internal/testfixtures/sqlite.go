package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reservation-system/internal/persistence"
	"github.com/example/reservation-system/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Users        persistence.UserRepository
	Rooms        persistence.RoomRepository
	Reservations persistence.ReservationRepository
	Decisions    persistence.AuditRepository
	Sessions     persistence.SessionRepository
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Cleanup is registered with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dsn := "file:" + filepath.Join(tb.TempDir(), "reservations.db") + "?_pragma=foreign_keys(1)"

	pool, err := sqlite.NewConnectionPool(dsn)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Pool:         pool,
		Users:        sqlite.NewUserRepository(pool),
		Rooms:        sqlite.NewRoomRepository(pool),
		Reservations: sqlite.NewReservationRepository(pool),
		Decisions:    sqlite.NewAuditRepository(pool),
		Sessions:     sqlite.NewSessionRepository(pool),
	}
}
