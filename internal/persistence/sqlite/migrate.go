package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is a single schema change applied exactly once, in order.
type migration struct {
	version int
	name    string
	script  string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_users",
		script: `
CREATE TABLE users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	display_name  TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);`,
	},
	{
		version: 2,
		name:    "create_rooms",
		script: `
CREATE TABLE rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);`,
	},
	{
		version: 3,
		name:    "create_reservations",
		script: `
CREATE TABLE reservations (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES users(id),
	room_id      TEXT NOT NULL REFERENCES rooms(id),
	date         TEXT NOT NULL,
	start_slot   INTEGER NOT NULL,
	end_slot     INTEGER NOT NULL,
	status       TEXT NOT NULL,
	requested_at TEXT NOT NULL,
	CHECK (start_slot >= 0 AND start_slot < end_slot AND end_slot <= 48)
);
CREATE INDEX idx_reservations_room_date ON reservations(room_id, date);`,
	},
	{
		version: 4,
		name:    "create_audit_decisions",
		script: `
CREATE TABLE audit_decisions (
	id             TEXT PRIMARY KEY,
	reservation_id TEXT NOT NULL,
	owner_id       TEXT NOT NULL,
	room_id        TEXT NOT NULL,
	date           TEXT NOT NULL,
	start_slot     INTEGER NOT NULL,
	end_slot       INTEGER NOT NULL,
	decided_by     TEXT NOT NULL,
	decided_at     TEXT NOT NULL,
	outcome        TEXT NOT NULL
);`,
	},
	{
		version: 5,
		name:    "create_sessions",
		script: `
CREATE TABLE sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	token      TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	revoked_at TEXT
);`,
	},
}

// Migrate applies all pending migrations. Each migration runs inside its own
// transaction together with the version bookkeeping, so a failed script never
// leaves a half-recorded version behind.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	row := pool.DB().QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.script); err != nil {
				return err
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}
