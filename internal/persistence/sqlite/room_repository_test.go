package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

func TestRoomRepository_CreateAndGet(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	room := persistence.Room{ID: "room-1", Name: "room1", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	got, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Name != "room1" {
		t.Errorf("name = %q, want %q", got.Name, "room1")
	}

	byName, err := repo.GetRoomByName(ctx, "room1")
	if err != nil {
		t.Fatalf("GetRoomByName failed: %v", err)
	}
	if byName.ID != "room-1" {
		t.Errorf("id = %q, want %q", byName.ID, "room-1")
	}
}

func TestRoomRepository_DuplicateName(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "room1", CreatedAt: now}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	err := repo.CreateRoom(ctx, persistence.Room{ID: "room-2", Name: "room1", CreatedAt: now})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestRoomRepository_NameIsCaseSensitive(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "Lab", CreatedAt: now}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-2", Name: "lab", CreatedAt: now}); err != nil {
		t.Errorf("case-differing name should be allowed, got %v", err)
	}

	if _, err := repo.GetRoomByName(ctx, "LAB"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound for LAB, got %v", err)
	}
}

func TestRoomRepository_ListOrdersByName(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, r := range []persistence.Room{
		{ID: "r3", Name: "charlie", CreatedAt: now},
		{ID: "r1", Name: "alpha", CreatedAt: now},
		{ID: "r2", Name: "bravo", CreatedAt: now},
	} {
		if err := repo.CreateRoom(ctx, r); err != nil {
			t.Fatalf("CreateRoom %s failed: %v", r.Name, err)
		}
	}

	rooms, err := repo.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, name := range want {
		if rooms[i].Name != name {
			t.Errorf("rooms[%d].Name = %q, want %q", i, rooms[i].Name, name)
		}
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	pool := newTestPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	user := persistence.User{
		ID:           "user-1",
		Username:     "alice",
		PasswordHash: "hash",
		DisplayName:  "Alice",
		Role:         "member",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user.ID = "user-2"
	if err := repo.CreateUser(ctx, user); !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := repo.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.ID != "user-1" {
		t.Errorf("id = %q, want %q", got.ID, "user-1")
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	pool := newTestPool(t)
	user, _ := seedUserAndRoom(t, pool)
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	session := persistence.Session{
		ID:        "sess-1",
		UserID:    user.ID,
		Token:     "token-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != user.ID || got.RevokedAt != nil {
		t.Errorf("unexpected session: %+v", got)
	}

	if err := repo.RevokeSession(ctx, "token-1", now.Add(10*time.Minute)); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	got, err = repo.GetSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("GetSession after revoke failed: %v", err)
	}
	if got.RevokedAt == nil {
		t.Error("expected revoked_at to be set")
	}

	// Revoking twice is a no-op failure.
	if err := repo.RevokeSession(ctx, "token-1", now.Add(20*time.Minute)); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("second revoke: expected ErrNotFound, got %v", err)
	}

	deleted, err := repo.DeleteExpiredSessions(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted session, got %d", deleted)
	}
	if _, err := repo.GetSession(ctx, "token-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound after cleanup, got %v", err)
	}
}
