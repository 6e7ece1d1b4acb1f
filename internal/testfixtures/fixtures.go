package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/reservation-system/internal/persistence"
)

// SeedUser inserts an account and returns it. Zero fields are filled with
// deterministic defaults.
func SeedUser(tb testing.TB, repo persistence.UserRepository, user persistence.User) persistence.User {
	tb.Helper()

	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	if user.Role == "" {
		user.Role = "member"
	}
	if user.PasswordHash == "" {
		user.PasswordHash = "unusable"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = ReferenceTime()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	if err := repo.CreateUser(context.Background(), user); err != nil {
		tb.Fatalf("failed to seed user %s: %v", user.Username, err)
	}
	return user
}

// SeedRoom inserts a catalog entry and returns it.
func SeedRoom(tb testing.TB, repo persistence.RoomRepository, name string) persistence.Room {
	tb.Helper()

	room := persistence.Room{
		ID:        "room-" + name,
		Name:      name,
		CreatedAt: ReferenceTime(),
	}
	if err := repo.CreateRoom(context.Background(), room); err != nil {
		tb.Fatalf("failed to seed room %s: %v", name, err)
	}
	return room
}

// SeedReservation inserts a reservation and returns it. Zero fields are
// filled with deterministic defaults.
func SeedReservation(tb testing.TB, repo persistence.ReservationRepository, res persistence.Reservation) persistence.Reservation {
	tb.Helper()

	if res.Status == "" {
		res.Status = persistence.StatusRequested
	}
	if res.Date.IsZero() {
		res.Date = ReferenceTime().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	}
	if res.RequestedAt.IsZero() {
		res.RequestedAt = ReferenceTime()
	}

	if err := repo.InsertReservation(context.Background(), res); err != nil {
		tb.Fatalf("failed to seed reservation %s: %v", res.ID, err)
	}
	return res
}
