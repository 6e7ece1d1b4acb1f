package sqlite

import (
	"context"
	"testing"
)

func TestConnectionPoolPing(t *testing.T) {
	pool := newTestPool(t)

	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on an open pool failed: %v", err)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := pool.Ping(context.Background()); err == nil {
		t.Fatal("Ping succeeded on a closed pool")
	}
}
