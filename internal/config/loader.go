package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionTTL    time.Duration
	AdminUsername string
	AdminPassword string
	DefaultRoom   string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults matching the original deployment: the
// API listens on 8888, sessions live for one hour, and the bootstrap admin
// account is named root. The admin password has no default; when it is unset
// no admin account is seeded at startup.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:      8888,
		SQLiteDSN:     "file:reservation_system.db?_pragma=foreign_keys(1)",
		SessionTTL:    time.Hour,
		AdminUsername: "root",
		DefaultRoom:   "room1",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("RESERVE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "RESERVE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("RESERVE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("RESERVE_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RESERVE_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if username := strings.TrimSpace(os.Getenv("RESERVE_ADMIN_USERNAME")); username != "" {
		cfg.AdminUsername = username
	}

	cfg.AdminPassword = strings.TrimSpace(os.Getenv("RESERVE_ADMIN_PASSWORD"))

	if room, ok := os.LookupEnv("RESERVE_DEFAULT_ROOM"); ok {
		cfg.DefaultRoom = strings.TrimSpace(room)
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
