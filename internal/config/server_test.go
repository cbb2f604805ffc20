package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/doubt?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.RoomCapacity != 6 {
		t.Fatalf("RoomCapacity = %d, want 6", cfg.RoomCapacity)
	}
	if cfg.DoubtTimeout != 5*time.Second {
		t.Fatalf("DoubtTimeout = %v, want 5s", cfg.DoubtTimeout)
	}
	if cfg.TurnTimeout != 30*time.Second {
		t.Fatalf("TurnTimeout = %v, want 30s", cfg.TurnTimeout)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/doubt?sslmode=disable")
	t.Setenv("DOUBT_TIMEOUT", "8s")
	t.Setenv("TURN_TIMEOUT", "1m")
	t.Setenv("ROOM_CAPACITY", "4")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.DoubtTimeout != 8*time.Second {
		t.Fatalf("DoubtTimeout = %v, want 8s", cfg.DoubtTimeout)
	}
	if cfg.TurnTimeout != time.Minute {
		t.Fatalf("TurnTimeout = %v, want 1m", cfg.TurnTimeout)
	}
	if cfg.RoomCapacity != 4 {
		t.Fatalf("RoomCapacity = %d, want 4", cfg.RoomCapacity)
	}
}

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Level)
	}
	if cfg.MaxMB != 10 {
		t.Fatalf("MaxMB = %d, want 10", cfg.MaxMB)
	}
}
