package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHESS_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TimeControl != "none" || cfg.WhitePlayer != "human" || cfg.BlackPlayer != "level3" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.SessionTTLSec != 3600 || cfg.HistoryLimit != 10 || cfg.Rated {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHESS_CONFIG", "")
	t.Setenv("REDIS_URL", " redis://localhost:6379/1 ")
	t.Setenv("CHESS_TIME_CONTROL", "5+3")
	t.Setenv("CHESS_WHITE_PLAYER", "master")
	t.Setenv("CHESS_SEARCH_WORKERS", "4")
	t.Setenv("CHESS_RANDOM_SEED", "42")
	t.Setenv("CHESS_RATED", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "redis://localhost:6379/1" || cfg.TimeControl != "5+3" || cfg.WhitePlayer != "master" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SearchWorkers != 4 || cfg.RandomSeed != 42 || !cfg.Rated {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	body := "CHESS_TIME_CONTROL: blitz\nCHESS_BLACK_PLAYER: expert\nCHESS_MAX_PLIES: 200\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CHESS_CONFIG", path)
	t.Setenv("CHESS_BLACK_PLAYER", "beginner")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TimeControl != "blitz" || cfg.MaxPlies != 200 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.BlackPlayer != "beginner" {
		t.Fatalf("env must override file: %q", cfg.BlackPlayer)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CHESS_CONFIG", "")
	t.Setenv("CHESS_SEARCH_WORKERS", "-2")
	t.Setenv("CHESS_SESSION_TTL_SEC", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CHESS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
