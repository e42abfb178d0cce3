package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Level)
	}
	if cfg.Service != "agent-arena" {
		t.Fatalf("Service = %q, want agent-arena", cfg.Service)
	}
	if cfg.MaxMB != 10 {
		t.Fatalf("MaxMB = %d, want 10", cfg.MaxMB)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LOG_FILE", "/tmp/arena.log")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || !cfg.Pretty || cfg.File != "/tmp/arena.log" {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}

func TestLoadLogRejectsBadValues(t *testing.T) {
	t.Run("level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		if _, err := LoadLog(); err == nil {
			t.Fatal("LoadLog() error = nil, want unknown level error")
		}
	})
	t.Run("max_mb", func(t *testing.T) {
		t.Setenv("LOG_MAX_MB", "0")
		if _, err := LoadLog(); err == nil {
			t.Fatal("LoadLog() error = nil, want max mb error")
		}
	})
	t.Run("level case", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", " WARN ")
		cfg, err := LoadLog()
		if err != nil || cfg.Level != "warn" {
			t.Fatalf("LoadLog() = %q, %v; want warn", cfg.Level, err)
		}
	})
}
