package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"WEBHOOK_SECRET", "DATABASE_PATH", "LOG_LEVEL", "HTTP_HOST", "HTTP_PORT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	clearEnv(t)
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when WEBHOOK_SECRET is unset")
	}
}

func TestLoad_BlankSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_SECRET", "   ")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for blank WEBHOOK_SECRET")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "data/inboxd.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("DATABASE_PATH", "/tmp/other.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d", cfg.Port)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "inboxd.yaml")
	yaml := "webhook_secret: from-file\nlog_level: warn\nport: 9000\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WebhookSecret != "from-file" || cfg.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelWarn {
		t.Errorf("level = %v", cfg.SlogLevel())
	}

	// Environment beats the file.
	t.Setenv("LOG_LEVEL", "error")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SlogLevel() != slog.LevelError {
		t.Errorf("env should override file, got %v", cfg.SlogLevel())
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_SECRET", "s3cret")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestValidate_PortRange(t *testing.T) {
	cfg := Defaults()
	cfg.WebhookSecret = "s3cret"
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 70000")
	}
}
