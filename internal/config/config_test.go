package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bridge")
	t.Setenv("MAILJET_DSN", "mailjet+api://k:s@default")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.WorkerConcurrency != 5 {
		t.Errorf("WorkerConcurrency = %d, want default 5", cfg.WorkerConcurrency)
	}
	if cfg.TransportDSN != "mailjet+api://k:s@default" {
		t.Errorf("TransportDSN = %q", cfg.TransportDSN)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MAILJET_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without database url and transport dsn")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MAILJET_DSN", "")
	t.Setenv("PORT", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `port: 3000
mode: worker
database_url: postgres://localhost/bridge
transport_dsn: mailjet+smtp://k:s@default
worker_concurrency: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Port != 3000 || cfg.Mode != "worker" || cfg.WorkerConcurrency != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/bridge")
	t.Setenv("MAILJET_DSN", "")
	t.Setenv("PORT", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `database_url: postgres://file/bridge
transport_dsn: mailjet+api://k:s@default
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/bridge" {
		t.Errorf("DatabaseURL = %q, env must win", cfg.DatabaseURL)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
