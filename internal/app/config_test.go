package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Storage.Backend != "local" || cfg.Media.TranscriptionProvider != "openai" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Media.AudioChunk != 15*time.Minute || cfg.Retry.Attempts != 3 {
		t.Fatalf("unexpected media/retry defaults: %+v %+v", cfg.Media, cfg.Retry)
	}
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "port: \"9090\"\ncors_origins: \"https://a.example, https://b.example\"\nworker:\n  concurrency: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WORKER_CONCURRENCY", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("file value not applied: %s", cfg.Port)
	}
	if cfg.Worker.Concurrency != 2 {
		t.Fatalf("env should override file, got %d", cfg.Worker.Concurrency)
	}
	if got := cfg.corsOrigins(); len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestLoadConfigRejectsGCSWithoutBucket(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CONTENT_STORE", "gcs")
	t.Setenv("GCS_BUCKET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected validation error")
	}
}
