package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.Threshold != 0.7 {
		t.Errorf("classifier threshold = %v, want 0.7", cfg.Classifier.Threshold)
	}
	if cfg.Live.Semester != "Spring 2026" {
		t.Errorf("semester = %q", cfg.Live.Semester)
	}
	if cfg.Router.CompleteListLimit != 50 || cfg.Router.DefaultLimit != 10 {
		t.Errorf("limits = %d/%d", cfg.Router.DefaultLimit, cfg.Router.CompleteListLimit)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	yaml := `
server:
  port: 9999
live:
  shortTTL: 5s
  semester: "Fall 2025"
vector:
  store: memory
  timeout: 250ms
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CQR_LIVE_SEMESTER", "Summer 2025")
	t.Setenv("CQR_REDIS_ADDR", "redis:6380")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Live.ShortTTL != 5*time.Second {
		t.Errorf("shortTTL = %v", cfg.Live.ShortTTL)
	}
	if cfg.Vector.Timeout != 250*time.Millisecond {
		t.Errorf("vector timeout = %v", cfg.Vector.Timeout)
	}
	if cfg.Live.Semester != "Summer 2025" {
		t.Errorf("env override not applied, semester = %q", cfg.Live.Semester)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	// unspecified sections keep defaults
	if cfg.Topic.TopK != 3 {
		t.Errorf("topic topK = %d, want default 3", cfg.Topic.TopK)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("vector:\n  store: faiss\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown vector store")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestShippedDevelopmentConfig(t *testing.T) {
	cfg, err := Load("../../configs/development.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Live.Semester != "Spring 2026" || cfg.Live.Timeout != 1500*time.Millisecond {
		t.Errorf("live = %+v", cfg.Live)
	}
	if !cfg.RPC.Enabled || cfg.Kafka.Topics.LiveControl != "live-cache-control" {
		t.Errorf("rpc = %+v, topics = %+v", cfg.RPC, cfg.Kafka.Topics)
	}
}
