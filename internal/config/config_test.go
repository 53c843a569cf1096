package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Backend != BackendDocument {
		t.Fatalf("Backend = %q, want %q", cfg.Backend, BackendDocument)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != "info" {
		t.Fatalf("defaults = %q, %q", cfg.HTTPAddr, cfg.LogLevel)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.BlobDriver != "fs" || cfg.BlobFSRoot != "./blobdata" {
		t.Fatalf("blob defaults = %q, %q", cfg.BlobDriver, cfg.BlobFSRoot)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FINSTMT_BACKEND", BackendRelational)
	t.Setenv("FINSTMT_DSN", "postgres://localhost/finstmt")
	t.Setenv("FINSTMT_REQUEST_TIMEOUT", "5s")
	t.Setenv("FINSTMT_MAX_OPEN_CONNS", "12")
	t.Setenv("FINSTMT_LOG_LEVEL", "debug")

	cfg := FromEnv()
	if cfg.Backend != BackendRelational || cfg.DSN != "postgres://localhost/finstmt" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.MaxOpenConns != 12 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("FINSTMT_REQUEST_TIMEOUT", "soon")
	t.Setenv("FINSTMT_MAX_OPEN_CONNS", "many")
	cfg := FromEnv()
	if cfg.RequestTimeout != 30*time.Second || cfg.MaxOpenConns != 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
