package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/lossyudp/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestResolveConfigFlagsOnly(t *testing.T) {
	cfg, err := resolveConfig([]string{
		"--target-ip", "127.0.0.1", "--target-port", "4000", "--timeout", "250ms", "--max-retries", "5",
	}, io.Discard)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Timeout != "250ms" || cfg.MaxRetries != 5 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Bind != config.DefaultSenderBind || cfg.LogAddr() != "127.0.0.1:9100" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestResolveConfigFileThenFlags(t *testing.T) {
	path := writeConfig(t, `target_ip = "10.1.1.1"
target_port = 4100
timeout_ms = 1500
log_port = 0
codec = "msgpack"
`)
	cfg, err := resolveConfig([]string{"--config", path, "--target-port", "4200"}, io.Discard)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.TargetIP != "10.1.1.1" || cfg.TargetPort != 4200 {
		t.Fatalf("unexpected target: %+v", cfg)
	}
	if cfg.Timeout != "1.5s" || cfg.Codec != "msgpack" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogAddr() != "" {
		t.Fatalf("log_port 0 must disable events")
	}
	if cfg.MaxRetries != config.DefaultMaxRetries {
		t.Fatalf("undefined key must keep default, got %d", cfg.MaxRetries)
	}
}

func TestResolveConfigRejects(t *testing.T) {
	if _, err := resolveConfig([]string{"--target-port", "4000"}, io.Discard); err == nil {
		t.Fatalf("expected missing target ip error")
	}
	path := writeConfig(t, "target_ip = \"127.0.0.1\"\ntarget_port = 4000\nretries = 2\n")
	if _, err := resolveConfig([]string{"--config", path}, io.Discard); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
