package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abrezinsky/derbyrush/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != ":3000" {
		t.Errorf("expected default addr :3000, got %q", cfg.Addr)
	}
	if cfg.FinishLine != 100 {
		t.Errorf("expected default finish line 100, got %d", cfg.FinishLine)
	}
	if cfg.Pot != 100000 {
		t.Errorf("expected default pot 100000, got %d", cfg.Pot)
	}
	if cfg.Countdown() != 3*time.Second {
		t.Errorf("expected default countdown 3s, got %s", cfg.Countdown())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DERBYRUSH_FINISH_LINE", "300")
	t.Setenv("DERBYRUSH_ADDR", ":8080")
	t.Setenv("DERBYRUSH_LOG_LEVEL", "debug")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.FinishLine != 300 {
		t.Errorf("expected finish line 300 from env, got %d", cfg.FinishLine)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected addr :8080 from env, got %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug from env, got %q", cfg.LogLevel)
	}
	// Untouched keys keep their defaults.
	if cfg.Pot != 100000 {
		t.Errorf("expected default pot, got %d", cfg.Pot)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "finish_line: 200\npot: 50000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("DERBYRUSH_FINISH_LINE", "300")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.FinishLine != 300 {
		t.Errorf("env should win over file, got finish line %d", cfg.FinishLine)
	}
	if cfg.Pot != 50000 {
		t.Errorf("file should win over defaults, got pot %d", cfg.Pot)
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := config.Load("/no/such/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero finish line", "DERBYRUSH_FINISH_LINE", "0"},
		{"negative countdown", "DERBYRUSH_COUNTDOWN_SECONDS", "-1"},
		{"zero pot", "DERBYRUSH_POT", "0"},
		{"zero queue", "DERBYRUSH_QUEUE_SIZE", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := config.Load(""); err == nil {
				t.Errorf("expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
