package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected default requestTimeout 30s, got %s", cfg.RequestTimeout)
	}
	if cfg.IdleTimeout != 30*time.Minute {
		t.Errorf("expected default idleTimeout 30m, got %s", cfg.IdleTimeout)
	}
	if !cfg.AutoStart {
		t.Error("expected autoStart to default true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default logLevel info, got %s", cfg.LogLevel)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("expected no user servers by default, got %d", len(cfg.Servers))
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	configContent := `
requestTimeout: 10s
logLevel: debug
servers:
  - id: go
    extensions: [".go"]
    command: gopls
    args: ["serve", "-v"]
    rootMarkers: ["go.mod"]
  - id: zig
    extensions: [".zig"]
    command: zls
    rootMarkers: ["build.zig"]
`
	if err := os.WriteFile("mlsp.yaml", []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("expected requestTimeout 10s, got %s", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected logLevel debug, got %s", cfg.LogLevel)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("expected 2 user servers, got %d", len(cfg.Servers))
	}

	resolved := cfg.ResolvedServers()
	var sawOverriddenGo, sawZig bool
	for _, s := range resolved {
		if s.ID == "go" {
			sawOverriddenGo = true
			if len(s.Args) != 2 || s.Args[1] != "-v" {
				t.Errorf("expected user override of go server's args, got %v", s.Args)
			}
		}
		if s.ID == "zig" {
			sawZig = true
		}
	}
	if !sawOverriddenGo {
		t.Error("expected resolved servers to include overridden built-in 'go'")
	}
	if !sawZig {
		t.Error("expected resolved servers to include new user entry 'zig'")
	}
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	if err := os.WriteFile("mlsp.yaml", []byte("logLevel: chatty\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid logLevel, got nil")
	}
}

func TestLoadRejectsServerWithoutID(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	configContent := `
servers:
  - command: gopls
`
	if err := os.WriteFile("mlsp.yaml", []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for server entry missing id, got nil")
	}
}

func TestEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	os.Setenv("MLSP_LOGLEVEL", "warn")
	defer os.Unsetenv("MLSP_LOGLEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected env override logLevel warn, got %s", cfg.LogLevel)
	}
}
