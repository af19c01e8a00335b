package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Host.Version != "9.1" {
		t.Errorf("Host.Version = %q, want 9.1", cfg.Host.Version)
	}
}

func TestLoadOptionalMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
server:
  addr: 0.0.0.0:9000
bridge:
  call_timeout: 3s
host:
  version: "7.6"
  theme:
    button_color: "#ff0000"
`)

	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Bridge.CallTimeout != 3*time.Second {
		t.Errorf("CallTimeout = %v, want 3s", cfg.Bridge.CallTimeout)
	}
	if cfg.Host.Version != "7.6" {
		t.Errorf("Host.Version = %q, want 7.6", cfg.Host.Version)
	}
	if cfg.Host.Platform != "android" {
		t.Errorf("Host.Platform = %q, want default android", cfg.Host.Platform)
	}
	if got := cfg.Host.Theme["button_color"]; got != "#ff0000" {
		t.Errorf("theme button_color = %q, want #ff0000", got)
	}
	if got := cfg.Host.Theme["bg_color"]; got != "#17212b" {
		t.Errorf("theme bg_color = %q, want default kept", got)
	}
}

func TestLoadOptionalBadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server: [unterminated")
	if _, err := LoadOptional(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MINIAPP_ADDR":         " :7000 ",
		"MINIAPP_VERSION":      "8.0",
		"MINIAPP_CALL_TIMEOUT": "250ms",
		"MINIAPP_RATE_LIMIT":   "5",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Server.Addr)
	}
	if cfg.Host.Version != "8.0" {
		t.Errorf("Version = %q, want 8.0", cfg.Host.Version)
	}
	if cfg.Bridge.CallTimeout != 250*time.Millisecond {
		t.Errorf("CallTimeout = %v", cfg.Bridge.CallTimeout)
	}
	if cfg.Bridge.RateLimit != 5 {
		t.Errorf("RateLimit = %v", cfg.Bridge.RateLimit)
	}
}

func TestApplyEnvRejectsBadDuration(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "MINIAPP_CALL_TIMEOUT" {
			return "soon", true
		}
		return "", false
	})
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty addr", func(c *Config) { c.Server.Addr = " " }, true},
		{"bad version", func(c *Config) { c.Host.Version = "latest" }, true},
		{"negative viewport", func(c *Config) { c.Host.ViewportHeight = -1 }, true},
		{"negative timeout", func(c *Config) { c.Bridge.CallTimeout = -time.Second }, true},
		{"negative burst", func(c *Config) { c.Bridge.Burst = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "server: {}\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := findRoot(nested); got != root {
		t.Errorf("findRoot() = %q, want %q", got, root)
	}
}
