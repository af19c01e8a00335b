package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/miniapp/pkg/hostsim"
	"github.com/go-drift/miniapp/pkg/version"
)

// FileName is the optional project configuration file.
const FileName = "miniapp.yaml"

// DefaultAddr is where the simulator listens when nothing else is set.
const DefaultAddr = "127.0.0.1:8765"

// Config represents miniapp.yaml.
type Config struct {
	Server ServerConfig    `yaml:"server"`
	Bridge BridgeConfig    `yaml:"bridge"`
	Host   hostsim.Profile `yaml:"host"`
}

// ServerConfig contains simulator listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// BridgeConfig contains settings for bridges the CLI opens.
type BridgeConfig struct {
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`
	RateLimit   float64       `yaml:"rate_limit,omitempty"`
	Burst       int           `yaml:"burst,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Bridge: BridgeConfig{CallTimeout: 10 * time.Second},
		Host:   hostsim.DefaultProfile(),
	}
}

// LoadOptional reads miniapp.yaml from dir if present. Keys the file leaves
// out keep their defaults; theme entries are merged into the default theme.
func LoadOptional(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return cfg, nil
}

// Load reads miniapp.yaml from dir, applies environment overrides and
// validates the result.
func Load(dir string) (*Config, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with MINIAPP_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MINIAPP_ADDR"); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup("MINIAPP_VERSION"); ok && strings.TrimSpace(v) != "" {
		c.Host.Version = strings.TrimSpace(v)
	}
	if v, ok := lookup("MINIAPP_PLATFORM"); ok && strings.TrimSpace(v) != "" {
		c.Host.Platform = strings.TrimSpace(v)
	}
	if v, ok := lookup("MINIAPP_CALL_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid MINIAPP_CALL_TIMEOUT: %w", err)
		}
		c.Bridge.CallTimeout = d
	}
	if v, ok := lookup("MINIAPP_RATE_LIMIT"); ok && strings.TrimSpace(v) != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid MINIAPP_RATE_LIMIT: %w", err)
		}
		c.Bridge.RateLimit = rps
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := version.Parse(c.Host.Version); err != nil {
		return fmt.Errorf("host.version: %w", err)
	}
	if c.Host.ViewportHeight < 0 {
		return fmt.Errorf("host.viewport_height must not be negative")
	}
	if c.Bridge.CallTimeout < 0 {
		return fmt.Errorf("bridge.call_timeout must not be negative")
	}
	if c.Bridge.RateLimit < 0 || c.Bridge.Burst < 0 {
		return fmt.Errorf("bridge.rate_limit and bridge.burst must not be negative")
	}
	return nil
}

// FindProjectRoot walks up from the current directory to the first
// directory holding miniapp.yaml or go.mod. Without either it returns the
// current directory.
func FindProjectRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findRoot(start), nil
}

func findRoot(start string) string {
	dir := start
	for {
		for _, marker := range []string{FileName, "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
