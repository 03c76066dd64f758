// Package config provides configuration management for the subfolder loader.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/ini.v1"
)

// Config is the loader server configuration.
//
// Config file location (optional, flags override it):
//   - Unix: ~/.config/subfolder-loader/loader.conf
//   - Windows: %APPDATA%\subfolder-loader\loader.conf
//
// INI format:
//
//	[server]
//	listen = 127.0.0.1:8188
//	input_dir = ./input
//
//	[cache]
//	enabled = true
//	ttl_seconds = 5
//
//	[watch]
//	enabled = true
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	// Default: 127.0.0.1:8188
	ListenAddr string

	// InputDir is the image root directory; the security boundary for all
	// browsing. Default: ./input
	InputDir string

	// CacheEnabled toggles the listing cache. Default: true
	CacheEnabled bool

	// CacheTTLSeconds expires cached listings after this many seconds.
	// 0 keeps entries until explicit invalidation. Default: 5
	CacheTTLSeconds int

	// WatchEnabled toggles fsnotify-driven cache invalidation. Default: true
	WatchEnabled bool
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:8188",
		InputDir:        DefaultInputDir(),
		CacheEnabled:    true,
		CacheTTLSeconds: 5,
		WatchEnabled:    true,
	}
}

// Load reads the config file at path, falling back to defaults when path is
// empty and no default config file exists. Unknown keys are ignored.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	serverSection := iniFile.Section("server")
	cfg.ListenAddr = serverSection.Key("listen").MustString(cfg.ListenAddr)
	cfg.InputDir = serverSection.Key("input_dir").MustString(cfg.InputDir)

	cacheSection := iniFile.Section("cache")
	cfg.CacheEnabled = cacheSection.Key("enabled").MustBool(cfg.CacheEnabled)
	cfg.CacheTTLSeconds = cacheSection.Key("ttl_seconds").MustInt(cfg.CacheTTLSeconds)

	watchSection := iniFile.Section("watch")
	cfg.WatchEnabled = watchSection.Key("enabled").MustBool(cfg.WatchEnabled)

	return cfg, nil
}

// Validate checks field ranges. It does not touch the filesystem; InputDir
// existence is verified at startup by pathutil.ResolveRoot.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.InputDir == "" {
		return fmt.Errorf("input directory must not be empty")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache ttl_seconds must be >= 0, got %d", c.CacheTTLSeconds)
	}
	return nil
}

// CacheTTL returns the TTL as a duration; zero means no expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
