// Package config loads diffweb settings from defaults, a TOML file, the
// environment and command-line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides, e.g. DIFFWEB_SERVER_PORT.
const EnvPrefix = "DIFFWEB_"

// FileName is the per-repository config file looked up by default.
const FileName = ".diffweb.toml"

// Config holds the settings that outlive a single invocation.
type Config struct {
	Server struct {
		Host   string `koanf:"host"`
		Port   int    `koanf:"port"`
		NoOpen bool   `koanf:"no_open"`
	} `koanf:"server"`

	View struct {
		Mode string `koanf:"mode"`
	} `koanf:"view"`

	Diff struct {
		IgnoreWhitespace bool `koanf:"ignore_whitespace"`
		MergeBase        bool `koanf:"merge_base"`
	} `koanf:"diff"`

	Watch struct {
		Enabled  bool          `koanf:"enabled"`
		Debounce time.Duration `koanf:"debounce"`
	} `koanf:"watch"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":            "localhost",
		"server.port":            0,
		"server.no_open":         false,
		"view.mode":              "split",
		"diff.ignore_whitespace": false,
		"diff.merge_base":        false,
		"watch.enabled":          false,
		"watch.debounce":         "300ms",
		"log.level":              "info",
	}
}

// Load builds a Config. configPath is read if given and must exist;
// otherwise FileName in repoDir and then in $HOME are tried. overrides are
// applied last, keyed like Defaults.
func Load(configPath, repoDir string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range defaultPaths(repoDir) {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config %s: %w", path, err)
			}
			break
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultPaths(repoDir string) []string {
	var paths []string
	if repoDir != "" {
		paths = append(paths, filepath.Join(repoDir, FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	return paths
}

// envKey maps DIFFWEB_SERVER_NO_OPEN to server.no_open: the first
// underscore separates the section, the rest belong to the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 0-65535)", cfg.Server.Port)
	}
	if cfg.View.Mode != "split" && cfg.View.Mode != "unified" {
		return fmt.Errorf("invalid mode %q: must be split or unified", cfg.View.Mode)
	}
	if cfg.Server.Host == "" {
		return fmt.Errorf("host is required")
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch debounce: %s", cfg.Watch.Debounce)
	}
	return nil
}
