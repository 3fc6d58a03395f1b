// Package config loads pv settings from .pv/config.yaml, the environment and
// defaults, in increasing order of precedence: defaults, file, environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
)

// Dir is the per-project directory holding config, log and demo database.
const Dir = ".pv"

// Environment overrides.
const (
	EnvSource   = "PV_SOURCE"
	EnvDriver   = "PV_DRIVER"
	EnvLocale   = "PV_LOCALE"
	EnvLogLevel = "PV_LOG_LEVEL"
)

// Config is the full pv configuration.
type Config struct {
	Source SourceConfig `yaml:"source"`
	View   ViewConfig   `yaml:"view"`
	Filter FilterConfig `yaml:"filter"`
	Log    LogConfig    `yaml:"log"`
}

// SourceConfig says where parts come from. File wins over DSN when both are set.
type SourceConfig struct {
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	File           string        `yaml:"file,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ViewConfig controls grouping and ordering.
type ViewConfig struct {
	GroupBy     []string `yaml:"group_by"`
	GroupPolicy string   `yaml:"group_policy"`
	Sort        string   `yaml:"sort"`
}

// FilterConfig controls how the filter box matches parts.
type FilterConfig struct {
	Mode     string        `yaml:"mode"`
	Locale   string        `yaml:"locale"`
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in configuration: a local sqlite demo database,
// grouped by model then classification.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Driver:         "sqlite3",
			DSN:            filepath.Join(Dir, "parts.db"),
			ConnectTimeout: 10 * time.Second,
		},
		View: ViewConfig{
			GroupBy:     []string{"model", "classification"},
			GroupPolicy: "once",
			Sort:        "part_no",
		},
		Filter: FilterConfig{
			Mode:     "substring",
			Locale:   "und",
			Debounce: 150 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join(Dir, "pv.log"),
		},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir, "config.yaml")
}

// Load reads the config at path (DefaultPath when empty). A missing file is
// not an error; the defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv applies the PV_* overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvSource); v != "" {
		c.SetSource(v)
	}
	if v := getenv(EnvDriver); v != "" {
		c.Source.Driver = v
	}
	if v := getenv(EnvLocale); v != "" {
		c.Filter.Locale = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// SetSource points the config at a JSONL export or a database DSN.
// Values ending in .jsonl are treated as files.
func (c *Config) SetSource(v string) {
	if strings.HasSuffix(strings.ToLower(v), ".jsonl") {
		c.Source.File = v
		return
	}
	c.Source.File = ""
	c.Source.DSN = v
}

// Validate checks every enumerated setting.
func (c Config) Validate() error {
	if c.Source.File == "" {
		switch c.Source.Driver {
		case "sqlite3", "sqlite", "postgres":
		default:
			return fmt.Errorf("unknown source driver %q (want sqlite3, sqlite or postgres)", c.Source.Driver)
		}
		if c.Source.DSN == "" {
			return errors.New("source.dsn is required when no source.file is set")
		}
	}
	if _, err := view.PartDescriptors(c.View.GroupBy); err != nil {
		return err
	}
	if _, err := view.ParseGroupPolicy(c.View.GroupPolicy); err != nil {
		return err
	}
	if _, err := view.PartSort(c.View.Sort); err != nil {
		return err
	}
	if _, err := view.ParseFilterMode(c.Filter.Mode); err != nil {
		return err
	}
	if _, err := c.LocaleTag(); err != nil {
		return err
	}
	if c.Filter.Debounce < 0 {
		return fmt.Errorf("filter.debounce cannot be negative (%s)", c.Filter.Debounce)
	}
	return nil
}

// LocaleTag parses Filter.Locale. Empty means language-neutral folding.
func (c Config) LocaleTag() (language.Tag, error) {
	if c.Filter.Locale == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(c.Filter.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid filter.locale %q: %w", c.Filter.Locale, err)
	}
	return tag, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
