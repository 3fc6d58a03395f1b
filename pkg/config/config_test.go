package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvSource, "")
	t.Setenv(EnvDriver, "")
	t.Setenv(EnvLocale, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source.Driver != "sqlite3" {
		t.Errorf("Expected default driver sqlite3, got %q", cfg.Source.Driver)
	}
	if len(cfg.View.GroupBy) != 2 || cfg.View.GroupBy[0] != "model" {
		t.Errorf("Expected default grouping [model classification], got %v", cfg.View.GroupBy)
	}
	if cfg.Filter.Debounce != 150*time.Millisecond {
		t.Errorf("Expected 150ms debounce, got %s", cfg.Filter.Debounce)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `source:
  driver: postgres
  dsn: postgres://localhost/parts
  connect_timeout: 3s
view:
  group_by: [classification]
  group_policy: always
filter:
  mode: fuzzy
  debounce: 50ms
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvSource, "")
	t.Setenv(EnvDriver, "")
	t.Setenv(EnvLocale, "tr")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"driver", cfg.Source.Driver, "postgres"},
		{"timeout", cfg.Source.ConnectTimeout, 3 * time.Second},
		{"group policy", cfg.View.GroupPolicy, "always"},
		{"sort keeps default", cfg.View.Sort, "part_no"},
		{"mode", cfg.Filter.Mode, "fuzzy"},
		{"debounce", cfg.Filter.Debounce, 50 * time.Millisecond},
		{"locale from env", cfg.Filter.Locale, "tr"},
		{"level from env", cfg.Log.Level, "warn"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	tag, err := cfg.LocaleTag()
	if err != nil || tag != language.Turkish {
		t.Errorf("Expected Turkish locale, got %v (%v)", tag, err)
	}
}

func TestSetSource(t *testing.T) {
	cfg := Default()
	cfg.SetSource("exports/parts.JSONL")
	if cfg.Source.File != "exports/parts.JSONL" {
		t.Errorf("Expected JSONL path to set file, got %+v", cfg.Source)
	}

	cfg.SetSource("file:parts.db")
	if cfg.Source.File != "" || cfg.Source.DSN != "file:parts.db" {
		t.Errorf("Expected DSN to replace file, got %+v", cfg.Source)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Source.Driver = "oracle" }},
		{"empty dsn", func(c *Config) { c.Source.DSN = "" }},
		{"group level", func(c *Config) { c.View.GroupBy = []string{"colour"} }},
		{"policy", func(c *Config) { c.View.GroupPolicy = "sometimes" }},
		{"sort", func(c *Config) { c.View.Sort = "weight" }},
		{"mode", func(c *Config) { c.Filter.Mode = "regex" }},
		{"locale", func(c *Config) { c.Filter.Locale = "not a locale!" }},
		{"debounce", func(c *Config) { c.Filter.Debounce = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}

	cfg := Default()
	cfg.Source.Driver = ""
	cfg.Source.File = "parts.jsonl"
	if err := cfg.Validate(); err != nil {
		t.Errorf("File source needs no driver, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.View.GroupBy = []string{"unit", "rotable"}
	cfg.Filter.Debounce = 300 * time.Millisecond

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	t.Setenv(EnvSource, "")
	t.Setenv(EnvDriver, "")
	t.Setenv(EnvLocale, "")
	t.Setenv(EnvLogLevel, "")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.View.GroupBy[0] != "unit" || got.Filter.Debounce != 300*time.Millisecond {
		t.Errorf("Round trip lost values: %+v", got)
	}
}
