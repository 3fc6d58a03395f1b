package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
)

func TestDebouncerCoalesces(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Fatal("Expected a pending call")
	}
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 call, got %d", got)
	}
	if d.Pending() {
		t.Errorf("Expected nothing pending after firing")
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("Expected stopped debouncer not to fire, got %d calls", got)
	}
}

func TestDebouncerDefaultQuiet(t *testing.T) {
	if q := NewDebouncer(0, func() {}).Quiet(); q != DefaultQuiet {
		t.Errorf("Expected %v, got %v", DefaultQuiet, q)
	}
}

func TestRunCallsBackOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parts.jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, WithQuiet(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			changed <- struct{}{}
			return errors.New("reload failures are logged, not fatal")
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n{}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-ctx.Done():
		t.Fatal("Timed out waiting for change callback")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected nil on cancel, got %v", err)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "parts.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Error("Expected error watching a missing directory")
	}
}

func TestSourcePath(t *testing.T) {
	tests := []struct {
		name string
		src  config.SourceConfig
		want string
		err  bool
	}{
		{"file", config.SourceConfig{File: "parts.jsonl", Driver: loader.DriverPostgres}, "parts.jsonl", false},
		{"sqlite dsn", config.SourceConfig{Driver: loader.DriverSQLite3, DSN: "file:.pv/parts.db?_fk=1"}, ".pv/parts.db", false},
		{"modernc", config.SourceConfig{Driver: loader.DriverSQLite, DSN: "data.db"}, "data.db", false},
		{"memory", config.SourceConfig{Driver: loader.DriverSQLite, DSN: ":memory:"}, "", true},
		{"postgres", config.SourceConfig{Driver: loader.DriverPostgres, DSN: "postgres://localhost/parts"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SourcePath(tt.src)
			if tt.err {
				if !errors.Is(err, ErrNotWatchable) {
					t.Errorf("Expected ErrNotWatchable, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("SourcePath() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}
