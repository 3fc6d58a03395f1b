package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
)

// ErrNotWatchable is returned by SourcePath for sources without a local file.
var ErrNotWatchable = errors.New("source has no local file to watch")

// Watcher calls back when one file changes. It watches the file's directory
// rather than the file itself, so editors that replace the file on save and
// sqlite journal renames are still seen.
type Watcher struct {
	path   string
	quiet  time.Duration
	logger *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuiet sets the debounce quiet period.
func WithQuiet(d time.Duration) Option {
	return func(w *Watcher) { w.quiet = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher for path.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w := &Watcher{path: abs, quiet: DefaultQuiet, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("watcher").With(zap.String("path", abs))
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// relevant reports whether ev touches the watched file or one of its
// sqlite side files.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == w.path {
		return true
	}
	return name == w.path+"-wal" || name == w.path+"-journal"
}

// Run blocks until ctx is done, calling onChange after each burst of changes
// to the file. Calls are serialized on the Run goroutine. An error from
// onChange is logged and watching continues. Run returns nil when ctx ends.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fire := make(chan struct{}, 1)
	deb := NewDebouncer(w.quiet, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
	defer deb.Stop()

	w.logger.Debug("watching for changes", zap.Duration("quiet", deb.Quiet()))
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.logger.Debug("change detected", zap.String("op", ev.Op.String()))
				deb.Trigger()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-fire:
			if err := onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn("reload failed", zap.Error(err))
			}
		}
	}
}

// Watch runs a Watcher for path until ctx is done. See Watcher.Run.
func Watch(ctx context.Context, path string, quiet time.Duration, fn func(context.Context) error) error {
	w, err := New(path, WithQuiet(quiet))
	if err != nil {
		return err
	}
	return w.Run(ctx, fn)
}

// SourcePath returns the local file behind a configured source: the JSONL
// file, or the database file of a sqlite DSN.
func SourcePath(src config.SourceConfig) (string, error) {
	if src.File != "" {
		return src.File, nil
	}
	switch src.Driver {
	case loader.DriverSQLite3, loader.DriverSQLite:
	default:
		return "", ErrNotWatchable
	}
	path := loader.DBPath(src.DSN)
	if path == "" {
		return "", ErrNotWatchable
	}
	return path, nil
}
