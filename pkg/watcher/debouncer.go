// Package watcher reloads a parts source when its backing file changes.
package watcher

import (
	"sync"
	"time"
)

// DefaultQuiet is how long a file must stay untouched before a reload.
const DefaultQuiet = 250 * time.Millisecond

// Debouncer collapses a burst of Trigger calls into one call of fn, made once
// no Trigger has arrived for the quiet period.
type Debouncer struct {
	quiet time.Duration
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer for fn. A non-positive quiet period uses
// DefaultQuiet.
func NewDebouncer(quiet time.Duration, fn func()) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{quiet: quiet, fn: fn}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// fire runs fn unless a later Trigger or Stop superseded gen. Stop on the old
// timer may lose the race with an already-fired callback, so the generation
// is what decides.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Stop drops any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Quiet returns the quiet period.
func (d *Debouncer) Quiet() time.Duration {
	return d.quiet
}
