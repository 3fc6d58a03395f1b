// Package view projects a materialized list into a filtered, grouped and
// sorted view that can be re-evaluated without fetching again.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Dicklesworthstone/parts_viewer/pkg/grouping"
)

// MatchFunc reports whether an item is visible under the current filter.
type MatchFunc[T any] func(item T) bool

// MatcherFactory builds the predicate for a filter string. It is called
// lazily, once per distinct filter value.
type MatcherFactory[T any] func(filter string) (MatchFunc[T], error)

// GroupPolicy decides what happens when grouping is defined more than once.
type GroupPolicy int

const (
	GroupOnce   GroupPolicy = iota // the first definition wins
	GroupAlways                    // every definition replaces the previous one
)

// String returns the config spelling of the policy
func (p GroupPolicy) String() string {
	if p == GroupAlways {
		return "always"
	}
	return "once"
}

// ParseGroupPolicy parses "once" or "always".
func ParseGroupPolicy(s string) (GroupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "once":
		return GroupOnce, nil
	case "always":
		return GroupAlways, nil
	default:
		return GroupOnce, fmt.Errorf("unknown group policy %q (want once or always)", s)
	}
}

// Option configures a View.
type Option[T any] func(*View[T])

// WithMatcher sets the filter predicate factory.
func WithMatcher[T any](f MatcherFactory[T]) Option[T] {
	return func(v *View[T]) {
		v.factory = f
	}
}

// WithGroupPolicy sets how repeated DefineGroups calls are treated.
func WithGroupPolicy[T any](p GroupPolicy) Option[T] {
	return func(v *View[T]) {
		v.policy = p
	}
}

// WithSort sets the initial item order within groups.
func WithSort[T any](less func(a, b T) bool) Option[T] {
	return func(v *View[T]) {
		v.less = less
	}
}

// View is a filtered, grouped projection over a read-only list.
// It is not safe for concurrent use.
type View[T any] struct {
	items []T

	filter   string
	factory  MatcherFactory[T]
	match    MatchFunc[T]
	matchFor string
	matchErr error
	compiled bool

	policy  GroupPolicy
	descs   []grouping.Descriptor[T]
	defined bool

	less func(a, b T) bool

	visible []T
	root    *grouping.Group[T]
}

// New wraps items. The slice is not modified.
func New[T any](items []T, opts ...Option[T]) *View[T] {
	v := &View[T]{items: items}
	for _, opt := range opts {
		opt(v)
	}
	v.Refresh()
	return v
}

// DefineGroups sets the grouping levels. Under GroupOnce only the first call
// has an effect; it returns whether the grouping changed.
func (v *View[T]) DefineGroups(descs ...grouping.Descriptor[T]) bool {
	if v.defined && v.policy == GroupOnce {
		return false
	}
	v.descs = append([]grouping.Descriptor[T](nil), descs...)
	v.defined = true
	v.Refresh()
	return true
}

// Groups returns the current grouping levels.
func (v *View[T]) Groups() []grouping.Descriptor[T] {
	return v.descs
}

// SetFilter changes the live filter string and re-evaluates the view.
// It returns false when the value did not change.
func (v *View[T]) SetFilter(s string) bool {
	if s == v.filter {
		return false
	}
	v.filter = s
	v.Refresh()
	return true
}

// Filter returns the live filter string.
func (v *View[T]) Filter() string {
	return v.filter
}

// FilterErr returns the error from building the current filter, if any.
// A filter that fails to build matches nothing.
func (v *View[T]) FilterErr() error {
	return v.matchErr
}

// SetItems swaps the underlying list and re-evaluates the view.
func (v *View[T]) SetItems(items []T) {
	v.items = items
	v.Refresh()
}

// SortBy changes the order of items within their groups.
func (v *View[T]) SortBy(less func(a, b T) bool) {
	v.less = less
	v.Refresh()
}

// Refresh re-applies filter, sort and grouping to the current list.
func (v *View[T]) Refresh() {
	match := v.matcher()

	visible := make([]T, 0, len(v.items))
	for _, item := range v.items {
		if match(item) {
			visible = append(visible, item)
		}
	}
	if v.less != nil {
		sort.SliceStable(visible, func(i, j int) bool {
			return v.less(visible[i], visible[j])
		})
	}

	v.visible = visible
	v.root = grouping.Build(visible, v.descs...)
}

func (v *View[T]) matcher() MatchFunc[T] {
	if v.compiled && v.matchFor == v.filter {
		return v.match
	}

	v.matchFor = v.filter
	v.compiled = true
	v.matchErr = nil

	switch {
	case v.factory == nil:
		v.match = func(T) bool { return true }
	default:
		m, err := v.factory(v.filter)
		if err != nil {
			v.matchErr = err
			m = func(T) bool { return false }
		}
		v.match = m
	}
	return v.match
}

// Visible returns the items passing the filter, in display order.
func (v *View[T]) Visible() []T {
	return v.visible
}

// Root returns the root container of the grouped projection.
func (v *View[T]) Root() *grouping.Group[T] {
	return v.root
}

// Len returns the number of visible items.
func (v *View[T]) Len() int {
	return len(v.visible)
}

// Total returns the number of items before filtering.
func (v *View[T]) Total() int {
	return len(v.items)
}
