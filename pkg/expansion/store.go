// Package expansion tracks which groups of a grouped view are expanded.
//
// Groups are remembered by their path identity (see grouping.Identify), so the
// state survives rebuilds of the grouping: a group that disappears and comes
// back later is still expanded. Identities of groups that no longer exist are
// simply never looked up again.
package expansion

import (
	"sort"

	"github.com/Dicklesworthstone/parts_viewer/pkg/grouping"
)

// Store is the set of expanded group identities for one view.
// It is not safe for concurrent use; a view mutates it from its event loop.
type Store struct {
	expanded map[string]struct{}
}

// New returns an empty store: every group starts collapsed.
func New() *Store {
	return &Store{expanded: make(map[string]struct{})}
}

// MarkExpanded records id as expanded.
func (s *Store) MarkExpanded(id string) {
	s.expanded[id] = struct{}{}
}

// MarkCollapsed forgets id. Collapsing an unknown id is a no-op.
func (s *Store) MarkCollapsed(id string) {
	delete(s.expanded, id)
}

// IsExpanded reports whether id is expanded.
func (s *Store) IsExpanded(id string) bool {
	_, ok := s.expanded[id]
	return ok
}

// Toggle flips id and returns the new state.
func (s *Store) Toggle(id string) bool {
	if s.IsExpanded(id) {
		s.MarkCollapsed(id)
		return false
	}
	s.MarkExpanded(id)
	return true
}

// Apply handles an expand or collapse event for node.
func (s *Store) Apply(node grouping.Pather, expanded bool) {
	id := grouping.Identify(node, "")
	if expanded {
		s.MarkExpanded(id)
		return
	}
	s.MarkCollapsed(id)
}

// Len returns the number of expanded identities.
func (s *Store) Len() int {
	return len(s.expanded)
}

// IDs returns the expanded identities in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear collapses everything.
func (s *Store) Clear() {
	s.expanded = make(map[string]struct{})
}

// IsGroupExpanded is the render-time lookup for a group header. With nothing
// expanded it answers false without computing node's identity.
func IsGroupExpanded(node grouping.Pather, s *Store) bool {
	if s == nil || s.Len() == 0 {
		return false
	}
	return s.IsExpanded(grouping.Identify(node, ""))
}
