// Package grouping builds multi-level groupings of items and gives every
// group a stable path identity.
package grouping

// Separator joins the keys of a group path, root to leaf.
const Separator = "@"

// Pather is a node in a grouping hierarchy that knows its own key and its
// parent. The implicit top-level container is never reported as a parent.
type Pather interface {
	PathKey() string
	PathParent() (Pather, bool)
}

// Identify returns the path identity of node: its ancestors' keys and its own
// key joined by Separator, root to leaf, followed by suffix.
//
// The result depends only on the key chain, so the same logical group gets
// the same identity across rebuilds, sort changes and filter changes.
// node must not be nil.
func Identify(node Pather, suffix string) string {
	id := node.PathKey() + suffix
	parent, ok := node.PathParent()
	if !ok {
		return id
	}
	return Identify(parent, Separator+id)
}
