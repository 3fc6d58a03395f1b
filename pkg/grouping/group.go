package grouping

import "sort"

// DefaultMissing is the display name of a group holding items without a key.
const DefaultMissing = "(none)"

// Descriptor defines one grouping level.
type Descriptor[T any] struct {
	// Name describes the level, e.g. "Model".
	Name string
	// Key extracts the group key; ok is false when the item has none.
	Key func(item T) (key string, ok bool)
	// Missing is the display name for items without a key.
	Missing string
	// Less orders sibling groups by key. Nil keeps first-seen order.
	// Groups without a key always sort last.
	Less func(a, b string) bool
}

// Group is one node of a grouping hierarchy. The value returned by Build is
// the root container: it has no key, no parent and holds the top-level groups.
type Group[T any] struct {
	key     string
	missing bool
	label   string
	desc    string
	root    bool
	depth   int
	parent  *Group[T]
	groups  []*Group[T]
	index   map[string]*Group[T]
	items   []T
}

// Build groups items level by level according to descs and returns the root
// container. Item order within each group follows the input order.
func Build[T any](items []T, descs ...Descriptor[T]) *Group[T] {
	root := &Group[T]{root: true, depth: -1}
	if len(descs) == 0 {
		root.items = append(root.items, items...)
		return root
	}

	for _, item := range items {
		g := root
		for _, d := range descs {
			key, ok := d.Key(item)
			g = g.child(key, ok, d)
		}
		g.items = append(g.items, item)
	}

	root.sortChildren(descs, 0)
	return root
}

func (g *Group[T]) child(key string, ok bool, d Descriptor[T]) *Group[T] {
	if !ok {
		key = ""
	}
	if g.index == nil {
		g.index = make(map[string]*Group[T])
	}
	if c, exists := g.index[key]; exists {
		return c
	}

	label := key
	if !ok || key == "" {
		label = d.Missing
		if label == "" {
			label = DefaultMissing
		}
	}
	c := &Group[T]{
		key:     key,
		missing: !ok || key == "",
		label:   label,
		desc:    d.Name,
		depth:   g.depth + 1,
		parent:  g,
	}
	g.index[key] = c
	g.groups = append(g.groups, c)
	return c
}

func (g *Group[T]) sortChildren(descs []Descriptor[T], level int) {
	if level >= len(descs) {
		return
	}
	if less := descs[level].Less; less != nil {
		sort.SliceStable(g.groups, func(i, j int) bool {
			a, b := g.groups[i], g.groups[j]
			if a.missing != b.missing {
				return !a.missing
			}
			return less(a.key, b.key)
		})
	}
	for _, c := range g.groups {
		c.sortChildren(descs, level+1)
	}
}

// Key returns the group key ("" for the root and for missing-key groups).
func (g *Group[T]) Key() string { return g.key }

// Name returns the display name.
func (g *Group[T]) Name() string { return g.label }

// Level returns the descriptor name this group was built by.
func (g *Group[T]) Level() string { return g.desc }

// IsMissing reports whether the group collects items without a key.
func (g *Group[T]) IsMissing() bool { return g.missing }

// IsRoot reports whether g is the implicit top-level container.
func (g *Group[T]) IsRoot() bool { return g.root }

// Depth is 0 for top-level groups and -1 for the root container.
func (g *Group[T]) Depth() int { return g.depth }

// Parent returns the enclosing group, or nil for top-level groups and the
// root container.
func (g *Group[T]) Parent() *Group[T] {
	if g.parent == nil || g.parent.root {
		return nil
	}
	return g.parent
}

// PathKey implements Pather.
func (g *Group[T]) PathKey() string { return g.key }

// PathParent implements Pather.
func (g *Group[T]) PathParent() (Pather, bool) {
	p := g.Parent()
	if p == nil {
		return nil, false
	}
	return p, true
}

// ID returns the group's path identity.
func (g *Group[T]) ID() string {
	return Identify(g, "")
}

// Groups returns the sub-groups in display order.
func (g *Group[T]) Groups() []*Group[T] { return g.groups }

// Items returns the items held directly by g. Only leaf groups (or a root
// built without descriptors) hold items.
func (g *Group[T]) Items() []T { return g.items }

// IsLeaf reports whether g has no sub-groups.
func (g *Group[T]) IsLeaf() bool { return len(g.groups) == 0 }

// Count returns the number of items under g.
func (g *Group[T]) Count() int {
	n := len(g.items)
	for _, c := range g.groups {
		n += c.Count()
	}
	return n
}

// All returns every item under g in display order.
func (g *Group[T]) All() []T {
	out := make([]T, 0, g.Count())
	var collect func(*Group[T])
	collect = func(n *Group[T]) {
		out = append(out, n.items...)
		for _, c := range n.groups {
			collect(c)
		}
	}
	collect(g)
	return out
}

// Walk visits every group below g depth-first, parents before children.
// Returning false from fn skips that group's children.
func (g *Group[T]) Walk(fn func(*Group[T]) bool) {
	for _, c := range g.groups {
		if fn(c) {
			c.Walk(fn)
		}
	}
}

// Find returns the group below g whose path identity is id.
func (g *Group[T]) Find(id string) (*Group[T], bool) {
	var found *Group[T]
	g.Walk(func(c *Group[T]) bool {
		if found != nil {
			return false
		}
		if c.ID() == id {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// Ancestors returns the chain of groups from the top level down to g.
func (g *Group[T]) Ancestors() []*Group[T] {
	var chain []*Group[T]
	for n := g; n != nil && !n.root; n = n.parent {
		chain = append([]*Group[T]{n}, chain...)
	}
	return chain
}
