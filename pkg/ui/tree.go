package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
	"github.com/Dicklesworthstone/parts_viewer/pkg/session"
)

// row is one line of the flattened tree: a group header or a part.
type row struct {
	group *session.PartGroup
	part  *model.Part
	depth int
}

func (r row) isGroup() bool { return r.group != nil }

// key identifies the row across rebuilds so the cursor can follow it.
func (r row) key() string {
	if r.group != nil {
		return "g:" + r.group.ID()
	}
	return fmt.Sprintf("p:%d:%s:%s", r.part.ID, r.part.PartNo, r.part.ModelName())
}

// flatten lists the rows visible under root. Group headers are always shown;
// their contents only when expanded.
func flatten(s *session.Session) []row {
	root := s.Root()
	if root == nil {
		return nil
	}
	var rows []row
	appendItems := func(items []model.Part, depth int) {
		for i := range items {
			rows = append(rows, row{part: &items[i], depth: depth})
		}
	}

	appendItems(root.Items(), 0)
	var visit func(g *session.PartGroup)
	visit = func(g *session.PartGroup) {
		rows = append(rows, row{group: g, depth: g.Depth()})
		if !s.IsExpanded(g) {
			return
		}
		for _, c := range g.Groups() {
			visit(c)
		}
		appendItems(g.Items(), g.Depth()+1)
	}
	for _, g := range root.Groups() {
		visit(g)
	}
	return rows
}

// rebuildRows re-flattens the tree, keeping the cursor on the same row when
// it still exists.
func (m *Model) rebuildRows() {
	selected := ""
	if r, ok := m.selectedRow(); ok {
		selected = r.key()
	}
	m.rows = flatten(m.session)
	if selected != "" && m.selectByKey(selected) {
		return
	}
	m.clampCursor()
}

func (m *Model) selectByKey(key string) bool {
	for i, r := range m.rows {
		if r.key() == key {
			m.cursor = i
			m.ensureVisible()
			return true
		}
	}
	return false
}

func (m *Model) selectedRow() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureVisible()
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

// listHeight is the number of rows that fit between header and footer.
func (m *Model) listHeight() int {
	h := m.height - 5
	if h < 1 {
		return 20
	}
	return h
}

func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// toggleSelected flips the group under the cursor.
func (m *Model) toggleSelected() {
	r, ok := m.selectedRow()
	if !ok || !r.isGroup() {
		return
	}
	m.session.ToggleGroup(r.group)
	m.rebuildRows()
}

// expandOrMoveToChild expands a collapsed group, or steps into an expanded one.
func (m *Model) expandOrMoveToChild() {
	r, ok := m.selectedRow()
	if !ok || !r.isGroup() {
		return
	}
	if !m.session.IsExpanded(r.group) {
		m.session.SetExpanded(r.group, true)
		m.rebuildRows()
		return
	}
	if m.cursor+1 < len(m.rows) {
		m.moveCursor(1)
	}
}

// collapseOrJumpToParent collapses an expanded group, otherwise moves to the
// enclosing group header.
func (m *Model) collapseOrJumpToParent() {
	r, ok := m.selectedRow()
	if !ok {
		return
	}
	if r.isGroup() && m.session.IsExpanded(r.group) {
		m.session.SetExpanded(r.group, false)
		m.rebuildRows()
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].isGroup() && m.rows[i].depth < r.depth {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

func (m *Model) renderRows() string {
	if len(m.rows) == 0 {
		return m.renderEmpty()
	}

	start := m.offset
	end := start + m.listHeight()
	if end > len(m.rows) {
		end = len(m.rows)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		line := m.renderRow(m.rows[i])
		if i == m.cursor {
			line = m.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderEmpty() string {
	muted := m.theme.Renderer.NewStyle().Foreground(m.theme.Muted)
	if m.session.Filter() != "" {
		msg := "No parts match the filter."
		if v := m.session.View(); v != nil && v.FilterErr() != nil {
			msg = v.FilterErr().Error()
		}
		return muted.Render(msg) + "\n" + muted.Render("Press esc to clear it.") + "\n"
	}
	return muted.Render("No parts to display.") + "\n"
}

func (m *Model) renderRow(r row) string {
	indent := strings.Repeat("  ", r.depth)
	width := m.width
	if width <= 0 {
		width = 80
	}

	if r.isGroup() {
		g := r.group
		indicator := m.theme.Renderer.NewStyle().Foreground(m.theme.Muted).Render(expandIndicator(m.session.IsExpanded(g)))
		name := m.theme.Group.Render(g.Name())
		meta := m.theme.Level.Render(fmt.Sprintf("%s · %d", g.Level(), g.Count()))
		return indent + indicator + " " + name + "  " + meta
	}

	p := r.part
	fixed := indent + "  " + m.theme.PartNo.Render(fmt.Sprintf("%-12s", p.PartNo)) + " "
	badges := " " + RenderRotableBadge(m.theme, *p) + " " + RenderStockBadge(m.theme, p.StockCount)
	if u := p.Unit(); u != "" {
		badges += " " + m.theme.Status.Render(u)
	}

	desc := p.Description
	if p.Classification != "" {
		desc += " · " + p.Classification
	}
	room := width - lipgloss.Width(fixed) - lipgloss.Width(badges)
	if room < 10 {
		room = 10
	}
	desc = truncate.StringWithTail(desc, uint(room), "…")
	pad := room - lipgloss.Width(desc)
	if pad < 0 {
		pad = 0
	}
	return fixed + desc + strings.Repeat(" ", pad) + badges
}
