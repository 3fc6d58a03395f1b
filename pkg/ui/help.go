package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpMarkdown = `# Parts viewer

## Navigation

| Key | Action |
|-----|--------|
| j / ↓, k / ↑ | Move down / up |
| g, G | Top / bottom |
| pgdn, pgup | Page down / up |

## Groups

| Key | Action |
|-----|--------|
| enter / space | Toggle the group under the cursor |
| → / l | Expand, or step into an expanded group |
| ← / h | Collapse, or jump to the enclosing group |
| E, C | Expand all / collapse all |

## Filter

| Key | Action |
|-----|--------|
| / | Edit the filter (part number, description, classification) |
| esc | Leave the filter box, or clear the filter |

With ` + "`filter.mode: expr`" + ` in the config the filter is an expression
over part fields, e.g. ` + "`StockCount < 5 && Rotable`" + `.

## Other

| Key | Action |
|-----|--------|
| s | Cycle sort order |
| y | Copy the part number |
| ? | Toggle this help |
| q | Quit |
`

// HelpOverlayModel shows keyboard shortcuts help
type HelpOverlayModel struct {
	visible       bool
	width         int
	height        int
	theme         Theme
	rendered      string
	renderedWidth int
}

// NewHelpOverlayModel creates a new help overlay
func NewHelpOverlayModel(theme Theme) HelpOverlayModel {
	return HelpOverlayModel{theme: theme}
}

// Toggle toggles visibility
func (m *HelpOverlayModel) Toggle() {
	m.visible = !m.visible
}

// IsVisible returns true if overlay is showing
func (m HelpOverlayModel) IsVisible() bool {
	return m.visible
}

// SetSize sets dimensions
func (m *HelpOverlayModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles input
func (m HelpOverlayModel) Update(msg tea.Msg) (HelpOverlayModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		// Any key closes help
		m.visible = false
	}
	return m, nil
}

// View renders the help overlay
func (m *HelpOverlayModel) View() string {
	if !m.visible {
		return ""
	}

	wrap := m.width - 8
	if wrap < 40 {
		wrap = 40
	}
	if m.rendered == "" || m.renderedWidth != wrap {
		m.rendered = renderMarkdown(helpMarkdown, wrap)
		m.renderedWidth = wrap
	}

	hint := m.theme.Hint.Render("[Press any key to close]")
	boxStyle := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(0, 1)

	return boxStyle.Render(m.rendered + "\n" + hint)
}

// renderMarkdown renders md with glamour, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
