package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Dracula-inspired with light-terminal fallbacks
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#E5E5EA", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1E1F29", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#8A8FA8", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#7D56C1", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0B7A8C", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#1E8C3A", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B35C00", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF5555"}
	ColorPink    = lipgloss.AdaptiveColor{Light: "#C0307F", Dark: "#FF79C6"}
)

// Theme bundles the renderer and the styles the parts screen draws with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor

	Title    lipgloss.Style
	Group    lipgloss.Style
	Level    lipgloss.Style
	PartNo   lipgloss.Style
	Selected lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Hint     lipgloss.Style
}

// DefaultTheme builds the theme for r. A nil renderer uses lipgloss's default.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	t := Theme{
		Renderer:  r,
		Primary:   ColorPrimary,
		Secondary: ColorInfo,
		Muted:     ColorMuted,
		Text:      ColorText,
		Subtext:   ColorSubtext,
		Highlight: ColorPink,
		Border:    ColorBgHighlight,
	}
	t.Title = r.NewStyle().Bold(true).Foreground(t.Primary)
	t.Group = r.NewStyle().Bold(true).Foreground(t.Secondary)
	t.Level = r.NewStyle().Foreground(t.Muted).Italic(true)
	t.PartNo = r.NewStyle().Foreground(t.Highlight)
	t.Selected = r.NewStyle().Background(ColorBgHighlight).Bold(true)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	t.Error = r.NewStyle().Bold(true).Foreground(ColorDanger)
	t.Hint = r.NewStyle().Faint(true).Italic(true)
	return t
}

// RenderRotableBadge returns a short badge for the rotable flag.
func RenderRotableBadge(t Theme, p model.Part) string {
	var fg lipgloss.AdaptiveColor
	var label string

	switch {
	case p.IsRotable == nil:
		fg, label = t.Muted, "  ?"
	case *p.IsRotable:
		fg, label = ColorSuccess, "ROT"
	default:
		fg, label = ColorWarning, "EXP"
	}
	return t.Renderer.NewStyle().Foreground(fg).Bold(true).Render(label)
}

// RenderStockBadge colors the stock count: red when out, orange when low.
func RenderStockBadge(t Theme, count int) string {
	fg := t.Subtext
	switch {
	case count == 0:
		fg = ColorDanger
	case count < 5:
		fg = ColorWarning
	}
	return t.Renderer.NewStyle().Foreground(fg).Width(5).Align(lipgloss.Right).Render(fmt.Sprintf("%d", count))
}

// RenderDivider renders a horizontal divider line
func RenderDivider(t Theme, width int) string {
	if width <= 0 {
		return ""
	}
	return t.Renderer.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", width))
}

// expandIndicator returns the tree marker for a group header.
func expandIndicator(expanded bool) string {
	if expanded {
		return "▾"
	}
	return "▸"
}
