// Package export renders a grouped parts tree for non-interactive output:
// an indented text listing for terminals and pipes, or nested JSON.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/parts_viewer/pkg/expansion"
	"github.com/Dicklesworthstone/parts_viewer/pkg/grouping"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 100

const partNoWidth = 14

// TextOptions controls WriteText.
type TextOptions struct {
	// ExpandAll lists every group's contents regardless of the store.
	ExpandAll bool
	// Width is the line width. Zero means DefaultWidth.
	Width int
	// Color styles headers and part numbers with lipgloss.
	Color bool
}

// TerminalOptions detects width and color support for f.
func TerminalOptions(f *os.File) TextOptions {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return TextOptions{Width: DefaultWidth}
	}
	opts := TextOptions{Width: DefaultWidth, Color: true}
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		opts.Width = w
	}
	return opts
}

type textStyles struct {
	group  func(string) string
	level  func(string) string
	partNo func(string) string
}

func newTextStyles(w io.Writer, color bool) textStyles {
	if !color {
		plain := func(s string) string { return s }
		return textStyles{group: plain, level: plain, partNo: plain}
	}
	r := lipgloss.NewRenderer(w)
	group := r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#0B7A8C", Dark: "#8BE9FD"})
	level := r.NewStyle().Faint(true)
	partNo := r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C0307F", Dark: "#FF79C6"})
	return textStyles{
		group:  func(s string) string { return group.Render(s) },
		level:  func(s string) string { return level.Render(s) },
		partNo: func(s string) string { return partNo.Render(s) },
	}
}

// WriteText writes root as an indented tree. A group's contents are listed
// when it is expanded in store (or opts.ExpandAll is set); collapsed groups
// show only their header and count.
func WriteText(w io.Writer, root *grouping.Group[model.Part], store *expansion.Store, opts TextOptions) error {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	st := newTextStyles(w, opts.Color)
	tw := &textWriter{w: w}

	writeParts(tw, root.Items(), 0, opts.Width, st)
	var visit func(g *grouping.Group[model.Part])
	visit = func(g *grouping.Group[model.Part]) {
		open := opts.ExpandAll || expansion.IsGroupExpanded(g, store)
		marker := "▸"
		if open {
			marker = "▾"
		}
		indent := strings.Repeat("  ", g.Depth())
		tw.printf("%s%s %s  %s\n", indent, marker, st.group(g.Name()),
			st.level(fmt.Sprintf("%s · %d", g.Level(), g.Count())))
		if !open {
			return
		}
		for _, c := range g.Groups() {
			visit(c)
		}
		writeParts(tw, g.Items(), g.Depth()+1, opts.Width, st)
	}
	for _, g := range root.Groups() {
		visit(g)
	}
	return tw.err
}

func writeParts(tw *textWriter, parts []model.Part, depth, width int, st textStyles) {
	indent := strings.Repeat("  ", depth)
	for _, p := range parts {
		stock := fmt.Sprintf("%5d", p.StockCount)
		unit := runewidth.FillRight(p.Unit(), 9)
		room := width - runewidth.StringWidth(indent) - partNoWidth - 1 - len(stock) - 1 - 9 - 1
		if room < 10 {
			room = 10
		}
		desc := p.Description
		if p.Classification != "" {
			desc += " · " + p.Classification
		}
		desc = runewidth.FillRight(runewidth.Truncate(desc, room, "…"), room)
		partNo := runewidth.FillRight(runewidth.Truncate(p.PartNo, partNoWidth, "…"), partNoWidth)
		tw.printf("%s%s %s %s %s\n", indent, st.partNo(partNo), desc, unit, stock)
	}
}

// textWriter remembers the first write error so rendering code can stay linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

// GroupJSON is the JSON shape of one group.
type GroupJSON struct {
	ID     string       `json:"id"`
	Key    string       `json:"key"`
	Name   string       `json:"name"`
	Level  string       `json:"level"`
	Count  int          `json:"count"`
	Groups []GroupJSON  `json:"groups,omitempty"`
	Parts  []model.Part `json:"parts,omitempty"`
}

// ListingJSON is the top-level JSON document.
type ListingJSON struct {
	Total  int          `json:"total"`
	Filter string       `json:"filter,omitempty"`
	Groups []GroupJSON  `json:"groups,omitempty"`
	Parts  []model.Part `json:"parts,omitempty"`
}

// Listing converts root to its JSON shape.
func Listing(root *grouping.Group[model.Part], filter string) ListingJSON {
	out := ListingJSON{Total: root.Count(), Filter: filter, Parts: root.Items()}
	for _, g := range root.Groups() {
		out.Groups = append(out.Groups, groupJSON(g))
	}
	return out
}

func groupJSON(g *grouping.Group[model.Part]) GroupJSON {
	out := GroupJSON{
		ID:    g.ID(),
		Key:   g.Key(),
		Name:  g.Name(),
		Level: g.Level(),
		Count: g.Count(),
		Parts: g.Items(),
	}
	for _, c := range g.Groups() {
		out.Groups = append(out.Groups, groupJSON(c))
	}
	return out
}

// WriteJSON writes root as indented, nested JSON.
func WriteJSON(w io.Writer, root *grouping.Group[model.Part], filter string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Listing(root, filter))
}
