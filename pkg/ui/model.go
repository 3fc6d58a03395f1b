// Package ui is the bubbletea screen for browsing parts: a filter box over a
// collapsible tree of grouped parts.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/parts_viewer/pkg/async"
	"github.com/Dicklesworthstone/parts_viewer/pkg/session"
	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
)

// DefaultFilterDebounce is how long typing must pause before the filter runs.
const DefaultFilterDebounce = 150 * time.Millisecond

// Dispatcher moves session notifications onto the bubbletea event loop. Pass
// Dispatch as session.Config.Dispatch and the same Dispatcher to New.
type Dispatcher struct {
	ch chan func()
}

// NewDispatcher creates a dispatcher. The buffer is large enough that the
// single transition batch of a fetch never blocks its waiter.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{ch: make(chan func(), 8)}
}

// Dispatch queues fn for the event loop.
func (d *Dispatcher) Dispatch(fn func()) {
	d.ch <- fn
}

func (d *Dispatcher) listen() tea.Cmd {
	if d == nil {
		return nil
	}
	return func() tea.Msg {
		return dispatchMsg{fn: <-d.ch}
	}
}

type dispatchMsg struct{ fn func() }

type filterTickMsg struct{ seq int }

// Option configures a Model.
type Option func(*Model)

// WithDebounce sets the filter debounce. Zero applies filters on every key.
func WithDebounce(d time.Duration) Option {
	return func(m *Model) { m.debounce = d }
}

// WithTheme overrides the default theme.
func WithTheme(t Theme) Option {
	return func(m *Model) { m.theme = t }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.copy = write }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// Model is the parts screen.
type Model struct {
	session    *session.Session
	dispatcher *Dispatcher
	logger     *zap.Logger

	theme   Theme
	keys    keyMap
	spinner spinner.Model
	input   textinput.Model
	help    HelpOverlayModel

	filtering bool
	filterSeq int
	debounce  time.Duration

	rows   []row
	cursor int
	offset int

	width  int
	height int
	status string
	copy   func(string) error
}

// New creates the screen for s. d must be the dispatcher s was configured
// with, or nil when s delivers notifications inline.
func New(s *session.Session, d *Dispatcher, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter by part no, description or classification"
	ti.CharLimit = 128
	ti.SetValue(s.Filter())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		session:    s,
		dispatcher: d,
		logger:     zap.NewNop(),
		theme:      DefaultTheme(nil),
		keys:       defaultKeyMap(),
		spinner:    sp,
		input:      ti,
		debounce:   DefaultFilterDebounce,
		copy:       clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.help = NewHelpOverlayModel(m.theme)
	m.spinner.Style = m.theme.Renderer.NewStyle().Foreground(m.theme.Primary)
	m.rebuildRows()
	return m
}

// Init starts the spinner and the notification listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.dispatcher.listen())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatchMsg:
		msg.fn()
		m.rebuildRows()
		m.reportLoad()
		return m, m.dispatcher.listen()

	case spinner.TickMsg:
		if m.session.Cell().IsCompleted() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = msg.Width - 4
		m.help.SetSize(msg.Width, msg.Height)
		m.ensureVisible()
		return m, nil

	case filterTickMsg:
		if msg.seq == m.filterSeq {
			m.applyFilter()
		}
		return m, nil

	case tea.KeyMsg:
		if m.help.IsVisible() {
			m.help, _ = m.help.Update(msg)
			return m, nil
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) reportLoad() {
	if err := m.session.LoadErr(); err != nil {
		m.logger.Warn("parts unavailable", zap.Error(err))
		return
	}
	if v := m.session.View(); v != nil {
		m.status = fmt.Sprintf("loaded %d parts", v.Total())
	}
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.filtering = false
		m.input.Blur()
		m.applyFilter()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	m.filterSeq++
	if m.debounce <= 0 {
		m.applyFilter()
		return m, cmd
	}
	seq := m.filterSeq
	tick := tea.Tick(m.debounce, func(time.Time) tea.Msg { return filterTickMsg{seq: seq} })
	return m, tea.Batch(cmd, tick)
}

func (m *Model) applyFilter() {
	if m.session.SetFilter(m.input.Value()) {
		m.cursor, m.offset = 0, 0
	}
	m.rebuildRows()
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.Toggle()
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Escape):
		if m.input.Value() != "" {
			m.input.SetValue("")
			m.filterSeq++
			m.applyFilter()
		}
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.clampCursor()
	case key.Matches(msg, m.keys.Bottom):
		m.cursor = len(m.rows) - 1
		m.clampCursor()
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.listHeight() / 2)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.listHeight() / 2)
	case key.Matches(msg, m.keys.Toggle):
		m.toggleSelected()
	case key.Matches(msg, m.keys.Expand):
		m.expandOrMoveToChild()
	case key.Matches(msg, m.keys.Collapse):
		m.collapseOrJumpToParent()
	case key.Matches(msg, m.keys.ExpandAll):
		m.session.ExpandAll()
		m.rebuildRows()
	case key.Matches(msg, m.keys.CollapseAll):
		m.session.CollapseAll()
		m.rebuildRows()
	case key.Matches(msg, m.keys.Sort):
		m.cycleSort()
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	}
	return m, nil
}

func (m *Model) cycleSort() {
	next := view.NextSortKey(m.session.Sort())
	if err := m.session.SetSort(next); err != nil {
		m.status = err.Error()
		return
	}
	m.rebuildRows()
	m.status = "sorted by " + next
}

func (m *Model) copySelected() {
	r, ok := m.selectedRow()
	if !ok || r.isGroup() {
		return
	}
	if err := m.copy(r.part.PartNo); err != nil {
		m.status = "copy failed: " + err.Error()
		m.logger.Debug("clipboard write failed", zap.Error(err))
		return
	}
	m.status = "copied " + r.part.PartNo
}

// View renders the screen.
func (m Model) View() string {
	if m.help.IsVisible() {
		return m.help.View()
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.renderFilterLine())
	sb.WriteString("\n")
	sb.WriteString(RenderDivider(m.theme, m.dividerWidth()))
	sb.WriteString("\n")

	// Branch on what the session holds: rows exist only once it has loaded.
	loadErr := m.session.LoadErr()
	switch {
	case m.session.Loaded():
		sb.WriteString(m.renderRows())
	case async.KindOf(loadErr) == async.KindFetchFailed:
		sb.WriteString(m.theme.Error.Render("could not load parts: "+m.session.Cell().ErrorMessage()) + "\n")
	case async.KindOf(loadErr) == async.KindFetchCanceled:
		sb.WriteString(m.theme.Error.Render("loading canceled") + "\n")
	default:
		sb.WriteString(m.spinner.View() + " Loading parts…\n")
	}

	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) dividerWidth() int {
	if m.width > 0 {
		return m.width
	}
	return 80
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("Parts")
	v := m.session.View()
	if v == nil {
		return title
	}
	counts := fmt.Sprintf("%d of %d", v.Len(), v.Total())
	return title + "  " + m.theme.Status.Render(counts+" · sort: "+m.session.Sort())
}

func (m Model) renderFilterLine() string {
	if m.filtering {
		return m.input.View()
	}
	if f := m.input.Value(); f != "" {
		return m.theme.Status.Render("/ " + f)
	}
	return m.theme.Hint.Render("press / to filter")
}

func (m Model) renderFooter() string {
	if m.status != "" {
		return m.theme.Status.Render(m.status)
	}
	return m.theme.Hint.Render(m.keys.footerHint())
}

// Err returns why the parts could not be shown, if they could not.
func (m Model) Err() error {
	err := m.session.LoadErr()
	if err == nil || async.KindOf(err) == async.KindFetchCanceled {
		return nil
	}
	return err
}
