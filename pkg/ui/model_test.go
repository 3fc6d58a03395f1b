package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
	"github.com/Dicklesworthstone/parts_viewer/pkg/session"
)

// keyMsg creates a tea.KeyMsg for testing
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

func testParts() []model.Part {
	return []model.Part{
		{ID: 1, PartNo: "P1", Description: "Pump", Classification: "Rotable", Model: model.Ptr("M1"), StockCount: 4},
		{ID: 2, PartNo: "P2", Description: "Seal", Classification: "Consumable", StockCount: 20},
	}
}

func newSession(t *testing.T, f loader.Fetcher, cfg session.Config) *session.Session {
	t.Helper()
	s, err := session.New(context.Background(), f, cfg, nil)
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(s.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Wait(ctx)
	return s
}

func newTestModel(t *testing.T, opts ...Option) Model {
	t.Helper()
	s := newSession(t, loader.FetcherFunc(func(context.Context) ([]model.Part, error) {
		return testParts(), nil
	}), session.DefaultConfig())
	opts = append([]Option{WithDebounce(0)}, opts...)
	return New(s, nil, opts...)
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func rowKeys(m Model) []string {
	keys := make([]string, len(m.rows))
	for i, r := range m.rows {
		if r.isGroup() {
			keys[i] = "g:" + r.group.ID()
		} else {
			keys[i] = r.part.PartNo
		}
	}
	return keys
}

func assertRows(t *testing.T, m Model, want ...string) {
	t.Helper()
	got := rowKeys(m)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected rows %v, got %v", want, got)
	}
}

func TestGroupsStartCollapsed(t *testing.T) {
	m := newTestModel(t)
	assertRows(t, m, "g:M1", "g:")

	view := m.View()
	if !strings.Contains(view, "▸ M1") {
		t.Errorf("Expected collapsed M1 header, got:\n%s", view)
	}
	if !strings.Contains(view, "(no model)") {
		t.Errorf("Expected no-model group, got:\n%s", view)
	}
}

func TestToggleExpandsGroups(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, enterKey)
	assertRows(t, m, "g:M1", "g:M1@Rotable", "g:")

	m = press(t, m, keyMsg("j"), keyMsg(" "))
	assertRows(t, m, "g:M1", "g:M1@Rotable", "P1", "g:")
	if m.cursor != 1 {
		t.Errorf("Expected cursor to stay on the toggled group, got %d", m.cursor)
	}

	m = press(t, m, keyMsg("k"), enterKey)
	assertRows(t, m, "g:M1", "g:")
}

func TestExpansionSurvivesFilter(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, enterKey, keyMsg("j"), enterKey)

	m = press(t, m, keyMsg("/"), keyMsg("P"), keyMsg("1"), enterKey)
	if m.session.Filter() != "P1" {
		t.Fatalf("Expected filter P1, got %q", m.session.Filter())
	}
	assertRows(t, m, "g:M1", "g:M1@Rotable", "P1")

	m = press(t, m, escKey)
	if m.session.Filter() != "" {
		t.Errorf("Expected esc to clear the filter")
	}
	assertRows(t, m, "g:M1", "g:M1@Rotable", "P1", "g:")
}

func TestFilterIsDebounced(t *testing.T) {
	m := newTestModel(t, WithDebounce(time.Second))

	m = press(t, m, keyMsg("/"), keyMsg("P"), keyMsg("2"))
	if m.session.Filter() != "" {
		t.Fatalf("Filter must not run before the debounce fires, got %q", m.session.Filter())
	}

	m = press(t, m, filterTickMsg{seq: m.filterSeq - 1})
	if m.session.Filter() != "" {
		t.Errorf("Stale tick must be ignored")
	}

	m = press(t, m, filterTickMsg{seq: m.filterSeq})
	if m.session.Filter() != "P2" {
		t.Errorf("Expected filter P2 after the tick, got %q", m.session.Filter())
	}
	assertRows(t, m, "g:")
}

func TestCollapseOrJumpToParent(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, keyMsg("E"))
	assertRows(t, m, "g:M1", "g:M1@Rotable", "P1", "g:", "g:@Consumable", "P2")

	m = press(t, m, keyMsg("j"), keyMsg("j"))
	m = press(t, m, keyMsg("h"))
	if m.cursor != 1 {
		t.Fatalf("Expected jump to leaf group, cursor=%d", m.cursor)
	}

	m = press(t, m, keyMsg("h"))
	assertRows(t, m, "g:M1", "g:M1@Rotable", "g:", "g:@Consumable", "P2")

	m = press(t, m, keyMsg("h"))
	if m.cursor != 0 {
		t.Errorf("Expected jump to top-level group, cursor=%d", m.cursor)
	}

	m = press(t, m, keyMsg("C"))
	assertRows(t, m, "g:M1", "g:")
}

func TestExpandOrMoveToChild(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, keyMsg("l"))
	assertRows(t, m, "g:M1", "g:M1@Rotable", "g:")
	if m.cursor != 0 {
		t.Fatalf("Expanding must not move the cursor")
	}
	m = press(t, m, keyMsg("l"))
	if m.cursor != 1 {
		t.Errorf("Expected to step into the expanded group, cursor=%d", m.cursor)
	}
}

func TestCopyPartNumber(t *testing.T) {
	var copied string
	m := newTestModel(t, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))

	m = press(t, m, keyMsg("y"))
	if copied != "" {
		t.Errorf("Group headers have nothing to copy, got %q", copied)
	}

	m = press(t, m, keyMsg("E"), keyMsg("j"), keyMsg("j"), keyMsg("y"))
	if copied != "P1" {
		t.Errorf("Expected P1 copied, got %q", copied)
	}
	if !strings.Contains(m.View(), "copied P1") {
		t.Errorf("Expected status line to confirm the copy")
	}
}

func TestSortCycles(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, keyMsg("s"))
	if m.session.Sort() != "description" {
		t.Errorf("Expected description sort, got %q", m.session.Sort())
	}
	if !strings.Contains(m.View(), "sort: description") {
		t.Errorf("Expected header to show the sort key")
	}
}

func TestFetchFailureShowsBanner(t *testing.T) {
	s := newSession(t, loader.FetcherFunc(func(context.Context) ([]model.Part, error) {
		return nil, errors.New("connection refused")
	}), session.DefaultConfig())
	m := New(s, nil)

	view := m.View()
	if !strings.Contains(view, "could not load parts: connection refused") {
		t.Errorf("Expected error banner, got:\n%s", view)
	}
	if len(m.rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(m.rows))
	}
	if m.Err() == nil {
		t.Errorf("Expected Err to report the failure")
	}

	// Keys still work on an empty screen.
	m = press(t, m, keyMsg("j"), enterKey, keyMsg("E"))
	if m.cursor != 0 {
		t.Errorf("Expected cursor to stay at 0")
	}
}

func TestDispatchedNotificationLoadsRows(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher()
	cfg := session.DefaultConfig()
	cfg.Dispatch = d.Dispatch

	s, err := session.New(context.Background(), loader.FetcherFunc(func(ctx context.Context) ([]model.Part, error) {
		<-release
		return testParts(), nil
	}), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	m := New(s, d)
	if !strings.Contains(m.View(), "Loading parts") {
		t.Errorf("Expected loading indicator while pending")
	}

	close(release)
	msg := d.listen()()
	m = press(t, m, msg)

	assertRows(t, m, "g:M1", "g:")
	if !strings.Contains(m.View(), "loaded 2 parts") {
		t.Errorf("Expected load status, got:\n%s", m.View())
	}
}

func TestFilterTypedWhileLoadingBeforeBatchRuns(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher()
	cfg := session.DefaultConfig()
	cfg.Dispatch = d.Dispatch

	s, err := session.New(context.Background(), loader.FetcherFunc(func(ctx context.Context) ([]model.Part, error) {
		<-release
		return testParts(), nil
	}), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	m := New(s, d, WithDebounce(0))
	m = press(t, m, keyMsg("/"), keyMsg("P"), keyMsg("1"), enterKey)
	if s.Filter() != "P1" {
		t.Fatalf("Expected filter kept before load, got %q", s.Filter())
	}

	// The fetch settles but the dispatcher is not drained yet.
	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	m = press(t, m, spinner.TickMsg{}, keyMsg("j"))
	if s.Loaded() || s.Cell().IsCompleted() {
		t.Fatalf("Expected the batch to still be queued, loaded=%v completed=%v", s.Loaded(), s.Cell().IsCompleted())
	}
	if view := m.View(); !strings.Contains(view, "Loading parts") {
		t.Errorf("Expected loading indicator until the batch runs, got:\n%s", view)
	}

	m = press(t, m, d.listen()())
	assertRows(t, m, "g:M1")
	if view := m.View(); !strings.Contains(view, "1 of 2") {
		t.Errorf("Expected filtered header after load, got:\n%s", view)
	}
}

func TestEmptyFilterMessageBeforeLoad(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s, err := session.New(context.Background(), loader.FetcherFunc(func(ctx context.Context) ([]model.Part, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}), session.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	m := New(s, nil, WithDebounce(0))
	m = press(t, m, keyMsg("/"), keyMsg("x"), enterKey)
	if got := m.renderEmpty(); !strings.Contains(got, "No parts match the filter.") {
		t.Errorf("Expected plain no-match message without a view, got %q", got)
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, tea.WindowSizeMsg{Width: 100, Height: 40}, keyMsg("?"))
	if !m.help.IsVisible() {
		t.Fatal("Expected help to be visible")
	}
	if !strings.Contains(m.View(), "Press any key to close") {
		t.Errorf("Expected help overlay in view")
	}

	m = press(t, m, keyMsg("x"))
	if m.help.IsVisible() {
		t.Errorf("Expected any key to close help")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected tea.QuitMsg")
	}
}
