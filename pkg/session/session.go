// Package session ties one fetch, one filtered grouped view and one expansion
// store together for the lifetime of a browsing screen.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/Dicklesworthstone/parts_viewer/pkg/async"
	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/expansion"
	"github.com/Dicklesworthstone/parts_viewer/pkg/grouping"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
)

// PartGroup is a group of the parts hierarchy.
type PartGroup = grouping.Group[model.Part]

// Config controls how a session presents its parts.
type Config struct {
	GroupBy     []string
	GroupPolicy view.GroupPolicy
	Sort        string
	FilterMode  view.FilterMode
	Locale      language.Tag

	// Dispatch marshals cell notifications onto the goroutine that owns the
	// session. Nil delivers them on the fetch's waiter goroutine.
	Dispatch func(func())
	// OnFault receives a failed fetch. Nil logs it.
	OnFault func(error)
}

// DefaultConfig groups by model, then classification.
func DefaultConfig() Config {
	return Config{
		GroupBy: []string{"model", "classification"},
		Sort:    "part_no",
		Locale:  language.Und,
	}
}

// FromConfig builds a session config from the loaded pv config.
func FromConfig(cfg config.Config) (Config, error) {
	policy, err := view.ParseGroupPolicy(cfg.View.GroupPolicy)
	if err != nil {
		return Config{}, err
	}
	mode, err := view.ParseFilterMode(cfg.Filter.Mode)
	if err != nil {
		return Config{}, err
	}
	tag, err := cfg.LocaleTag()
	if err != nil {
		return Config{}, err
	}
	return Config{
		GroupBy:     cfg.View.GroupBy,
		GroupPolicy: policy,
		Sort:        cfg.View.Sort,
		FilterMode:  mode,
		Locale:      tag,
	}, nil
}

// Session is the state behind one parts screen. Apart from construction and
// Close, it must be used from a single goroutine: the one Config.Dispatch
// delivers on.
type Session struct {
	id     string
	cfg    Config
	logger *zap.Logger

	cell        *async.Cell[[]model.Part]
	unsubscribe func()

	view   *view.View[model.Part]
	store  *expansion.Store
	filter string
	sort   string
}

// New starts fetching parts from f. The fetch runs in the background; the
// view becomes available once it succeeds.
func New(ctx context.Context, f loader.Fetcher, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	descs, err := view.PartDescriptors(cfg.GroupBy)
	if err != nil {
		return nil, err
	}
	if _, err := view.PartSort(cfg.Sort); err != nil {
		return nil, err
	}

	s := &Session{
		id:    uuid.NewString(),
		cfg:   cfg,
		store: expansion.New(),
		sort:  cfg.Sort,
	}
	s.logger = logger.Named("session").With(zap.String("session", s.id))

	opts := []async.Option{async.WithLogger(s.logger)}
	if cfg.Dispatch != nil {
		opts = append(opts, async.WithDispatcher(cfg.Dispatch))
	}
	if cfg.OnFault != nil {
		opts = append(opts, async.WithFaultHandler(cfg.OnFault))
	}

	s.logger.Debug("fetching parts")
	future := async.Go(ctx, f.FetchParts)
	s.cell = async.NewCell(future, opts...)
	s.unsubscribe = s.cell.Subscribe(func(n async.Notification[[]model.Part]) {
		s.onNotify(n, descs)
	})
	return s, nil
}

func (s *Session) onNotify(n async.Notification[[]model.Part], descs []grouping.Descriptor[model.Part]) {
	switch n.Outcome.Status {
	case async.StatusRanToCompletion:
		s.load(n.Outcome.Value, descs)
	case async.StatusFaulted:
		s.logger.Warn("fetch failed", zap.Error(n.Outcome.Err))
	case async.StatusCanceled:
		s.logger.Info("fetch canceled")
	}
}

func (s *Session) load(parts []model.Part, descs []grouping.Descriptor[model.Part]) {
	if s.view != nil {
		return
	}
	less, _ := view.PartSort(s.sort)
	v := view.New(parts,
		view.WithMatcher(view.PartMatcher(s.cfg.FilterMode, s.cfg.Locale)),
		view.WithGroupPolicy[model.Part](s.cfg.GroupPolicy),
		view.WithSort(less),
	)
	v.SetFilter(s.filter)
	v.DefineGroups(descs...)
	s.view = v
	s.logger.Info("parts loaded", zap.Int("count", len(parts)))
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Cell exposes the fetch state.
func (s *Session) Cell() *async.Cell[[]model.Part] { return s.cell }

// View returns the projection, or nil until the fetch succeeded.
func (s *Session) View() *view.View[model.Part] { return s.view }

// Expansion returns the session's expansion store.
func (s *Session) Expansion() *expansion.Store { return s.store }

// Loaded reports whether the parts are available.
func (s *Session) Loaded() bool { return s.view != nil }

// LoadErr returns why the fetch did not produce parts: a
// *async.FetchFailedError, async.ErrFetchCanceled, or nil while pending or
// after success.
func (s *Session) LoadErr() error {
	switch s.cell.Status() {
	case async.StatusFaulted:
		return s.cell.Err()
	case async.StatusCanceled:
		return async.ErrFetchCanceled
	default:
		return nil
	}
}

// Wait blocks until the fetch settled and its notifications were handed to
// the dispatcher. See async.Cell.Wait.
func (s *Session) Wait(ctx context.Context) error {
	_, err := s.cell.Wait(ctx)
	return err
}

// SetFilter changes the live filter. Before the parts arrive the value is
// kept and applied on load. It reports whether the visible set was
// re-evaluated.
func (s *Session) SetFilter(filter string) bool {
	if filter == s.filter {
		return false
	}
	s.filter = filter
	if s.view == nil {
		return false
	}
	return s.view.SetFilter(filter)
}

// Filter returns the live filter string.
func (s *Session) Filter() string { return s.filter }

// SetSort changes the item order within groups.
func (s *Session) SetSort(key string) error {
	less, err := view.PartSort(key)
	if err != nil {
		return err
	}
	s.sort = key
	if s.view != nil {
		s.view.SortBy(less)
	}
	return nil
}

// Sort returns the current sort key.
func (s *Session) Sort() string { return s.sort }

// Root returns the grouped projection, or nil until loaded.
func (s *Session) Root() *PartGroup {
	if s.view == nil {
		return nil
	}
	return s.view.Root()
}

// IsExpanded reports whether g is expanded.
func (s *Session) IsExpanded(g *PartGroup) bool {
	return expansion.IsGroupExpanded(g, s.store)
}

// SetExpanded records an expand or collapse of g.
func (s *Session) SetExpanded(g *PartGroup, expanded bool) {
	s.store.Apply(g, expanded)
}

// ToggleGroup flips g and returns its new state.
func (s *Session) ToggleGroup(g *PartGroup) bool {
	return s.store.Toggle(g.ID())
}

// ExpandAll expands every group currently visible.
func (s *Session) ExpandAll() {
	root := s.Root()
	if root == nil {
		return
	}
	root.Walk(func(g *PartGroup) bool {
		s.store.MarkExpanded(g.ID())
		return true
	})
}

// CollapseAll forgets every expanded group, including ones hidden by the
// current filter.
func (s *Session) CollapseAll() {
	s.store.Clear()
}

// Close cancels an in-flight fetch and detaches from the cell.
func (s *Session) Close() {
	s.cell.Cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// String summarizes the session for logs.
func (s *Session) String() string {
	n := 0
	if s.view != nil {
		n = s.view.Len()
	}
	return fmt.Sprintf("session %s (%s, %d visible)", s.id, s.cell.Status(), n)
}
