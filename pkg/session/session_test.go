package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/parts_viewer/pkg/async"
	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
)

func scenarioParts() []model.Part {
	return []model.Part{
		{ID: 1, PartNo: "P1", Description: "Pump", Classification: "Rotable", Model: model.Ptr("M1")},
		{ID: 2, PartNo: "P2", Description: "Seal", Classification: "Consumable"},
	}
}

func staticFetcher(parts []model.Part) loader.Fetcher {
	return loader.FetcherFunc(func(context.Context) ([]model.Part, error) {
		return parts, nil
	})
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newLoaded(t *testing.T, parts []model.Part, cfg Config) *Session {
	t.Helper()
	s, err := New(context.Background(), staticFetcher(parts), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Wait(waitCtx(t)))
	require.True(t, s.Loaded())
	return s
}

func TestEndToEndScenario(t *testing.T) {
	s := newLoaded(t, scenarioParts(), DefaultConfig())

	root := s.Root()
	require.Len(t, root.Groups(), 2)

	m1 := root.Groups()[0]
	assert.Equal(t, "M1", m1.Key())
	rotable := m1.Groups()[0]
	assert.Equal(t, "M1@Rotable", rotable.ID())
	assert.Equal(t, "P1", rotable.Items()[0].PartNo)

	noModel := root.Groups()[1]
	assert.Equal(t, "(no model)", noModel.Name())
	assert.Equal(t, "P2", noModel.All()[0].PartNo)

	// Nothing expanded yet: every header renders collapsed.
	assert.False(t, s.IsExpanded(m1))
	assert.False(t, s.IsExpanded(rotable))

	s.SetExpanded(m1, true)
	s.SetExpanded(rotable, true)
	assert.Equal(t, []string{"M1", "M1@Rotable"}, s.Expansion().IDs())

	require.True(t, s.SetFilter("P1"))
	assert.Equal(t, 1, s.View().Len())

	// Regrouped under the filter, the same groups are still expanded.
	root = s.Root()
	require.Len(t, root.Groups(), 1)
	again, ok := root.Find("M1@Rotable")
	require.True(t, ok)
	assert.True(t, s.IsExpanded(again))
	assert.True(t, s.IsExpanded(root.Groups()[0]))

	// Clearing the filter brings back the no-model group, still collapsed.
	s.SetFilter("")
	assert.Equal(t, 2, s.View().Len())
	assert.False(t, s.IsExpanded(s.Root().Groups()[1]))
}

func TestFilterBeforeLoadIsApplied(t *testing.T) {
	release := make(chan struct{})
	fetch := loader.FetcherFunc(func(ctx context.Context) ([]model.Part, error) {
		select {
		case <-release:
			return scenarioParts(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	s, err := New(context.Background(), fetch, DefaultConfig(), nil)
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Loaded())
	assert.Nil(t, s.Root())
	assert.NoError(t, s.LoadErr())
	assert.False(t, s.SetFilter("seal"), "nothing to re-evaluate before load")
	assert.Equal(t, "seal", s.Filter())

	close(release)
	require.NoError(t, s.Wait(waitCtx(t)))
	require.True(t, s.Loaded())
	assert.Equal(t, []string{"P2"}, []string{s.View().Visible()[0].PartNo})
	assert.Equal(t, 1, s.View().Len())
}

func TestFailedFetchLeavesNoRecords(t *testing.T) {
	boom := errors.New("connection refused")
	var faults []error
	cfg := DefaultConfig()
	cfg.OnFault = func(err error) { faults = append(faults, err) }

	s, err := New(context.Background(), loader.FetcherFunc(func(context.Context) ([]model.Part, error) {
		return nil, boom
	}), cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	waitErr := s.Wait(waitCtx(t))
	var fetchErr *async.FetchFailedError
	require.ErrorAs(t, waitErr, &fetchErr)
	assert.ErrorIs(t, waitErr, boom)

	assert.False(t, s.Loaded())
	assert.Nil(t, s.Root())
	assert.ErrorIs(t, s.LoadErr(), boom)
	assert.Equal(t, async.KindFetchFailed, async.KindOf(s.LoadErr()))
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], boom)
}

func TestCloseCancelsFetch(t *testing.T) {
	started := make(chan struct{})
	fetch := loader.FetcherFunc(func(ctx context.Context) ([]model.Part, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	s, err := New(context.Background(), fetch, DefaultConfig(), nil)
	require.NoError(t, err)
	<-started
	s.Close()

	err = s.Wait(waitCtx(t))
	assert.ErrorIs(t, err, async.ErrFetchCanceled)
	assert.ErrorIs(t, s.LoadErr(), async.ErrFetchCanceled)
	assert.True(t, s.Cell().IsCanceled())
	assert.False(t, s.Cell().IsFaulted())
}

func TestSessionsAreIndependent(t *testing.T) {
	a := newLoaded(t, scenarioParts(), DefaultConfig())
	b := newLoaded(t, scenarioParts(), DefaultConfig())

	assert.NotEqual(t, a.ID(), b.ID())

	a.SetFilter("P1")
	a.ExpandAll()
	assert.Equal(t, "", b.Filter())
	assert.Equal(t, 0, b.Expansion().Len())
	assert.Equal(t, 2, b.View().Len())
}

func TestDispatcherMarshalsNotifications(t *testing.T) {
	queue := make(chan func(), 4)
	cfg := DefaultConfig()
	cfg.Dispatch = func(fn func()) { queue <- fn }

	s, err := New(context.Background(), staticFetcher(scenarioParts()), cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Wait(waitCtx(t)))
	if !s.Loaded() {
		// The future settled after the replay: the transition batch is queued
		// until the owner runs it.
		select {
		case fn := <-queue:
			fn()
		case <-time.After(5 * time.Second):
			t.Fatal("Expected a queued notification")
		}
	}
	assert.True(t, s.Loaded())
}

func TestToggleExpandAndCollapseAll(t *testing.T) {
	s := newLoaded(t, scenarioParts(), DefaultConfig())
	m1 := s.Root().Groups()[0]

	assert.True(t, s.ToggleGroup(m1))
	assert.True(t, s.IsExpanded(m1))
	assert.False(t, s.ToggleGroup(m1))

	s.ExpandAll()
	assert.Equal(t, []string{"", "@Consumable", "M1", "M1@Rotable"}, s.Expansion().IDs())

	s.CollapseAll()
	assert.Equal(t, 0, s.Expansion().Len())
}

func TestSetSort(t *testing.T) {
	parts := []model.Part{
		{PartNo: "B", Classification: "X", StockCount: 1},
		{PartNo: "A", Classification: "X", StockCount: 9},
	}
	cfg := DefaultConfig()
	cfg.GroupBy = nil
	s := newLoaded(t, parts, cfg)
	assert.Equal(t, "A", s.View().Visible()[0].PartNo)

	require.NoError(t, s.SetSort("stock"))
	assert.Equal(t, "stock", s.Sort())
	assert.Equal(t, "A", s.View().Visible()[0].PartNo)

	require.NoError(t, s.SetSort("description"))
	assert.Error(t, s.SetSort("weight"))
	assert.Equal(t, "description", s.Sort())
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroupBy = []string{"colour"}
	_, err := New(context.Background(), staticFetcher(nil), cfg, nil)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Sort = "weight"
	_, err = New(context.Background(), staticFetcher(nil), cfg, nil)
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	c := config.Default()
	c.View.GroupPolicy = "always"
	c.Filter.Mode = "fuzzy"

	cfg, err := FromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, view.GroupAlways, cfg.GroupPolicy)
	assert.Equal(t, view.FilterFuzzy, cfg.FilterMode)
	assert.Equal(t, []string{"model", "classification"}, cfg.GroupBy)

	c.Filter.Locale = "!!"
	_, err = FromConfig(c)
	assert.Error(t, err)
}
