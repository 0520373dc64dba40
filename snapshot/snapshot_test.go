package snapshot_test

import (
	"path/filepath"
	"testing"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/snapshot"
	"github.com/delaneyj/strux/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *snapshot.DB {
	t.Helper()
	db, err := snapshot.Open(filepath.Join(t.TempDir(), "strux.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmptySnapshot(t *testing.T) {
	saved, err := open(t).Load()
	require.NoError(t, err)
	assert.Empty(t, saved.App)
	assert.Empty(t, saved.Classes)
}

func TestSaveAndLoad(t *testing.T) {
	classes := changes.NewClassTable()
	home := classes.Define("Home")
	nav := classes.Define("Nav")

	s := store.New()
	_, err := s.SetInitialState(changes.Values{"count": 3, "user": map[string]any{"name": "ada"}})
	require.NoError(t, err)
	require.NoError(t, s.Dispatch(store.StateChange{Class: home, New: changes.Values{"title": "hi"}}))
	require.NoError(t, s.Dispatch(store.StateChange{Class: nav, New: changes.Values{"open": true}}))
	require.NoError(t, s.Dispatch(store.StateChange{Class: changes.ClassID(99), New: changes.Values{"lost": 1}}))

	db := open(t)
	require.NoError(t, db.Save(s.GetState(), classes.Name))

	saved, err := db.Load()
	require.NoError(t, err)
	want := snapshot.Saved{
		App: changes.Values{"count": 3.0, "user": map[string]any{"name": "ada"}},
		Classes: map[string]changes.Values{
			"Home": {"title": "hi"},
			"Nav":  {"open": true},
		},
	}
	if diff := cmp.Diff(want, saved); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveReplaces(t *testing.T) {
	db := open(t)
	names := func(changes.ClassID) string { return "Only" }

	require.NoError(t, db.Save(store.State{
		App:        changes.Values{"a": 1, "b": 2},
		Components: map[changes.ClassID]changes.Values{1: {"x": 1}},
	}, names))
	require.NoError(t, db.Save(store.State{App: changes.Values{"a": 5}}, names))

	saved, err := db.Load()
	require.NoError(t, err)
	assert.Equal(t, changes.Values{"a": 5.0}, saved.App)
	assert.Empty(t, saved.Classes)
}

func TestRestore(t *testing.T) {
	db := open(t)
	require.NoError(t, db.Save(store.State{
		App: changes.Values{"count": 7},
		Components: map[changes.ClassID]changes.Values{
			1: {"title": "hi"},
			2: {"open": false},
		},
	}, func(id changes.ClassID) string {
		return map[changes.ClassID]string{1: "Home", 2: "Nav"}[id]
	}))

	classes := changes.NewClassTable()
	nav := classes.Define("Nav")
	s := store.New()
	require.NoError(t, db.Restore(s, classes))

	assert.Equal(t, changes.Values{"count": 7.0}, s.App())
	slot, ok := s.Slot(nav)
	require.True(t, ok)
	assert.Equal(t, changes.Values{"open": false}, slot)

	home, ok := classes.Lookup("Home")
	require.True(t, ok)
	slot, ok = s.Slot(home)
	require.True(t, ok)
	assert.Equal(t, changes.Values{"title": "hi"}, slot)
}

func TestRestoreKeepsWholeNumbersAsInts(t *testing.T) {
	classes := changes.NewClassTable()
	home := classes.Define("Home")
	db := open(t)
	require.NoError(t, db.Save(store.State{
		Components: map[changes.ClassID]changes.Values{
			home: {"count": 15, "ratio": 0.5, "nested": map[string]any{"ids": []any{1, 2}}},
		},
	}, classes.Name))

	s := store.New()
	require.NoError(t, db.Restore(s, classes))
	slot, ok := s.Slot(home)
	require.True(t, ok)
	assert.Equal(t, changes.Values{
		"count":  15,
		"ratio":  0.5,
		"nested": map[string]any{"ids": []any{1, 2}},
	}, slot)

	require.NoError(t, s.Dispatch(store.StateChange{
		Class: home,
		New:   changes.Values{"count": 15, "ratio": 0.5, "nested": slot["nested"]},
	}))
	change, ok := s.MostRecentChange()
	require.True(t, ok)
	assert.Empty(t, change.Delta)
}
