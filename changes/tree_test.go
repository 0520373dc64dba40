package changes_test

import (
	"fmt"
	"testing"

	"github.com/delaneyj/strux/changes"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFreshClassReportsEveryKey(t *testing.T) {
	classes := changes.NewClassTable()
	home := classes.Define("Home")
	tree := changes.NewStateTree()

	delta := tree.Apply(home,
		changes.Values{"a": 1, "b": "x"},
		changes.Values{"a": 2, "b": "y", "c": true},
	)

	want := changes.Delta{
		"a": {Old: 1, New: 2},
		"b": {Old: "x", New: "y"},
		"c": {Old: nil, New: true},
	}
	if diff := cmp.Diff(want, delta); diff != "" {
		t.Fatalf("delta mismatch (-want +got):\n%s", diff)
	}

	slot, ok := tree.Slot(home)
	require.True(t, ok)
	assert.Equal(t, changes.Values{"a": 2, "b": "y", "c": true}, slot)
}

// a fresh class reports keys even when old and new agree
func TestApplyFreshClassIgnoresEquality(t *testing.T) {
	tree := changes.NewStateTree()
	delta := tree.Apply(1, changes.Values{"a": 1}, changes.Values{"a": 1})
	assert.Equal(t, changes.Delta{"a": {Old: 1, New: 1}}, delta)
}

func TestApplyIsIdempotent(t *testing.T) {
	tree := changes.NewStateTree()
	next := changes.Values{"count": 15, "label": "hi"}

	first := tree.Apply(1, changes.Values{"count": 5}, next)
	assert.Len(t, first, 2)

	second := tree.Apply(1, next, next)
	assert.Empty(t, second)

	change, ok := tree.MostRecent()
	require.True(t, ok)
	assert.Equal(t, changes.ClassID(1), change.Class)
	assert.Empty(t, change.Delta)
}

// the stored slot wins over the caller supplied old values
func TestApplyComparesAgainstStoredSlot(t *testing.T) {
	tree := changes.NewStateTree()
	tree.Apply(1, nil, changes.Values{"count": 10})

	delta := tree.Apply(1, changes.Values{"count": 99}, changes.Values{"count": 10})
	assert.Empty(t, delta)

	delta = tree.Apply(1, changes.Values{"count": 10}, changes.Values{"count": 11})
	assert.Equal(t, changes.Delta{"count": {Old: 10, New: 11}}, delta)
}

func TestApplyNewKeyOnKnownClass(t *testing.T) {
	tree := changes.NewStateTree()
	tree.Apply(1, nil, changes.Values{"a": 1})

	delta := tree.Apply(1, changes.Values{"b": "before"}, changes.Values{"a": 1, "b": "after"})
	assert.Equal(t, changes.Delta{"b": {Old: "before", New: "after"}}, delta)
}

// instances of one class share a slot
func TestApplySharedSlotAcrossInstances(t *testing.T) {
	tree := changes.NewStateTree()
	tree.Apply(1, nil, changes.Values{"v": 1})
	// a second instance whose own old state says 0
	delta := tree.Apply(1, changes.Values{"v": 0}, changes.Values{"v": 1})
	assert.Empty(t, delta)
	assert.Equal(t, 1, tree.Len())
}

func TestApplyManyFreshClasses(t *testing.T) {
	tree := changes.NewStateTree()
	for i := 1; i <= 50; i++ {
		old := changes.Values{}
		next := changes.Values{}
		for k := 0; k < i%7+1; k++ {
			key := fmt.Sprintf("k%d", k)
			old[key] = k
			next[key] = k + 1
		}
		delta := tree.Apply(changes.ClassID(i), old, next)
		assert.ElementsMatch(t, next.Keys(), delta.Keys())
	}
	assert.Len(t, tree.Snapshot(), 50)
}

func TestSnapshotIsACopy(t *testing.T) {
	tree := changes.NewStateTree()
	tree.Apply(1, nil, changes.Values{"a": 1})

	snap := tree.Snapshot()
	snap[1]["a"] = 2

	slot, _ := tree.Slot(1)
	assert.Equal(t, 1, slot["a"])
}

func TestEqual(t *testing.T) {
	s := []int{1, 2}
	m := map[string]int{"a": 1}
	type point struct{ X, Y int }
	type holder struct{ V any }

	assert.True(t, changes.Equal(nil, nil))
	assert.False(t, changes.Equal(nil, 0))
	assert.True(t, changes.Equal(5, 5))
	assert.False(t, changes.Equal(5, int64(5)))
	assert.True(t, changes.Equal("a", "a"))
	assert.True(t, changes.Equal(point{1, 2}, point{1, 2}))
	assert.True(t, changes.Equal(s, s))
	assert.False(t, changes.Equal(s, []int{1, 2}))
	assert.False(t, changes.Equal(s, s[:1]))
	assert.True(t, changes.Equal(m, m))
	assert.False(t, changes.Equal(m, map[string]int{"a": 1}))
	assert.True(t, changes.Equal(holder{V: s}, holder{V: s}))
	nan := 0.0
	nan = nan / nan
	assert.False(t, changes.Equal(nan, nan))
}

func TestClassTable(t *testing.T) {
	classes := changes.NewClassTable()
	a := classes.Define("Home")
	b := classes.Define("Home")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, changes.NoClass, a)
	assert.Equal(t, "Home", classes.Name(b))
	assert.Equal(t, "", classes.Name(changes.ClassID(99)))

	found, ok := classes.Lookup("Home")
	require.True(t, ok)
	assert.Equal(t, a, found)
	assert.Equal(t, 2, classes.Len())
}
