package history_test

import (
	"fmt"
	"testing"

	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/history"
	"github.com/paveg/datafilter/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(n int64) dataset.Dataset {
	return dataset.Dataset{{"n": value.Int(n)}}
}

func stateOf(t *testing.T, d dataset.Dataset) int64 {
	t.Helper()
	require.Len(t, d, 1)
	n, ok := d[0]["n"].AsInt()
	require.True(t, ok)
	return n
}

func TestManager_Empty(t *testing.T) {
	m := history.NewManager(0, nil)

	_, _, ok := m.Undo()
	assert.False(t, ok)
	_, _, ok = m.Redo()
	assert.False(t, ok)
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
	assert.Equal(t, history.DefaultCapacity, m.Info().Capacity)
	assert.Equal(t, -1, m.Info().Cursor)
}

func TestManager_UndoRedo(t *testing.T) {
	m := history.NewManager(10, nil)
	m.SetOriginal(state(0))
	m.SaveState(state(1), "filter")
	m.SaveState(state(2), "sort")

	d, desc, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, int64(1), stateOf(t, d))
	assert.Equal(t, "filter", desc)

	d, desc, ok = m.Undo()
	require.True(t, ok)
	assert.Equal(t, int64(0), stateOf(t, d))
	assert.Equal(t, history.LoadedDescription, desc)

	_, _, ok = m.Undo()
	assert.False(t, ok, "undo at the earliest snapshot is a no-op")
	assert.True(t, m.CanRedo())

	d, desc, ok = m.Redo()
	require.True(t, ok)
	assert.Equal(t, int64(1), stateOf(t, d))
	assert.Equal(t, "filter", desc)

	d, _, ok = m.Redo()
	require.True(t, ok)
	assert.Equal(t, int64(2), stateOf(t, d))

	_, _, ok = m.Redo()
	assert.False(t, ok)
}

func TestManager_SaveDiscardsRedoBranch(t *testing.T) {
	m := history.NewManager(10, nil)
	m.SetOriginal(state(0))
	m.SaveState(state(1), "s1")
	m.SaveState(state(2), "s2")

	m.Undo()
	m.Undo()
	m.SaveState(state(3), "s3")

	_, _, ok := m.Redo()
	assert.False(t, ok, "s2 is gone")
	assert.Equal(t, 2, m.Len())

	d, _, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, int64(0), stateOf(t, d))
}

func TestManager_Capacity(t *testing.T) {
	m := history.NewManager(3, nil)
	m.SetOriginal(state(0))
	for i := int64(1); i <= 4; i++ {
		m.SaveState(state(i), fmt.Sprintf("s%d", i))
	}

	info := m.Info()
	assert.Equal(t, 3, info.Total)
	assert.Equal(t, 2, info.Cursor)
	assert.Equal(t, []string{"s2", "s3", "s4"}, []string{info.Entries[0].Description, info.Entries[1].Description, info.Entries[2].Description})
	assert.True(t, info.Entries[2].Current)

	m.Undo()
	d, _, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, int64(2), stateOf(t, d))
	_, _, ok = m.Undo()
	assert.False(t, ok)
}

func TestManager_CopiesAreIndependent(t *testing.T) {
	m := history.NewManager(10, nil)
	original := state(0)
	m.SetOriginal(original)
	original[0]["n"] = value.Int(100)

	m.SaveState(state(1), "s1")
	d, _, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, int64(0), stateOf(t, d), "stored snapshot ignores later caller mutation")

	d[0]["n"] = value.Int(42)
	again, _, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, int64(0), stateOf(t, again), "returned copy does not alias the log")
}

func TestManager_InfoChecksums(t *testing.T) {
	m := history.NewManager(10, nil)
	m.SetOriginal(state(0))
	m.SaveState(state(0), "noop")
	m.SaveState(state(1), "change")

	entries := m.Info().Entries
	require.Len(t, entries, 3)
	assert.Equal(t, entries[0].Checksum, entries[1].Checksum)
	assert.NotEqual(t, entries[1].Checksum, entries[2].Checksum)
	assert.Equal(t, 1, entries[2].Count)
	assert.Less(t, entries[0].Seq, entries[2].Seq)
}

func TestManager_SetOriginalResets(t *testing.T) {
	m := history.NewManager(10, nil)
	m.SetOriginal(state(0))
	m.SaveState(state(1), "s1")
	m.SetOriginal(state(5))

	assert.Equal(t, 1, m.Len())
	assert.False(t, m.CanUndo())
	d, desc, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, int64(5), stateOf(t, d))
	assert.Equal(t, history.LoadedDescription, desc)

	m.Reset()
	assert.Equal(t, 0, m.Len())
	_, _, ok = m.Current()
	assert.False(t, ok)
}
