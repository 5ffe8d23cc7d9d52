package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notifd/internal/model"
)

func TestServerStateInsertRemove(t *testing.T) {
	s := NewServerState(false)

	s.Insert(model.Notification{ID: 1, Summary: "one"})
	s.Insert(model.Notification{ID: 2, Summary: "two"})
	assert.Equal(t, 2, s.ActiveCount())

	n, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", n.Summary)

	n, ok = s.Remove(1)
	require.True(t, ok)
	assert.Equal(t, "one", n.Summary)
	assert.Equal(t, 1, s.ActiveCount())

	_, ok = s.Remove(1)
	assert.False(t, ok)
}

func TestServerStateReplaceOverwrites(t *testing.T) {
	s := NewServerState(false)

	s.Insert(model.Notification{ID: 5, Summary: "old"})
	s.Insert(model.Notification{ID: 5, Summary: "new"})

	assert.Equal(t, 1, s.ActiveCount())
	n, _ := s.Get(5)
	assert.Equal(t, "new", n.Summary)
}

func TestServerStateDnd(t *testing.T) {
	s := NewServerState(false)
	assert.False(t, s.DndActive())

	assert.True(t, s.SetDnd(true))
	assert.True(t, s.DndActive())

	// Setting the same value again reports no change.
	assert.False(t, s.SetDnd(true))

	assert.True(t, s.SetDnd(false))
	assert.False(t, s.DndActive())
}

func TestSharedStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	st := DefaultSharedState()
	st.SetDnD(true, "test")
	st.UpdateLastNotification()
	require.NoError(t, SaveSharedStateTo(path, st))

	loaded, err := LoadSharedStateFrom(path)
	require.NoError(t, err)
	assert.True(t, loaded.DnDEnabled)
	assert.Equal(t, "test", loaded.DnDChangedBy)
	assert.NotZero(t, loaded.LastNotificationAt)
	assert.Equal(t, CurrentSchemaVersion, loaded.SchemaVersion)
}

func TestSharedStateMissingFile(t *testing.T) {
	loaded, err := LoadSharedStateFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.False(t, loaded.DnDEnabled)
}

func TestSharedStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage{"), 0600))

	loaded, err := LoadSharedStateFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSharedState(), loaded)
}

func TestToggleDnD(t *testing.T) {
	st := DefaultSharedState()
	assert.True(t, st.ToggleDnD("cli"))
	assert.False(t, st.ToggleDnD("cli"))
}
