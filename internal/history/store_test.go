package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/notifd/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	p, err := NewJSONLPersistence(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)
	s := NewStore(p, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func note(id uint32, summary string) model.Notification {
	return model.Notification{
		ID:        id,
		AppName:   "test-app",
		Summary:   summary,
		Hints:     model.DefaultHints(),
		Timestamp: time.Now(),
	}
}

func TestAppendAndRecords(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(note(1, "first")))
	require.NoError(t, s.Append(note(2, "second")))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].Summary)
	assert.Equal(t, "second", records[1].Summary)
	assert.NotEmpty(t, records[0].RecordID)
	assert.NotEqual(t, records[0].RecordID, records[1].RecordID)
}

func TestReplaceInPlace(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(note(1, "original")))
	require.NoError(t, s.Append(note(2, "other")))

	replacement := note(1, "updated")
	replacement.ReplacesID = 1
	require.NoError(t, s.Append(replacement))

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "updated", records[0].Summary)
	assert.Equal(t, "other", records[1].Summary)
}

func TestReplaceUnknownIDAppends(t *testing.T) {
	s := newTestStore(t)

	n := note(9, "fresh")
	n.ReplacesID = 9
	require.NoError(t, s.Append(n))

	assert.Equal(t, 1, s.Len())
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	s := NewStore(p, nil)
	require.NoError(t, s.Append(note(1, "survives restart")))
	require.NoError(t, s.Close())

	p2, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	s2 := NewStore(p2, nil)
	defer s2.Close()
	require.NoError(t, s2.Load())

	records := s2.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "survives restart", records[0].Summary)
	assert.Equal(t, uint32(1), records[0].ID)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	p, err := NewJSONLPersistence(path)
	require.NoError(t, err)
	require.NoError(t, p.Append(Record{RecordID: "01HGOOD", Notification: note(1, "good")}))

	// Corrupt line injected directly.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, p.Append(Record{RecordID: "01HALSO", Notification: note(2, "also good")}))

	records, err := p.Load()
	require.NoError(t, err)
	require.NoError(t, p.Close())

	require.Len(t, records, 2)
	assert.Equal(t, "good", records[0].Summary)
	assert.Equal(t, "also good", records[1].Summary)
}

func TestPruneByAge(t *testing.T) {
	now := time.Now()
	old := Record{RecordID: "01HOLD", Notification: note(1, "old")}
	old.Timestamp = now.Add(-8 * 24 * time.Hour)
	recent := Record{RecordID: "01HNEW", Notification: note(2, "recent")}
	recent.Timestamp = now.Add(-time.Hour)

	kept := prune([]Record{old, recent}, MaxRecords, MaxAge, now)

	require.Len(t, kept, 1)
	assert.Equal(t, "recent", kept[0].Summary)
}

func TestPruneByCount(t *testing.T) {
	now := time.Now()
	records := make([]Record, 10)
	for i := range records {
		records[i] = Record{RecordID: "01H", Notification: note(uint32(i+1), "n")}
		records[i].Timestamp = now
	}

	kept := prune(records, 3, MaxAge, now)

	require.Len(t, kept, 3)
	assert.Equal(t, uint32(8), kept[0].ID)
	assert.Equal(t, uint32(10), kept[2].ID)
}

func TestMarkAllRead(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(note(1, "a")))
	require.NoError(t, s.Append(note(2, "b")))
	assert.Equal(t, 2, s.UnreadCount())

	require.NoError(t, s.MarkAllRead())
	assert.Equal(t, 0, s.UnreadCount())
	for _, r := range s.Records() {
		assert.True(t, r.Read)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(note(1, "a")))
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Append(note(1, "a")), ErrStoreClosed)
	assert.ErrorIs(t, s.Load(), ErrStoreClosed)
	assert.ErrorIs(t, s.MarkAllRead(), ErrStoreClosed)
}
