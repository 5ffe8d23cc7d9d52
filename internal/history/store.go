// Package history provides the append-only notification history log.
package history

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/notifd/internal/model"
)

// Retention limits applied on load and by Prune.
const (
	// MaxRecords is the cap on stored records; oldest are dropped first.
	MaxRecords = 500
	// MaxAge is the retention window for stored records.
	MaxAge = 7 * 24 * time.Hour
)

// ErrStoreClosed is returned when operations are attempted on a closed
// store.
var ErrStoreClosed = errors.New("history store is closed")

// Record is a single history entry. The RecordID is stable across the
// record's lifetime even when the wire-level notification id is reused.
type Record struct {
	RecordID string `json:"record_id"`
	model.Notification
}

// Store keeps the in-memory history backed by a Persistence. History is
// read once at startup and only appended to afterwards.
type Store struct {
	mu      sync.RWMutex
	records []Record
	byID    map[uint32]int // wire id -> slice index of the latest record

	persistence Persistence
	entropy     *ulid.MonotonicEntropy
	logger      *slog.Logger
	closed      bool
}

// NewStore creates a Store over the given persistence.
func NewStore(persistence Persistence, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records:     make([]Record, 0),
		byID:        make(map[uint32]int),
		persistence: persistence,
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:      logger,
	}
}

// Load reads persisted records, applies retention, and rebuilds the
// in-memory view. Called once at startup, before any Append.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.persistence == nil {
		return nil
	}

	records, err := s.persistence.Load()
	if err != nil {
		return err
	}

	kept := prune(records, MaxRecords, MaxAge, time.Now())
	if len(kept) != len(records) {
		s.logger.Info("pruned history on load",
			"loaded", len(records), "kept", len(kept))
		if err := s.persistence.Rewrite(kept); err != nil {
			s.logger.Warn("failed to rewrite pruned history", "error", err)
		}
	}

	s.records = kept
	s.reindex()
	return nil
}

// Append records a delivered notification. When the notification
// replaces an earlier one still in history, the earlier record is
// overwritten in place and keeps its position.
func (s *Store) Append(n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if n.ReplacesID != 0 {
		if idx, ok := s.byID[n.ID]; ok {
			recordID := s.records[idx].RecordID
			s.records[idx] = Record{RecordID: recordID, Notification: n}
			return s.persistAll()
		}
	}

	r := Record{
		RecordID:     ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String(),
		Notification: n,
	}
	s.records = append(s.records, r)
	s.byID[n.ID] = len(s.records) - 1

	if len(s.records) > MaxRecords {
		s.records = s.records[len(s.records)-MaxRecords:]
		s.reindex()
		return s.persistAll()
	}

	if s.persistence != nil {
		return s.persistence.Append(r)
	}
	return nil
}

// Records returns a copy of all records, oldest first.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// UnreadCount returns the number of records not yet marked read.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.records {
		if !r.Read {
			count++
		}
	}
	return count
}

// MarkAllRead flags every record as read.
func (s *Store) MarkAllRead() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	changed := false
	for i := range s.records {
		if !s.records[i].Read {
			s.records[i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.persistAll()
}

// Prune applies the retention limits now and rewrites the log.
func (s *Store) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	kept := prune(s.records, MaxRecords, MaxAge, time.Now())
	removed := len(s.records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	s.records = kept
	s.reindex()
	return removed, s.persistAll()
}

// Clear removes all history.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.records = s.records[:0]
	s.byID = make(map[uint32]int)
	if s.persistence != nil {
		return s.persistence.Clear()
	}
	return nil
}

// Close releases the underlying persistence.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.persistence != nil {
		return s.persistence.Close()
	}
	return nil
}

// persistAll rewrites the whole log. Callers hold s.mu.
func (s *Store) persistAll() error {
	if s.persistence == nil {
		return nil
	}
	return s.persistence.Rewrite(s.records)
}

// reindex rebuilds the wire-id index. Callers hold s.mu.
func (s *Store) reindex() {
	s.byID = make(map[uint32]int, len(s.records))
	for i, r := range s.records {
		s.byID[r.ID] = i
	}
}

// prune drops records older than maxAge and caps the result at
// maxRecords, keeping the newest.
func prune(records []Record, maxRecords int, maxAge time.Duration, now time.Time) []Record {
	cutoff := now.Add(-maxAge)
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	if len(kept) > maxRecords {
		kept = kept[len(kept)-maxRecords:]
	}
	return kept
}
