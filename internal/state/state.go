// Package state holds the daemon's server-owned runtime state and the
// on-disk state shared with notifctl.
package state

import (
	"sync"

	"github.com/jmylchreest/notifd/internal/model"
)

// ServerState is the protocol server's view of live notifications plus
// the effective Do Not Disturb flag. All methods hold the lock only for
// the duration of the map or flag access; callers never invoke other
// components while inside.
type ServerState struct {
	mu     sync.RWMutex
	active map[uint32]model.Notification
	dnd    bool
}

// NewServerState creates an empty ServerState with DnD set as given.
func NewServerState(dnd bool) *ServerState {
	return &ServerState{
		active: make(map[uint32]model.Notification),
		dnd:    dnd,
	}
}

// Insert stores or overwrites the notification under its id.
func (s *ServerState) Insert(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[n.ID] = n
}

// Remove deletes the notification with the given id and returns it.
// Removing an unknown id is a no-op.
func (s *ServerState) Remove(id uint32) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.active[id]
	if ok {
		delete(s.active, id)
	}
	return n, ok
}

// Get returns the notification with the given id, if tracked.
func (s *ServerState) Get(id uint32) (model.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.active[id]
	return n, ok
}

// ActiveCount returns the number of tracked notifications.
func (s *ServerState) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// SetDnd updates the Do Not Disturb flag and reports whether it changed.
func (s *ServerState) SetDnd(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dnd == enabled {
		return false
	}
	s.dnd = enabled
	return true
}

// DndActive returns the current Do Not Disturb flag.
func (s *ServerState) DndActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dnd
}
