// Package presence tracks which users are online in which collaboration
// session and for how long.
package presence

import (
	"sync"
	"time"
)

// OnlineUserEntry is one user's presence window in one session
type OnlineUserEntry struct {
	SessionID     int64
	StartTime     time.Time
	ConnectionIDs map[string]struct{}
}

type entryKey struct {
	userID    int64
	sessionID int64
}

// StateStore holds the online-user map and the connection-to-session map.
// Only the Service mutates it.
type StateStore struct {
	mu          sync.Mutex
	online      map[entryKey]*OnlineUserEntry
	connections map[string]int64
}

// NewStateStore creates an empty state store
func NewStateStore() *StateStore {
	return &StateStore{
		online:      make(map[entryKey]*OnlineUserEntry),
		connections: make(map[string]int64),
	}
}

// SessionFor returns the session a connection has joined
func (s *StateStore) SessionFor(connectionID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.connections[connectionID]
	return sessionID, ok
}

// Entry returns a copy of the user's entry for a session
func (s *StateStore) Entry(userID, sessionID int64) (OnlineUserEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.online[entryKey{userID, sessionID}]
	if !ok {
		return OnlineUserEntry{}, false
	}
	ids := make(map[string]struct{}, len(entry.ConnectionIDs))
	for id := range entry.ConnectionIDs {
		ids[id] = struct{}{}
	}
	return OnlineUserEntry{SessionID: entry.SessionID, StartTime: entry.StartTime, ConnectionIDs: ids}, true
}

// AddConnection maps the connection to the session and adds it to the user's
// entry, creating the entry with startTime now when absent. It reports whether
// the entry was created and returns the entry's start time.
func (s *StateStore) AddConnection(userID, sessionID int64, connectionID string, now time.Time) (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connections[connectionID] = sessionID

	key := entryKey{userID, sessionID}
	entry, ok := s.online[key]
	if !ok {
		entry = &OnlineUserEntry{
			SessionID:     sessionID,
			StartTime:     now,
			ConnectionIDs: make(map[string]struct{}),
		}
		s.online[key] = entry
	}
	entry.ConnectionIDs[connectionID] = struct{}{}
	return !ok, entry.StartTime
}

// Touch returns the start time of the user's presence window in the session,
// registering the connection when it has not joined any session yet
func (s *StateStore) Touch(userID, sessionID int64, connectionID string, now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapped, isMapped := s.connections[connectionID]
	if isMapped && mapped != sessionID {
		if entry, ok := s.online[entryKey{userID, sessionID}]; ok {
			return entry.StartTime
		}
		return now
	}

	key := entryKey{userID, sessionID}
	entry, ok := s.online[key]
	if !ok {
		entry = &OnlineUserEntry{
			SessionID:     sessionID,
			StartTime:     now,
			ConnectionIDs: make(map[string]struct{}),
		}
		s.online[key] = entry
	}
	entry.ConnectionIDs[connectionID] = struct{}{}
	s.connections[connectionID] = sessionID
	return entry.StartTime
}

// RemovedConnection describes the outcome of RemoveConnection
type RemovedConnection struct {
	SessionID int64
	// LastConnection is set when the user's entry was deleted
	LastConnection bool
	StartTime      time.Time
}

// RemoveConnection deletes the connection mapping and removes the connection
// from the user's entry, deleting the entry when it becomes empty
func (s *StateStore) RemoveConnection(userID int64, connectionID string) (RemovedConnection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID, ok := s.connections[connectionID]
	if !ok {
		return RemovedConnection{}, false
	}
	delete(s.connections, connectionID)

	result := RemovedConnection{SessionID: sessionID}
	key := entryKey{userID, sessionID}
	entry, ok := s.online[key]
	if !ok {
		return result, true
	}
	delete(entry.ConnectionIDs, connectionID)
	if len(entry.ConnectionIDs) == 0 {
		delete(s.online, key)
		result.LastConnection = true
		result.StartTime = entry.StartTime
	}
	return result, true
}

// OnlineUserIDs returns the ids of users with an entry for the session
func (s *StateStore) OnlineUserIDs(sessionID int64) map[int64]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[int64]struct{})
	for key := range s.online {
		if key.sessionID == sessionID {
			ids[key.userID] = struct{}{}
		}
	}
	return ids
}

// DropSession deletes every entry and mapping for a session and returns the
// connections that were mapped to it
func (s *StateStore) DropSession(sessionID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped []string
	for connectionID, sid := range s.connections {
		if sid == sessionID {
			dropped = append(dropped, connectionID)
			delete(s.connections, connectionID)
		}
	}
	for key := range s.online {
		if key.sessionID == sessionID {
			delete(s.online, key)
		}
	}
	return dropped
}

// Len returns the number of live entries
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.online)
}
