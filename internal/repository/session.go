package repository

import (
	"slices"
	"sort"
	"sync"

	"github.com/cloo-solutions/docchat/internal/domain"
)

type sessionEntry struct {
	mu    sync.Mutex
	turns []domain.Turn
	dead  bool
}

// SessionRepository keeps the ordered turns of every conversation in memory.
//
// Each session has its own lock, so appends to different sessions never
// contend. Turns from concurrent requests on the same session land in the
// order their appends run, which is the order generation finished rather
// than the order the requests arrived.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*sessionEntry)}
}

// History returns a copy of the turns for id, or an empty slice.
func (r *SessionRepository) History(id string) []domain.Turn {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return []domain.Turn{}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.dead {
		return []domain.Turn{}
	}
	return slices.Clone(entry.turns)
}

// Append adds turns to the end of session id, creating it if needed. All
// turns passed in one call are stored contiguously.
func (r *SessionRepository) Append(id string, turns ...domain.Turn) {
	if len(turns) == 0 {
		return
	}

	for {
		entry := r.entry(id)

		entry.mu.Lock()
		if entry.dead {
			// Cleared between lookup and lock; retry on a fresh entry.
			entry.mu.Unlock()
			continue
		}
		entry.turns = append(entry.turns, turns...)
		entry.mu.Unlock()
		return
	}
}

// Clear drops every turn of session id. Unknown IDs are a no-op.
func (r *SessionRepository) Clear(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.dead = true
	entry.turns = nil
	entry.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of turns stored for id.
func (r *SessionRepository) Len(id string) int {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return len(entry.turns)
}

// Sessions returns the known session IDs in sorted order.
func (r *SessionRepository) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *SessionRepository) entry(id string) *sessionEntry {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sessions[id]; ok {
		return entry
	}
	entry = &sessionEntry{}
	r.sessions[id] = entry
	return entry
}
