// internal/store/memory.go
//
// In-memory store of live game sessions.
// Characteristics:
//   - One live session per player: Put replaces the previous one.
//   - A discarded session (replaced, deleted, swept) has its round abandoned
//     and its event feed closed.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; rounds are short-lived anyway.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robalobadob/astromatch/internal/deck"
	"github.com/robalobadob/astromatch/internal/match"
)

var ErrNotFound = errors.New("session not found")

// Session binds a player to the controller running their round.
type Session struct {
	ID         string
	PlayerID   string
	PlayerName string
	Grid       deck.Grid
	Images     map[string]deck.Image // card ID -> image details
	Controller *match.Controller
	Feed       *match.Broadcaster
	CreatedAt  time.Time

	lastSeen atomic.Int64
}

// Touch records activity on the session.
func (s *Session) Touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// close abandons the session's round and ends its event feed. A finished
// round emits nothing on abandon, so the feed is closed explicitly.
func (s *Session) close() {
	s.Controller.Abandon()
	if s.Feed != nil {
		s.Feed.Close()
	}
}

// LastSeen reports the last Touch (or creation) time.
func (s *Session) LastSeen() time.Time {
	if n := s.lastSeen.Load(); n != 0 {
		return time.Unix(0, n)
	}
	return s.CreatedAt
}

// Store defines the persistence interface for live sessions.
type Store interface {
	// Put saves s as its player's live session, abandoning any previous one.
	Put(ctx context.Context, s *Session) error

	// Get returns the session with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete abandons and removes the session with id.
	Delete(ctx context.Context, id string) error

	// Sweep abandons sessions idle for longer than maxIdle and returns how many.
	Sweep(maxIdle time.Duration) int

	// Len reports the number of live sessions.
	Len() int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by Session.ID
	byPlayer map[string]string   // PlayerID -> Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]string),
	}
}

func (m *memory) Put(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.Touch()

	m.mu.Lock()
	var prev *Session
	if id, ok := m.byPlayer[s.PlayerID]; ok && id != s.ID {
		prev = m.sessions[id]
		delete(m.sessions, id)
	}
	m.sessions[s.ID] = s
	m.byPlayer[s.PlayerID] = s.ID
	m.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		m.removeLocked(s)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.close()
	return nil
}

func (m *memory) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var stale []*Session

	m.mu.Lock()
	for _, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			m.removeLocked(s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *memory) removeLocked(s *Session) {
	delete(m.sessions, s.ID)
	if m.byPlayer[s.PlayerID] == s.ID {
		delete(m.byPlayer, s.PlayerID)
	}
}
