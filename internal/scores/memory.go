// internal/scores/memory.go
//
// In-memory implementation of Recorder. Used in tests and when no database
// path is configured. Concurrency-safe via RWMutex; state is lost on restart.

package scores

import (
	"context"
	"sync"
	"time"
)

type memory struct {
	mu      sync.RWMutex
	size    int
	entries []Entry // kept sorted: score desc, then insertion order
}

// NewMemoryStore constructs an in-memory Recorder keeping the top size entries.
func NewMemoryStore(size int) Recorder {
	if size <= 0 {
		size = DefaultSize
	}
	return &memory{size: size}
}

func (m *memory) Record(ctx context.Context, e Entry) error {
	e.Player = NormalizePlayer(e.Player)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Insert after every entry with an equal or better score.
	pos := len(m.entries)
	for i, cur := range m.entries {
		if e.Score > cur.Score {
			pos = i
			break
		}
	}
	m.entries = append(m.entries, Entry{})
	copy(m.entries[pos+1:], m.entries[pos:])
	m.entries[pos] = e

	if len(m.entries) > m.size {
		m.entries = m.entries[:m.size]
	}
	return nil
}

func (m *memory) Top(ctx context.Context, n int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n = clampLimit(n, m.size)
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]Entry, n)
	copy(out, m.entries[:n])
	return out, nil
}
