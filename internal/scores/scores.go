// internal/scores/scores.go
//
// Leaderboard of finished rounds.
// Defines:
//   - Entry: one recorded score.
//   - Recorder: the persistence interface (SQLite and in-memory implementations).
//
// Ordering is score descending; equal scores keep insertion order. Only the top
// Size entries are kept.

package scores

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultSize     = 10
	DefaultPlayer   = "Anonymous"
	maxPlayerLength = 24
)

// Entry is a single leaderboard row.
type Entry struct {
	Player         string    `json:"player"`
	Score          int       `json:"score"` // matched pairs at completion
	Flips          int       `json:"flips"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	Pairs          int       `json:"pairs"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Recorder persists leaderboard entries.
type Recorder interface {
	// Record inserts an entry and prunes anything below the top Size.
	Record(ctx context.Context, e Entry) error

	// Top returns up to n entries, best first.
	Top(ctx context.Context, n int) ([]Entry, error)
}

// NormalizePlayer trims a display name, caps its length, and substitutes a
// default for blanks.
func NormalizePlayer(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultPlayer
	}
	if utf8.RuneCountInString(name) > maxPlayerLength {
		name = strings.TrimSpace(string([]rune(name)[:maxPlayerLength]))
	}
	return name
}

func clampLimit(n, size int) int {
	if n <= 0 || n > size {
		return size
	}
	return n
}
