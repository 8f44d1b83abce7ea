// internal/match/types.go
//
// Core type definitions for the memory-match round engine.
// Defines:
//   - CardState: face-down / face-up / matched.
//   - Card: one face of the grid, keyed by image identity.
//   - Round: state for a single in-progress or finished round.
//   - Snapshot, Result: read-only projections handed to renderers and recorders.

package match

import "fmt"

// CardState is the game-level state of a single card.
type CardState int

const (
	FaceDown CardState = iota
	FaceUp
	Matched
)

func (s CardState) String() string {
	switch s {
	case FaceDown:
		return "down"
	case FaceUp:
		return "up"
	case Matched:
		return "matched"
	default:
		return fmt.Sprintf("CardState(%d)", int(s))
	}
}

// MarshalText renders the state as its short name, so JSON carries
// "down", "up" or "matched".
func (s CardState) MarshalText() ([]byte, error) {
	switch s {
	case FaceDown, FaceUp, Matched:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid card state %d", int(s))
}

// UnmarshalText parses a name written by MarshalText.
func (s *CardState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "down":
		*s = FaceDown
	case "up":
		*s = FaceUp
	case "matched":
		*s = Matched
	default:
		return fmt.Errorf("unknown card state %q", b)
	}
	return nil
}

// Card is one face of the memory grid. Two cards in a deck share each ID.
type Card struct {
	ID    string    `json:"id"`
	State CardState `json:"state"`
}

// Round holds the state of a single round. It is owned by a Controller and
// never mutated from outside it.
type Round struct {
	Deck           []Card
	revealed       []int // indices flipped and not yet judged, at most 2
	MatchedPairs   int
	TotalPairs     int
	Flips          int
	ElapsedSeconds int
	Resolving      bool // mismatch shown, waiting to conceal
	Active         bool
	Peeking        bool // initial reveal not yet turned down
	completed      bool
}

// Result is delivered with the round_complete event.
type Result struct {
	Flips          int `json:"flips"`
	ElapsedSeconds int `json:"elapsedSeconds"`
	TotalPairs     int `json:"totalPairs"`
	MatchedPairs   int `json:"matchedPairs"`
}

// Snapshot is a copy of the round state safe to hand out.
type Snapshot struct {
	Cards          []Card `json:"cards"`
	Revealed       []int  `json:"revealed"`
	MatchedPairs   int    `json:"matchedPairs"`
	TotalPairs     int    `json:"totalPairs"`
	Flips          int    `json:"flips"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	Resolving      bool   `json:"resolving"`
	Active         bool   `json:"active"`
	Peeking        bool   `json:"peeking"`
	Complete       bool   `json:"complete"`
}

func (r *Round) snapshot() Snapshot {
	cards := make([]Card, len(r.Deck))
	copy(cards, r.Deck)
	revealed := make([]int, len(r.revealed))
	copy(revealed, r.revealed)
	return Snapshot{
		Cards:          cards,
		Revealed:       revealed,
		MatchedPairs:   r.MatchedPairs,
		TotalPairs:     r.TotalPairs,
		Flips:          r.Flips,
		ElapsedSeconds: r.ElapsedSeconds,
		Resolving:      r.Resolving,
		Active:         r.Active,
		Peeking:        r.Peeking,
		Complete:       r.completed,
	}
}

func (r *Round) result() Result {
	return Result{
		Flips:          r.Flips,
		ElapsedSeconds: r.ElapsedSeconds,
		TotalPairs:     r.TotalPairs,
		MatchedPairs:   r.MatchedPairs,
	}
}

func (r *Round) isRevealed(i int) bool {
	for _, x := range r.revealed {
		if x == i {
			return true
		}
	}
	return false
}
