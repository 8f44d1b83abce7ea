// internal/match/events.go
//
// Notifications emitted by the round controller.
// Defines:
//   - EventKind: one constant per state change.
//   - Event: kind, the cards involved, a snapshot, and the result on completion.
//   - Listener / ListenerFunc: how renderers, metrics and recorders observe rounds.

package match

// EventKind names a state change emitted by the Controller.
type EventKind string

const (
	EventRoundStarted   EventKind = "round_started"
	EventPeekEnded      EventKind = "peek_ended"
	EventCardFlipped    EventKind = "card_flipped"
	EventPairMatched    EventKind = "pair_matched"
	EventPairMismatched EventKind = "pair_mismatched" // pending concealment
	EventPairConcealed  EventKind = "pair_concealed"
	EventTick           EventKind = "tick"
	EventRoundComplete  EventKind = "round_complete"
	EventRoundAbandoned EventKind = "round_abandoned"
)

// Event is a single notification. Cards holds the deck indices involved;
// Result is set only for EventRoundComplete.
type Event struct {
	Kind     EventKind `json:"kind"`
	Cards    []int     `json:"cards,omitempty"`
	Snapshot Snapshot  `json:"snapshot"`
	Result   *Result   `json:"result,omitempty"`
}

// Listener observes controller events. Listeners run synchronously while the
// controller is mid-transition and must not call back into it.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }
