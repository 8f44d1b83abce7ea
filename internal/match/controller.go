// internal/match/controller.go
//
// Round controller for a single memory-match round.
// Responsibilities:
//   - Start rounds with every card revealed (the peek), then turn them down.
//   - Accept flips, judge pairs, and track flips/matches/elapsed seconds.
//   - Hold mismatched pairs face-up for the configured delay, then conceal them.
//   - Declare completion exactly once and notify listeners.
//
// Notes:
//   - Every entry point (API calls and scheduled callbacks) takes c.mu, so each
//     event runs to completion before the next one is handled.
//   - Scheduled callbacks capture the *Round they were armed for and do nothing
//     once that round has been replaced or abandoned.
//   - Invalid interactions (double clicks, flips while resolving) are silent no-ops.
package match

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultMismatchDelay = time.Second
	tickInterval         = time.Second
)

// Options configures a Controller.
type Options struct {
	MismatchDelay time.Duration // how long a mismatched pair stays visible
	PeekDuration  time.Duration // 0 leaves the peek to an explicit EndPeek
	Scheduler     Scheduler
	Logger        *zerolog.Logger
}

// Controller owns the mutable state of one round at a time.
type Controller struct {
	mu        sync.Mutex
	delay     time.Duration
	peek      time.Duration
	sched     Scheduler
	log       zerolog.Logger
	listeners []Listener

	round       *Round
	cancelTick  Cancel
	cancelPeek  Cancel
	cancelDelay Cancel
}

// NewController builds an idle controller.
func NewController(opts Options) *Controller {
	c := &Controller{
		delay: opts.MismatchDelay,
		peek:  opts.PeekDuration,
		sched: opts.Scheduler,
		log:   zerolog.Nop(),
	}
	if c.delay <= 0 {
		c.delay = DefaultMismatchDelay
	}
	if c.peek < 0 {
		c.peek = 0
	}
	if c.sched == nil {
		c.sched = RealScheduler{}
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	}
	return c
}

// Subscribe registers a listener for all subsequent events.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// MismatchDelay reports the configured concealment delay.
func (c *Controller) MismatchDelay() time.Duration { return c.delay }

// StartRound discards any current round and deals deck face-up.
// The caller guarantees len(deck) == 2*totalPairs and totalPairs > 0.
func (c *Controller) StartRound(deck []Card, totalPairs int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.round != nil {
		c.discardLocked()
	}

	r := &Round{
		Deck:       make([]Card, len(deck)),
		TotalPairs: totalPairs,
		Active:     true,
		Peeking:    true,
	}
	for i, card := range deck {
		r.Deck[i] = Card{ID: card.ID, State: FaceUp}
	}
	c.round = r

	c.cancelTick = c.sched.Every(tickInterval, func() { c.tick(r) })
	if c.peek > 0 {
		c.cancelPeek = c.sched.AfterFunc(c.peek, func() { c.endPeek(r) })
	}

	c.log.Debug().Int("cards", len(deck)).Int("pairs", totalPairs).Msg("round started")
	c.emitLocked(EventRoundStarted, nil, nil)
}

// EndPeek turns the initial reveal face-down. No-op outside the peek.
func (c *Controller) EndPeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round != nil {
		c.endPeekLocked(c.round)
	}
}

func (c *Controller) endPeek(r *Round) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endPeekLocked(r)
}

func (c *Controller) endPeekLocked(r *Round) {
	if r != c.round || !r.Peeking {
		return
	}
	r.Peeking = false
	stop(&c.cancelPeek)
	for i := range r.Deck {
		if r.Deck[i].State == FaceUp && !r.isRevealed(i) {
			r.Deck[i].State = FaceDown
		}
	}
	c.log.Debug().Msg("peek ended")
	c.emitLocked(EventPeekEnded, nil, nil)
}

// Flip reveals the card at index. It reports whether the flip was accepted;
// rejected flips change nothing.
func (c *Controller) Flip(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.round
	switch {
	case r == nil || !r.Active:
		return false
	case r.Resolving:
		return false
	case index < 0 || index >= len(r.Deck):
		return false
	case r.Deck[index].State != FaceDown:
		return false
	case r.isRevealed(index):
		return false
	}

	r.Deck[index].State = FaceUp
	r.revealed = append(r.revealed, index)
	r.Flips++
	c.emitLocked(EventCardFlipped, []int{index}, nil)

	if len(r.revealed) == 2 {
		c.judgeLocked(r)
	}
	return true
}

// judgeLocked settles the two unresolved cards.
func (c *Controller) judgeLocked(r *Round) {
	a, b := r.revealed[0], r.revealed[1]
	pair := []int{a, b}

	if r.Deck[a].ID != r.Deck[b].ID {
		r.Resolving = true
		c.log.Debug().Ints("cards", pair).Dur("delay", c.delay).Msg("pair mismatched")
		c.emitLocked(EventPairMismatched, pair, nil)
		c.cancelDelay = c.sched.AfterFunc(c.delay, func() { c.conceal(r) })
		return
	}

	r.Deck[a].State = Matched
	r.Deck[b].State = Matched
	r.revealed = r.revealed[:0]
	r.MatchedPairs++
	c.log.Debug().Ints("cards", pair).Int("matched", r.MatchedPairs).Msg("pair matched")
	c.emitLocked(EventPairMatched, pair, nil)

	if r.MatchedPairs == r.TotalPairs && !r.completed {
		r.Active = false
		r.completed = true
		stop(&c.cancelTick)
		stop(&c.cancelPeek)
		res := r.result()
		c.log.Debug().Int("flips", res.Flips).Int("elapsed", res.ElapsedSeconds).Msg("round complete")
		c.emitLocked(EventRoundComplete, nil, &res)
	}
}

// conceal is the delayed second half of a mismatch.
func (c *Controller) conceal(r *Round) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r != c.round || !r.Resolving {
		return
	}
	pair := append([]int(nil), r.revealed...)
	for _, i := range pair {
		r.Deck[i].State = FaceDown
	}
	r.revealed = r.revealed[:0]
	r.Resolving = false
	c.cancelDelay = nil
	c.emitLocked(EventPairConcealed, pair, nil)
}

func (c *Controller) tick(r *Round) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r != c.round || !r.Active {
		return
	}
	r.ElapsedSeconds++
	c.emitLocked(EventTick, nil, nil)
}

// Abandon drops the current round and cancels its pending callbacks.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round != nil {
		c.discardLocked()
	}
}

// discardLocked stops timers and forgets the current round.
func (c *Controller) discardLocked() {
	stop(&c.cancelTick)
	stop(&c.cancelPeek)
	stop(&c.cancelDelay)
	wasActive := c.round.Active
	c.round.Active = false
	if wasActive {
		c.emitLocked(EventRoundAbandoned, nil, nil)
	}
	c.round = nil
}

// Snapshot returns a copy of the current round. ok is false when idle.
func (c *Controller) Snapshot() (s Snapshot, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.round == nil {
		return Snapshot{}, false
	}
	return c.round.snapshot(), true
}

func (c *Controller) emitLocked(kind EventKind, cards []int, res *Result) {
	if len(c.listeners) == 0 {
		return
	}
	ev := Event{Kind: kind, Cards: cards, Snapshot: c.round.snapshot(), Result: res}
	for _, l := range c.listeners {
		l.OnEvent(ev)
	}
}

func stop(cancel *Cancel) {
	if *cancel != nil {
		(*cancel)()
		*cancel = nil
	}
}
