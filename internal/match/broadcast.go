// internal/match/broadcast.go
//
// Fan-out of controller events to live renderers.
// Responsibilities:
//   - Deliver each event to every subscriber without ever blocking the
//     controller (a subscriber whose buffer is full misses that event).
//   - Close every subscription when the round behind the feed is discarded,
//     so renderers learn that no further events will come.

package match

import "sync"

// Broadcaster is a Listener that fans events out to any number of
// subscribers (for example websocket renderers).
type Broadcaster struct {
	mu     sync.Mutex
	buf    int
	subs   map[chan Event]struct{}
	closed bool
}

// NewBroadcaster creates a Broadcaster with per-subscriber buffer size buf.
func NewBroadcaster(buf int) *Broadcaster {
	if buf <= 0 {
		buf = 32
	}
	return &Broadcaster{buf: buf, subs: make(map[chan Event]struct{})}
}

// OnEvent implements Listener.
func (b *Broadcaster) OnEvent(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes it. After Close the channel comes back closed.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buf)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

// Close ends every subscription. Events already buffered can still be read.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
