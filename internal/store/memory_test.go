package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/astromatch/internal/match"
)

// idleScheduler never fires; sessions in these tests only need a controller.
type idleScheduler struct{}

func (idleScheduler) AfterFunc(time.Duration, func()) match.Cancel { return func() {} }
func (idleScheduler) Every(time.Duration, func()) match.Cancel     { return func() {} }

func newSession(id, player string) *Session {
	c := match.NewController(match.Options{Scheduler: idleScheduler{}})
	c.StartRound([]match.Card{{ID: "a"}, {ID: "a"}}, 1)
	return &Session{ID: id, PlayerID: player, Controller: c}
}

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSession("g1", "p1")
	require.NoError(t, st.Put(ctx, s))

	got, err := st.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, st.Delete(ctx, "g1"))
	_, err = st.Get(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := s.Controller.Snapshot()
	assert.False(t, ok, "deleting a session abandons its round")

	assert.ErrorIs(t, st.Delete(ctx, "g1"), ErrNotFound)
}

func TestMemory_PutReplacesPlayersRound(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	first := newSession("g1", "p1")
	other := newSession("g2", "p2")
	require.NoError(t, st.Put(ctx, first))
	require.NoError(t, st.Put(ctx, other))

	second := newSession("g3", "p1")
	require.NoError(t, st.Put(ctx, second))

	_, err := st.Get(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := first.Controller.Snapshot()
	assert.False(t, ok)

	_, err = st.Get(ctx, "g2")
	assert.NoError(t, err, "other players are unaffected")
	_, err = st.Get(ctx, "g3")
	assert.NoError(t, err)
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	stale := newSession("old", "p1")
	fresh := newSession("new", "p2")
	require.NoError(t, st.Put(ctx, stale))
	require.NoError(t, st.Put(ctx, fresh))
	stale.lastSeen.Store(time.Now().Add(-time.Hour).UnixNano())

	assert.Equal(t, 1, st.Sweep(30*time.Minute))
	_, err := st.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestSession_LastSeenFallsBackToCreation(t *testing.T) {
	created := time.Now().Add(-time.Minute)
	s := &Session{CreatedAt: created}
	assert.Equal(t, created, s.LastSeen())
	s.Touch()
	assert.True(t, s.LastSeen().After(created))
}

func TestMemory_Len(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Put(ctx, newSession("g1", "p1")))
	require.NoError(t, st.Put(ctx, newSession("g2", "p1")))
	require.NoError(t, st.Put(ctx, newSession("g3", "p2")))
	assert.Equal(t, 2, st.Len())
}

func TestMemory_ReplacingFinishedRoundClosesFeed(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	done := newSession("g1", "p1")
	done.Feed = match.NewBroadcaster(16)
	done.Controller.Subscribe(done.Feed)
	events, unsubscribe := done.Feed.Subscribe()
	defer unsubscribe()
	require.NoError(t, st.Put(ctx, done))

	done.Controller.EndPeek()
	require.True(t, done.Controller.Flip(0))
	require.True(t, done.Controller.Flip(1))

	require.NoError(t, st.Put(ctx, newSession("g2", "p1")))

	var kinds []match.EventKind
	for e := range events {
		kinds = append(kinds, e.Kind)
	}
	require.NotEmpty(t, kinds, "feed drained and closed")
	assert.Equal(t, match.EventRoundComplete, kinds[len(kinds)-1])
	assert.NotContains(t, kinds, match.EventRoundAbandoned)
}
