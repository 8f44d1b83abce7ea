package scores

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorders runs fn against every Recorder implementation.
func recorders(t *testing.T, size int, fn func(t *testing.T, r Recorder)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore(size))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "scores.db"), size)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func players(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Player
	}
	return out
}

func TestRecorder_OrdersByScoreThenInsertion(t *testing.T) {
	recorders(t, 10, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		for _, e := range []Entry{
			{Player: "ann", Score: 8},
			{Player: "bob", Score: 12},
			{Player: "cat", Score: 8},
			{Player: "dan", Score: 2},
			{Player: "eve", Score: 12},
		} {
			require.NoError(t, r.Record(ctx, e))
		}

		top, err := r.Top(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "eve", "ann", "cat", "dan"}, players(top))
		assert.Equal(t, 12, top[0].Score)
		assert.False(t, top[0].CreatedAt.IsZero())
	})
}

func TestRecorder_KeepsOnlyTopSize(t *testing.T) {
	recorders(t, 3, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		for i := 1; i <= 6; i++ {
			require.NoError(t, r.Record(ctx, Entry{Player: fmt.Sprintf("p%d", i), Score: i % 4}))
		}
		// scores: p1=1 p2=2 p3=3 p4=0 p5=1 p6=2
		top, err := r.Top(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"p3", "p2", "p6"}, players(top))

		top, err = r.Top(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"p3", "p2"}, players(top))

		top, err = r.Top(ctx, 50)
		require.NoError(t, err)
		assert.Len(t, top, 3)
	})
}

func TestRecorder_ImplementationsAgree(t *testing.T) {
	faker := gofakeit.New(42)
	entries := make([]Entry, 60)
	for i := range entries {
		entries[i] = Entry{
			Player:         faker.Name(),
			Score:          faker.IntRange(1, 18),
			Flips:          faker.IntRange(2, 120),
			ElapsedSeconds: faker.IntRange(5, 600),
			Pairs:          18,
		}
	}

	var boards [][]string
	recorders(t, DefaultSize, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		for _, e := range entries {
			require.NoError(t, r.Record(ctx, e))
		}
		top, err := r.Top(ctx, 0)
		require.NoError(t, err)
		require.Len(t, top, DefaultSize)
		for i := 1; i < len(top); i++ {
			assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
		}
		boards = append(boards, players(top))
	})
	require.Len(t, boards, 2)
	assert.Equal(t, boards[0], boards[1])
}

func TestRecorder_StoresDetails(t *testing.T) {
	recorders(t, 10, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		require.NoError(t, r.Record(ctx, Entry{Player: "  ", Score: 8, Flips: 22, ElapsedSeconds: 41, Pairs: 8}))
		top, err := r.Top(ctx, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		got := top[0]
		assert.Equal(t, DefaultPlayer, got.Player)
		assert.Equal(t, 22, got.Flips)
		assert.Equal(t, 41, got.ElapsedSeconds)
		assert.Equal(t, 8, got.Pairs)
	})
}

func TestRecorder_EmptyBoard(t *testing.T) {
	recorders(t, 10, func(t *testing.T, r Recorder) {
		top, err := r.Top(context.Background(), 5)
		require.NoError(t, err)
		assert.Empty(t, top)
	})
}

func TestOpenSQLite_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.db")
	s, err := OpenSQLite(path, 10)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), Entry{Player: "kept", Score: 3}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, 10)
	require.NoError(t, err)
	defer s.Close()

	var applied int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	top, err := s.Top(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, players(top))
}

func TestNormalizePlayer(t *testing.T) {
	assert.Equal(t, DefaultPlayer, NormalizePlayer(""))
	assert.Equal(t, "Vera Rubin", NormalizePlayer("  Vera Rubin "))
	long := strings.Repeat("ü", 40)
	assert.Equal(t, strings.Repeat("ü", maxPlayerLength), NormalizePlayer(long))
}
