package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/robalobadob/astromatch/internal/match"
)

func TestMetrics_OnEvent(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OnEvent(match.Event{Kind: match.EventRoundStarted})
	m.OnEvent(match.Event{Kind: match.EventTick})
	m.OnEvent(match.Event{Kind: match.EventRoundComplete, Result: &match.Result{ElapsedSeconds: 42}})
	m.OnEvent(match.Event{Kind: match.EventRoundAbandoned})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundsCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundsAbandoned))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RoundDuration))
}

func TestMetrics_Flip(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Flip(true)
	m.Flip(true)
	m.Flip(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Flips.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flips.WithLabelValues("ignored")))
}
