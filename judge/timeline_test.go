package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaycore/beatmap"
)

func timelineFixture(t *testing.T) (*Evaluator, *beatmap.Beatmap) {
	t.Helper()
	bm := testBeatmap(t,
		circleAt("c1", 100, 100, 1000),
		circleAt("c2", 300, 150, 1800),
		horizontalSlider("s1", 50, 200, 100, 2400, 3000,
			beatmap.CheckPoint{ID: "s1-cp-0", Kind: beatmap.CheckPointTail, HitTime: 2900, Pos: beatmap.Vec{X: 133.0, Y: 200}},
		),
		&beatmap.Spinner{ID: "sp1", StartTime: 3200, EndTime: 4200, SpawnTime: 2600},
	)
	return New(bm, Config{NoteLock: NoteLockStable}), bm
}

func TestTimelineMatchesDirectRun(t *testing.T) {
	e, _ := timelineFixture(t)
	frames := syntheticFrames(600, 4500, 16)

	timeline, err := NewTimeline(e, frames, 500)
	require.NoError(t, err)

	direct := func(T float64) *GameState {
		st := e.NewState()
		for _, fr := range frames {
			if fr.Time > T {
				break
			}
			require.NoError(t, e.Advance(st, fr))
		}
		return st
	}

	for _, T := range []float64{0, 599, 600, 1004, 1600, 2450, 2899, 2901, 3050, 4201, 9000} {
		got, err := timeline.StateAt(T)
		require.NoError(t, err)
		assert.Equal(t, direct(T), got, "state at %v", T)
	}
}

func TestTimelineQueriesDoNotInterfere(t *testing.T) {
	e, _ := timelineFixture(t)
	frames := syntheticFrames(600, 4500, 16)

	timeline, err := NewTimeline(e, frames, 1000)
	require.NoError(t, err)

	a1, err := timeline.StateAt(2500)
	require.NoError(t, err)
	b, err := timeline.StateAt(4500)
	require.NoError(t, err)
	a2, err := timeline.StateAt(2500)
	require.NoError(t, err)

	// a later scrub must not disturb an earlier answer
	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1.CurrentTime, b.CurrentTime)
}
