package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaycore/beatmap"
	"replaycore/replay"
)

var testWindows = beatmap.HitWindows{20, 60, 100, 200}

func circleAt(id string, x, y, hitTime float64) *beatmap.HitCircle {
	return &beatmap.HitCircle{
		ID:        id,
		Pos:       beatmap.Vec{X: x, Y: y},
		Radius:    30,
		HitTime:   hitTime,
		SpawnTime: hitTime - 600,
	}
}

// horizontalSlider runs from (x,y) to (x+length,y) over [start,end] with the
// given checkpoints.
func horizontalSlider(id string, x, y, length, start, end float64, cps ...beatmap.CheckPoint) *beatmap.Slider {
	return &beatmap.Slider{
		ID: id,
		Head: beatmap.HitCircle{
			ID:        id + "-head",
			Pos:       beatmap.Vec{X: x, Y: y},
			Radius:    30,
			HitTime:   start,
			SpawnTime: start - 600,
		},
		CheckPoints:  cps,
		StartTime:    start,
		EndTime:      end,
		SpawnTime:    start - 600,
		Radius:       30,
		Slides:       1,
		Path:         []beatmap.Vec{{X: x, Y: y}, {X: x + length, Y: y}},
		VisualLength: length,
	}
}

func testBeatmap(t *testing.T, objects ...beatmap.HitObject) *beatmap.Beatmap {
	t.Helper()
	bm, err := beatmap.Assemble(objects, beatmap.Modifiers{Rate: 1}, 30, 600, testWindows)
	require.NoError(t, err)
	return bm
}

func frame(time, x, y float64, buttons replay.Buttons) replay.Frame {
	return replay.Frame{Time: time, Pos: beatmap.Vec{X: x, Y: y}, Buttons: buttons}
}

func play(t *testing.T, e *Evaluator, frames ...replay.Frame) *GameState {
	t.Helper()
	st := e.NewState()
	for _, fr := range frames {
		require.NoError(t, e.Advance(st, fr))
	}
	return st
}

func TestSingleCircleGreat(t *testing.T) {
	bm := testBeatmap(t, circleAt("c1", 100, 100, 1000))
	e := New(bm, Config{NoteLock: NoteLockStable})

	st := play(t, e,
		frame(900, 0, 0, 0),
		frame(1005, 100, 100, replay.ButtonLeft),
	)

	require.Contains(t, st.HitCircleStates, "c1")
	assert.Equal(t, HitCircleState{JudgementTime: 1005, Verdict: Great}, st.HitCircleStates["c1"])
	assert.Equal(t, []string{"c1"}, st.JudgedObjects)

	stats, err := Summarize(bm, st)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Combo)
	assert.Equal(t, 1, stats.Great)
}

func TestEarlyClickMisses(t *testing.T) {
	bm := testBeatmap(t, circleAt("c1", 100, 100, 1000))
	e := New(bm, Config{NoteLock: NoteLockStable})

	st := play(t, e,
		frame(700, 100, 100, 0),
		frame(800, 100, 100, replay.ButtonLeft),
	)

	assert.Equal(t, HitCircleState{JudgementTime: 800, Verdict: Miss, Reason: HitTooEarly}, st.HitCircleStates["c1"])

	stats, err := Summarize(bm, st)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Combo)
	assert.Equal(t, 1, stats.Miss)
}

func TestSpatialMissThenTimeout(t *testing.T) {
	bm := testBeatmap(t, circleAt("c1", 100, 100, 1000))
	e := New(bm, Config{NoteLock: NoteLockStable})

	st := e.NewState()
	require.NoError(t, e.Advance(st, frame(900, 0, 0, 0)))
	require.NoError(t, e.Advance(st, frame(1005, 200, 200, replay.ButtonLeft)))

	// clicking far away neither hits nor misses
	assert.Empty(t, st.JudgedObjects)
	assert.Contains(t, st.AliveHitCircles, "c1")

	require.NoError(t, e.Advance(st, frame(1101, 200, 200, 0)))
	assert.Equal(t, HitCircleState{JudgementTime: 1101, Verdict: Miss, Reason: TimeExpired}, st.HitCircleStates["c1"])
	assert.NotContains(t, st.AliveHitCircles, "c1")
}

func TestMehWindowBoundary(t *testing.T) {
	bm := testBeatmap(t, circleAt("c1", 100, 100, 1000))
	e := New(bm, Config{NoteLock: NoteLockStable})

	// exactly hit_time + meh is still a MEH
	st := play(t, e,
		frame(900, 100, 100, 0),
		frame(1100, 100, 100, replay.ButtonLeft),
	)
	assert.Equal(t, HitCircleState{JudgementTime: 1100, Verdict: Meh}, st.HitCircleStates["c1"])

	// one millisecond later the timeout arm wins
	st = play(t, e,
		frame(900, 100, 100, 0),
		frame(1101, 100, 100, replay.ButtonLeft),
	)
	assert.Equal(t, HitCircleState{JudgementTime: 1101, Verdict: Miss, Reason: TimeExpired}, st.HitCircleStates["c1"])
}

func TestStableNoteLock(t *testing.T) {
	bm := testBeatmap(t,
		circleAt("c1", 100, 100, 1000),
		circleAt("c2", 200, 200, 1200),
	)
	e := New(bm, Config{NoteLock: NoteLockStable})

	st := e.NewState()
	require.NoError(t, e.Advance(st, frame(900, 0, 0, 0)))
	// click directly on the second circle; the first is still unjudged at
	// the supposed-click snapshot, so the second stays locked
	require.NoError(t, e.Advance(st, frame(1200, 200, 200, replay.ButtonLeft)))

	assert.Equal(t, HitCircleState{JudgementTime: 1101, Verdict: Miss, Reason: TimeExpired}, st.HitCircleStates["c1"])
	assert.NotContains(t, st.HitCircleStates, "c2")
	assert.Contains(t, st.AliveHitCircles, "c2")

	// the locked circle's own timeout fires at hit_time + meh + 1
	require.NoError(t, e.Advance(st, frame(1301, 200, 200, 0)))
	assert.Equal(t, HitCircleState{JudgementTime: 1301, Verdict: Miss, Reason: TimeExpired}, st.HitCircleStates["c2"])
}

func TestLazerNoteLockForceMiss(t *testing.T) {
	bm := testBeatmap(t,
		circleAt("c1", 100, 100, 1000),
		circleAt("c2", 200, 200, 1200),
	)
	e := New(bm, Config{NoteLock: NoteLockLazer})

	st := e.NewState()
	require.NoError(t, e.Advance(st, frame(900, 0, 0, 0)))
	require.NoError(t, e.Advance(st, frame(950, 200, 200, replay.ButtonLeft)))

	// the blocker is forced to miss, the clicked circle stays alive
	assert.Equal(t, HitCircleState{JudgementTime: 950, Verdict: Miss, Reason: ForceMissNoteLock}, st.HitCircleStates["c1"])
	assert.NotContains(t, st.HitCircleStates, "c2")
	assert.Contains(t, st.AliveHitCircles, "c2")
}

func TestStackedCirclesOneClick(t *testing.T) {
	objects := func() []beatmap.HitObject {
		return []beatmap.HitObject{
			circleAt("c1", 100, 100, 1000),
			circleAt("c2", 101, 101, 1000),
		}
	}

	// under none lock a single fresh click may judge both
	bm := testBeatmap(t, objects()...)
	e := New(bm, Config{NoteLock: NoteLockNone})
	st := play(t, e,
		frame(900, 0, 0, 0),
		frame(1000, 100, 100, replay.ButtonLeft),
	)
	assert.Len(t, st.JudgedObjects, 2)
	assert.Equal(t, Great, st.HitCircleStates["c1"].Verdict)
	assert.Equal(t, Great, st.HitCircleStates["c2"].Verdict)

	// under stable lock the click is spent on the first
	bm = testBeatmap(t, objects()...)
	e = New(bm, Config{NoteLock: NoteLockStable})
	st = play(t, e,
		frame(900, 0, 0, 0),
		frame(1000, 100, 100, replay.ButtonLeft),
	)
	assert.Equal(t, []string{"c1"}, st.JudgedObjects)
	assert.Contains(t, st.AliveHitCircles, "c2")
}

func TestFrameOutOfOrderLeavesStateUntouched(t *testing.T) {
	bm := testBeatmap(t, circleAt("c1", 100, 100, 1000))
	e := New(bm, Config{})

	st := play(t, e, frame(900, 50, 50, 0))
	before := st.Clone()

	err := e.Advance(st, frame(800, 0, 0, replay.ButtonLeft))
	require.ErrorIs(t, err, ErrFrameOutOfOrder)
	assert.Equal(t, before, st)
}

func TestSliderHeadAndCheckpoint(t *testing.T) {
	s := horizontalSlider("s1", 100, 100, 100, 1000, 1600,
		beatmap.CheckPoint{ID: "s1-cp-0", Kind: beatmap.CheckPointTail, HitTime: 1500, Pos: beatmap.Vec{X: 183.0, Y: 100}},
	)
	bm := testBeatmap(t, s)
	e := New(bm, Config{NoteLock: NoteLockStable})

	ballX := func(at float64) float64 { return 100 + 100*(at-1000)/600 }

	st := play(t, e,
		frame(900, 100, 100, 0),
		frame(1000, 100, 100, replay.ButtonLeft), // head hit
		frame(1100, ballX(1100), 100, replay.ButtonLeft),
		frame(1200, ballX(1200), 100, 0),                 // release
		frame(1400, ballX(1400), 100, replay.ButtonLeft), // fresh press since head
		frame(1520, ballX(1520), 100, replay.ButtonLeft),
		frame(1620, ballX(1599), 100, replay.ButtonLeft),
	)

	assert.Equal(t, HitCircleState{JudgementTime: 1000, Verdict: Great}, st.HitCircleStates["s1-head"])
	assert.Equal(t, CheckPointState{Hit: true}, st.CheckPointStates["s1-cp-0"])
	assert.Equal(t, Great, st.SliderVerdicts["s1"])
	assert.Equal(t, []string{"s1-head", "s1-cp-0", "s1"}, st.JudgedObjects)

	stats, err := Summarize(bm, st)
	require.NoError(t, err)
	// head and slider each extend the combo; the checkpoint does not
	assert.Equal(t, 2, stats.Combo)
	assert.Equal(t, 1, stats.Great)
	assert.InDelta(t, 1.0, stats.Accuracy, 1e-12)
}

func TestCheckpointNeedsFreshPressSinceHead(t *testing.T) {
	s := horizontalSlider("s1", 100, 100, 100, 1000, 1600,
		beatmap.CheckPoint{ID: "s1-cp-0", Kind: beatmap.CheckPointTail, HitTime: 1500, Pos: beatmap.Vec{X: 183.0, Y: 100}},
	)
	bm := testBeatmap(t, s)
	e := New(bm, Config{NoteLock: NoteLockStable})

	ballX := func(at float64) float64 { return 100 + 100*(at-1000)/600 }

	// hold from before the head: the early press hits the head (MEH at 920),
	// and the same press counts as fresh for every later checkpoint
	st := play(t, e,
		frame(800, 100, 100, 0),
		frame(920, 100, 100, replay.ButtonLeft),
		frame(1100, ballX(1100), 100, replay.ButtonLeft),
		frame(1300, ballX(1300), 100, replay.ButtonLeft),
		frame(1520, ballX(1520), 100, replay.ButtonLeft),
		frame(1620, ballX(1599), 100, replay.ButtonLeft),
	)
	assert.Equal(t, Meh, st.HitCircleStates["s1-head"].Verdict)
	assert.Equal(t, float64(920), st.HitCircleStates["s1-head"].JudgementTime)
	assert.True(t, st.CheckPointStates["s1-cp-0"].Hit)

	// press away from the head so it times out; a held press from before then
	// still tracks because the head was never hit
	st = play(t, e,
		frame(800, 400, 400, 0),
		frame(900, 400, 400, replay.ButtonLeft),
		frame(1150, ballX(1150), 100, replay.ButtonLeft),
		frame(1520, ballX(1520), 100, replay.ButtonLeft),
		frame(1620, ballX(1599), 100, replay.ButtonLeft),
	)
	assert.Equal(t, TimeExpired, st.HitCircleStates["s1-head"].Reason)
	assert.True(t, st.CheckPointStates["s1-cp-0"].Hit)
	// head missed, tail hit: half of two checkpoints
	assert.Equal(t, Ok, st.SliderVerdicts["s1"])
}

func TestSliderFinishedFasterThanHead(t *testing.T) {
	s := horizontalSlider("s1", 100, 100, 50, 1000, 1080,
		beatmap.CheckPoint{ID: "s1-cp-0", Kind: beatmap.CheckPointTail, HitTime: 1044, Pos: beatmap.Vec{X: 127.5, Y: 100}},
	)
	bm := testBeatmap(t, s)
	e := New(bm, Config{NoteLock: NoteLockStable})

	// never click: the slider ends before the head's timeout
	st := play(t, e,
		frame(900, 0, 0, 0),
		frame(1090, 0, 0, 0),
	)

	assert.Equal(t, HitCircleState{JudgementTime: 1080, Verdict: Miss, Reason: SliderFinishedFaster}, st.HitCircleStates["s1-head"])
	assert.Equal(t, Miss, st.SliderVerdicts["s1"])
	// the head is finalized before the slider's own verdict
	assert.Equal(t, []string{"s1-head", "s1"}, st.JudgedObjects)
}

func TestSpinnerFinalizesAfterEnd(t *testing.T) {
	sp := &beatmap.Spinner{ID: "sp1", StartTime: 1000, EndTime: 2000, SpawnTime: 400}
	bm := testBeatmap(t, sp)
	e := New(bm, Config{})

	st := play(t, e, frame(900, 0, 0, 0), frame(2000, 0, 0, 0))
	assert.Contains(t, st.AliveSpinners, "sp1")

	require.NoError(t, e.Advance(st, frame(2001, 0, 0, 0)))
	assert.NotContains(t, st.AliveSpinners, "sp1")
	assert.Equal(t, []string{"sp1"}, st.JudgedObjects)
	assert.Equal(t, SpinnerState{}, st.SpinnerStates["sp1"])
}

func TestDeterministicReplay(t *testing.T) {
	bm := testBeatmap(t,
		circleAt("c1", 100, 100, 1000),
		horizontalSlider("s1", 50, 200, 100, 1400, 2000,
			beatmap.CheckPoint{ID: "s1-cp-0", Kind: beatmap.CheckPointTail, HitTime: 1900, Pos: beatmap.Vec{X: 133.0, Y: 200}},
		),
		circleAt("c2", 300, 100, 2400),
	)
	e := New(bm, Config{NoteLock: NoteLockStable})

	frames := syntheticFrames(600, 2600, 16)

	run := func() *GameState {
		st := e.NewState()
		for _, fr := range frames {
			require.NoError(t, e.Advance(st, fr))
		}
		return st
	}

	assert.Equal(t, run(), run())
}

// syntheticFrames sweeps the cursor across the playfield with periodic
// presses, deterministic by construction.
func syntheticFrames(from, to, step float64) []replay.Frame {
	var out []replay.Frame
	i := 0
	for t := from; t <= to; t += step {
		var buttons replay.Buttons
		if i%5 < 3 {
			buttons = replay.ButtonLeft
		}
		if i%11 == 0 {
			buttons |= replay.ButtonRight
		}
		out = append(out, replay.Frame{
			Time:    t,
			Pos:     beatmap.Vec{X: 50 + float64(i%40)*7, Y: 80 + float64(i%23)*9},
			Buttons: buttons,
		})
		i++
	}
	return out
}
