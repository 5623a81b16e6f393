package judge

import (
	"math"
	"sort"

	"replaycore/replay"
)

// DefaultSnapshotInterval is the replay-time spacing between stored
// snapshots, in milliseconds.
const DefaultSnapshotInterval = 1000.0

// Timeline is the scrubbable index over a full replay: periodic deep-cloned
// snapshots plus forward replay through the evaluator reconstruct the state
// at an arbitrary time.
type Timeline struct {
	eval   *Evaluator
	frames []replay.Frame
	snaps  []snapshot
}

type snapshot struct {
	state *GameState
	next  int // index of the first frame not applied to state
}

// NewTimeline runs the whole replay once, storing a snapshot roughly every
// interval milliseconds. interval <= 0 selects the default.
func NewTimeline(eval *Evaluator, frames []replay.Frame, interval float64) (*Timeline, error) {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	t := &Timeline{eval: eval, frames: frames}

	st := eval.NewState()
	t.snaps = append(t.snaps, snapshot{state: st.Clone(), next: 0})
	lastSnap := math.Inf(-1)
	for i, fr := range frames {
		if err := eval.Advance(st, fr); err != nil {
			return nil, err
		}
		if fr.Time >= lastSnap+interval || math.IsInf(lastSnap, -1) {
			t.snaps = append(t.snaps, snapshot{state: st.Clone(), next: i + 1})
			lastSnap = fr.Time
		}
	}
	return t, nil
}

// StateAt reconstructs the state at time T: clone the latest snapshot at or
// before T, then replay the frames in between. The returned state is owned
// by the caller; concurrent queries never share containers.
func (t *Timeline) StateAt(T float64) (*GameState, error) {
	i := sort.Search(len(t.snaps), func(i int) bool {
		return t.snaps[i].state.CurrentTime > T
	}) - 1
	if i < 0 {
		i = 0
	}
	snap := t.snaps[i]
	st := snap.state.Clone()
	for j := snap.next; j < len(t.frames) && t.frames[j].Time <= T; j++ {
		if err := t.eval.Advance(st, t.frames[j]); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Frames exposes the replay the timeline indexes.
func (t *Timeline) Frames() []replay.Frame { return t.frames }
