package judge

import (
	"math"

	"replaycore/beatmap"
)

// NotPressing is the sentinel in PressingSince for a released button. It is
// +Inf so that `min(pressing_since, frame.time)` starts a press naturally.
var NotPressing = math.Inf(1)

// GameState is the complete simulation state at CurrentTime. It is a plain
// mutable value: the evaluator mutates it in place, readers that want to keep
// it must Clone first.
type GameState struct {
	CurrentTime float64
	Cursor      beatmap.Vec

	HitCircleStates  map[string]HitCircleState
	SliderBodyStates map[string]SliderBodyState
	CheckPointStates map[string]CheckPointState
	SpinnerStates    map[string]SpinnerState
	SliderVerdicts   map[string]Verdict

	AliveHitCircles map[string]struct{}
	AliveSliders    map[string]struct{}
	AliveSpinners   map[string]struct{}

	// NextCheckPoint holds, per alive slider, the index of the next
	// checkpoint to evaluate; absent once all are consumed.
	NextCheckPoint map[string]int

	// LatestHitObjectIndex is the monotonic spawn cursor into the beatmap's
	// spawn-ordered object list.
	LatestHitObjectIndex int

	// JudgedObjects lists ids in the order decisions were made.
	JudgedObjects []string

	// PressingSince holds, per button, the start of the current
	// uninterrupted press, or NotPressing.
	PressingSince [2]float64

	// scratch flag: a fresh click was consumed by a judgement this frame
	clickWasUseful bool
}

func newGameState() *GameState {
	return &GameState{
		CurrentTime:      math.Inf(-1),
		HitCircleStates:  make(map[string]HitCircleState),
		SliderBodyStates: make(map[string]SliderBodyState),
		CheckPointStates: make(map[string]CheckPointState),
		SpinnerStates:    make(map[string]SpinnerState),
		SliderVerdicts:   make(map[string]Verdict),
		AliveHitCircles:  make(map[string]struct{}),
		AliveSliders:     make(map[string]struct{}),
		AliveSpinners:    make(map[string]struct{}),
		NextCheckPoint:   make(map[string]int),
		PressingSince:    [2]float64{NotPressing, NotPressing},
	}
}

// Clone deep-copies every container so that mutating either copy never
// affects the other.
func (s *GameState) Clone() *GameState {
	c := *s
	c.HitCircleStates = cloneMap(s.HitCircleStates)
	c.SliderBodyStates = cloneMap(s.SliderBodyStates)
	c.CheckPointStates = cloneMap(s.CheckPointStates)
	c.SpinnerStates = cloneMap(s.SpinnerStates)
	c.SliderVerdicts = cloneMap(s.SliderVerdicts)
	c.AliveHitCircles = cloneMap(s.AliveHitCircles)
	c.AliveSliders = cloneMap(s.AliveSliders)
	c.AliveSpinners = cloneMap(s.AliveSpinners)
	c.NextCheckPoint = cloneMap(s.NextCheckPoint)
	c.JudgedObjects = append([]string(nil), s.JudgedObjects...)
	return &c
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
