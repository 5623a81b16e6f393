package judge

import (
	"fmt"
	"math"
	"sort"

	"replaycore/beatmap"
	"replaycore/replay"
)

// NoteLockStyle selects the policy preventing out-of-order clicks from
// judging a later circle before an earlier one.
type NoteLockStyle uint8

const (
	NoteLockNone NoteLockStyle = iota
	NoteLockStable
	NoteLockLazer
)

func (n NoteLockStyle) String() string {
	switch n {
	case NoteLockNone:
		return "none"
	case NoteLockStable:
		return "stable"
	case NoteLockLazer:
		return "lazer"
	default:
		return "unknown"
	}
}

type Config struct {
	NoteLock NoteLockStyle
}

// Evaluator advances a GameState frame by frame over one beatmap. It holds
// no mutable state of its own; all mutation happens on the GameState it is
// handed.
type Evaluator struct {
	bm       *beatmap.Beatmap
	windows  beatmap.HitWindows
	noteLock NoteLockStyle
}

func New(bm *beatmap.Beatmap, cfg Config) *Evaluator {
	return &Evaluator{
		bm:       bm,
		windows:  bm.Windows,
		noteLock: cfg.NoteLock,
	}
}

// NewState returns the state before any frame; the first frame establishes
// the initial current time.
func (e *Evaluator) NewState() *GameState {
	return newGameState()
}

// Advance consumes the next replay frame, mutating state in place through
// the fixed phase order: bind, buttons, spawn, supposed-click times, circle
// resolution, slider finalization, checkpoint evaluation, body tracking,
// spinners.
func (e *Evaluator) Advance(st *GameState, frame replay.Frame) error {
	if frame.Time < st.CurrentTime {
		return fmt.Errorf("%w: frame at %v behind state at %v", ErrFrameOutOfOrder, frame.Time, st.CurrentTime)
	}

	// 1. bind frame
	previousTime := st.CurrentTime
	previousPos := st.Cursor
	st.CurrentTime = frame.Time
	st.Cursor = frame.Pos
	st.clickWasUseful = false
	oldPressingSince := st.PressingSince

	// 2. button timings
	for i := range st.PressingSince {
		if frame.Buttons.Held(i) {
			st.PressingSince[i] = min(st.PressingSince[i], frame.Time)
		} else {
			st.PressingSince[i] = NotPressing
		}
	}

	// 3. spawn
	e.spawn(st)

	// 4. supposed-click times over alive circles
	circles, err := e.aliveCirclesByHitTime(st)
	if err != nil {
		return err
	}
	tSupposed, hasSupposed := math.NaN(), false
	tNextSupposed, hasNextSupposed := math.NaN(), false
	for _, h := range circles {
		if !hasSupposed {
			tSupposed, hasSupposed = h.HitTime, true
		}
		if !hasNextSupposed && h.HitTime >= st.CurrentTime {
			tNextSupposed, hasNextSupposed = h.HitTime, true
		}
	}

	// 5. resolve hit circles in ascending hit-time order
	e.resolveHitCircles(st, circles, tSupposed, hasSupposed, tNextSupposed, hasNextSupposed)

	// 6. finalize expired sliders
	if err := e.finalizeExpiredSliders(st); err != nil {
		return err
	}

	// 7. evaluate crossed checkpoints with the pre-frame button timings
	if err := e.evaluateCheckPoints(st, previousTime, previousPos, oldPressingSince); err != nil {
		return err
	}

	// 8. slider body tracking with the current-frame inputs
	if err := e.updateSliderBodies(st); err != nil {
		return err
	}

	// 9. advance spinners
	return e.advanceSpinners(st)
}

func (e *Evaluator) spawn(st *GameState) {
	objects := e.bm.Objects
	for st.LatestHitObjectIndex < len(objects) {
		object := objects[st.LatestHitObjectIndex]
		if object.Spawn() > st.CurrentTime {
			break
		}
		switch object := object.(type) {
		case *beatmap.HitCircle:
			st.AliveHitCircles[object.ID] = struct{}{}
		case *beatmap.Slider:
			st.AliveSliders[object.ID] = struct{}{}
			st.AliveHitCircles[object.Head.ID] = struct{}{}
			st.NextCheckPoint[object.ID] = 0
		case *beatmap.Spinner:
			st.AliveSpinners[object.ID] = struct{}{}
			st.SpinnerStates[object.ID] = SpinnerState{}
		default:
			panic("unexpected")
		}
		st.LatestHitObjectIndex++
	}
}

func (e *Evaluator) aliveCirclesByHitTime(st *GameState) ([]*beatmap.HitCircle, error) {
	out := make([]*beatmap.HitCircle, 0, len(st.AliveHitCircles))
	for id := range st.AliveHitCircles {
		c, ok := e.bm.Circle(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHitObject, id)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HitTime != out[j].HitTime {
			return out[i].HitTime < out[j].HitTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (e *Evaluator) resolveHitCircles(
	st *GameState,
	circles []*beatmap.HitCircle,
	tSupposed float64, hasSupposed bool,
	tNextSupposed float64, hasNextSupposed bool,
) {
	freshClick := st.PressingSince[0] == st.CurrentTime || st.PressingSince[1] == st.CurrentTime

	for _, h := range circles {
		if _, alive := st.AliveHitCircles[h.ID]; !alive {
			// force-missed by a later circle earlier in this loop
			continue
		}
		if st.CurrentTime >= h.HitTime+e.windows.Meh()+1 {
			finalizeCircle(st, h.ID, HitCircleState{
				JudgementTime: h.HitTime + e.windows.Meh() + 1,
				Verdict:       Miss,
				Reason:        TimeExpired,
			})
			continue
		}
		if !freshClick {
			continue
		}
		if st.clickWasUseful && e.noteLock != NoteLockNone {
			// one judgement per click
			continue
		}
		if beatmap.Distance(st.Cursor, h.Pos) > h.Radius {
			// spatial miss: keep the player's chance to click
			continue
		}
		switch e.noteLock {
		case NoteLockNone:
		case NoteLockStable:
			if hasSupposed && tSupposed < h.HitTime {
				continue
			}
		case NoteLockLazer:
			if hasNextSupposed && tNextSupposed < h.HitTime {
				e.forceMissBlocker(st, circles, h)
				continue
			}
		}
		delta := st.CurrentTime - h.HitTime
		matched := false
		for _, v := range [...]Verdict{Great, Ok, Meh} {
			if math.Abs(delta) <= e.windows[v] {
				finalizeCircle(st, h.ID, HitCircleState{
					JudgementTime: st.CurrentTime,
					Verdict:       v,
				})
				st.clickWasUseful = true
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if math.Abs(delta) <= e.windows.Miss() && delta < 0 {
			finalizeCircle(st, h.ID, HitCircleState{
				JudgementTime: st.CurrentTime,
				Verdict:       Miss,
				Reason:        HitTooEarly,
			})
			continue
		}
		// spatially valid but outside every window: a shake, which is a
		// rendering concern
	}
}

// forceMissBlocker finalizes the circle whose hit time defines
// t_next_supposed: the earliest alive circle not yet due, standing before h.
func (e *Evaluator) forceMissBlocker(st *GameState, circles []*beatmap.HitCircle, h *beatmap.HitCircle) {
	for _, c := range circles {
		if c.HitTime >= h.HitTime {
			return
		}
		if _, alive := st.AliveHitCircles[c.ID]; !alive {
			continue
		}
		if c.HitTime < st.CurrentTime {
			continue
		}
		finalizeCircle(st, c.ID, HitCircleState{
			JudgementTime: st.CurrentTime,
			Verdict:       Miss,
			Reason:        ForceMissNoteLock,
		})
		return
	}
}

func finalizeCircle(st *GameState, id string, hs HitCircleState) {
	st.HitCircleStates[id] = hs
	delete(st.AliveHitCircles, id)
	st.JudgedObjects = append(st.JudgedObjects, id)
}

func (e *Evaluator) finalizeExpiredSliders(st *GameState) error {
	sliders, err := e.aliveSlidersSorted(st, func(a, b *beatmap.Slider) bool {
		if a.EndTime != b.EndTime {
			return a.EndTime < b.EndTime
		}
		return a.ID < b.ID
	})
	if err != nil {
		return err
	}
	for _, s := range sliders {
		if s.EndTime > st.CurrentTime {
			continue
		}
		headState, headJudged := st.HitCircleStates[s.Head.ID]
		if !headJudged {
			if _, alive := st.AliveHitCircles[s.Head.ID]; !alive {
				return fmt.Errorf("%w: slider %s head %s neither judged nor alive", ErrInvariantViolated, s.ID, s.Head.ID)
			}
			finalizeCircle(st, s.Head.ID, HitCircleState{
				JudgementTime: s.EndTime,
				Verdict:       Miss,
				Reason:        SliderFinishedFaster,
			})
			headState = st.HitCircleStates[s.Head.ID]
		}

		// the head counts as a checkpoint in classic scoring
		total := len(s.CheckPoints) + 1
		hit := 0
		if headState.Verdict != Miss {
			hit++
		}
		for i := range s.CheckPoints {
			if st.CheckPointStates[s.CheckPoints[i].ID].Hit {
				hit++
			}
		}
		var verdict Verdict
		switch {
		case hit == total:
			verdict = Great
		case hit == 0:
			verdict = Miss
		case hit*2 >= total:
			verdict = Ok
		default:
			verdict = Meh
		}
		st.SliderVerdicts[s.ID] = verdict
		st.JudgedObjects = append(st.JudgedObjects, s.ID)
		delete(st.AliveSliders, s.ID)
		delete(st.NextCheckPoint, s.ID)
		delete(st.SliderBodyStates, s.ID)
	}
	return nil
}

func (e *Evaluator) evaluateCheckPoints(st *GameState, previousTime float64, previousPos beatmap.Vec, oldPressingSince [2]float64) error {
	for {
		sliders, err := e.aliveSlidersSorted(st, func(a, b *beatmap.Slider) bool {
			return a.ID < b.ID
		})
		if err != nil {
			return err
		}
		// globally earliest pending checkpoint; ties go to the smaller
		// slider id (the iteration order)
		var best *beatmap.CheckPoint
		var bestSlider *beatmap.Slider
		for _, s := range sliders {
			idx, ok := st.NextCheckPoint[s.ID]
			if !ok {
				continue
			}
			cp := &s.CheckPoints[idx]
			if cp.HitTime >= st.CurrentTime {
				continue
			}
			if best == nil || cp.HitTime < best.HitTime {
				best = cp
				bestSlider = s
			}
		}
		if best == nil {
			return nil
		}

		timeToCheck := math.Ceil(best.HitTime - 1e-10)
		var predicted beatmap.Vec
		denom := st.CurrentTime - previousTime
		if denom == 0 || math.IsInf(previousTime, -1) {
			predicted = st.Cursor
		} else {
			alpha := (timeToCheck - previousTime) / denom
			predicted = beatmap.Vec{
				X: previousPos.X + (st.Cursor.X-previousPos.X)*alpha,
				Y: previousPos.Y + (st.Cursor.Y-previousPos.Y)*alpha,
			}
		}

		wasTracking := st.SliderBodyStates[bestSlider.ID].IsTracking
		headHitTime, headWasHit := headJudgementTime(st, bestSlider)
		hit := tracking(wasTracking, bestSlider, predicted, timeToCheck, oldPressingSince, headHitTime, headWasHit)

		st.CheckPointStates[best.ID] = CheckPointState{Hit: hit}
		st.JudgedObjects = append(st.JudgedObjects, best.ID)
		if idx := st.NextCheckPoint[bestSlider.ID] + 1; idx >= len(bestSlider.CheckPoints) {
			delete(st.NextCheckPoint, bestSlider.ID)
		} else {
			st.NextCheckPoint[bestSlider.ID] = idx
		}
	}
}

func (e *Evaluator) updateSliderBodies(st *GameState) error {
	sliders, err := e.aliveSlidersSorted(st, func(a, b *beatmap.Slider) bool {
		return a.ID < b.ID
	})
	if err != nil {
		return err
	}
	for _, s := range sliders {
		headHitTime, headWasHit := headJudgementTime(st, s)
		st.SliderBodyStates[s.ID] = SliderBodyState{
			IsTracking: tracking(
				st.SliderBodyStates[s.ID].IsTracking,
				s, st.Cursor, st.CurrentTime,
				st.PressingSince,
				headHitTime, headWasHit,
			),
		}
	}
	return nil
}

func (e *Evaluator) advanceSpinners(st *GameState) error {
	spinners := make([]*beatmap.Spinner, 0, len(st.AliveSpinners))
	for id := range st.AliveSpinners {
		sp, ok := e.bm.Spinner(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHitObject, id)
		}
		spinners = append(spinners, sp)
	}
	sort.Slice(spinners, func(i, j int) bool {
		if spinners[i].EndTime != spinners[j].EndTime {
			return spinners[i].EndTime < spinners[j].EndTime
		}
		return spinners[i].ID < spinners[j].ID
	})
	for _, sp := range spinners {
		if sp.EndTime < st.CurrentTime {
			st.JudgedObjects = append(st.JudgedObjects, sp.ID)
			delete(st.AliveSpinners, sp.ID)
		}
	}
	return nil
}

func (e *Evaluator) aliveSlidersSorted(st *GameState, less func(a, b *beatmap.Slider) bool) ([]*beatmap.Slider, error) {
	out := make([]*beatmap.Slider, 0, len(st.AliveSliders))
	for id := range st.AliveSliders {
		s, ok := e.bm.Slider(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHitObject, id)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// headJudgementTime reports when the slider's head was hit; a missed or
// still-pending head yields false.
func headJudgementTime(st *GameState, s *beatmap.Slider) (float64, bool) {
	hs, ok := st.HitCircleStates[s.Head.ID]
	if !ok || hs.Verdict == Miss {
		return 0, false
	}
	return hs.JudgementTime, true
}
