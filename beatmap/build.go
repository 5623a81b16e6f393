package beatmap

import (
	"errors"
	"fmt"
	"math"

	"replaycore/dotosu"
)

var ErrMalformedBeatmap = errors.New("malformed beatmap")

// Stable stacking: objects closer than this (pre-stack) share a stack.
const stackDistance = 3.0

// Build materializes a parsed blueprint into the immutable beatmap the
// evaluator consumes: mod scaling, stacking offsets, flattened slider paths,
// checkpoint lists and spawn times.
func Build(bp *dotosu.Beatmap, mods Modifiers, dialect Dialect) (*Beatmap, error) {
	rate := mods.EffectiveRate()

	cs := bp.Difficulty.CircleSize
	if mods.Hardrock {
		cs = min(cs*1.3, 10)
	}
	if mods.Easy {
		cs = cs / 2
	}
	radius := 54.4 - 4.48*cs

	od := bp.Difficulty.OverallDifficulty
	if mods.Hardrock {
		od = min(10, od*1.4)
	}
	if mods.Easy {
		od = od / 2
	}

	ar := bp.Difficulty.ApproachRate
	if mods.Hardrock {
		ar = min(10, ar*1.4)
	}
	if mods.Easy {
		ar = ar / 2
	}

	// Stacking works in authored time; the played preempt is rate-scaled.
	preemptRaw := ApproachRateToPreempt(ar)
	preempt := preemptRaw / rate

	windows := Windows(od, dialect)
	for i := range windows {
		windows[i] /= rate
	}

	lastStart := math.Inf(-1)
	for _, object := range bp.HitObjects {
		t := float64(object.StartTime())
		if t < lastStart {
			return nil, fmt.Errorf("%w: hit object times go backwards at %d", ErrMalformedBeatmap, object.StartTime())
		}
		lastStart = t
	}

	positions := startPositions(bp)
	offsets := stackOffsets(bp, positions, radius, preemptRaw*bp.General.StackLeniency)

	transform := func(p Vec, i int) Vec {
		if mods.Hardrock {
			p.Y = PlayfieldHeight - p.Y
		}
		return Vec{p.X + offsets[i].X, p.Y + offsets[i].Y}
	}

	var objects []HitObject
	timingPoints := bp.TimingPoints
	timingPointIndex := 0
	var lastRedLine *dotosu.TimingPoint
	var lastGreenLine *dotosu.TimingPoint
objectLoop:
	for i, object := range bp.HitObjects {
		for timingPointIndex < len(timingPoints) && (lastRedLine == nil || timingPoints[timingPointIndex].Time <= object.StartTime()) {
			timingPoint := timingPoints[timingPointIndex]
			timingPointIndex++

			if timingPoint.TimingChange {
				lastRedLine = &timingPoint
				lastGreenLine = nil
			} else {
				lastGreenLine = &timingPoint
			}
		}
		switch object := object.(type) {
		case dotosu.Circle:
			objects = append(objects, &HitCircle{
				ID: fmt.Sprintf("circle-%d", i),
				Pos: transform(Vec{
					X: float64(object.PosXY.X),
					Y: float64(object.PosXY.Y),
				}, i),
				Radius:  radius,
				HitTime: float64(object.Time),
			})

		case dotosu.Slider:
			if lastRedLine == nil {
				return nil, fmt.Errorf("%w: slider at %d before any timing point", ErrMalformedBeatmap, object.Time)
			}
			beatLength := lastRedLine.BeatLength
			if math.IsNaN(beatLength) || beatLength <= 0 {
				return nil, fmt.Errorf("%w: slider at %d has no usable beat length", ErrMalformedBeatmap, object.Time)
			}
			var sv float64
			if lastGreenLine != nil {
				sv = max(0.1, lastGreenLine.SliderVelocityMultiplier)
			} else {
				sv = 1
			}

			poly := FlattenPath(object.Path)
			for j := range poly {
				poly[j] = transform(poly[j], i)
			}
			visualLength := object.Length
			if len(poly) < 2 || visualLength <= 0 {
				return nil, fmt.Errorf("%w: slider at %d path is not sampleable", ErrMalformedBeatmap, object.Time)
			}
			timeLength := visualLength / (bp.Difficulty.SliderMultiplier * 100 * sv) * beatLength
			if !(timeLength > 0) {
				return nil, fmt.Errorf("%w: slider at %d has non-positive span duration", ErrMalformedBeatmap, object.Time)
			}
			slides := max(1, object.Slides)
			startTime := float64(object.Time)

			id := fmt.Sprintf("slider-%d", i)
			s := &Slider{
				ID: id,
				Head: HitCircle{
					ID:      id + "-head",
					Pos:     poly[0],
					Radius:  radius,
					HitTime: startTime,
				},
				StartTime:    startTime,
				EndTime:      startTime + float64(slides)*timeLength,
				Radius:       radius,
				Slides:       slides,
				Path:         poly,
				VisualLength: visualLength,
			}

			ticksFloat := timeLength / beatLength * bp.Difficulty.SliderTickRate
			ticks := max(0, int(math.Floor((timeLength-min(36, timeLength/2))/beatLength*bp.Difficulty.SliderTickRate)))
			tickLength := visualLength / ticksFloat
			tickTime := beatLength / bp.Difficulty.SliderTickRate

			cpCount := 0
			addCheckPoint := func(kind CheckPointKind, time, progress float64) {
				s.CheckPoints = append(s.CheckPoints, CheckPoint{
					ID:      fmt.Sprintf("%s-cp-%d", id, cpCount),
					Kind:    kind,
					HitTime: time,
					Pos:     positionAlong(poly, progress),
				})
				cpCount++
			}

			for span := 0; span < slides; span++ {
				for j := 0; j < ticks; j++ {
					var progress float64
					var time float64
					if span%2 == 0 {
						time = startTime +
							float64(span)*timeLength +
							float64(j+1)*tickTime
						progress = float64(j+1) * tickLength
					} else {
						time = startTime +
							float64(span+1)*timeLength +
							float64(j-ticks)*tickTime
						progress = float64(ticks-j) * tickLength
					}
					addCheckPoint(CheckPointTick, time, progress)
				}
				spanEndTime := startTime + float64(span+1)*timeLength
				if span == slides-1 {
					// Legacy tail: judged slightly before the visual end.
					legacy := min(36, timeLength/2)
					effectiveLength := timeLength - legacy
					var progress float64
					if span%2 == 0 {
						progress = effectiveLength / timeLength * visualLength
					} else {
						progress = (1 - effectiveLength/timeLength) * visualLength
					}
					addCheckPoint(CheckPointTail, spanEndTime-legacy, progress)
				} else {
					var progress float64
					if span%2 == 0 {
						progress = visualLength
					} else {
						progress = 0
					}
					addCheckPoint(CheckPointRepeat, spanEndTime, progress)
				}
			}
			objects = append(objects, s)

		case dotosu.Spinner:
			if mods.SpunOut {
				continue objectLoop
			}
			objects = append(objects, &Spinner{
				ID:        fmt.Sprintf("spinner-%d", i),
				StartTime: float64(object.Time),
				EndTime:   float64(object.EndTime),
			})

		default:
			panic("unexpected")
		}
	}

	// Map authored times into playback time, then derive spawn times.
	for _, object := range objects {
		switch object := object.(type) {
		case *HitCircle:
			object.HitTime /= rate
			object.SpawnTime = object.HitTime - preempt
		case *Slider:
			object.StartTime /= rate
			object.EndTime /= rate
			object.Head.HitTime /= rate
			for j := range object.CheckPoints {
				object.CheckPoints[j].HitTime /= rate
			}
			object.SpawnTime = object.StartTime - preempt
			object.Head.SpawnTime = object.SpawnTime
		case *Spinner:
			object.StartTime /= rate
			object.EndTime /= rate
			object.SpawnTime = object.StartTime - preempt
		default:
			panic("unexpected")
		}
	}

	return Assemble(objects, mods, radius, preempt, windows)
}

// startPositions collects blueprint start positions (pre-stacking, pre-flip).
func startPositions(bp *dotosu.Beatmap) []Vec {
	out := make([]Vec, len(bp.HitObjects))
	for i, object := range bp.HitObjects {
		out[i] = Vec{X: float64(object.Pos().X), Y: float64(object.Pos().Y)}
	}
	return out
}

// stackOffsets reproduces the authored-visual stacking rule: a chain of
// objects starting within stackWindow of each other and closer than
// stackDistance is fanned out diagonally, earliest object pushed furthest.
// Spinners never stack. The chain uses start positions only.
func stackOffsets(bp *dotosu.Beatmap, positions []Vec, radius, stackWindow float64) []Vec {
	heights := make([]int, len(bp.HitObjects))
	stackable := func(i int) bool {
		return bp.HitObjects[i].Kind() != dotosu.KindSpinner
	}

	for i := len(bp.HitObjects) - 1; i > 0; i-- {
		if !stackable(i) {
			continue
		}
		top := i
		for n := i - 1; n >= 0; n-- {
			if !stackable(n) {
				continue
			}
			if float64(bp.HitObjects[top].StartTime()-bp.HitObjects[n].StartTime()) > stackWindow {
				break
			}
			if Distance(positions[n], positions[top]) < stackDistance {
				heights[n] = maxi(heights[n], heights[top]+1)
				top = n
			}
		}
	}

	offsets := make([]Vec, len(heights))
	for i, h := range heights {
		shift := float64(h) * radius / 10
		offsets[i] = Vec{X: -shift, Y: -shift}
	}
	return offsets
}
