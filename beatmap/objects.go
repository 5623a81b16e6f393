package beatmap

import (
	"fmt"
	"math"
	"sort"
)

// HitCircle is a clickable note: either a standalone circle or a slider head.
type HitCircle struct {
	ID        string
	Pos       Vec
	Radius    float64
	HitTime   float64 // when the player is supposed to click
	SpawnTime float64 // earliest moment judgement tracks it
}

type CheckPointKind uint8

const (
	CheckPointTick CheckPointKind = iota
	CheckPointRepeat
	CheckPointTail
)

func (k CheckPointKind) String() string {
	switch k {
	case CheckPointTick:
		return "tick"
	case CheckPointRepeat:
		return "repeat"
	case CheckPointTail:
		return "tail"
	default:
		return "unknown"
	}
}

// CheckPoint is a sub-position along a slider (tick, repeat or tail),
// evaluated independently for tracking.
type CheckPoint struct {
	ID      string
	Kind    CheckPointKind
	HitTime float64
	Pos     Vec
}

type Slider struct {
	ID          string
	Head        HitCircle
	CheckPoints []CheckPoint
	StartTime   float64
	EndTime     float64
	SpawnTime   float64
	Radius      float64
	Slides      int

	// Path is the flattened polyline; VisualLength the authored pixel length
	// the ball actually travels per span.
	Path         []Vec
	VisualLength float64
}

func (s *Slider) Duration() float64 { return s.EndTime - s.StartTime }

// ProgressAt maps an absolute time onto [0,1] across all spans.
func (s *Slider) ProgressAt(t float64) float64 {
	d := s.Duration()
	if d <= 0 {
		return 0
	}
	return clamp((t-s.StartTime)/d, 0, 1)
}

// BallPositionAt returns the ball position for progress in [0,1],
// folding repeat spans back and forth along the path.
func (s *Slider) BallPositionAt(progress float64) Vec {
	progress = clamp(progress, 0, 1)
	spans := maxi(s.Slides, 1)
	p := progress * float64(spans)
	span := int(math.Floor(p))
	frac := p - float64(span)
	if span >= spans {
		span = spans - 1
		frac = 1
	}
	if span%2 == 1 {
		frac = 1 - frac
	}
	return positionAlong(s.Path, frac*s.VisualLength)
}

type Spinner struct {
	ID        string
	StartTime float64
	EndTime   float64
	SpawnTime float64
}

// HitObject is the tagged variant over {*HitCircle, *Slider, *Spinner}.
// Every consumer dispatches with an exhaustive type switch.
type HitObject interface {
	ObjectID() string
	Spawn() float64
}

func (c *HitCircle) ObjectID() string { return c.ID }
func (c *HitCircle) Spawn() float64   { return c.SpawnTime }
func (s *Slider) ObjectID() string    { return s.ID }
func (s *Slider) Spawn() float64      { return s.SpawnTime }
func (p *Spinner) ObjectID() string   { return p.ID }
func (p *Spinner) Spawn() float64     { return p.SpawnTime }

// IDKind classifies any id registered in a beatmap, including sub-object ids.
type IDKind uint8

const (
	IDUnknown IDKind = iota
	IDCircle
	IDSliderHead
	IDSlider
	IDCheckPoint
	IDSpinner
)

// Beatmap is the fully materialized, immutable output of the builder.
type Beatmap struct {
	Objects []HitObject // spawn-ordered, tie-break by authored index
	Mods    Modifiers
	Radius  float64
	Preempt float64
	Windows HitWindows

	circles     map[string]*HitCircle // standalone circles and slider heads
	sliders     map[string]*Slider
	spinners    map[string]*Spinner
	checkpoints map[string]*CheckPoint
	owner       map[string]string // head/checkpoint id -> slider id
	kinds       map[string]IDKind
}

func (b *Beatmap) Circle(id string) (*HitCircle, bool) {
	c, ok := b.circles[id]
	return c, ok
}

func (b *Beatmap) Slider(id string) (*Slider, bool) {
	s, ok := b.sliders[id]
	return s, ok
}

func (b *Beatmap) Spinner(id string) (*Spinner, bool) {
	s, ok := b.spinners[id]
	return s, ok
}

func (b *Beatmap) CheckPoint(id string) (*CheckPoint, bool) {
	c, ok := b.checkpoints[id]
	return c, ok
}

// Owner resolves a head or checkpoint id to its slider id.
func (b *Beatmap) Owner(id string) (string, bool) {
	s, ok := b.owner[id]
	return s, ok
}

func (b *Beatmap) KindOf(id string) IDKind { return b.kinds[id] }

// Assemble indexes and validates a materialized object list. It is the
// final step of Build and the entry point tests use to construct beatmaps
// directly.
func Assemble(objects []HitObject, mods Modifiers, radius, preempt float64, windows HitWindows) (*Beatmap, error) {
	b := &Beatmap{
		Objects:     objects,
		Mods:        mods,
		Radius:      radius,
		Preempt:     preempt,
		Windows:     windows,
		circles:     make(map[string]*HitCircle),
		sliders:     make(map[string]*Slider),
		spinners:    make(map[string]*Spinner),
		checkpoints: make(map[string]*CheckPoint),
		owner:       make(map[string]string),
		kinds:       make(map[string]IDKind),
	}

	register := func(id string, kind IDKind) error {
		if id == "" {
			return fmt.Errorf("%w: empty object id", ErrMalformedBeatmap)
		}
		if _, dup := b.kinds[id]; dup {
			return fmt.Errorf("%w: duplicate object id %q", ErrMalformedBeatmap, id)
		}
		b.kinds[id] = kind
		return nil
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Spawn() < objects[j].Spawn()
	})

	for _, object := range objects {
		switch object := object.(type) {
		case *HitCircle:
			if err := register(object.ID, IDCircle); err != nil {
				return nil, err
			}
			b.circles[object.ID] = object
		case *Slider:
			if err := register(object.ID, IDSlider); err != nil {
				return nil, err
			}
			if err := register(object.Head.ID, IDSliderHead); err != nil {
				return nil, err
			}
			if len(object.Path) < 2 {
				return nil, fmt.Errorf("%w: slider %s path is not sampleable", ErrMalformedBeatmap, object.ID)
			}
			if object.EndTime <= object.StartTime {
				return nil, fmt.Errorf("%w: slider %s has non-positive duration", ErrMalformedBeatmap, object.ID)
			}
			prev := object.StartTime
			for i := range object.CheckPoints {
				cp := &object.CheckPoints[i]
				if err := register(cp.ID, IDCheckPoint); err != nil {
					return nil, err
				}
				if cp.HitTime < object.StartTime || cp.HitTime > object.EndTime {
					return nil, fmt.Errorf("%w: checkpoint %s outside slider span", ErrMalformedBeatmap, cp.ID)
				}
				if cp.HitTime < prev {
					return nil, fmt.Errorf("%w: checkpoint %s out of order", ErrMalformedBeatmap, cp.ID)
				}
				prev = cp.HitTime
				b.checkpoints[cp.ID] = cp
				b.owner[cp.ID] = object.ID
			}
			b.sliders[object.ID] = object
			b.circles[object.Head.ID] = &object.Head
			b.owner[object.Head.ID] = object.ID
		case *Spinner:
			if err := register(object.ID, IDSpinner); err != nil {
				return nil, err
			}
			if object.EndTime < object.StartTime {
				return nil, fmt.Errorf("%w: spinner %s ends before it starts", ErrMalformedBeatmap, object.ID)
			}
			b.spinners[object.ID] = object
		default:
			panic("unexpected")
		}
	}
	return b, nil
}
