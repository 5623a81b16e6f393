package dotosu

// Decoded model of a .osu beatmap file, restricted to the osu!standard
// fields the judgement pipeline consumes. Storyboard events, hitsound
// banks and mania holds are skipped during decoding.

const (
	EARLY_VERSION_TIMING_OFFSET = 24
	LATEST_VERSION              = 14
)

type Beatmap struct {
	FormatVersion int
	General       General
	Metadata      Metadata
	Difficulty    Difficulty

	TimingPoints []TimingPoint
	HitObjects   []HitObject
}

type General struct {
	AudioFilename string
	StackLeniency float64
	Mode          int
}

type Metadata struct {
	Title, Artist, Creator, Version string
	BeatmapID, BeatmapSetID         int
}

type Difficulty struct {
	HPDrainRate, CircleSize, OverallDifficulty, ApproachRate float64
	SliderMultiplier, SliderTickRate                         float64
}

type TimingPoint struct {
	Time                     int
	BeatLength               float64
	TimingChange             bool
	SliderVelocityMultiplier float64
}

type ObjectKind uint8

const (
	KindCircle ObjectKind = iota
	KindSlider
	KindSpinner
)

type HitObjectTypeFlags int

const (
	TypeCircle   HitObjectTypeFlags = 1 << iota // 1
	TypeSlider                                  // 2
	TypeNewCombo                                // 4
	TypeSpinner                                 // 8
	TypeHold     HitObjectTypeFlags = 1 << 7    // 128 (mania; skipped)
)

type Vec2 struct{ X, Y int }

type SliderPathType uint8

const (
	PathBezier SliderPathType = iota
	PathLinear
	PathCatmull
	PathPerfect
)

type SliderSegment struct {
	// Points for this segment INCLUDING its starting point.
	// For the FIRST segment, the first point == slider head (x,y).
	Points []Vec2
}

type SliderPath struct {
	Type     SliderPathType
	Segments []SliderSegment // Bezier splits on repeated control points (red anchors).
}

type HitObject interface {
	Kind() ObjectKind
	StartTime() int
	Pos() Vec2
}

type BaseHO struct {
	PosXY Vec2
	Time  int
	Type  HitObjectTypeFlags
}

func (b BaseHO) StartTime() int { return b.Time }
func (b BaseHO) Pos() Vec2      { return b.PosXY }

type Circle struct{ BaseHO }

func (Circle) Kind() ObjectKind { return KindCircle }

type Slider struct {
	BaseHO
	Path   SliderPath
	Slides int
	Length float64
}

func (Slider) Kind() ObjectKind { return KindSlider }

type Spinner struct {
	BaseHO
	EndTime int
}

func (Spinner) Kind() ObjectKind { return KindSpinner }
