package beatmap

// Dialect selects the rule variant the hit windows follow. The evaluator's
// note-lock policy is configured separately.
type Dialect uint8

const (
	DialectStable Dialect = iota
	DialectLazer
)

func (d Dialect) String() string {
	if d == DialectLazer {
		return "lazer"
	}
	return "stable"
}

// HitWindows holds the judgement windows in milliseconds, indexed by verdict
// leniency: [great, ok, meh, miss].
type HitWindows [4]float64

func (w HitWindows) Great() float64 { return w[0] }
func (w HitWindows) Ok() float64    { return w[1] }
func (w HitWindows) Meh() float64   { return w[2] }
func (w HitWindows) Miss() float64  { return w[3] }

// difficultyRange interpolates between the published OD 0 / 5 / 10 anchors.
func difficultyRange(d, od0, od5, od10 float64) float64 {
	switch {
	case d > 5:
		return od5 + (od10-od5)*(d-5)/5
	case d < 5:
		return od5 - (od5-od0)*(5-d)/5
	default:
		return od5
	}
}

// Windows derives the judgement window table from the overall difficulty.
// Stable windows carry the classic half-millisecond shave; lazer judges the
// round values and cuts off misses at a flat 400ms.
func Windows(od float64, dialect Dialect) HitWindows {
	od = clamp(od, 0, 10)
	if dialect == DialectLazer {
		return HitWindows{
			80 - 6*od,
			140 - 8*od,
			200 - 10*od,
			400,
		}
	}
	return HitWindows{
		difficultyRange(od, 79.5, 49.5, 19.5),
		difficultyRange(od, 139.5, 99.5, 59.5),
		difficultyRange(od, 199.5, 149.5, 99.5),
		difficultyRange(od, 399.5, 299.5, 199.5),
	}
}

func ApproachRateToPreempt(ar float64) float64 {
	if ar < 5 {
		return 1200 + 120*(5-ar)
	} else if ar == 5 {
		return 1200
	} else {
		return 1200 - 150*(ar-5)
	}
}

func PreemptToAR(preempt float64) float64 {
	if preempt > 1200 {
		return 5 - (preempt-1200)/120
	} else if preempt == 1200 {
		return 5
	} else {
		return 5 + (1200-preempt)/150
	}
}
