package judge

import "replaycore/beatmap"

// tracking decides whether a slider is being followed correctly at time t:
// a button is held, t lies inside the slider span, the cursor sits within
// the follow circle (2.4x the radius while already tracking), and, when the
// head was hit, some press started no earlier than the head's judgement.
func tracking(
	wasTracking bool,
	s *beatmap.Slider,
	cursor beatmap.Vec,
	t float64,
	pressingSince [2]float64,
	headHitTime float64,
	headWasHit bool,
) bool {
	held := false
	for _, since := range pressingSince {
		if since != NotPressing {
			held = true
			break
		}
	}
	if !held {
		return false
	}
	if t < s.StartTime || t >= s.EndTime {
		return false
	}
	followRadius := s.Radius
	if wasTracking {
		followRadius = 2.4 * s.Radius
	}
	ball := s.BallPositionAt(s.ProgressAt(t))
	if beatmap.Distance(ball, cursor) > followRadius {
		return false
	}
	if headWasHit {
		fresh := false
		for _, since := range pressingSince {
			if since != NotPressing && since >= headHitTime {
				fresh = true
				break
			}
		}
		if !fresh {
			return false
		}
	}
	return true
}
