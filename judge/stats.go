package judge

import (
	"fmt"

	"replaycore/beatmap"
)

// Statistics is the running summary derived from a game state.
type Statistics struct {
	Combo    int     `json:"combo"`
	MaxCombo int     `json:"max_combo"`
	Great    int     `json:"great"`
	Ok       int     `json:"ok"`
	Meh      int     `json:"meh"`
	Miss     int     `json:"miss"`
	Accuracy float64 `json:"accuracy"`
}

func (s *Statistics) count(v Verdict) {
	switch v {
	case Great:
		s.Great++
	case Ok:
		s.Ok++
	case Meh:
		s.Meh++
	case Miss:
		s.Miss++
	}
}

func (s *Statistics) combo(v Verdict) {
	if v == Miss {
		s.Combo = 0
		return
	}
	s.Combo++
	if s.Combo > s.MaxCombo {
		s.MaxCombo = s.Combo
	}
}

// Summarize replays judgement order from JudgedObjects. Standalone circles,
// slider verdicts and spinners populate the histogram and accuracy; slider
// heads feed combo only, checkpoints feed neither.
func Summarize(bm *beatmap.Beatmap, st *GameState) (Statistics, error) {
	var stats Statistics
	for _, id := range st.JudgedObjects {
		switch bm.KindOf(id) {
		case beatmap.IDCircle:
			v := st.HitCircleStates[id].Verdict
			stats.count(v)
			stats.combo(v)
		case beatmap.IDSliderHead:
			stats.combo(st.HitCircleStates[id].Verdict)
		case beatmap.IDSlider:
			v := st.SliderVerdicts[id]
			stats.count(v)
			stats.combo(v)
		case beatmap.IDCheckPoint:
			// tracked per checkpoint; never scored on its own
		case beatmap.IDSpinner:
			// rotation judgement is not modeled; completed spinners count
			// as full hits
			stats.count(Great)
			stats.combo(Great)
		default:
			return Statistics{}, fmt.Errorf("%w: %s", ErrUnknownHitObject, id)
		}
	}
	den := stats.Great + stats.Ok + stats.Meh + stats.Miss
	if den == 0 {
		stats.Accuracy = 1
	} else {
		stats.Accuracy = float64(300*stats.Great+100*stats.Ok+50*stats.Meh) /
			float64(300*den)
	}
	return stats, nil
}
