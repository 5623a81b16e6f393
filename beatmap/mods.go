package beatmap

import (
	"fmt"
	"strings"
)

// Modifiers is the active mod set. Rate folds DoubleTime/HalfTime/Nightcore
// into a single playback multiplier; cosmetic mods are carried so callers can
// round-trip them, but only the geometry/timing subset affects the build.
type Modifiers struct {
	Rate float64 // 0 means 1.0

	Hardrock bool
	Easy     bool

	Hidden     bool
	Flashlight bool

	NoFail      bool
	SuddenDeath bool
	Perfect     bool
	SpunOut     bool
	Relax       bool
	Autopilot   bool
}

func (m Modifiers) EffectiveRate() float64 {
	if m.Rate == 0 {
		return 1
	}
	return m.Rate
}

// ParseMods reads a comma-separated acronym list ("HD,HR,DT").
func ParseMods(s string) (Modifiers, error) {
	mods := Modifiers{Rate: 1}
	if strings.TrimSpace(s) == "" {
		return mods, nil
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "HR":
			mods.Hardrock = true
		case "EZ":
			mods.Easy = true
		case "DT", "NC":
			mods.Rate = 1.5
		case "HT":
			mods.Rate = 0.75
		case "HD":
			mods.Hidden = true
		case "FL":
			mods.Flashlight = true
		case "NF":
			mods.NoFail = true
		case "SD":
			mods.SuddenDeath = true
		case "PF":
			mods.Perfect = true
		case "SO":
			mods.SpunOut = true
		case "RX":
			mods.Relax = true
		case "AP":
			mods.Autopilot = true
		case "":
		default:
			return mods, fmt.Errorf("unknown mod %q", name)
		}
	}
	return mods, nil
}

func (m Modifiers) String() string {
	var parts []string
	if m.Hidden {
		parts = append(parts, "HD")
	}
	if m.Hardrock {
		parts = append(parts, "HR")
	}
	if m.Easy {
		parts = append(parts, "EZ")
	}
	switch m.EffectiveRate() {
	case 1.5:
		parts = append(parts, "DT")
	case 0.75:
		parts = append(parts, "HT")
	}
	if m.Flashlight {
		parts = append(parts, "FL")
	}
	if m.NoFail {
		parts = append(parts, "NF")
	}
	if m.SuddenDeath {
		parts = append(parts, "SD")
	}
	if m.Perfect {
		parts = append(parts, "PF")
	}
	if m.SpunOut {
		parts = append(parts, "SO")
	}
	if m.Relax {
		parts = append(parts, "RX")
	}
	if m.Autopilot {
		parts = append(parts, "AP")
	}
	if len(parts) == 0 {
		return "NM"
	}
	return strings.Join(parts, ",")
}
