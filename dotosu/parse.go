package dotosu

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type section int

const (
	secNone section = iota
	secGeneral
	secMetadata
	secDifficulty
	secTimingPoints
	secHitObjects
)

func DecodeFile(path string) (*Beatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Beatmap, error) {
	sc := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	// header
	var header string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		header = line
		break
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.ToLower(header), "osu file format v") {
		return nil, fmt.Errorf("invalid .osu header: %q", header)
	}
	versionStr := strings.TrimSpace(strings.TrimPrefix(header, "osu file format v"))
	formatVersion, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, fmt.Errorf("invalid .osu version in header: %q: %w", header, err)
	}

	b := &Beatmap{
		FormatVersion: formatVersion,
		General:       General{StackLeniency: 0.7},
	}

	// Old files store times shifted by a fixed amount.
	offset := 0
	if formatVersion < 5 {
		offset = EARLY_VERSION_TIMING_OFFSET
	}

	sec := secNone
	seenAR := false

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch strings.ToLower(line) {
			case "[general]":
				sec = secGeneral
			case "[metadata]":
				sec = secMetadata
			case "[difficulty]":
				sec = secDifficulty
			case "[timingpoints]":
				sec = secTimingPoints
			case "[hitobjects]":
				sec = secHitObjects
			default:
				sec = secNone
			}
			continue
		}

		switch sec {
		case secGeneral:
			k, v := splitKeyVal(line)
			switch strings.ToLower(k) {
			case "audiofilename":
				b.General.AudioFilename = strings.Trim(v, "\"")
			case "stackleniency":
				b.General.StackLeniency = parseFloat(v, 0.7)
			case "mode":
				b.General.Mode = parseInt(v, 0)
			}

		case secMetadata:
			k, v := splitKeyVal(line)
			switch strings.ToLower(k) {
			case "title":
				b.Metadata.Title = v
			case "artist":
				b.Metadata.Artist = v
			case "creator":
				b.Metadata.Creator = v
			case "version":
				b.Metadata.Version = v
			case "beatmapid":
				b.Metadata.BeatmapID = parseInt(v, 0)
			case "beatmapsetid":
				b.Metadata.BeatmapSetID = parseInt(v, 0)
			}

		case secDifficulty:
			k, v := splitKeyVal(line)
			switch strings.ToLower(k) {
			case "hpdrainrate":
				b.Difficulty.HPDrainRate = parseFloat(v, 0)
			case "circlesize":
				b.Difficulty.CircleSize = parseFloat(v, 0)
			case "overalldifficulty":
				b.Difficulty.OverallDifficulty = parseFloat(v, 0)
				if !seenAR {
					b.Difficulty.ApproachRate = b.Difficulty.OverallDifficulty
				}
			case "approachrate":
				b.Difficulty.ApproachRate = parseFloat(v, 0)
				seenAR = true
			case "slidermultiplier":
				b.Difficulty.SliderMultiplier = parseFloat(v, 1)
			case "slidertickrate":
				b.Difficulty.SliderTickRate = parseFloat(v, 1)
			}

		case secTimingPoints:
			parts := strings.Split(line, ",")
			if len(parts) < 2 {
				continue
			}
			t := parseInt(parts[0], 0) + offset
			beatLen := parseFloatAllowNaN(parts[1])
			timingChange := true
			if len(parts) >= 7 {
				timingChange = strings.TrimSpace(parts[6]) == "1"
			}
			sv := 1.0
			if !math.IsNaN(beatLen) && beatLen < 0 {
				sv = 100.0 / -beatLen
			}
			b.TimingPoints = append(b.TimingPoints, TimingPoint{
				Time: t, BeatLength: beatLen, TimingChange: timingChange,
				SliderVelocityMultiplier: sv,
			})

		case secHitObjects:
			parts := strings.Split(line, ",")
			if len(parts) < 5 {
				continue
			}
			x := parseInt(parts[0], 0)
			y := parseInt(parts[1], 0)
			t := parseInt(parts[2], 0) + offset
			flags := HitObjectTypeFlags(parseInt(parts[3], 0))

			base := BaseHO{PosXY: Vec2{X: x, Y: y}, Time: t, Type: flags}

			switch {
			case (flags & TypeHold) != 0:
				// mania hold; not an osu!standard object

			case (flags & TypeSpinner) != 0:
				end := 0
				if len(parts) >= 6 && strings.TrimSpace(parts[5]) != "" {
					end = parseInt(parts[5], 0) + offset
				}
				b.HitObjects = append(b.HitObjects, Spinner{BaseHO: base, EndTime: end})

			case (flags & TypeSlider) != 0:
				// params: path, slides, length, (edge hitsounds ignored)
				var pathSpec string
				if len(parts) >= 6 {
					pathSpec = parts[5]
				}
				slides := 1
				if len(parts) >= 7 && strings.TrimSpace(parts[6]) != "" {
					slides = parseInt(parts[6], 1)
				}
				length := 0.0
				if len(parts) >= 8 && strings.TrimSpace(parts[7]) != "" {
					length = parseFloat(parts[7], 0)
				}
				b.HitObjects = append(b.HitObjects, Slider{
					BaseHO: base,
					Path:   parseSliderPath(base.PosXY, pathSpec),
					Slides: slides,
					Length: length,
				})

			default:
				b.HitObjects = append(b.HitObjects, Circle{BaseHO: base})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	applyDifficultyRestrictions(&b.Difficulty)
	return b, nil
}

// ---------- parsing helpers ----------

func splitKeyVal(line string) (key, val string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseFloatAllowNaN(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func applyDifficultyRestrictions(d *Difficulty) {
	d.HPDrainRate = clampFloat(d.HPDrainRate, 0, 10)
	d.OverallDifficulty = clampFloat(d.OverallDifficulty, 0, 10)
	d.ApproachRate = clampFloat(d.ApproachRate, 0, 10)
	d.CircleSize = clampFloat(d.CircleSize, 0, 10)
	d.SliderMultiplier = clampFloat(d.SliderMultiplier, 0.4, 3.6)
	d.SliderTickRate = clampFloat(d.SliderTickRate, 0.5, 8.0)
}

// parseSliderPath converts "B|x:y|x:y|..." into a fully-typed SliderPath.
// The slider head (base) is the FIRST point; the string supplies the rest.
// Bézier: split into segments when a control point repeats (red anchor).
func parseSliderPath(head Vec2, spec string) SliderPath {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return SliderPath{Type: PathBezier, Segments: []SliderSegment{{Points: []Vec2{head}}}}
	}

	tokEnd := strings.Index(spec, "|")
	var typeStr string
	var rest string
	if tokEnd == -1 {
		typeStr, rest = spec, ""
	} else {
		typeStr, rest = spec[:tokEnd], spec[tokEnd+1:]
	}
	var pType SliderPathType
	switch strings.ToUpper(strings.TrimSpace(typeStr)) {
	case "L":
		pType = PathLinear
	case "C":
		pType = PathCatmull
	case "P":
		pType = PathPerfect
	default:
		pType = PathBezier
	}

	var cps []Vec2
	if strings.TrimSpace(rest) != "" {
		for _, t := range strings.Split(rest, "|") {
			xy := strings.Split(strings.TrimSpace(t), ":")
			if len(xy) != 2 {
				continue
			}
			cps = append(cps, Vec2{X: parseInt(xy[0], head.X), Y: parseInt(xy[1], head.Y)})
		}
	}

	switch pType {
	case PathPerfect:
		// Perfect circle expects exactly head + 2 points; otherwise fall back to Bezier (stable behaviour).
		if len(cps) != 2 {
			return buildBezierWithSegments(head, cps)
		}
		return SliderPath{Type: PathPerfect, Segments: []SliderSegment{{Points: append([]Vec2{head}, cps...)}}}
	case PathLinear:
		return SliderPath{Type: PathLinear, Segments: []SliderSegment{{Points: append([]Vec2{head}, cps...)}}}
	case PathCatmull:
		return SliderPath{Type: PathCatmull, Segments: []SliderSegment{{Points: append([]Vec2{head}, cps...)}}}
	default:
		return buildBezierWithSegments(head, cps)
	}
}

func buildBezierWithSegments(head Vec2, cps []Vec2) SliderPath {
	pts := append([]Vec2{head}, cps...)
	var segs []SliderSegment
	cur := []Vec2{pts[0]}
	for i := 1; i < len(pts); i++ {
		p := pts[i]
		prev := cur[len(cur)-1]
		if p.X == prev.X && p.Y == prev.Y {
			// segment boundary (red anchor)
			if len(cur) >= 2 {
				segs = append(segs, SliderSegment{Points: cur})
			}
			cur = []Vec2{p}
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) >= 2 {
		segs = append(segs, SliderSegment{Points: cur})
	}
	if len(segs) == 0 {
		// degenerate; keep at least a 2-point segment (head duplicated)
		segs = []SliderSegment{{Points: []Vec2{head, head}}}
	}
	return SliderPath{Type: PathBezier, Segments: segs}
}
