package replay

import (
	"fmt"
	"strconv"
	"strings"

	"replaycore/beatmap"
)

// Buttons is the held-button mask the core sees: bit 0 = left, bit 1 = right.
type Buttons uint8

const (
	ButtonLeft Buttons = 1 << iota
	ButtonRight
)

func (b Buttons) Held(i int) bool { return b&(1<<i) != 0 }

// Frame is a normalized replay frame with absolute time in milliseconds.
type Frame struct {
	Time    float64
	Pos     beatmap.Vec
	Buttons Buttons
}

// RawFrame is the wire-level frame: delta-encoded time plus the replay
// format's key mask (M1=1, M2=2, K1=4, K2=8; smoke and higher bits ignored).
type RawFrame struct {
	TimeDelta int32
	X, Y      float32
	Keys      uint8
}

const (
	rawM1 = 1 << 0
	rawM2 = 1 << 1
	rawK1 = 1 << 2
	rawK2 = 1 << 3
)

// The first frames of a legacy replay stream carry metadata rather than
// input; their deltas still contribute to the running clock.
const preambleFrames = 3

// Normalize accumulates time deltas into absolute times, folds the key mask
// down to the two logical buttons and discards the legacy preamble. The
// fourth raw frame establishes the initial time.
func Normalize(raw []RawFrame) []Frame {
	var out []Frame
	t := int32(0)
	for i, rf := range raw {
		t += rf.TimeDelta
		if i < preambleFrames {
			continue
		}
		out = append(out, Frame{
			Time:    float64(t),
			Pos:     beatmap.Vec{X: float64(rf.X), Y: float64(rf.Y)},
			Buttons: foldKeys(rf.Keys),
		})
	}
	return out
}

func foldKeys(keys uint8) Buttons {
	var b Buttons
	if keys&(rawM1|rawK1) != 0 {
		b |= ButtonLeft
	}
	if keys&(rawM2|rawK2) != 0 {
		b |= ButtonRight
	}
	return b
}

// DecodeText parses the decompressed replay frame syntax:
// "delta|x|y|keys," entries, as dumped from an .osr container.
func DecodeText(s string) ([]RawFrame, error) {
	var out []RawFrame
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.Split(tok, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("bad frame %q: want 4 fields, got %d", tok, len(parts))
		}
		delta, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad frame time in %q: %w", tok, err)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
		if err != nil {
			return nil, fmt.Errorf("bad frame x in %q: %w", tok, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 32)
		if err != nil {
			return nil, fmt.Errorf("bad frame y in %q: %w", tok, err)
		}
		keys, err := strconv.ParseUint(strings.TrimSpace(parts[3]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad frame keys in %q: %w", tok, err)
		}
		out = append(out, RawFrame{
			TimeDelta: int32(delta),
			X:         float32(x),
			Y:         float32(y),
			Keys:      uint8(keys),
		})
	}
	return out, nil
}
