// replayjudge runs a replay through the judgement core and prints the
// resulting statistics, optionally scrubbed to a point in time.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"replaycore/archive"
	"replaycore/beatmap"
	"replaycore/dotosu"
	"replaycore/judge"
	"replaycore/replay"
)

var (
	beatmapPath = kingpin.Arg("beatmap", ".osu file").Required().ExistingFile()
	framesPath  = kingpin.Arg("frames", "decompressed replay frame dump (delta|x|y|keys,...)").Required().ExistingFile()
	modList     = kingpin.Flag("mods", "Comma-separated mod acronyms (HD,HR,DT,...)").Default("").Short('m').String()
	lazer       = kingpin.Flag("lazer", "Use the lazer hit-window formula").Bool()
	noteLock    = kingpin.Flag("note-lock", "Note lock policy").Default("stable").Enum("none", "stable", "lazer")
	at          = kingpin.Flag("at", "Report the state at this time (ms) instead of the end").Default("NaN").Float64()
	dbPath      = kingpin.Flag("db", "Archive the result into this sqlite database").Short('d').String()
)

func main() {
	kingpin.Parse()
	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	osuData, err := os.ReadFile(*beatmapPath)
	if err != nil {
		return err
	}
	blueprint, err := dotosu.Decode(bytes.NewReader(osuData))
	if err != nil {
		return fmt.Errorf("decode %s: %w", *beatmapPath, err)
	}

	mods, err := beatmap.ParseMods(*modList)
	if err != nil {
		return err
	}
	dialect := beatmap.DialectStable
	if *lazer {
		dialect = beatmap.DialectLazer
	}
	bm, err := beatmap.Build(blueprint, mods, dialect)
	if err != nil {
		return err
	}

	frameData, err := os.ReadFile(*framesPath)
	if err != nil {
		return err
	}
	raw, err := replay.DecodeText(string(frameData))
	if err != nil {
		return fmt.Errorf("decode %s: %w", *framesPath, err)
	}
	frames := replay.Normalize(raw)
	if len(frames) == 0 {
		return fmt.Errorf("%s holds no playable frames", *framesPath)
	}

	eval := judge.New(bm, judge.Config{NoteLock: parseNoteLock(*noteLock)})

	var state *judge.GameState
	if math.IsNaN(*at) {
		state = eval.NewState()
		for _, fr := range frames {
			if err := eval.Advance(state, fr); err != nil {
				return err
			}
		}
	} else {
		timeline, err := judge.NewTimeline(eval, frames, judge.DefaultSnapshotInterval)
		if err != nil {
			return err
		}
		state, err = timeline.StateAt(*at)
		if err != nil {
			return err
		}
	}

	stats, err := judge.Summarize(bm, state)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(stats, "", "\t")
	fmt.Println(string(out))

	if *dbPath != "" {
		db, err := archive.Open(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Save(archive.Checksum(osuData), mods.String(), stats); err != nil {
			return err
		}
	}
	return nil
}

func parseNoteLock(s string) judge.NoteLockStyle {
	switch s {
	case "none":
		return judge.NoteLockNone
	case "lazer":
		return judge.NoteLockLazer
	default:
		return judge.NoteLockStable
	}
}
