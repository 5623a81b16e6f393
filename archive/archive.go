// Package archive persists judgement results locally so a viewer can show
// score history per beatmap without re-simulating every replay.
package archive

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"replaycore/judge"
)

type Archive struct {
	db *sql.DB
}

// Result is one archived judgement summary.
type Result struct {
	Checksum string
	Mods     string
	Stats    judge.Statistics
}

// Checksum identifies a beatmap by its raw .osu bytes.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	initStatement := `
	create table if not exists results
	  (
		  id integer not null primary key,
		  sum text,
		  mods text,
		  great integer,
		  ok integer,
		  meh integer,
		  miss integer,
		  max_combo integer,
		  accuracy real
	  );
	`
	if _, err := db.Exec(initStatement); err != nil {
		db.Close()
		return nil, fmt.Errorf("init results table: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Archive) Save(checksum, mods string, stats judge.Statistics) error {
	_, err := a.db.Exec(
		"insert into results(sum, mods, great, ok, meh, miss, max_combo, accuracy) values(?, ?, ?, ?, ?, ?, ?, ?)",
		checksum, mods, stats.Great, stats.Ok, stats.Meh, stats.Miss, stats.MaxCombo, stats.Accuracy,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// Load returns every archived result for a beatmap, newest last.
func (a *Archive) Load(checksum string) ([]Result, error) {
	rows, err := a.db.Query(
		"select sum, mods, great, ok, meh, miss, max_combo, accuracy from results where sum = ? order by id",
		checksum,
	)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.Checksum, &r.Mods,
			&r.Stats.Great, &r.Stats.Ok, &r.Stats.Meh, &r.Stats.Miss,
			&r.Stats.MaxCombo, &r.Stats.Accuracy,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
