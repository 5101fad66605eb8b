// Package sqlitestore keeps diagnostics snapshots in a SQLite database, one
// row per scalar, histogram and example, keyed by run, split and step.
package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/neurlang/reasoner/diagnostics"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs(
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scalars(
		run_id TEXT NOT NULL,
		split TEXT NOT NULL,
		step INTEGER NOT NULL,
		tag TEXT NOT NULL,
		value REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS histograms(
		run_id TEXT NOT NULL,
		split TEXT NOT NULL,
		step INTEGER NOT NULL,
		tag TEXT NOT NULL,
		min REAL NOT NULL,
		max REAL NOT NULL,
		mean REAL NOT NULL,
		stddev REAL NOT NULL,
		count INTEGER NOT NULL,
		nonfinite INTEGER NOT NULL,
		buckets BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS examples(
		run_id TEXT NOT NULL,
		split TEXT NOT NULL,
		step INTEGER NOT NULL,
		caption TEXT NOT NULL,
		image BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS scalars_by_tag ON scalars(run_id, tag, step)`,
}

// Store is a diagnostics.Sink backed by SQLite.
type Store struct {
	db *sql.DB
}

// Point is one scalar observation.
type Point struct {
	Split string
	Step  int64
	Value float64
}

type buckets struct {
	Edges  []float64 `msgpack:"edges"`
	Counts []float64 `msgpack:"counts"`
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "creating schema")
		}
	}
	return &Store{db: db}, nil
}

// Write stores every part of s in one transaction.
func (st *Store) Write(ctx context.Context, s *diagnostics.Snapshot) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO runs(id, name, created) VALUES(?,?,?)",
		s.RunID, s.RunName, float64(time.Now().UnixMilli())/1000.0); err != nil {
		return errors.Wrap(err, "recording run")
	}
	for tag, value := range s.Scalars() {
		if _, err := tx.ExecContext(ctx, "INSERT INTO scalars(run_id, split, step, tag, value) VALUES(?,?,?,?,?)",
			s.RunID, s.Split, s.Step, tag, value); err != nil {
			return errors.Wrap(err, "recording scalar")
		}
	}
	for _, h := range s.Histograms {
		blob, err := msgpack.Marshal(buckets{Edges: h.Edges, Counts: h.Counts})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO histograms(run_id, split, step, tag, min, max, mean, stddev, count, nonfinite, buckets)
			VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			s.RunID, s.Split, s.Step, h.Tag, h.Min, h.Max, h.Mean, h.StdDev, h.Count, h.NonFinite, blob); err != nil {
			return errors.Wrap(err, "recording histogram")
		}
	}
	if s.Caption != "" || len(s.Image) > 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO examples(run_id, split, step, caption, image) VALUES(?,?,?,?,?)",
			s.RunID, s.Split, s.Step, s.Caption, s.Image); err != nil {
			return errors.Wrap(err, "recording example")
		}
	}
	return tx.Commit()
}

// Scalars returns the history of one scalar tag of a run, ordered by step.
func (st *Store) Scalars(ctx context.Context, runID, tag string) ([]Point, error) {
	rows, err := st.db.QueryContext(ctx,
		"SELECT split, step, value FROM scalars WHERE run_id = ? AND tag = ? ORDER BY step, split", runID, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Split, &p.Step, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Histogram loads one stored histogram.
func (st *Store) Histogram(ctx context.Context, runID, split string, step int64, tag string) (diagnostics.Histogram, error) {
	h := diagnostics.Histogram{Tag: tag}
	var blob []byte
	err := st.db.QueryRowContext(ctx,
		"SELECT min, max, mean, stddev, count, nonfinite, buckets FROM histograms WHERE run_id = ? AND split = ? AND step = ? AND tag = ?",
		runID, split, step, tag).Scan(&h.Min, &h.Max, &h.Mean, &h.StdDev, &h.Count, &h.NonFinite, &blob)
	if err != nil {
		return h, err
	}
	var b buckets
	if err := msgpack.Unmarshal(blob, &b); err != nil {
		return h, err
	}
	h.Edges, h.Counts = b.Edges, b.Counts
	return h, nil
}

// Captions lists the stored example captions of a run split, ordered by step.
func (st *Store) Captions(ctx context.Context, runID, split string) ([]string, error) {
	rows, err := st.db.QueryContext(ctx,
		"SELECT caption FROM examples WHERE run_id = ? AND split = ? ORDER BY step", runID, split)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the database.
func (st *Store) Close() error {
	return st.db.Close()
}
