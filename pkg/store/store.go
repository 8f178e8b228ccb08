/*
Copyright 2025 KineticFire Labs

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package store persists the outcome of pipeline runs so they can
// be reviewed later with the runs subcommand.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID             string
	Pipeline       string
	ImageReference string

	// TestsPassed is nil when the pipeline had no test step.
	TestsPassed *bool

	// Error is the fatal error message, empty for clean runs.
	Error string

	StartTime time.Time
	EndTime   time.Time
}

// Store is a SQLite backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the run history at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging run history: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating run history: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		image_reference TEXT DEFAULT '',
		tests_passed INTEGER,
		error TEXT DEFAULT '',
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run, assigning it an ID when it has none.
func (s *Store) RecordRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	var passed any
	if r.TestsPassed != nil {
		passed = *r.TestsPassed
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, pipeline, image_reference, tests_passed, error, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Pipeline, r.ImageReference, passed, r.Error,
		r.StartTime.UTC(), r.EndTime.UTC())
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, pipeline, image_reference, tests_passed, error, start_time, end_time
		FROM runs ORDER BY start_time DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		r := &Run{}
		var passed sql.NullBool
		if err := rows.Scan(
			&r.ID, &r.Pipeline, &r.ImageReference, &passed,
			&r.Error, &r.StartTime, &r.EndTime,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if passed.Valid {
			r.TestsPassed = &passed.Bool
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	return runs, nil
}
