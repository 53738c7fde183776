// Package history keeps every finished run report in a sqlite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"fabriq-content/internal/history/db"
	"fabriq-content/internal/report"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, `:memory:` is allowed.
func Open(path string) (Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// sqlite has a single writer, and every `:memory:` connection is its own database
	database.SetMaxOpenConns(1)
	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return NewStore(database), nil
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Close() error {
	return s.db.Close()
}

type Run struct {
	ID     int64
	Report report.Report
}

// Append records a finished report and returns its run id.
func (s Store) Append(ctx context.Context, r report.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	serialized, err := json.Marshal(warnings)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(
		ctx,
		"insert into runs (started_at, finished_at, warnings) values (?, ?, ?)",
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), string(serialized),
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, o := range r.Sources {
		_, err := tx.ExecContext(
			ctx,
			"insert into run_sources (run_id, position, factory, url, parsed, saved) values (?, ?, ?, ?, ?, ?)",
			runID, i, o.Factory, o.URL, o.Parsed, o.Saved,
		)
		if err != nil {
			return 0, err
		}
	}

	return runID, tx.Commit()
}

// Recent returns up to limit runs, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select id, started_at, finished_at, warnings from runs order by id desc limit ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  int64
			finishedAt int64
			warnings   string
		)
		err := rows.Scan(&run.ID, &startedAt, &finishedAt, &warnings)
		if err != nil {
			return nil, err
		}
		run.Report.StartedAt = time.UnixMilli(startedAt).UTC()
		run.Report.FinishedAt = time.UnixMilli(finishedAt).UTC()
		err = json.Unmarshal([]byte(warnings), &run.Report.Warnings)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		runs[i].Report.Sources, err = s.sources(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s Store) sources(ctx context.Context, runID int64) ([]report.Outcome, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select factory, url, parsed, saved from run_sources where run_id = ? order by position",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := []report.Outcome{}
	for rows.Next() {
		var o report.Outcome
		err := rows.Scan(&o.Factory, &o.URL, &o.Parsed, &o.Saved)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
