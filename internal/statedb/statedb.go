// Package statedb keeps the run ledger of kkfeed in SQLite: one row per run,
// per-category reconcile counts, surfaced failures and the run lock that
// keeps two runs from writing the same documents at once.
package statedb

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// ErrRunLocked is returned by AcquireLock while another run holds the lock.
var ErrRunLocked = errors.New("another run holds the lock")

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05Z"

func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// dsn builds a file: URI for dbPath. The path is made absolute and escaped so
// that '?', '#' or '%' in it cannot leak into the query part.
func dsn(dbPath string) string {
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}
	p := filepath.ToSlash(dbPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // windows drive letters
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: "_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
	}
	return u.String()
}

// OpenInitialized opens dbPath and ensures the schema exists.
func OpenInitialized(dbPath string) (*sql.DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AcquireLock takes the run lock for holder. A lock older than staleAfter is
// considered abandoned and taken over; staleAfter <= 0 never expires a lock.
func AcquireLock(ctx context.Context, db *sql.DB, holder string, now time.Time, staleAfter time.Duration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if staleAfter > 0 {
		cutoff := formatTime(now.Add(-staleAfter))
		if _, err := tx.ExecContext(ctx, `DELETE FROM run_lock WHERE id = 1 AND acquired_at < ?`, cutoff); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO run_lock (id, holder, acquired_at) VALUES (1, ?, ?)
        ON CONFLICT(id) DO NOTHING`, holder, formatTime(now))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunLocked
	}
	return tx.Commit()
}

// ReleaseLock drops the lock if holder owns it.
func ReleaseLock(ctx context.Context, db *sql.DB, holder string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM run_lock WHERE id = 1 AND holder = ?`, holder)
	return err
}

// LockHolder returns the current holder, or "" when unlocked.
func LockHolder(ctx context.Context, db *sql.DB) (string, time.Time, error) {
	var holder string
	var at sql.NullString
	err := db.QueryRowContext(ctx, `SELECT holder, acquired_at FROM run_lock WHERE id = 1`).Scan(&holder, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, err
	}
	return holder, parseTime(at), nil
}

// CategoryStats are the reconcile and write counts of one category in one run.
type CategoryStats struct {
	Category  string
	Incoming  int
	Skipped   int
	Inserted  int
	Updated   int
	Unchanged int
	Evicted   int
	Items     int
	Documents int
	Pruned    int
}

// Failure is one surfaced failure of a run.
type Failure struct {
	Category  string
	Stage     string
	Cause     string
	CreatedAt time.Time
}

type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Fetched    int
	Error      string
	Categories []CategoryStats
	Failures   []Failure
}

func BeginRun(ctx context.Context, db *sql.DB, started time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO runs (started_at, status) VALUES (?, ?)`, formatTime(started), StatusRunning)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func RecordCategory(ctx context.Context, db *sql.DB, runID int64, s CategoryStats) error {
	_, err := db.ExecContext(ctx, `INSERT INTO run_categories
        (run_id, category, incoming, skipped, inserted, updated, unchanged, evicted, items, documents, pruned)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(run_id, category) DO UPDATE SET
           incoming=excluded.incoming,
           skipped=excluded.skipped,
           inserted=excluded.inserted,
           updated=excluded.updated,
           unchanged=excluded.unchanged,
           evicted=excluded.evicted,
           items=excluded.items,
           documents=excluded.documents,
           pruned=excluded.pruned`,
		runID, s.Category, s.Incoming, s.Skipped, s.Inserted, s.Updated, s.Unchanged, s.Evicted, s.Items, s.Documents, s.Pruned,
	)
	return err
}

func RecordFailure(ctx context.Context, db *sql.DB, runID int64, f Failure) error {
	at := f.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO run_failures (run_id, category, stage, cause, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, f.Category, f.Stage, f.Cause, formatTime(at))
	return err
}

func FinishRun(ctx context.Context, db *sql.DB, runID int64, finished time.Time, status string, fetched int, runErr error) error {
	var errText any
	if runErr != nil {
		errText = runErr.Error()
	}
	_, err := db.ExecContext(ctx, `UPDATE runs SET finished_at = ?, status = ?, fetched = ?, error = ? WHERE id = ?`,
		formatTime(finished), status, fetched, errText, runID)
	return err
}

// RecentRuns returns the latest runs first, with their categories and failures.
func RecentRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `SELECT id, started_at, finished_at, status, fetched, error
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var out []Run
	for rows.Next() {
		var r Run
		var started, finished, errText sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &r.Fetched, &errText); err != nil {
			rows.Close()
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		r.Error = errText.String
		out = append(out, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Categories, err = categoriesForRun(ctx, db, out[i].ID); err != nil {
			return nil, err
		}
		if out[i].Failures, err = FailuresForRun(ctx, db, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func categoriesForRun(ctx context.Context, db *sql.DB, runID int64) ([]CategoryStats, error) {
	rows, err := db.QueryContext(ctx, `SELECT category, incoming, skipped, inserted, updated, unchanged, evicted, items, documents, pruned
FROM run_categories WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryStats
	for rows.Next() {
		var s CategoryStats
		if err := rows.Scan(&s.Category, &s.Incoming, &s.Skipped, &s.Inserted, &s.Updated, &s.Unchanged, &s.Evicted, &s.Items, &s.Documents, &s.Pruned); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func FailuresForRun(ctx context.Context, db *sql.DB, runID int64) ([]Failure, error) {
	rows, err := db.QueryContext(ctx, `SELECT category, stage, cause, created_at FROM run_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Failure
	for rows.Next() {
		var f Failure
		var at sql.NullString
		if err := rows.Scan(&f.Category, &f.Stage, &f.Cause, &at); err != nil {
			return nil, err
		}
		f.CreatedAt = parseTime(at)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Ledger records runs into db; it satisfies ingest.Ledger.
type Ledger struct {
	DB *sql.DB
}

func (l Ledger) BeginRun(ctx context.Context, started time.Time) (int64, error) {
	return BeginRun(ctx, l.DB, started)
}

func (l Ledger) RecordCategory(ctx context.Context, runID int64, s CategoryStats) error {
	return RecordCategory(ctx, l.DB, runID, s)
}

func (l Ledger) RecordFailure(ctx context.Context, runID int64, f Failure) error {
	return RecordFailure(ctx, l.DB, runID, f)
}

func (l Ledger) FinishRun(ctx context.Context, runID int64, finished time.Time, status string, fetched int, runErr error) error {
	return FinishRun(ctx, l.DB, runID, finished, status, fetched, runErr)
}
