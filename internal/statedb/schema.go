package statedb

import "database/sql"

// InitSchema ensures the DB has the tables used by the run ledger.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            started_at TEXT NOT NULL,
            finished_at TEXT,
            status TEXT NOT NULL,
            fetched INTEGER DEFAULT 0,
            error TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS run_categories (
            run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            category TEXT NOT NULL,
            incoming INTEGER DEFAULT 0,
            skipped INTEGER DEFAULT 0,
            inserted INTEGER DEFAULT 0,
            updated INTEGER DEFAULT 0,
            unchanged INTEGER DEFAULT 0,
            evicted INTEGER DEFAULT 0,
            items INTEGER DEFAULT 0,
            documents INTEGER DEFAULT 0,
            pruned INTEGER DEFAULT 0,
            PRIMARY KEY (run_id, category)
        )`,
		`CREATE TABLE IF NOT EXISTS run_failures (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            category TEXT NOT NULL,
            stage TEXT NOT NULL,
            cause TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_run_failures_run ON run_failures(run_id)`,
		`CREATE TABLE IF NOT EXISTS run_lock (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            holder TEXT NOT NULL,
            acquired_at TEXT NOT NULL
        )`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
