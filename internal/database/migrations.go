package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "digest history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS digests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT UNIQUE NOT NULL,
    period_id TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    article_count INTEGER DEFAULT 0,
    likely_fake_count INTEGER DEFAULT 0,
    alert_count INTEGER DEFAULT 0,
    body_json TEXT NOT NULL,
    body_markdown TEXT NOT NULL,
    stored_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_digests_period ON digests(period_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "market snapshot history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS market_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES digests(run_id) ON DELETE CASCADE,
    period_id TEXT NOT NULL,
    instrument TEXT NOT NULL,
    identifier TEXT NOT NULL,
    last REAL NOT NULL,
    previous REAL NOT NULL,
    percent_change REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_market_instrument ON market_snapshots(instrument, period_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
