// Package sqlite persists the gamification core: the append-only points
// ledger, materialized balances, the reward catalog, redemption records,
// achievement unlocks, streak state, and cached ranking snapshots.
//
// All write paths that touch the ledger run inside a single IMMEDIATE
// transaction so the balance counter can never drift from the entry sum.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clubrodada/rodada/internal/domain"
)

// timeLayout is a fixed-width UTC format: lexicographic order equals
// chronological order, which the history cursor relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// DB wraps the sqlite connection.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database under the given directory and runs
// all migrations.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, "rodada.db")
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The driver is safe for concurrent use, but sqlite allows one writer;
	// a single connection avoids SQLITE_BUSY between our own goroutines.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// migrate applies all schema statements in order.
func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Append-only points ledger. No UPDATE or DELETE ever targets this
		// table; corrections are new adjustment entries.
		`CREATE TABLE IF NOT EXISTS entries (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			amount            INTEGER NOT NULL,
			kind              TEXT NOT NULL,
			reason            TEXT NOT NULL DEFAULT '',
			related_entity_id TEXT NOT NULL DEFAULT '',
			occurred_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user_time ON entries(user_id, occurred_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind_time ON entries(kind, occurred_at)`,
		// One earning per (user, entity, reason): re-awarding attendance for
		// the same event is a no-op.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_idempotent
			ON entries(user_id, related_entity_id, reason)
			WHERE related_entity_id != '' AND kind = 'earning'`,

		// Materialized balance, updated in the same transaction as every
		// entry write.
		`CREATE TABLE IF NOT EXISTS balances (
			user_id    TEXT PRIMARY KEY,
			balance    INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,

		// Reward catalog (owned by the admin collaborator; the redemption
		// path only reads it and decrements stock).
		`CREATE TABLE IF NOT EXISTS rewards (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			description           TEXT NOT NULL DEFAULT '',
			category              TEXT NOT NULL DEFAULT 'merchandising',
			cost_points           INTEGER NOT NULL,
			stock                 INTEGER NOT NULL DEFAULT -1,
			active                INTEGER NOT NULL DEFAULT 1,
			min_tier_id           INTEGER NOT NULL DEFAULT 0,
			pending_redemptions   INTEGER NOT NULL DEFAULT 0,
			completed_redemptions INTEGER NOT NULL DEFAULT 0,
			created_at            TEXT NOT NULL,
			updated_at            TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rewards_active ON rewards(active, category)`,

		// Redemption receipts. Status only ever moves completed → reversed.
		`CREATE TABLE IF NOT EXISTS redemptions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			reward_id    TEXT NOT NULL,
			points_spent INTEGER NOT NULL,
			status       TEXT NOT NULL,
			redeemed_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_redemptions_user ON redemptions(user_id, redeemed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_redemptions_reward ON redemptions(reward_id)`,

		// Achievement unlocks. The UNIQUE pair is the idempotency guard.
		`CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			criteria_id TEXT NOT NULL,
			unlocked_at TEXT NOT NULL,
			UNIQUE(user_id, criteria_id)
		)`,

		// Streak state. Derived except for the monotonic best.
		`CREATE TABLE IF NOT EXISTS streaks (
			user_id  TEXT PRIMARY KEY,
			current  INTEGER NOT NULL DEFAULT 0,
			best     INTEGER NOT NULL DEFAULT 0,
			last_day TEXT NOT NULL DEFAULT ''
		)`,

		// Cached leaderboard standings per (period, window).
		`CREATE TABLE IF NOT EXISTS ranking_snapshots (
			period       TEXT NOT NULL,
			window_start TEXT NOT NULL,
			computed_at  TEXT NOT NULL,
			entries_json TEXT NOT NULL,
			PRIMARY KEY (period, window_start)
		)`,
	}
}

// begin starts a write transaction. With MaxOpenConns(1) our own goroutines
// serialize on the connection; SQLITE_BUSY can still arrive from concurrent
// processes and is translated for the caller's retry loop.
func (db *DB) begin() (*sql.Tx, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return nil, translateErr(err)
	}
	return tx, nil
}

// translateErr maps driver-level contention errors onto the domain's
// transient error so callers can retry.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return domain.ErrConcurrencyConflict
	}
	return err
}
