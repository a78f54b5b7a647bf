// Leaderboard aggregation and snapshot cache. Pure reads of historical
// ledger data plus an upserted snapshot row per (period, window) — the
// batch recompute path never touches the redemption transaction path.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
)

// EarnedTotals sums earning and bonus entries with occurred_at in
// [start, end) per user, together with the timestamp at which each user
// reached their total (for deterministic tie-breaking). A zero start means
// all time.
func (db *DB) EarnedTotals(start, end time.Time) ([]domain.PeriodTotal, error) {
	var rows *sql.Rows
	var err error
	if start.IsZero() {
		rows, err = db.db.Query(`
			SELECT user_id, SUM(amount), MAX(occurred_at)
			FROM entries
			WHERE kind IN ('earning', 'bonus') AND occurred_at < ?
			GROUP BY user_id
		`, formatTime(end))
	} else {
		rows, err = db.db.Query(`
			SELECT user_id, SUM(amount), MAX(occurred_at)
			FROM entries
			WHERE kind IN ('earning', 'bonus') AND occurred_at >= ? AND occurred_at < ?
			GROUP BY user_id
		`, formatTime(start), formatTime(end))
	}
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.PeriodTotal
	for rows.Next() {
		var t domain.PeriodTotal
		var reached string
		if err := rows.Scan(&t.UserID, &t.Points, &reached); err != nil {
			return nil, translateErr(err)
		}
		t.ReachedAt = parseTime(reached)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveRanking caches a computed standing for its window.
func (db *DB) SaveRanking(period domain.Period, windowStart, computedAt time.Time, entries []domain.LeaderboardEntry) error {
	blob, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = db.db.Exec(`
		INSERT INTO ranking_snapshots (period, window_start, computed_at, entries_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(period, window_start) DO UPDATE SET
			computed_at  = excluded.computed_at,
			entries_json = excluded.entries_json
	`, string(period), formatTime(windowStart), formatTime(computedAt), string(blob))
	return translateErr(err)
}

// Ranking returns the cached standing for an exact window.
func (db *DB) Ranking(period domain.Period, windowStart time.Time) ([]domain.LeaderboardEntry, bool, error) {
	var blob string
	err := db.db.QueryRow(`
		SELECT entries_json FROM ranking_snapshots WHERE period = ? AND window_start = ?
	`, string(period), formatTime(windowStart)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translateErr(err)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// LatestRanking returns the most recently computed standing for the period.
func (db *DB) LatestRanking(period domain.Period) ([]domain.LeaderboardEntry, time.Time, bool, error) {
	var blob, computed string
	err := db.db.QueryRow(`
		SELECT entries_json, computed_at FROM ranking_snapshots
		WHERE period = ? ORDER BY computed_at DESC LIMIT 1
	`, string(period)).Scan(&blob, &computed)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, translateErr(err)
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, time.Time{}, false, err
	}
	return entries, parseTime(computed), true, nil
}
