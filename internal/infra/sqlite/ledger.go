// Ledger operations: append-only entries, the materialized balance, paged
// history, and the ledger-derived counters the streak and achievement
// engines read.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
)

// ─── Entry Append ───────────────────────────────────────────────────────────

// AppendEntry appends a ledger entry and updates the user's materialized
// balance in the same transaction. An entry that would drive the balance
// negative is rejected with domain.ErrNegativeBalance and nothing is
// written. When the entry carries a related entity and an earning for the
// same (user, entity, reason) already exists, the existing entry's ID is
// returned and nothing is written.
func (db *DB) AppendEntry(e domain.LedgerEntry) (string, error) {
	tx, err := db.begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if e.Kind == domain.KindEarning && e.RelatedEntityID != "" {
		var existing string
		err := tx.QueryRow(`
			SELECT id FROM entries
			WHERE user_id = ? AND related_entity_id = ? AND reason = ? AND kind = 'earning'
		`, e.UserID, e.RelatedEntityID, e.Reason).Scan(&existing)
		if err == nil {
			return existing, nil // already awarded, idempotent no-op
		}
		if err != sql.ErrNoRows {
			return "", translateErr(err)
		}
	}

	if err := applyEntry(tx, e); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", translateErr(err)
	}
	return e.ID, nil
}

// applyEntry inserts one entry row and moves the balance, inside the
// caller's transaction. Shared by earning, redemption, achievement bonus,
// and reversal paths so the balance can never drift from the entry sum.
func applyEntry(tx *sql.Tx, e domain.LedgerEntry) error {
	var balance int64
	err := tx.QueryRow(`SELECT balance FROM balances WHERE user_id = ?`, e.UserID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return translateErr(err)
	}

	next := balance + e.Amount
	if next < 0 {
		return domain.ErrNegativeBalance
	}

	if _, err := tx.Exec(`
		INSERT INTO entries (id, user_id, amount, kind, reason, related_entity_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Amount, string(e.Kind), e.Reason, e.RelatedEntityID, formatTime(e.OccurredAt)); err != nil {
		return translateErr(err)
	}

	if _, err := tx.Exec(`
		INSERT INTO balances (user_id, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			balance    = excluded.balance,
			updated_at = excluded.updated_at
	`, e.UserID, next, formatTime(e.OccurredAt)); err != nil {
		return translateErr(err)
	}
	return nil
}

// ─── Balance & History ──────────────────────────────────────────────────────

// Balance returns the user's materialized balance. Missing users have 0.
func (db *DB) Balance(userID string) (int64, error) {
	var balance int64
	err := db.db.QueryRow(`SELECT balance FROM balances WHERE user_id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, translateErr(err)
}

// History returns up to limit entries for the user ordered newest-first,
// strictly before the (before, beforeID) cursor. A zero cursor starts from
// the newest entry. Cursor pagination stays stable under concurrent
// appends: new rows sort after the cursor and cannot shift the page.
func (db *DB) History(userID string, limit int, before time.Time, beforeID string) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if before.IsZero() {
		rows, err = db.db.Query(`
			SELECT id, user_id, amount, kind, reason, related_entity_id, occurred_at
			FROM entries WHERE user_id = ?
			ORDER BY occurred_at DESC, id DESC LIMIT ?
		`, userID, limit)
	} else {
		rows, err = db.db.Query(`
			SELECT id, user_id, amount, kind, reason, related_entity_id, occurred_at
			FROM entries
			WHERE user_id = ? AND (occurred_at < ? OR (occurred_at = ? AND id < ?))
			ORDER BY occurred_at DESC, id DESC LIMIT ?
		`, userID, formatTime(before), formatTime(before), beforeID, limit)
	}
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var kind, occurred string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &kind, &e.Reason, &e.RelatedEntityID, &occurred); err != nil {
			return nil, translateErr(err)
		}
		e.Kind = domain.EntryKind(kind)
		e.OccurredAt = parseTime(occurred)
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntrySum recomputes the balance from scratch. Used by tests and audits to
// verify the materialized counter; never on the hot path.
func (db *DB) EntrySum(userID string) (int64, error) {
	var sum int64
	err := db.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM entries WHERE user_id = ?
	`, userID).Scan(&sum)
	return sum, translateErr(err)
}

// ─── Stats Counters ─────────────────────────────────────────────────────────

// TotalEarned sums lifetime earning and bonus points (redemptions do not
// reduce it).
func (db *DB) TotalEarned(userID string) (int64, error) {
	var total int64
	err := db.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM entries
		WHERE user_id = ? AND kind IN ('earning', 'bonus')
	`, userID).Scan(&total)
	return total, translateErr(err)
}

// EventsAttended counts attendance earnings.
func (db *DB) EventsAttended(userID string) (int64, error) {
	var count int64
	err := db.db.QueryRow(`
		SELECT COUNT(*) FROM entries
		WHERE user_id = ? AND kind = 'earning' AND reason = ?
	`, userID, string(domain.ReasonEventAttendance)).Scan(&count)
	return count, translateErr(err)
}

// ─── Streak Persistence ─────────────────────────────────────────────────────

// ActivityTimestamps returns the timestamps of all positive earning/bonus
// entries, newest first. The tracker collapses them into calendar days in
// the club's timezone.
func (db *DB) ActivityTimestamps(userID string) ([]time.Time, error) {
	rows, err := db.db.Query(`
		SELECT occurred_at FROM entries
		WHERE user_id = ? AND kind IN ('earning', 'bonus') AND amount > 0
		ORDER BY occurred_at DESC
	`, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, translateErr(err)
		}
		out = append(out, parseTime(s))
	}
	return out, rows.Err()
}

// StreakState returns the stored streak row. Missing users get zeros.
func (db *DB) StreakState(userID string) (domain.StreakState, error) {
	s := domain.StreakState{UserID: userID}
	err := db.db.QueryRow(`
		SELECT current, best, last_day FROM streaks WHERE user_id = ?
	`, userID).Scan(&s.CurrentStreak, &s.BestStreak, &s.LastQualifyingDay)
	if err == sql.ErrNoRows {
		return s, nil
	}
	return s, translateErr(err)
}

// SaveStreak upserts the streak row. Best is monotonic: a save can never
// lower it.
func (db *DB) SaveStreak(s domain.StreakState) error {
	_, err := db.db.Exec(`
		INSERT INTO streaks (user_id, current, best, last_day)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current  = excluded.current,
			best     = MAX(best, excluded.best),
			last_day = excluded.last_day
	`, s.UserID, s.CurrentStreak, s.BestStreak, s.LastQualifyingDay)
	return translateErr(err)
}

// ─── Achievement Persistence ────────────────────────────────────────────────

// Achievements returns all unlock records for the user.
func (db *DB) Achievements(userID string) ([]domain.Achievement, error) {
	rows, err := db.db.Query(`
		SELECT id, user_id, criteria_id, unlocked_at
		FROM achievements WHERE user_id = ? ORDER BY unlocked_at
	`, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		var criteria, unlocked string
		if err := rows.Scan(&a.ID, &a.UserID, &criteria, &unlocked); err != nil {
			return nil, translateErr(err)
		}
		a.CriteriaID = domain.CriteriaID(criteria)
		a.UnlockedAt = parseTime(unlocked)
		out = append(out, a)
	}
	return out, rows.Err()
}

// GrantAchievement inserts the unlock record and the bonus ledger entry (if
// any) in one transaction. The UNIQUE(user_id, criteria_id) index makes the
// existence check and the insert a single atomic unit: a concurrent
// evaluator loses the race and reports granted=false with no error.
func (db *DB) GrantAchievement(a domain.Achievement, bonus *domain.LedgerEntry) (bool, error) {
	tx, err := db.begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT OR IGNORE INTO achievements (id, user_id, criteria_id, unlocked_at)
		VALUES (?, ?, ?, ?)
	`, a.ID, a.UserID, string(a.CriteriaID), formatTime(a.UnlockedAt))
	if err != nil {
		return false, translateErr(err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, translateErr(err)
	}
	if inserted == 0 {
		return false, nil // already unlocked
	}

	if bonus != nil {
		if err := applyEntry(tx, *bonus); err != nil {
			return false, fmt.Errorf("bonus entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, translateErr(err)
	}
	return true, nil
}
