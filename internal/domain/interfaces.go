package domain

import "time"

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LedgerStore persists the append-only points ledger and keeps the
// materialized per-user balance in step with every entry it writes.
type LedgerStore interface {
	// AppendEntry appends an entry and updates the user's balance in the
	// same atomic unit. Entries that would drive the balance negative are
	// rejected with ErrNegativeBalance. When the entry carries a related
	// entity and an existing entry matches (user, related entity, reason),
	// nothing is written and the existing entry's ID is returned.
	AppendEntry(e LedgerEntry) (string, error)

	// Balance returns the user's current spendable balance. O(1) read of
	// the materialized counter.
	Balance(userID string) (int64, error)

	// History returns up to limit entries ordered by (occurred_at, id)
	// descending, strictly before the given cursor position. A zero
	// `before` means "from the newest entry".
	History(userID string, limit int, before time.Time, beforeID string) ([]LedgerEntry, error)
}

// RewardCatalog is the read side of the catalog the admin collaborator owns.
type RewardCatalog interface {
	Reward(id string) (*RewardDefinition, error) // ErrRewardNotFound if absent
	ActiveRewards() ([]RewardDefinition, error)
}

// RedemptionStore executes the validate-and-commit step of a redemption as
// one atomic unit: re-read reward and balance inside the boundary, validate,
// then apply stock decrement + ledger entry + record together, or nothing.
type RedemptionStore interface {
	ExecuteRedemption(userID, rewardID, recordID, entryID string, tiers *TierTable, now time.Time) (*RedemptionRecord, error)

	// MarkReversed transitions a completed record to reversed and appends
	// the compensating adjustment entry, atomically.
	MarkReversed(recordID, entryID string, now time.Time) (*RedemptionRecord, error)
}

// StatsSource supplies the ledger-derived counters achievement criteria
// read.
type StatsSource interface {
	TotalEarned(userID string) (int64, error)
	EventsAttended(userID string) (int64, error)
}

// AchievementStore persists unlock records with an idempotency guarantee.
type AchievementStore interface {
	Achievements(userID string) ([]Achievement, error)

	// GrantAchievement inserts the unlock record and, when bonus is
	// non-nil, the bonus ledger entry in one atomic unit. Returns false
	// with no error when the (user, criteria) pair is already unlocked.
	GrantAchievement(a Achievement, bonus *LedgerEntry) (bool, error)
}

// StreakStore reads qualifying-activity timestamps and persists the
// monotonic best streak.
type StreakStore interface {
	ActivityTimestamps(userID string) ([]time.Time, error)
	StreakState(userID string) (StreakState, error)
	SaveStreak(s StreakState) error
}

// PeriodTotal is one user's summed ranking points inside a window, with the
// timestamp at which that total was reached (for deterministic tie-breaks).
type PeriodTotal struct {
	UserID    string
	Points    int64
	ReachedAt time.Time
}

// RankingStore aggregates ledger entries into period totals and caches
// computed standings per window.
type RankingStore interface {
	// EarnedTotals sums earning+bonus entries with occurred_at in
	// [start, end) per user. A zero start means all time.
	EarnedTotals(start, end time.Time) ([]PeriodTotal, error)

	SaveRanking(period Period, windowStart time.Time, computedAt time.Time, entries []LeaderboardEntry) error

	// Ranking returns the cached standing for an exact window, or ok=false.
	Ranking(period Period, windowStart time.Time) ([]LeaderboardEntry, bool, error)

	// LatestRanking returns the most recently computed standing for the
	// period, or ok=false when none has been computed yet.
	LatestRanking(period Period) ([]LeaderboardEntry, time.Time, bool, error)
}
