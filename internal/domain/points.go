// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Ledger Types ───────────────────────────────────────────────────────────

// EntryKind is the closed set of point-affecting event categories.
type EntryKind string

const (
	KindEarning    EntryKind = "earning"    // positive: attendance, posts, referrals
	KindRedemption EntryKind = "redemption" // negative: reward redeemed
	KindBonus      EntryKind = "bonus"      // positive: achievement grant
	KindAdjustment EntryKind = "adjustment" // signed: audit correction, revocation
)

// Valid reports whether k is one of the defined entry kinds.
func (k EntryKind) Valid() bool {
	switch k {
	case KindEarning, KindRedemption, KindBonus, KindAdjustment:
		return true
	}
	return false
}

// CountsTowardRanking reports whether entries of this kind contribute to
// competitive leaderboard scores. Redemptions spend balance but never lower
// a member's standing; adjustments are audit artifacts, not achievements.
func (k EntryKind) CountsTowardRanking() bool {
	return k == KindEarning || k == KindBonus
}

// LedgerEntry is one immutable, signed point transaction for a member.
// Entries are append-only: corrections are new adjustment entries, never
// updates or deletes.
type LedgerEntry struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Amount          int64     `json:"amount"`
	Kind            EntryKind `json:"kind"`
	Reason          string    `json:"reason,omitempty"`
	RelatedEntityID string    `json:"related_entity_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ─── Earning Reasons ────────────────────────────────────────────────────────

// EarningReason identifies why points were granted. The rate catalog maps
// each reason to its default point value.
type EarningReason string

const (
	ReasonEventAttendance   EarningReason = "event_attendance"
	ReasonEventOrganizing   EarningReason = "event_organizing"
	ReasonReferral          EarningReason = "referral"
	ReasonPost              EarningReason = "post"
	ReasonComment           EarningReason = "comment"
	ReasonHelpfulComment    EarningReason = "helpful_comment"
	ReasonReactionReceived  EarningReason = "reaction_received"
	ReasonFirstPost         EarningReason = "first_post"
	ReasonEventRegistration EarningReason = "event_registration"
)

// DefaultEarningRates returns the club's point values per earning reason.
func DefaultEarningRates() map[EarningReason]int64 {
	return map[EarningReason]int64{
		ReasonEventAttendance:   100,
		ReasonEventOrganizing:   500,
		ReasonReferral:          300,
		ReasonPost:              10,
		ReasonComment:           2,
		ReasonHelpfulComment:    5,
		ReasonReactionReceived:  1,
		ReasonFirstPost:         50,
		ReasonEventRegistration: 10,
	}
}

// ─── Redemption Types ───────────────────────────────────────────────────────

// RedemptionStatus tracks the lifecycle of a committed redemption.
// Completed records may later transition to reversed via the external
// refund/dispute process; there are no other transitions.
type RedemptionStatus string

const (
	RedemptionCompleted RedemptionStatus = "completed"
	RedemptionFailed    RedemptionStatus = "failed"
	RedemptionReversed  RedemptionStatus = "reversed"
)

// RedemptionRecord is the receipt for one committed redemption. One record
// corresponds to exactly one redemption ledger entry and one stock decrement.
type RedemptionRecord struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	RewardID    string           `json:"reward_id"`
	PointsSpent int64            `json:"points_spent"`
	Status      RedemptionStatus `json:"status"`
	RedeemedAt  time.Time        `json:"redeemed_at"`
}

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// Period is a ranking window.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodAnnual  Period = "annual"
	PeriodAllTime Period = "alltime"
)

// Valid reports whether p is a defined ranking period.
func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodAnnual, PeriodAllTime:
		return true
	}
	return false
}

// Window returns the [start, end) interval for the period containing now,
// in the club's timezone. All-time has a zero start.
func (p Period) Window(now time.Time, loc *time.Location) (start, end time.Time) {
	now = now.In(loc)
	switch p {
	case PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case PeriodAnnual:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	default:
		end = now
	}
	return start, end
}

// PriorWindow returns the window immediately preceding the one containing now.
// All-time has no prior window; ok is false.
func (p Period) PriorWindow(now time.Time, loc *time.Location) (start, end time.Time, ok bool) {
	cur, _ := p.Window(now, loc)
	switch p {
	case PeriodMonthly:
		return cur.AddDate(0, -1, 0), cur, true
	case PeriodAnnual:
		return cur.AddDate(-1, 0, 0), cur, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// LeaderboardEntry is one row of a computed standing. Derived data: the
// ledger remains the source of truth and entries may be served stale.
type LeaderboardEntry struct {
	UserID         string  `json:"user_id"`
	Position       int     `json:"position"`
	Points         int64   `json:"points"`
	Percentile     float64 `json:"percentile"`
	PositionChange int     `json:"position_change"` // vs prior window; positive = climbed
}

// ─── Streak Types ───────────────────────────────────────────────────────────

// StreakState is derived from ledger activity timestamps and is always
// recomputable; only BestStreak carries memory (it is monotonic).
type StreakState struct {
	UserID            string `json:"user_id"`
	CurrentStreak     int    `json:"current_streak"`
	BestStreak        int    `json:"best_streak"`
	LastQualifyingDay string `json:"last_qualifying_day,omitempty"` // YYYY-MM-DD in club timezone
}

// ─── Member Stats ───────────────────────────────────────────────────────────

// UserStats is the snapshot achievement criteria are evaluated against.
type UserStats struct {
	UserID         string `json:"user_id"`
	TotalEarned    int64  `json:"total_earned"` // lifetime earning + bonus points
	EventsAttended int64  `json:"events_attended"`
	CurrentStreak  int    `json:"current_streak"`
	BestStreak     int    `json:"best_streak"`
}
