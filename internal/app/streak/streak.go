// Package streak tracks consecutive days of activity. A day qualifies when
// at least one positive earning or bonus entry lands on it; days are
// calendar days in the club's timezone, so a late-night ride in Bogotá
// counts for the right day no matter where the server runs.
package streak

import (
	"log"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
)

const dayLayout = "2006-01-02"

// Tracker derives streaks from the activity ledger and persists the result.
type Tracker struct {
	store domain.StreakStore
	loc   *time.Location
}

// New creates a tracker computing days in loc.
func New(store domain.StreakStore, loc *time.Location) *Tracker {
	return &Tracker{store: store, loc: loc}
}

// Refresh recomputes the user's streak as of asOf and persists it. The
// current streak counts back from asOf's day; a streak whose latest
// qualifying day is yesterday is still alive (today isn't over), anything
// older means the streak is broken and current resets to zero. Best never
// decreases: the store keeps the historical maximum even across resets.
func (t *Tracker) Refresh(userID string, asOf time.Time) (domain.StreakState, error) {
	stamps, err := t.store.ActivityTimestamps(userID)
	if err != nil {
		return domain.StreakState{}, err
	}

	days := collapseDays(stamps, t.loc)
	state := domain.StreakState{UserID: userID}
	if len(days) > 0 {
		state.LastQualifyingDay = days[0]
		today := asOf.In(t.loc).Format(dayLayout)
		yesterday := asOf.In(t.loc).AddDate(0, 0, -1).Format(dayLayout)
		if days[0] == today || days[0] == yesterday {
			state.CurrentStreak = runLength(days)
		}
		state.BestStreak = bestRun(days)
	}

	prev, err := t.store.StreakState(userID)
	if err != nil {
		return domain.StreakState{}, err
	}
	if prev.BestStreak > state.BestStreak {
		state.BestStreak = prev.BestStreak
	}

	if err := t.store.SaveStreak(state); err != nil {
		return domain.StreakState{}, err
	}
	if state.CurrentStreak != prev.CurrentStreak {
		log.Printf("[streak] user=%s current=%d best=%d", userID, state.CurrentStreak, state.BestStreak)
	}
	return state, nil
}

// Current returns the stored streak without recomputing.
func (t *Tracker) Current(userID string) (domain.StreakState, error) {
	return t.store.StreakState(userID)
}

// collapseDays maps timestamps to distinct local days, newest first. Input
// is already newest-first from the store.
func collapseDays(stamps []time.Time, loc *time.Location) []string {
	var days []string
	for _, ts := range stamps {
		day := ts.In(loc).Format(dayLayout)
		if len(days) == 0 || days[len(days)-1] != day {
			days = append(days, day)
		}
	}
	return days
}

// runLength counts consecutive days from days[0] backwards.
func runLength(days []string) int {
	n := 1
	for i := 1; i < len(days); i++ {
		prev, _ := time.Parse(dayLayout, days[i-1])
		cur, _ := time.Parse(dayLayout, days[i])
		if !cur.AddDate(0, 0, 1).Equal(prev) {
			break
		}
		n++
	}
	return n
}

// bestRun finds the longest consecutive run anywhere in the history.
func bestRun(days []string) int {
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		prev, _ := time.Parse(dayLayout, days[i-1])
		cur, _ := time.Parse(dayLayout, days[i])
		if cur.AddDate(0, 0, 1).Equal(prev) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
