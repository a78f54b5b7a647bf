// Package achievements evaluates the criteria catalog against member stats
// and grants unlocks. The unlock record and its bonus are one atomic unit in
// the store; evaluating twice, or from two goroutines at once, can never
// award a bonus twice.
package achievements

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clubrodada/rodada/internal/domain"
	"github.com/clubrodada/rodada/internal/infra/observability"
)

// Engine runs achievement evaluation.
type Engine struct {
	store    domain.AchievementStore
	stats    domain.StatsSource
	streaks  domain.StreakStore
	criteria []domain.Criteria
	now      func() time.Time
}

// New creates an engine over the default criteria catalog.
func New(store domain.AchievementStore, stats domain.StatsSource, streaks domain.StreakStore) *Engine {
	return &Engine{
		store:    store,
		stats:    stats,
		streaks:  streaks,
		criteria: domain.DefaultCriteria(),
		now:      time.Now,
	}
}

// Evaluate checks every criteria the user has not yet unlocked and grants
// the ones now satisfied. Returns the newly unlocked achievements; an empty
// slice means nothing new, which is the common case and not an error.
func (e *Engine) Evaluate(userID string) ([]domain.Achievement, error) {
	stats, err := e.collectStats(userID)
	if err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}

	existing, err := e.store.Achievements(userID)
	if err != nil {
		return nil, fmt.Errorf("read unlocks: %w", err)
	}
	unlocked := make(map[domain.CriteriaID]bool, len(existing))
	for _, a := range existing {
		unlocked[a.CriteriaID] = true
	}

	var granted []domain.Achievement
	for _, c := range e.criteria {
		if unlocked[c.ID] || !c.Unlocked(stats) {
			continue
		}

		a := domain.Achievement{
			ID:         uuid.NewString(),
			UserID:     userID,
			CriteriaID: c.ID,
			UnlockedAt: e.now(),
		}
		var bonus *domain.LedgerEntry
		if c.BonusPoints > 0 {
			bonus = &domain.LedgerEntry{
				ID:         uuid.NewString(),
				UserID:     userID,
				Amount:     c.BonusPoints,
				Kind:       domain.KindBonus,
				Reason:     "logro: " + string(c.ID),
				OccurredAt: a.UnlockedAt,
			}
		}

		ok, err := e.store.GrantAchievement(a, bonus)
		if err != nil {
			return granted, fmt.Errorf("grant %s: %w", c.ID, err)
		}
		if !ok {
			continue // lost the race to a concurrent evaluator
		}

		observability.AchievementUnlocks.WithLabelValues(string(c.ID)).Inc()
		log.Printf("[achievements] unlocked user=%s criteria=%s bonus=%d", userID, c.ID, c.BonusPoints)
		granted = append(granted, a)
	}
	return granted, nil
}

// Unlocked lists the user's achievements.
func (e *Engine) Unlocked(userID string) ([]domain.Achievement, error) {
	return e.store.Achievements(userID)
}

// Catalog returns all criteria, for display.
func (e *Engine) Catalog() []domain.Criteria {
	return e.criteria
}

func (e *Engine) collectStats(userID string) (domain.UserStats, error) {
	stats := domain.UserStats{UserID: userID}

	var err error
	if stats.TotalEarned, err = e.stats.TotalEarned(userID); err != nil {
		return stats, err
	}
	if stats.EventsAttended, err = e.stats.EventsAttended(userID); err != nil {
		return stats, err
	}
	streak, err := e.streaks.StreakState(userID)
	if err != nil {
		return stats, err
	}
	stats.CurrentStreak = streak.CurrentStreak
	stats.BestStreak = streak.BestStreak
	return stats, nil
}
