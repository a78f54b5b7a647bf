// Package redemption drives the spend path: validate-and-commit against the
// store with a bounded retry loop around transient storage conflicts.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clubrodada/rodada/internal/domain"
	"github.com/clubrodada/rodada/internal/infra/observability"
)

// Config controls the retry behavior around storage conflicts.
type Config struct {
	MaxAttempts int           // attempts per redemption (default: 3)
	BaseBackoff time.Duration // first retry delay, doubled per attempt (default: 25ms)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseBackoff: 25 * time.Millisecond,
	}
}

// Engine executes redemptions and reversals.
type Engine struct {
	store   domain.RedemptionStore
	catalog domain.RewardCatalog
	tiers   *domain.TierTable
	config  Config
	now     func() time.Time
}

// New creates a redemption engine.
func New(store domain.RedemptionStore, catalog domain.RewardCatalog, tiers *domain.TierTable, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultConfig().BaseBackoff
	}
	return &Engine{
		store:   store,
		catalog: catalog,
		tiers:   tiers,
		config:  cfg,
		now:     time.Now,
	}
}

// Redeem atomically spends points for a reward.
//
// Validation and commit happen inside one storage transaction; this engine
// only adds identity (fresh record and entry IDs) and the retry policy. A
// storage conflict is retried with doubling backoff up to MaxAttempts, after
// which the caller gets domain.ErrStorageTimeout and the redemption is
// guaranteed not to have committed. Validation failures are never retried:
// the sentinel comes straight back.
func (e *Engine) Redeem(ctx context.Context, userID, rewardID string) (*domain.RedemptionRecord, error) {
	recordID := uuid.NewString()
	entryID := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		rec, err := e.store.ExecuteRedemption(userID, rewardID, recordID, entryID, e.tiers, e.now())
		if err == nil {
			observability.Redemptions.WithLabelValues("completed").Inc()
			log.Printf("[redemption] completed user=%s reward=%s spent=%d", userID, rewardID, rec.PointsSpent)
			return rec, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			observability.Redemptions.WithLabelValues(outcomeLabel(err)).Inc()
			return nil, err
		}

		lastErr = err
		observability.RedemptionRetries.Inc()
		log.Printf("[redemption] conflict user=%s reward=%s attempt=%d/%d", userID, rewardID, attempt, e.config.MaxAttempts)
		if attempt == e.config.MaxAttempts {
			break
		}
		backoff := e.config.BaseBackoff << (attempt - 1)
		select {
		case <-ctx.Done():
			observability.Redemptions.WithLabelValues("canceled").Inc()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	observability.Redemptions.WithLabelValues("timeout").Inc()
	return nil, fmt.Errorf("redemption after %d attempts: %w (%v)", e.config.MaxAttempts, domain.ErrStorageTimeout, lastErr)
}

// Reverse refunds a completed redemption and restores finite stock. Invoked
// by the refund/dispute process, never by members.
func (e *Engine) Reverse(recordID string) (*domain.RedemptionRecord, error) {
	rec, err := e.store.MarkReversed(recordID, uuid.NewString(), e.now())
	if err != nil {
		return nil, err
	}
	observability.Redemptions.WithLabelValues("reversed").Inc()
	log.Printf("[redemption] reversed record=%s user=%s refunded=%d", rec.ID, rec.UserID, rec.PointsSpent)
	return rec, nil
}

// Catalog returns the rewards members can currently see.
func (e *Engine) Catalog() ([]domain.RewardDefinition, error) {
	return e.catalog.ActiveRewards()
}

// Reward looks up one catalog item.
func (e *Engine) Reward(id string) (*domain.RewardDefinition, error) {
	return e.catalog.Reward(id)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrRewardNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrRewardInactive):
		return "inactive"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrTierTooLow):
		return "tier_too_low"
	case errors.Is(err, domain.ErrInsufficientPoints):
		return "insufficient_points"
	default:
		return "error"
	}
}
