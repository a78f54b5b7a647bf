// Package leaderboard computes periodic batch rankings over competitive
// points (earning and bonus entries only; redemptions never lower a
// standing). Reads are always served from the last computed snapshot, never
// per-request: stale-but-fast is the contract.
package leaderboard

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
	"github.com/clubrodada/rodada/internal/infra/observability"
)

// Service recomputes and serves rankings.
type Service struct {
	store domain.RankingStore
	loc   *time.Location
	now   func() time.Time
}

// New creates the ranking service. loc is the club's timezone; period
// windows (calendar month, calendar year) open and close in it.
func New(store domain.RankingStore, loc *time.Location) *Service {
	return &Service{store: store, loc: loc, now: time.Now}
}

// Recompute builds the ranking for the period's current window and caches
// it. Ordering is deterministic: points descending, then whoever reached
// their total first, then user ID.
func (s *Service) Recompute(period domain.Period) ([]domain.LeaderboardEntry, error) {
	started := time.Now()
	now := s.now()

	windowStart, windowEnd := period.Window(now, s.loc)
	totals, err := s.store.EarnedTotals(windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	entries := rank(totals)

	// Position change against the prior window's final standing.
	if priorStart, priorEnd, ok := period.PriorWindow(now, s.loc); ok {
		prior, found, err := s.store.Ranking(period, priorStart)
		if err != nil {
			return nil, err
		}
		if !found {
			// No cached prior standing: rebuild it from the ledger.
			priorTotals, err := s.store.EarnedTotals(priorStart, priorEnd)
			if err != nil {
				return nil, err
			}
			prior = rank(priorTotals)
		}
		applyPositionChange(entries, prior)
	}

	if err := s.store.SaveRanking(period, windowStart, now, entries); err != nil {
		return nil, err
	}

	observability.LeaderboardRecomputeDuration.WithLabelValues(string(period)).Observe(time.Since(started).Seconds())
	observability.LeaderboardSize.WithLabelValues(string(period)).Set(float64(len(entries)))
	log.Printf("[leaderboard] recomputed period=%s members=%d took=%s", period, len(entries), time.Since(started).Round(time.Millisecond))
	return entries, nil
}

// Standing serves the cached ranking for the period's current window,
// falling back to the most recent snapshot of any window. ok is false only
// when no snapshot has ever been computed.
func (s *Service) Standing(period domain.Period) ([]domain.LeaderboardEntry, time.Time, bool, error) {
	windowStart, _ := period.Window(s.now(), s.loc)
	entries, found, err := s.store.Ranking(period, windowStart)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	if found {
		return entries, windowStart, true, nil
	}
	return s.store.LatestRanking(period)
}

// rank orders totals and assigns contiguous positions and percentiles.
func rank(totals []domain.PeriodTotal) []domain.LeaderboardEntry {
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Points != totals[j].Points {
			return totals[i].Points > totals[j].Points
		}
		if !totals[i].ReachedAt.Equal(totals[j].ReachedAt) {
			return totals[i].ReachedAt.Before(totals[j].ReachedAt)
		}
		return totals[i].UserID < totals[j].UserID
	})

	entries := make([]domain.LeaderboardEntry, len(totals))
	for i, t := range totals {
		entries[i] = domain.LeaderboardEntry{
			UserID:     t.UserID,
			Position:   i + 1,
			Points:     t.Points,
			Percentile: 1 - float64(i)/float64(len(totals)),
		}
	}
	return entries
}

func applyPositionChange(entries, prior []domain.LeaderboardEntry) {
	priorPos := make(map[string]int, len(prior))
	for _, p := range prior {
		priorPos[p.UserID] = p.Position
	}
	for i := range entries {
		if pos, ok := priorPos[entries[i].UserID]; ok {
			entries[i].PositionChange = pos - entries[i].Position
		}
	}
}

// ─── Background Refresher ───────────────────────────────────────────────────

// Refresher recomputes all periods on a fixed interval.
type Refresher struct {
	service  *Service
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher creates a stopped refresher.
func NewRefresher(service *Service, interval time.Duration) *Refresher {
	return &Refresher{service: service, interval: interval}
}

// Start launches the refresh loop. An immediate recompute runs first so the
// cache is warm before the first tick.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return // already running
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.refreshAll()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.refreshAll()
			}
		}
	}()
	log.Printf("[leaderboard] refresher started interval=%s", r.interval)
}

// Stop halts the loop and waits for an in-flight recompute to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Printf("[leaderboard] refresher stopped")
}

func (r *Refresher) refreshAll() {
	for _, period := range []domain.Period{domain.PeriodMonthly, domain.PeriodAnnual, domain.PeriodAllTime} {
		if _, err := r.service.Recompute(period); err != nil {
			log.Printf("[leaderboard] recompute period=%s failed: %v", period, err)
		}
	}
}
