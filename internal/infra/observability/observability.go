// Package observability holds the Prometheus metrics the engine exports.
//
// Metrics are package-level promauto vars so every service registers its
// counters at init without plumbing a registry through constructors. The
// /metrics endpoint exposes the default registry.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerEntries counts appended ledger entries by kind.
var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Total ledger entries appended, by kind.",
}, []string{"kind"})

// LedgerRejections counts entries rejected before being written.
var LedgerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "ledger",
	Name:      "rejections_total",
	Help:      "Total ledger entries rejected, by reason.",
}, []string{"reason"})

// ─── Redemption Metrics ─────────────────────────────────────────────────────

// Redemptions counts redemption attempts by outcome.
var Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "redemption",
	Name:      "attempts_total",
	Help:      "Total redemption attempts by outcome.",
}, []string{"outcome"})

// RedemptionRetries counts conflict retries inside the redemption engine.
var RedemptionRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "redemption",
	Name:      "conflict_retries_total",
	Help:      "Total retries after a storage conflict during redemption.",
})

// ─── Leaderboard Metrics ────────────────────────────────────────────────────

// LeaderboardRecomputeDuration tracks ranking recompute latency per period.
var LeaderboardRecomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "rodada",
	Subsystem: "leaderboard",
	Name:      "recompute_seconds",
	Help:      "Wall time of a ranking recompute, by period.",
	Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"period"})

// LeaderboardSize tracks the number of ranked members per period.
var LeaderboardSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "rodada",
	Subsystem: "leaderboard",
	Name:      "ranked_members",
	Help:      "Members in the most recent ranking, by period.",
}, []string{"period"})

// ─── Achievement Metrics ────────────────────────────────────────────────────

// AchievementUnlocks counts unlocked achievements by criteria.
var AchievementUnlocks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "achievements",
	Name:      "unlocks_total",
	Help:      "Total achievement unlocks, by criteria.",
}, []string{"criteria"})

// ─── API Metrics ────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route and status class.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "api",
	Name:      "requests_total",
	Help:      "Total HTTP requests by route and status class.",
}, []string{"route", "status"})

// RateLimited counts requests rejected by the per-user redeem limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "rodada",
	Subsystem: "api",
	Name:      "rate_limited_total",
	Help:      "Total requests rejected by the redeem rate limiter.",
})
