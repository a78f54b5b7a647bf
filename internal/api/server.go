// Package api provides the HTTP server for the club's gamification engine.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clubrodada/rodada/internal/app/achievements"
	"github.com/clubrodada/rodada/internal/app/leaderboard"
	"github.com/clubrodada/rodada/internal/app/ledger"
	"github.com/clubrodada/rodada/internal/app/redemption"
	"github.com/clubrodada/rodada/internal/app/streak"
	"github.com/clubrodada/rodada/internal/domain"
	"github.com/clubrodada/rodada/internal/infra/observability"
)

// Version is stamped by the build; the default marks dev builds.
var Version = "0.1.0-dev"

// Server is the HTTP API server.
type Server struct {
	ledger         *ledger.Service
	redemptions    *redemption.Engine
	leaderboards   *leaderboard.Service
	streaks        *streak.Tracker
	achievements   *achievements.Engine
	tiers          *domain.TierTable
	redeemLimiter  *userLimiter
	metricsEnabled bool
}

// NewServer creates an API server over the engine services.
func NewServer(
	ledgerSvc *ledger.Service,
	redemptions *redemption.Engine,
	leaderboards *leaderboard.Service,
	streaks *streak.Tracker,
	achievementsEng *achievements.Engine,
	tiers *domain.TierTable,
) *Server {
	return &Server{
		ledger:        ledgerSvc,
		redemptions:   redemptions,
		leaderboards:  leaderboards,
		streaks:       streaks,
		achievements:  achievementsEng,
		tiers:         tiers,
		redeemLimiter: newUserLimiter(defaultRedeemRate, defaultRedeemBurst),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Use(requestMetrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "rodada is running"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/api/gamification/{userID}", func(r chi.Router) {
		r.Get("/balance", s.handleBalance)
		r.Get("/history", s.handleHistory)
		r.Get("/tier", s.handleTier)
		r.Get("/streak", s.handleStreak)
		r.Get("/achievements", s.handleAchievements)
		r.Post("/earn", s.handleEarn)
		r.Post("/evaluate", s.handleEvaluate)
		r.With(s.limitRedeem).Post("/redeem", s.handleRedeem)
	})

	r.Get("/api/rewards", s.handleRewards)
	r.Get("/api/leaderboard", s.handleLeaderboard)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// requestMetrics counts requests per matched route pattern and status class.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		observability.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%dxx", ww.Status()/100)).Inc()
	})
}

// corsMiddleware adds CORS headers for the club's web frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
