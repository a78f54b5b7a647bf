// Per-user rate limiting for the redeem route. Redemptions are the only
// endpoint a member can profit from hammering, so each user gets an
// independent token bucket.
package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/clubrodada/rodada/internal/infra/observability"
)

const (
	defaultRedeemRate  = rate.Limit(1) // sustained redemptions per second
	defaultRedeemBurst = 3
)

// userLimiter hands out one token bucket per user ID.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newUserLimiter(limit rate.Limit, burst int) *userLimiter {
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (u *userLimiter) allow(userID string) bool {
	u.mu.Lock()
	l, ok := u.limiters[userID]
	if !ok {
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[userID] = l
	}
	u.mu.Unlock()
	return l.Allow()
}

// limitRedeem rejects a user's redemption burst with 429 before it reaches
// the engine.
func (s *Server) limitRedeem(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if !s.redeemLimiter.allow(userID) {
			observability.RateLimited.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "demasiadas solicitudes de canje, espera un momento")
			return
		}
		next.ServeHTTP(w, r)
	})
}
