// Gamification route handlers: balance, history, tier, streaks,
// achievements, earning, and the redeem path with its error contract.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubrodada/rodada/internal/domain"
)

// ─── Read Endpoints ─────────────────────────────────────────────────────────

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	balance, err := s.ledger.Balance(userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := queryInt(r, "limit", 20)
	cursor := r.URL.Query().Get("cursor")

	page, err := s.ledger.History(userID, limit, cursor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTier(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	balance, err := s.ledger.Balance(userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	tier := s.tiers.TierFor(balance)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        userID,
		"balance":        balance,
		"tier":           tier,
		"progress":       s.tiers.Progress(balance),
		"points_to_next": s.tiers.PointsToNext(balance),
	})
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	state, err := s.streaks.Refresh(userID, time.Now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	unlocks, err := s.achievements.Unlocked(userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if unlocks == nil {
		unlocks = []domain.Achievement{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"achievements": unlocks,
	})
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.redemptions.Catalog()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if rewards == nil {
		rewards = []domain.RewardDefinition{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rewards": rewards})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodMonthly
	}
	if !period.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("periodo desconocido: %q", period))
		return
	}

	entries, computedAt, ok, err := s.leaderboards.Standing(period)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"period":  period,
			"entries": []domain.LeaderboardEntry{},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":      period,
		"computed_at": computedAt,
		"entries":     entries,
	})
}

// ─── Write Endpoints ────────────────────────────────────────────────────────

type earnRequest struct {
	Reason          string `json:"reason"`
	RelatedEntityID string `json:"related_entity_id,omitempty"`
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req earnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	entryID, err := s.ledger.RecordEarning(userID, domain.EarningReason(req.Reason), req.RelatedEntityID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	balance, _ := s.ledger.Balance(userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entry_id": entryID,
		"balance":  balance,
	})
}

type redeemRequest struct {
	RewardID string `json:"reward_id"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RewardID == "" {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido: falta reward_id")
		return
	}

	rec, err := s.redemptions.Redeem(r.Context(), userID, req.RewardID)
	if err != nil {
		s.writeRedeemError(w, userID, req.RewardID, err)
		return
	}
	balance, _ := s.ledger.Balance(userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"redemption": rec,
		"balance":    balance,
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	// Refresh the streak first so streak criteria see today's activity.
	if _, err := s.streaks.Refresh(userID, time.Now()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	granted, err := s.achievements.Evaluate(userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if granted == nil {
		granted = []domain.Achievement{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"unlocked": granted,
	})
}

// ─── Error Mapping ──────────────────────────────────────────────────────────

// writeRedeemError maps redemption sentinels to the API error contract. The
// insufficient-points payload carries faltan, the shortfall the member still
// needs.
func (s *Server) writeRedeemError(w http.ResponseWriter, userID, rewardID string, err error) {
	switch {
	case errors.Is(err, domain.ErrRewardNotFound):
		writeError(w, http.StatusNotFound, "recompensa no encontrada")
	case errors.Is(err, domain.ErrRewardInactive):
		writeError(w, http.StatusConflict, "la recompensa no está disponible")
	case errors.Is(err, domain.ErrOutOfStock):
		writeError(w, http.StatusConflict, "recompensa agotada")
	case errors.Is(err, domain.ErrTierTooLow):
		writeError(w, http.StatusConflict, "tu nivel aún no alcanza para esta recompensa")
	case errors.Is(err, domain.ErrInsufficientPoints):
		balance, balErr := s.ledger.Balance(userID)
		payload := map[string]interface{}{
			"error": map[string]interface{}{
				"message": "puntos insuficientes",
				"type":    "error",
			},
		}
		if balErr == nil {
			if reward, rErr := s.redemptions.Reward(rewardID); rErr == nil {
				payload["faltan"] = reward.CostPoints - balance
			}
		}
		writeJSON(w, http.StatusPaymentRequired, payload)
	default:
		s.writeDomainError(w, err)
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownReason):
		writeError(w, http.StatusBadRequest, "motivo de puntos desconocido")
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "monto inválido")
	case errors.Is(err, domain.ErrNegativeBalance):
		writeError(w, http.StatusConflict, "la operación dejaría el saldo en negativo")
	case errors.Is(err, domain.ErrStorageTimeout), errors.Is(err, domain.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "intenta de nuevo en un momento")
	default:
		writeError(w, http.StatusInternalServerError, "error interno")
	}
}
