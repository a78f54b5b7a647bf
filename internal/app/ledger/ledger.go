// Package ledger is the only write path for points outside of redemptions.
// It validates earning reasons against the club's rate card, stamps IDs and
// timestamps, and delegates the atomic append to the store.
package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clubrodada/rodada/internal/domain"
	"github.com/clubrodada/rodada/internal/infra/observability"
)

// Service records earnings and adjustments and serves balance/history reads.
type Service struct {
	store domain.LedgerStore
	rates map[domain.EarningReason]int64
	now   func() time.Time
}

// New creates the ledger service with the default rate card.
func New(store domain.LedgerStore) *Service {
	return &Service{
		store: store,
		rates: domain.DefaultEarningRates(),
		now:   time.Now,
	}
}

// RecordEarning awards points for an activity. The amount comes from the
// rate card, never from the caller. When relatedEntityID is set the award is
// idempotent per (user, entity, reason): re-sending the same activity
// returns the original entry ID without granting twice.
func (s *Service) RecordEarning(userID string, reason domain.EarningReason, relatedEntityID string) (string, error) {
	amount, ok := s.rates[reason]
	if !ok {
		observability.LedgerRejections.WithLabelValues("unknown_reason").Inc()
		return "", fmt.Errorf("reason %q: %w", reason, domain.ErrUnknownReason)
	}

	entry := domain.LedgerEntry{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          amount,
		Kind:            domain.KindEarning,
		Reason:          string(reason),
		RelatedEntityID: relatedEntityID,
		OccurredAt:      s.now(),
	}
	id, err := s.store.AppendEntry(entry)
	if err != nil {
		return "", fmt.Errorf("append earning: %w", err)
	}
	if id != entry.ID {
		log.Printf("[ledger] duplicate award user=%s reason=%s entity=%s", userID, reason, relatedEntityID)
		return id, nil
	}

	observability.LedgerEntries.WithLabelValues(string(domain.KindEarning)).Inc()
	log.Printf("[ledger] earned user=%s reason=%s amount=%d", userID, reason, amount)
	return id, nil
}

// RecordAdjustment appends a manual correction. Amount may be negative; an
// adjustment that would drive the balance below zero is rejected by the
// store with domain.ErrNegativeBalance.
func (s *Service) RecordAdjustment(userID string, amount int64, reason string) (string, error) {
	if amount == 0 {
		return "", domain.ErrInvalidAmount
	}
	entry := domain.LedgerEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     amount,
		Kind:       domain.KindAdjustment,
		Reason:     reason,
		OccurredAt: s.now(),
	}
	id, err := s.store.AppendEntry(entry)
	if err != nil {
		if err == domain.ErrNegativeBalance {
			observability.LedgerRejections.WithLabelValues("negative_balance").Inc()
		}
		return "", fmt.Errorf("append adjustment: %w", err)
	}
	observability.LedgerEntries.WithLabelValues(string(domain.KindAdjustment)).Inc()
	log.Printf("[ledger] adjusted user=%s amount=%d reason=%q", userID, amount, reason)
	return id, nil
}

// Balance returns the user's current spendable points.
func (s *Service) Balance(userID string) (int64, error) {
	return s.store.Balance(userID)
}

// ─── Paged History ──────────────────────────────────────────────────────────

// Page is one slice of a user's ledger history. NextCursor is empty when the
// history is exhausted.
type Page struct {
	Entries    []domain.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type cursor struct {
	Before   time.Time `json:"b"`
	BeforeID string    `json:"i"`
}

// History returns up to limit entries, newest first. An empty cursor starts
// at the newest entry; pass the returned NextCursor to continue. Pages stay
// stable while new entries arrive.
func (s *Service) History(userID string, limit int, pageCursor string) (*Page, error) {
	var c cursor
	if pageCursor != "" {
		raw, err := base64.RawURLEncoding.DecodeString(pageCursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor: %w", err)
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("bad cursor: %w", err)
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries, err := s.store.History(userID, limit, c.Before, c.BeforeID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	page := &Page{Entries: entries}
	if len(entries) == limit {
		last := entries[len(entries)-1]
		raw, err := json.Marshal(cursor{Before: last.OccurredAt, BeforeID: last.ID})
		if err != nil {
			return nil, err
		}
		page.NextCursor = base64.RawURLEncoding.EncodeToString(raw)
	}
	return page, nil
}
