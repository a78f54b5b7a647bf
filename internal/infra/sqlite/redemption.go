// The redemption transaction: the one place that writes negative ledger
// entries and mutates reward stock, always as a single atomic unit.
package sqlite

import (
	"database/sql"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
)

// ExecuteRedemption runs the validate-and-commit step of a redemption.
//
// Everything happens inside one transaction: reward state and balance are
// re-read within the boundary (pre-validation snapshots taken outside it are
// never trusted), validated in order, and on success the stock decrement,
// the negative ledger entry, the balance update, and the completed record
// are applied together. On any validation failure nothing is applied and
// the specific sentinel error is returned; the request is safe to retry.
//
// For a reward with stock N this guarantees at most N commits no matter how
// many callers race, and a user's committed redemption costs can never
// exceed their balance at each commit instant.
func (db *DB) ExecuteRedemption(userID, rewardID, recordID, entryID string, tiers *domain.TierTable, now time.Time) (*domain.RedemptionRecord, error) {
	tx, err := db.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Re-read reward inside the boundary.
	var costPoints, stock int64
	var active, minTierID int
	err = tx.QueryRow(`
		SELECT cost_points, stock, active, min_tier_id FROM rewards WHERE id = ?
	`, rewardID).Scan(&costPoints, &stock, &active, &minTierID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRewardNotFound
	}
	if err != nil {
		return nil, translateErr(err)
	}

	// Re-read balance inside the boundary.
	var balance int64
	err = tx.QueryRow(`SELECT balance FROM balances WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil && err != sql.ErrNoRows {
		return nil, translateErr(err)
	}

	// Validate in order; the first failing condition is surfaced.
	if active != 1 {
		return nil, domain.ErrRewardInactive
	}
	if stock != domain.UnlimitedStock && stock <= 0 {
		return nil, domain.ErrOutOfStock
	}
	if minTierID > 0 {
		if userTier := tiers.TierFor(balance); userTier.ID < minTierID {
			return nil, domain.ErrTierTooLow
		}
	}
	if balance < costPoints {
		return nil, domain.ErrInsufficientPoints
	}

	// Commit: stock decrement + ledger entry + balance + record, together.
	if stock != domain.UnlimitedStock {
		if _, err := tx.Exec(`
			UPDATE rewards SET stock = stock - 1, completed_redemptions = completed_redemptions + 1, updated_at = ?
			WHERE id = ?
		`, formatTime(now), rewardID); err != nil {
			return nil, translateErr(err)
		}
	} else {
		if _, err := tx.Exec(`
			UPDATE rewards SET completed_redemptions = completed_redemptions + 1, updated_at = ?
			WHERE id = ?
		`, formatTime(now), rewardID); err != nil {
			return nil, translateErr(err)
		}
	}

	entry := domain.LedgerEntry{
		ID:              entryID,
		UserID:          userID,
		Amount:          -costPoints,
		Kind:            domain.KindRedemption,
		Reason:          "canje de recompensa",
		RelatedEntityID: rewardID,
		OccurredAt:      now,
	}
	if err := applyEntry(tx, entry); err != nil {
		return nil, err
	}

	rec := domain.RedemptionRecord{
		ID:          recordID,
		UserID:      userID,
		RewardID:    rewardID,
		PointsSpent: costPoints,
		Status:      domain.RedemptionCompleted,
		RedeemedAt:  now,
	}
	if _, err := tx.Exec(`
		INSERT INTO redemptions (id, user_id, reward_id, points_spent, status, redeemed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.RewardID, rec.PointsSpent, string(rec.Status), formatTime(rec.RedeemedAt)); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translateErr(err)
	}
	return &rec, nil
}

// Redemption fetches one receipt.
func (db *DB) Redemption(recordID string) (*domain.RedemptionRecord, error) {
	var rec domain.RedemptionRecord
	var status, redeemed string
	err := db.db.QueryRow(`
		SELECT id, user_id, reward_id, points_spent, status, redeemed_at
		FROM redemptions WHERE id = ?
	`, recordID).Scan(&rec.ID, &rec.UserID, &rec.RewardID, &rec.PointsSpent, &status, &redeemed)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, translateErr(err)
	}
	rec.Status = domain.RedemptionStatus(status)
	rec.RedeemedAt = parseTime(redeemed)
	return &rec, nil
}

// UserRedemptions lists a user's receipts, newest first.
func (db *DB) UserRedemptions(userID string) ([]domain.RedemptionRecord, error) {
	rows, err := db.db.Query(`
		SELECT id, user_id, reward_id, points_spent, status, redeemed_at
		FROM redemptions WHERE user_id = ? ORDER BY redeemed_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.RedemptionRecord
	for rows.Next() {
		var rec domain.RedemptionRecord
		var status, redeemed string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.RewardID, &rec.PointsSpent, &status, &redeemed); err != nil {
			return nil, translateErr(err)
		}
		rec.Status = domain.RedemptionStatus(status)
		rec.RedeemedAt = parseTime(redeemed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkReversed transitions a completed redemption to reversed, refunds the
// points as an adjustment entry, and restores one unit of finite stock —
// all in one transaction. Issued only by the external refund/dispute
// process.
func (db *DB) MarkReversed(recordID, entryID string, now time.Time) (*domain.RedemptionRecord, error) {
	tx, err := db.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rec domain.RedemptionRecord
	var status, redeemed string
	err = tx.QueryRow(`
		SELECT id, user_id, reward_id, points_spent, status, redeemed_at
		FROM redemptions WHERE id = ?
	`, recordID).Scan(&rec.ID, &rec.UserID, &rec.RewardID, &rec.PointsSpent, &status, &redeemed)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, translateErr(err)
	}
	rec.Status = domain.RedemptionStatus(status)
	rec.RedeemedAt = parseTime(redeemed)

	if rec.Status == domain.RedemptionReversed {
		return nil, domain.ErrAlreadyReversed
	}

	if _, err := tx.Exec(`UPDATE redemptions SET status = ? WHERE id = ?`,
		string(domain.RedemptionReversed), recordID); err != nil {
		return nil, translateErr(err)
	}

	refund := domain.LedgerEntry{
		ID:              entryID,
		UserID:          rec.UserID,
		Amount:          rec.PointsSpent,
		Kind:            domain.KindAdjustment,
		Reason:          "reversión de canje",
		RelatedEntityID: recordID,
		OccurredAt:      now,
	}
	if err := applyEntry(tx, refund); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE rewards SET stock = stock + 1, updated_at = ? WHERE id = ? AND stock != ?
	`, formatTime(now), rec.RewardID, domain.UnlimitedStock); err != nil {
		return nil, translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translateErr(err)
	}
	rec.Status = domain.RedemptionReversed
	return &rec, nil
}
