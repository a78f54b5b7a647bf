// Reward catalog operations. The catalog is configuration owned by the
// admin collaborator; the redemption path only reads rows and decrements
// stock inside its own transaction (redemption.go).
package sqlite

import (
	"database/sql"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
)

// UpsertReward inserts or updates a catalog item. Stock and the redemption
// counters are only overwritten on insert; updates to live rewards preserve
// them unless the caller explicitly changes stock via SetRewardStock.
func (db *DB) UpsertReward(r domain.RewardDefinition) error {
	now := formatTime(time.Now())
	_, err := db.db.Exec(`
		INSERT INTO rewards (id, name, description, category, cost_points, stock, active, min_tier_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description,
			category    = excluded.category,
			cost_points = excluded.cost_points,
			active      = excluded.active,
			min_tier_id = excluded.min_tier_id,
			updated_at  = excluded.updated_at
	`, r.ID, r.Name, r.Description, string(r.Category), r.CostPoints, r.Stock,
		boolToInt(r.Active), r.MinTierID, now, now)
	return translateErr(err)
}

// SetRewardStock replaces a reward's remaining stock.
func (db *DB) SetRewardStock(id string, stock int64) error {
	res, err := db.db.Exec(`UPDATE rewards SET stock = ?, updated_at = ? WHERE id = ?`,
		stock, formatTime(time.Now()), id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRewardNotFound
	}
	return nil
}

// SetRewardActive toggles a reward's availability.
func (db *DB) SetRewardActive(id string, active bool) error {
	res, err := db.db.Exec(`UPDATE rewards SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), formatTime(time.Now()), id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRewardNotFound
	}
	return nil
}

// Reward fetches one catalog item.
func (db *DB) Reward(id string) (*domain.RewardDefinition, error) {
	row := db.db.QueryRow(`
		SELECT id, name, description, category, cost_points, stock, active, min_tier_id,
		       pending_redemptions, completed_redemptions, created_at, updated_at
		FROM rewards WHERE id = ?
	`, id)
	return scanReward(row)
}

// ActiveRewards returns the catalog the presentation layer shows, cheapest
// first.
func (db *DB) ActiveRewards() ([]domain.RewardDefinition, error) {
	rows, err := db.db.Query(`
		SELECT id, name, description, category, cost_points, stock, active, min_tier_id,
		       pending_redemptions, completed_redemptions, created_at, updated_at
		FROM rewards WHERE active = 1 ORDER BY cost_points, id
	`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []domain.RewardDefinition
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReward(row rowScanner) (*domain.RewardDefinition, error) {
	var r domain.RewardDefinition
	var category, created, updated string
	var active int
	err := row.Scan(&r.ID, &r.Name, &r.Description, &category, &r.CostPoints, &r.Stock,
		&active, &r.MinTierID, &r.PendingRedemptions, &r.CompletedRedemptions, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRewardNotFound
	}
	if err != nil {
		return nil, translateErr(err)
	}
	r.Category = domain.RewardCategory(category)
	r.Active = active == 1
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
