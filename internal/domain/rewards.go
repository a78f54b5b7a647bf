package domain

import "time"

// ─── Reward Catalog Types ───────────────────────────────────────────────────

// UnlimitedStock marks a reward that never sells out.
const UnlimitedStock int64 = -1

// RewardCategory is the closed set of catalog categories.
type RewardCategory string

const (
	CategoryMerch      RewardCategory = "merchandising"
	CategoryDiscount   RewardCategory = "descuentos"
	CategoryEvent      RewardCategory = "eventos"
	CategoryDigital    RewardCategory = "digital"
	CategoryExperience RewardCategory = "experiencias"
)

// RewardDefinition is a redeemable catalog item. The catalog is owned by the
// admin collaborator; the redemption engine only reads it and decrements
// stock inside its transaction.
type RewardDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    RewardCategory `json:"category"`
	CostPoints  int64          `json:"cost_points"` // > 0
	Stock       int64          `json:"stock"`       // UnlimitedStock or >= 0
	Active      bool           `json:"active"`
	MinTierID   int            `json:"min_tier_id,omitempty"` // 0 = no tier requirement

	// Denormalized counters maintained by the store for the admin view.
	PendingRedemptions   int64 `json:"pending_redemptions"`
	CompletedRedemptions int64 `json:"completed_redemptions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnlimitedStockReward reports whether the reward has no stock limit.
func (r RewardDefinition) UnlimitedStockReward() bool { return r.Stock == UnlimitedStock }
