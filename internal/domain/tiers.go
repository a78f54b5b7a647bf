package domain

import (
	"fmt"
	"sort"
)

// ─── Tier Types ─────────────────────────────────────────────────────────────

// NoMaxPoints marks the top tier's unbounded upper edge.
const NoMaxPoints int64 = -1

// Tier is a named, contiguous band of the point range.
type Tier struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	MinPoints int64    `json:"min_points"`
	MaxPoints int64    `json:"max_points"` // NoMaxPoints for the top tier
	Benefits  []string `json:"benefits,omitempty"`
}

// Unbounded reports whether the tier has no upper point limit.
func (t Tier) Unbounded() bool { return t.MaxPoints == NoMaxPoints }

// TierTable is an ordered, validated partition of [0, ∞) into tiers.
type TierTable struct {
	tiers []Tier
}

// NewTierTable validates that the tiers partition [0, ∞) with no gaps or
// overlaps: each tier's MaxPoints is the next tier's MinPoints − 1, the
// first tier starts at 0, and only the last tier is unbounded.
func NewTierTable(tiers []Tier) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier table is empty")
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinPoints < sorted[j].MinPoints })

	if sorted[0].MinPoints != 0 {
		return nil, fmt.Errorf("first tier %q must start at 0, starts at %d", sorted[0].Name, sorted[0].MinPoints)
	}
	for i, tier := range sorted {
		last := i == len(sorted)-1
		if last {
			if !tier.Unbounded() {
				return nil, fmt.Errorf("last tier %q must be unbounded", tier.Name)
			}
			break
		}
		if tier.Unbounded() {
			return nil, fmt.Errorf("tier %q is unbounded but not last", tier.Name)
		}
		if tier.MaxPoints < tier.MinPoints {
			return nil, fmt.Errorf("tier %q has max %d below min %d", tier.Name, tier.MaxPoints, tier.MinPoints)
		}
		if next := sorted[i+1]; tier.MaxPoints != next.MinPoints-1 {
			return nil, fmt.Errorf("gap between tier %q (max %d) and %q (min %d)",
				tier.Name, tier.MaxPoints, next.Name, next.MinPoints)
		}
	}
	return &TierTable{tiers: sorted}, nil
}

// DefaultTierTable returns the club's membership levels.
func DefaultTierTable() *TierTable {
	table, err := NewTierTable([]Tier{
		{ID: 1, Name: "aspirante", MinPoints: 0, MaxPoints: 249},
		{ID: 2, Name: "explorador", MinPoints: 250, MaxPoints: 499},
		{ID: 3, Name: "participante", MinPoints: 500, MaxPoints: 999},
		{ID: 4, Name: "friend", MinPoints: 1000, MaxPoints: 1499},
		{ID: 5, Name: "rider", MinPoints: 1500, MaxPoints: 2999},
		{ID: 6, Name: "pro", MinPoints: 3000, MaxPoints: 8999},
		{ID: 7, Name: "legend", MinPoints: 9000, MaxPoints: 17999},
		{ID: 8, Name: "master", MinPoints: 18000, MaxPoints: 24999},
		{ID: 9, Name: "volunteer", MinPoints: 25000, MaxPoints: 39999},
		{ID: 10, Name: "leader", MinPoints: 40000, MaxPoints: NoMaxPoints},
	})
	if err != nil {
		panic("default tier table invalid: " + err.Error())
	}
	return table
}

// Tiers returns the ordered tier list.
func (t *TierTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// TierFor returns the tier containing the given point balance.
// Negative balances map to the first tier.
func (t *TierTable) TierFor(points int64) Tier {
	// Binary search for the last tier whose MinPoints <= points.
	idx := sort.Search(len(t.tiers), func(i int) bool { return t.tiers[i].MinPoints > points })
	if idx == 0 {
		return t.tiers[0]
	}
	return t.tiers[idx-1]
}

// ByName looks a tier up by its name.
func (t *TierTable) ByName(name string) (Tier, bool) {
	for _, tier := range t.tiers {
		if tier.Name == name {
			return tier, true
		}
	}
	return Tier{}, false
}

// ByID looks a tier up by its ID.
func (t *TierTable) ByID(id int) (Tier, bool) {
	for _, tier := range t.tiers {
		if tier.ID == id {
			return tier, true
		}
	}
	return Tier{}, false
}

// Progress returns the percentage [0, 100] of the way through the current
// tier's band. At the unbounded top tier progress is always 100.
func (t *TierTable) Progress(points int64) float64 {
	tier := t.TierFor(points)
	if tier.Unbounded() {
		return 100
	}
	width := tier.MaxPoints - tier.MinPoints + 1
	pct := float64(points-tier.MinPoints) / float64(width) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// PointsToNext returns how many points are missing to reach the next tier,
// or 0 at the top tier.
func (t *TierTable) PointsToNext(points int64) int64 {
	tier := t.TierFor(points)
	if tier.Unbounded() {
		return 0
	}
	missing := tier.MaxPoints + 1 - points
	if missing < 0 {
		return 0
	}
	return missing
}
