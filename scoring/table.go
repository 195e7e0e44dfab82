package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTable       = errors.New("rarity table has no tiers")
	ErrTierOrder        = errors.New("rarity tiers must be ordered by descending share")
	ErrTierPoints       = errors.New("rarity tier points must grow as share shrinks")
	ErrTierPercentRange = errors.New("rarity tier percent must be within 0..100")
	ErrNegativeBonus    = errors.New("bonus points must not be negative")
)

// Tier maps "share of picks at or above MinPercent" to Points.
// With Exclusive set the share must be strictly above MinPercent.
type Tier struct {
	MinPercent int  `yaml:"min_percent" json:"min_percent"`
	Exclusive  bool `yaml:"exclusive" json:"exclusive"`
	Points     int  `yaml:"points" json:"points"`
}

func (t Tier) matches(count, total int) bool {
	// count/total vs MinPercent/100, compared in integers.
	lhs := count * 100
	rhs := t.MinPercent * total
	if t.Exclusive {
		return lhs > rhs
	}
	return lhs >= rhs
}

// Table is an ordered rarity table. Tiers are checked top-down; a share
// below every tier earns FloorPoints.
type Table struct {
	Tiers       []Tier `yaml:"tiers" json:"tiers"`
	FloorPoints int    `yaml:"floor_points" json:"floor_points"`
}

// DefaultTable is the Kicktipp-style table:
// >75% -> 2, 50-75% -> 3, 25-50% -> 4, 10-25% -> 5, <10% -> 6.
func DefaultTable() Table {
	return Table{
		Tiers: []Tier{
			{MinPercent: 75, Exclusive: true, Points: 2},
			{MinPercent: 50, Points: 3},
			{MinPercent: 25, Points: 4},
			{MinPercent: 10, Points: 5},
		},
		FloorPoints: 6,
	}
}

// PointsFor returns the tier points for count picks out of total.
// A category nobody picked (or an empty pick set) gets the floor tier.
func (t Table) PointsFor(count, total int) int {
	if total <= 0 || count <= 0 {
		return t.FloorPoints
	}
	for _, tier := range t.Tiers {
		if tier.matches(count, total) {
			return tier.Points
		}
	}
	return t.FloorPoints
}

// MaxPoints is the highest value any quota can take.
func (t Table) MaxPoints() int {
	maxPoints := t.FloorPoints
	for _, tier := range t.Tiers {
		if tier.Points > maxPoints {
			maxPoints = tier.Points
		}
	}
	return maxPoints
}

func (t Table) Validate() error {
	if len(t.Tiers) == 0 {
		return ErrEmptyTable
	}
	for i, tier := range t.Tiers {
		if tier.MinPercent < 0 || tier.MinPercent > 100 {
			return fmt.Errorf("%w: tier %d has %d", ErrTierPercentRange, i, tier.MinPercent)
		}
		if tier.Points < 0 {
			return fmt.Errorf("%w: tier %d has %d points", ErrTierPoints, i, tier.Points)
		}
		if i == 0 {
			continue
		}
		prev := t.Tiers[i-1]
		if tier.MinPercent > prev.MinPercent || (tier.MinPercent == prev.MinPercent && !prev.Exclusive) {
			return fmt.Errorf("%w: tier %d (%d%%) after tier %d (%d%%)", ErrTierOrder, i, tier.MinPercent, i-1, prev.MinPercent)
		}
		if tier.Points < prev.Points {
			return fmt.Errorf("%w: tier %d awards %d, tier %d awards %d", ErrTierPoints, i, tier.Points, i-1, prev.Points)
		}
	}
	if last := t.Tiers[len(t.Tiers)-1]; t.FloorPoints < last.Points {
		return fmt.Errorf("%w: floor %d below last tier %d", ErrTierPoints, t.FloorPoints, last.Points)
	}
	return nil
}
