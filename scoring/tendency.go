package scoring

import "fmt"

// Tendency is the coarse outcome of a scoreline.
type Tendency string

const (
	TendencyHome Tendency = "home"
	TendencyDraw Tendency = "draw"
	TendencyAway Tendency = "away"
)

// Tendencies lists every outcome category in display order.
var Tendencies = []Tendency{TendencyHome, TendencyDraw, TendencyAway}

func TendencyOf(homeGoals, awayGoals int) Tendency {
	switch {
	case homeGoals > awayGoals:
		return TendencyHome
	case homeGoals < awayGoals:
		return TendencyAway
	default:
		return TendencyDraw
	}
}

// Quotas holds the per-match point value of each tendency.
type Quotas struct {
	Home int `json:"home"`
	Draw int `json:"draw"`
	Away int `json:"away"`
}

func (q Quotas) For(t Tendency) int {
	switch t {
	case TendencyHome:
		return q.Home
	case TendencyDraw:
		return q.Draw
	case TendencyAway:
		return q.Away
	}
	panic(fmt.Sprintf("scoring: unknown tendency %q", string(t)))
}

// Pick is a predicted scoreline.
type Pick struct {
	Home int
	Away int
}

func (p Pick) Tendency() Tendency {
	return TendencyOf(p.Home, p.Away)
}

// Breakdown is the point split for one scored prediction.
type Breakdown struct {
	TendencyPoints  int `json:"tendency_points"`
	GoalDiffBonus   int `json:"goal_diff_bonus"`
	ExactScoreBonus int `json:"exact_score_bonus"`
	TotalPoints     int `json:"total_points"`
}

// CorrectTendency reports whether the prediction got the outcome right.
// Zero tendency points is a valid scored state, so callers must not use
// nil-ness of a stored value for this.
func (b Breakdown) CorrectTendency() bool {
	return b.TendencyPoints > 0
}
