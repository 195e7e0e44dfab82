package scoring

import "fmt"

const (
	DefaultGoalDiffBonus   = 1
	DefaultExactScoreBonus = 3
)

// Rules bundles the rarity table with the bonus values. The zero value is
// not usable; start from DefaultRules.
type Rules struct {
	Table           Table `yaml:"table" json:"table"`
	GoalDiffBonus   int   `yaml:"goal_diff_bonus" json:"goal_diff_bonus"`
	ExactScoreBonus int   `yaml:"exact_score_bonus" json:"exact_score_bonus"`
}

func DefaultRules() Rules {
	return Rules{
		Table:           DefaultTable(),
		GoalDiffBonus:   DefaultGoalDiffBonus,
		ExactScoreBonus: DefaultExactScoreBonus,
	}
}

func (r Rules) Validate() error {
	if err := r.Table.Validate(); err != nil {
		return err
	}
	if r.GoalDiffBonus < 0 || r.ExactScoreBonus < 0 {
		return fmt.Errorf("%w: goal diff %d, exact score %d", ErrNegativeBonus, r.GoalDiffBonus, r.ExactScoreBonus)
	}
	return nil
}

// MaxPoints is the best possible total for one prediction (10 by default).
func (r Rules) MaxPoints() int {
	return r.Table.MaxPoints() + r.GoalDiffBonus + r.ExactScoreBonus
}

// ComputeQuotas derives the three quotas from the distribution of predicted
// tendencies. The actual result plays no part here.
func (r Rules) ComputeQuotas(picks []Pick) Quotas {
	var home, draw, away int
	for _, p := range picks {
		switch p.Tendency() {
		case TendencyHome:
			home++
		case TendencyDraw:
			draw++
		case TendencyAway:
			away++
		}
	}
	total := len(picks)
	return Quotas{
		Home: r.Table.PointsFor(home, total),
		Draw: r.Table.PointsFor(draw, total),
		Away: r.Table.PointsFor(away, total),
	}
}

// Score computes the breakdown of a single prediction against the final
// score using quotas fixed for the whole match.
//
// Bonuses only apply on top of a correct tendency; a wrong tendency always
// yields an all-zero breakdown.
func (r Rules) Score(predicted, actual Pick, quotas Quotas) Breakdown {
	actualTendency := actual.Tendency()
	if predicted.Tendency() != actualTendency {
		return Breakdown{}
	}

	b := Breakdown{TendencyPoints: quotas.For(actualTendency)}
	if predicted.Home-predicted.Away == actual.Home-actual.Away {
		b.GoalDiffBonus = r.GoalDiffBonus
	}
	if predicted == actual {
		b.ExactScoreBonus = r.ExactScoreBonus
	}
	b.TotalPoints = b.TendencyPoints + b.GoalDiffBonus + b.ExactScoreBonus
	return b
}

// ComputeQuotas applies DefaultRules.
func ComputeQuotas(picks []Pick) Quotas {
	return DefaultRules().ComputeQuotas(picks)
}

// ScorePrediction applies DefaultRules.
func ScorePrediction(predicted, actual Pick, quotas Quotas) Breakdown {
	return DefaultRules().Score(predicted, actual, quotas)
}
