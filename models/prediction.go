package models

import "time"

type PredictionStatus string

const (
	PredictionStatusPending PredictionStatus = "pending"
	PredictionStatusScored  PredictionStatus = "scored"
)

// Prediction - прогноз одного участника на один матч.
// После перехода в scored все четыре поля очков заполнены.
type Prediction struct {
	ID              int              `json:"id" db:"id"`
	MatchID         int              `json:"match_id" db:"match_id"`
	ContestantID    int              `json:"contestant_id" db:"contestant_id"`
	PredictedHome   int              `json:"predicted_home" db:"predicted_home"`
	PredictedAway   int              `json:"predicted_away" db:"predicted_away"`
	Status          PredictionStatus `json:"status" db:"status"`
	TendencyPoints  *int             `json:"tendency_points,omitempty" db:"tendency_points"`
	GoalDiffBonus   *int             `json:"goal_diff_bonus,omitempty" db:"goal_diff_bonus"`
	ExactScoreBonus *int             `json:"exact_score_bonus,omitempty" db:"exact_score_bonus"`
	TotalPoints     *int             `json:"total_points,omitempty" db:"total_points"`
	ScoredAt        *time.Time       `json:"scored_at,omitempty" db:"scored_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	Contestant *Contestant `json:"contestant,omitempty" db:"-"`
}

func (p *Prediction) IsScored() bool {
	return p.Status == PredictionStatusScored
}
