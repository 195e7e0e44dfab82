package models

import "time"

// LeaderboardEntry - агрегированные показатели участника по scored прогнозам.
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	ContestantID      int     `json:"contestant_id"`
	Slug              string  `json:"slug"`
	DisplayName       string  `json:"display_name"`
	Provider          string  `json:"provider"`
	TotalPoints       int     `json:"total_points"`
	ScoredPredictions int     `json:"scored_predictions"`
	CorrectTendencies int     `json:"correct_tendencies"`
	GoalDiffHits      int     `json:"goal_diff_hits"`
	ExactScores       int     `json:"exact_scores"`
	AveragePoints     float64 `json:"average_points"`
	Accuracy          float64 `json:"accuracy"` // % прогнозов с tendency_points > 0
	CurrentStreak     int     `json:"current_streak"`
	BestStreak        int     `json:"best_streak"`
}

type Leaderboard struct {
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
}
