package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/prediction-league/models"
)

type LeaderboardRepository interface {
	// Aggregate sums scored predictions per contestant. Rank, AveragePoints
	// and Accuracy are left for the caller.
	Aggregate(ctx context.Context, activeOnly bool) ([]*models.LeaderboardEntry, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) Aggregate(ctx context.Context, activeOnly bool) ([]*models.LeaderboardEntry, error) {
	// Верная тенденция = tendency_points > 0, а не просто NOT NULL.
	query := `
		SELECT c.id, c.slug, c.display_name, c.provider,
		       COALESCE(SUM(p.total_points), 0),
		       COUNT(p.id),
		       COUNT(p.id) FILTER (WHERE p.tendency_points > 0),
		       COUNT(p.id) FILTER (WHERE p.goal_diff_bonus > 0),
		       COUNT(p.id) FILTER (WHERE p.exact_score_bonus > 0),
		       COALESCE(s.current_streak, 0),
		       COALESCE(s.best_streak, 0)
		FROM contestants c
		LEFT JOIN predictions p ON p.contestant_id = c.id AND p.status = $1
		LEFT JOIN contestant_streaks s ON s.contestant_id = c.id
		WHERE (NOT $2::boolean OR c.active)
		GROUP BY c.id, c.slug, c.display_name, c.provider, s.current_streak, s.best_streak
		ORDER BY COALESCE(SUM(p.total_points), 0) DESC, c.id ASC`

	rows, err := r.db.QueryContext(ctx, query, models.PredictionStatusScored, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(
			&e.ContestantID,
			&e.Slug,
			&e.DisplayName,
			&e.Provider,
			&e.TotalPoints,
			&e.ScoredPredictions,
			&e.CorrectTendencies,
			&e.GoalDiffHits,
			&e.ExactScores,
			&e.CurrentStreak,
			&e.BestStreak,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during leaderboard rows iteration: %w", err)
	}
	return entries, nil
}
