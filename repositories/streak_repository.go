package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/lib/pq"
)

type StreakRepository interface {
	ListByContestants(ctx context.Context, exec SQLExecutor, contestantIDs []int) (map[int]*models.ContestantStreak, error)
	Upsert(ctx context.Context, exec SQLExecutor, streak *models.ContestantStreak) error
}

type postgresStreakRepository struct {
	db *sql.DB
}

func NewPostgresStreakRepository(db *sql.DB) StreakRepository {
	return &postgresStreakRepository{db: db}
}

func (r *postgresStreakRepository) ListByContestants(ctx context.Context, exec SQLExecutor, contestantIDs []int) (map[int]*models.ContestantStreak, error) {
	streaks := make(map[int]*models.ContestantStreak, len(contestantIDs))
	if len(contestantIDs) == 0 {
		return streaks, nil
	}

	query := `
		SELECT contestant_id, current_streak, best_streak, last_match_id, updated_at
		FROM contestant_streaks
		WHERE contestant_id = ANY($1)`
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, pq.Array(toInt64s(contestantIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to query contestant streaks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ContestantStreak
		if err := rows.Scan(&s.ContestantID, &s.Current, &s.Best, &s.LastMatchID, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contestant streak row: %w", err)
		}
		streaks[s.ContestantID] = &s
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during contestant streak rows iteration: %w", err)
	}
	return streaks, nil
}

func (r *postgresStreakRepository) Upsert(ctx context.Context, exec SQLExecutor, streak *models.ContestantStreak) error {
	if streak.UpdatedAt.IsZero() {
		streak.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO contestant_streaks (contestant_id, current_streak, best_streak, last_match_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contestant_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			best_streak = EXCLUDED.best_streak,
			last_match_id = EXCLUDED.last_match_id,
			updated_at = EXCLUDED.updated_at`

	_, err := executorOr(exec, r.db).ExecContext(ctx, query,
		streak.ContestantID, streak.Current, streak.Best, streak.LastMatchID, streak.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: failed to save streak for contestant %d: %w", streak.ContestantID, err)
	}
	return nil
}
