package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/scoring"
	"github.com/lib/pq"
)

var (
	ErrPredictionNotFound     = errors.New("prediction not found")
	ErrPredictionConflict     = errors.New("contestant already submitted a prediction for this match")
	ErrPredictionMatchInvalid = errors.New("prediction match conflict or invalid")
)

// ScoreUpdate is the computed breakdown for one pending prediction.
type ScoreUpdate struct {
	PredictionID int
	Breakdown    scoring.Breakdown
}

type PredictionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, prediction *models.Prediction) error
	// ListByMatch returns every prediction for the match regardless of status.
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Prediction, error)
	ListByContestant(ctx context.Context, contestantID int, limit int) ([]*models.Prediction, error)
	// ApplyScores writes all updates in one statement. Only rows still in
	// pending status are touched; the number of rows changed is returned.
	ApplyScores(ctx context.Context, exec SQLExecutor, updates []ScoreUpdate, scoredAt time.Time) (int64, error)
}

type postgresPredictionRepository struct {
	db *sql.DB
}

func NewPostgresPredictionRepository(db *sql.DB) PredictionRepository {
	return &postgresPredictionRepository{db: db}
}

const predictionColumns = `id, match_id, contestant_id, predicted_home, predicted_away, status,
		       tendency_points, goal_diff_bonus, exact_score_bonus, total_points, scored_at, created_at`

func (r *postgresPredictionRepository) Create(ctx context.Context, exec SQLExecutor, prediction *models.Prediction) error {
	query := `
		INSERT INTO predictions (match_id, contestant_id, predicted_home, predicted_away, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	prediction.Status = models.PredictionStatusPending
	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		prediction.MatchID,
		prediction.ContestantID,
		prediction.PredictedHome,
		prediction.PredictedAway,
		prediction.Status,
	).Scan(&prediction.ID, &prediction.CreatedAt)

	return r.handlePredictionError(err)
}

func (r *postgresPredictionRepository) scanPrediction(rowScanner interface{ Scan(...interface{}) error }) (*models.Prediction, error) {
	var p models.Prediction
	err := rowScanner.Scan(
		&p.ID,
		&p.MatchID,
		&p.ContestantID,
		&p.PredictedHome,
		&p.PredictedAway,
		&p.Status,
		&p.TendencyPoints,
		&p.GoalDiffBonus,
		&p.ExactScoreBonus,
		&p.TotalPoints,
		&p.ScoredAt,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresPredictionRepository) queryPredictions(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Prediction, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	predictions := make([]*models.Prediction, 0)
	for rows.Next() {
		p, scanErr := r.scanPrediction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", scanErr)
		}
		predictions = append(predictions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during prediction rows iteration: %w", err)
	}
	return predictions, nil
}

func (r *postgresPredictionRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE match_id = $1 ORDER BY id ASC`
	return r.queryPredictions(ctx, executorOr(exec, r.db), query, matchID)
}

func (r *postgresPredictionRepository) ListByContestant(ctx context.Context, contestantID int, limit int) ([]*models.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE contestant_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.queryPredictions(ctx, r.db, query, contestantID, limit)
}

func (r *postgresPredictionRepository) ApplyScores(ctx context.Context, exec SQLExecutor, updates []ScoreUpdate, scoredAt time.Time) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(updates))
	tendency := make([]int64, len(updates))
	goalDiff := make([]int64, len(updates))
	exact := make([]int64, len(updates))
	total := make([]int64, len(updates))
	for i, u := range updates {
		ids[i] = int64(u.PredictionID)
		tendency[i] = int64(u.Breakdown.TendencyPoints)
		goalDiff[i] = int64(u.Breakdown.GoalDiffBonus)
		exact[i] = int64(u.Breakdown.ExactScoreBonus)
		total[i] = int64(u.Breakdown.TotalPoints)
	}

	query := `
		UPDATE predictions AS p
		SET tendency_points = u.tendency_points,
		    goal_diff_bonus = u.goal_diff_bonus,
		    exact_score_bonus = u.exact_score_bonus,
		    total_points = u.total_points,
		    status = $6,
		    scored_at = $7
		FROM unnest($1::int[], $2::int[], $3::int[], $4::int[], $5::int[])
		     AS u(id, tendency_points, goal_diff_bonus, exact_score_bonus, total_points)
		WHERE p.id = u.id AND p.status = $8`

	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		pq.Array(ids),
		pq.Array(tendency),
		pq.Array(goalDiff),
		pq.Array(exact),
		pq.Array(total),
		models.PredictionStatusScored,
		scoredAt,
		models.PredictionStatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("ApplyScores: failed to update %d predictions: %w", len(updates), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected, nil
}

func (r *postgresPredictionRepository) handlePredictionError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// "23503": foreign_key_violation
		// "23505": unique_violation
		switch pqErr.Constraint {
		case "predictions_match_id_contestant_id_key":
			return ErrPredictionConflict
		case "predictions_match_id_fkey":
			return ErrPredictionMatchInvalid
		}
	}
	return err
}
