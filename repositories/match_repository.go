package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/scoring"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound           = errors.New("match not found")
	ErrMatchExternalIDConflict = errors.New("match external id already exists")
)

type MatchFilter struct {
	Status *models.MatchStatus
	Limit  int
	Offset int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetForUpdate reads the match and holds a row lock until exec's
	// transaction ends. exec must be a transaction.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	List(ctx context.Context, filter MatchFilter) ([]*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, homeGoals, awayGoals int) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	SaveQuotas(ctx context.Context, exec SQLExecutor, id int, quotas scoring.Quotas) error
	MarkScored(ctx context.Context, exec SQLExecutor, id int, scoredAt time.Time) error
	// ListAwaitingScoring returns finished matches that still have pending predictions.
	ListAwaitingScoring(ctx context.Context, limit int) ([]int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, external_id, competition, home_team, away_team, kickoff_at, status,
		       home_goals, away_goals, quota_home, quota_draw, quota_away, scored_at, created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (external_id, competition, home_team, away_team, kickoff_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}
	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		match.ExternalID,
		match.Competition,
		match.HomeTeam,
		match.AwayTeam,
		match.KickoffAt,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID,
		&m.ExternalID,
		&m.Competition,
		&m.HomeTeam,
		&m.AwayTeam,
		&m.KickoffAt,
		&m.Status,
		&m.HomeGoals,
		&m.AwayGoals,
		&m.QuotaHome,
		&m.QuotaDraw,
		&m.QuotaAway,
		&m.ScoredAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	match, err := r.scanMatch(executorOr(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, err
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		return nil, errors.New("GetForUpdate: transaction is required")
	}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	match, err := r.scanMatch(exec.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to lock match %d: %w", id, err)
	}
	return match, err
}

func (r *postgresMatchRepository) List(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches`)

	args := []interface{}{}
	placeholderIndex := 1

	if filter.Status != nil {
		queryBuilder.WriteString(" WHERE status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
		placeholderIndex++
	}

	queryBuilder.WriteString(" ORDER BY kickoff_at DESC, id DESC")

	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, filter.Limit)
		placeholderIndex++
	}
	if filter.Offset > 0 {
		queryBuilder.WriteString(" OFFSET $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, homeGoals, awayGoals int) error {
	query := `
		UPDATE matches
		SET home_goals = $1, away_goals = $2, status = $3, updated_at = NOW()
		WHERE id = $4`

	result, err := executorOr(exec, r.db).ExecContext(ctx, query, homeGoals, awayGoals, models.MatchStatusFinished, id)
	if err != nil {
		return fmt.Errorf("UpdateResult: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	query := `UPDATE matches SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SaveQuotas(ctx context.Context, exec SQLExecutor, id int, quotas scoring.Quotas) error {
	// Квоты записываются один раз: повторный вызов не перезаписывает их.
	query := `
		UPDATE matches
		SET quota_home = $1, quota_draw = $2, quota_away = $3, updated_at = NOW()
		WHERE id = $4 AND quota_home IS NULL`

	result, err := executorOr(exec, r.db).ExecContext(ctx, query, quotas.Home, quotas.Draw, quotas.Away, id)
	if err != nil {
		return fmt.Errorf("SaveQuotas: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkScored(ctx context.Context, exec SQLExecutor, id int, scoredAt time.Time) error {
	query := `UPDATE matches SET scored_at = $1, updated_at = NOW() WHERE id = $2`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, scoredAt, id)
	if err != nil {
		return fmt.Errorf("MarkScored: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ListAwaitingScoring(ctx context.Context, limit int) ([]int, error) {
	query := `
		SELECT m.id
		FROM matches m
		WHERE m.status = $1
		  AND m.home_goals IS NOT NULL AND m.away_goals IS NOT NULL
		  AND EXISTS (SELECT 1 FROM predictions p WHERE p.match_id = m.id AND p.status = $2)
		ORDER BY m.kickoff_at ASC, m.id ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, models.MatchStatusFinished, models.PredictionStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches awaiting scoring: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan match id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match id rows iteration: %w", err)
	}
	return ids, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// "23505": unique_violation
		if pqErr.Code == "23505" && pqErr.Constraint == "matches_external_id_key" {
			return ErrMatchExternalIDConflict
		}
	}
	return err
}
