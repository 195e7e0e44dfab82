package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/prediction-league/models"
	"github.com/lib/pq"
)

var (
	ErrContestantNotFound     = errors.New("contestant not found")
	ErrContestantSlugConflict = errors.New("contestant slug already exists")
)

type ContestantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, contestant *models.Contestant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Contestant, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Contestant, error)
	// ListByIDs returns the contestants that still exist among ids.
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Contestant, error)
	SetActive(ctx context.Context, exec SQLExecutor, id int, active bool) error
}

type postgresContestantRepository struct {
	db *sql.DB
}

func NewPostgresContestantRepository(db *sql.DB) ContestantRepository {
	return &postgresContestantRepository{db: db}
}

const contestantColumns = `id, slug, display_name, provider, active, created_at`

func (r *postgresContestantRepository) Create(ctx context.Context, exec SQLExecutor, contestant *models.Contestant) error {
	query := `
		INSERT INTO contestants (slug, display_name, provider, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		contestant.Slug,
		contestant.DisplayName,
		contestant.Provider,
		contestant.Active,
	).Scan(&contestant.ID, &contestant.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint == "contestants_slug_key" {
		return ErrContestantSlugConflict
	}
	return err
}

func (r *postgresContestantRepository) scanContestant(rowScanner interface{ Scan(...interface{}) error }) (*models.Contestant, error) {
	var c models.Contestant
	err := rowScanner.Scan(&c.ID, &c.Slug, &c.DisplayName, &c.Provider, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestantNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresContestantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Contestant, error) {
	query := `SELECT ` + contestantColumns + ` FROM contestants WHERE id = $1`
	c, err := r.scanContestant(executorOr(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrContestantNotFound) {
		return nil, fmt.Errorf("failed to scan contestant by id %d: %w", id, err)
	}
	return c, err
}

func (r *postgresContestantRepository) queryContestants(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Contestant, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contestants: %w", err)
	}
	defer rows.Close()

	contestants := make([]*models.Contestant, 0)
	for rows.Next() {
		c, scanErr := r.scanContestant(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan contestant row: %w", scanErr)
		}
		contestants = append(contestants, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during contestant rows iteration: %w", err)
	}
	return contestants, nil
}

func (r *postgresContestantRepository) List(ctx context.Context, activeOnly bool) ([]*models.Contestant, error) {
	query := `SELECT ` + contestantColumns + ` FROM contestants`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY display_name ASC, id ASC`
	return r.queryContestants(ctx, r.db, query)
}

func (r *postgresContestantRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Contestant, error) {
	if len(ids) == 0 {
		return []*models.Contestant{}, nil
	}
	query := `SELECT ` + contestantColumns + ` FROM contestants WHERE id = ANY($1) ORDER BY id ASC`
	return r.queryContestants(ctx, executorOr(exec, r.db), query, pq.Array(toInt64s(ids)))
}

func (r *postgresContestantRepository) SetActive(ctx context.Context, exec SQLExecutor, id int, active bool) error {
	query := `UPDATE contestants SET active = $1 WHERE id = $2`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("SetActive: failed to execute query for contestant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrContestantNotFound)
}
