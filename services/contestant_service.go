package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
)

// Slugs look like model ids: "openai/gpt-4o", "meta-llama/llama-3.1-70b".
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*(/[a-z0-9][a-z0-9._:-]*)?$`)

type RegisterContestantInput struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
}

type ContestantService interface {
	Register(ctx context.Context, input RegisterContestantInput) (*models.Contestant, error)
	GetContestant(ctx context.Context, id int) (*models.Contestant, error)
	ListContestants(ctx context.Context, activeOnly bool) ([]*models.Contestant, error)
	// Deactivate stops a contestant from submitting new predictions.
	// Its scored history stays in place.
	Deactivate(ctx context.Context, id int) error
}

type contestantService struct {
	contestantRepo repositories.ContestantRepository
	leaderboard    LeaderboardService
	logger         *slog.Logger
}

func NewContestantService(
	contestantRepo repositories.ContestantRepository,
	leaderboard LeaderboardService,
	logger *slog.Logger,
) ContestantService {
	return &contestantService{
		contestantRepo: contestantRepo,
		leaderboard:    leaderboard,
		logger:         logger.With(slog.String("service", "contestant")),
	}
}

func (s *contestantService) Register(ctx context.Context, input RegisterContestantInput) (*models.Contestant, error) {
	contestant := &models.Contestant{
		Slug:        normalizeSlug(input.Slug),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Provider:    strings.TrimSpace(input.Provider),
		Active:      true,
	}
	if !slugPattern.MatchString(contestant.Slug) {
		return nil, fmt.Errorf("%w: invalid slug %q", ErrValidationFailed, input.Slug)
	}
	if contestant.DisplayName == "" {
		contestant.DisplayName = contestant.Slug
	}
	if contestant.Provider == "" {
		if i := strings.IndexByte(contestant.Slug, '/'); i > 0 {
			contestant.Provider = contestant.Slug[:i]
		}
	}

	if err := s.contestantRepo.Create(ctx, nil, contestant); err != nil {
		if errors.Is(err, repositories.ErrContestantSlugConflict) {
			return nil, ErrContestantSlugConflict
		}
		return nil, storageError("create contestant", err)
	}
	s.logger.Info("contestant registered", slog.Int("contestant_id", contestant.ID), slog.String("slug", contestant.Slug))
	return contestant, nil
}

func (s *contestantService) GetContestant(ctx context.Context, id int) (*models.Contestant, error) {
	contestant, err := s.contestantRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrContestantNotFound, id)
		}
		return nil, storageError("load contestant", err)
	}
	return contestant, nil
}

func (s *contestantService) ListContestants(ctx context.Context, activeOnly bool) ([]*models.Contestant, error) {
	contestants, err := s.contestantRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, storageError("list contestants", err)
	}
	if contestants == nil {
		return []*models.Contestant{}, nil
	}
	return contestants, nil
}

func (s *contestantService) Deactivate(ctx context.Context, id int) error {
	if err := s.contestantRepo.SetActive(ctx, nil, id, false); err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return fmt.Errorf("%w: id %d", ErrContestantNotFound, id)
		}
		return storageError("deactivate contestant", err)
	}
	s.logger.Info("contestant deactivated", slog.Int("contestant_id", id))

	// Лидерборд показывает только активных участников.
	if s.leaderboard != nil {
		if err := s.leaderboard.Refresh(ctx); err != nil {
			s.logger.Warn("leaderboard refresh after deactivation failed", slog.Any("error", err))
		}
	}
	return nil
}
