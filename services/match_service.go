package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
)

type CreateMatchInput struct {
	ExternalID  *string   `json:"external_id"`
	Competition string    `json:"competition"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	KickoffAt   time.Time `json:"kickoff_at"`
}

// MatchDetail is a match together with every prediction made for it.
type MatchDetail struct {
	Match       *models.Match        `json:"match"`
	Predictions []*models.Prediction `json:"predictions"`
}

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*MatchDetail, error)
	ListMatches(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error)
	// RecordResult stores the final score and marks the match finished.
	// The result can be corrected until the match has been scored.
	RecordResult(ctx context.Context, id int, homeGoals, awayGoals int) (*models.Match, error)
	UpdateStatus(ctx context.Context, id int, status models.MatchStatus) (*models.Match, error)
}

type matchService struct {
	tx             repositories.Transactor
	matchRepo      repositories.MatchRepository
	predictionRepo repositories.PredictionRepository
	contestantRepo repositories.ContestantRepository
	hub            Broadcaster
	logger         *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	predictionRepo repositories.PredictionRepository,
	contestantRepo repositories.ContestantRepository,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		contestantRepo: contestantRepo,
		hub:            hub,
		logger:         logger.With(slog.String("service", "match")),
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	match := &models.Match{
		ExternalID:  input.ExternalID,
		Competition: strings.TrimSpace(input.Competition),
		HomeTeam:    strings.TrimSpace(input.HomeTeam),
		AwayTeam:    strings.TrimSpace(input.AwayTeam),
		KickoffAt:   input.KickoffAt.UTC(),
		Status:      models.MatchStatusScheduled,
	}
	switch {
	case match.HomeTeam == "" || match.AwayTeam == "":
		return nil, fmt.Errorf("%w: home_team and away_team are required", ErrValidationFailed)
	case strings.EqualFold(match.HomeTeam, match.AwayTeam):
		return nil, fmt.Errorf("%w: a team cannot play itself", ErrValidationFailed)
	case input.KickoffAt.IsZero():
		return nil, fmt.Errorf("%w: kickoff_at is required", ErrValidationFailed)
	}
	if match.ExternalID != nil && strings.TrimSpace(*match.ExternalID) == "" {
		match.ExternalID = nil
	}

	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		if errors.Is(err, repositories.ErrMatchExternalIDConflict) {
			return nil, ErrMatchConflict
		}
		return nil, storageError("create match", err)
	}
	s.logger.Info("match created", slog.Int("match_id", match.ID), slog.String("home", match.HomeTeam), slog.String("away", match.AwayTeam))
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*MatchDetail, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, s.mapMatchErr(id, err)
	}
	predictions, err := s.predictionRepo.ListByMatch(ctx, nil, id)
	if err != nil {
		return nil, storageError("list predictions", err)
	}

	ids := make([]int, 0, len(predictions))
	for _, p := range predictions {
		ids = append(ids, p.ContestantID)
	}
	contestants, err := s.contestantRepo.ListByIDs(ctx, nil, ids)
	if err != nil {
		return nil, storageError("load contestants", err)
	}
	byID := make(map[int]*models.Contestant, len(contestants))
	for _, c := range contestants {
		byID[c.ID] = c
	}
	for _, p := range predictions {
		p.Contestant = byID[p.ContestantID]
	}

	return &MatchDetail{Match: match, Predictions: predictions}, nil
}

func (s *matchService) ListMatches(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrMatchInvalidStatus, *filter.Status)
	}
	matches, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return nil, storageError("list matches", err)
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

func (s *matchService) RecordResult(ctx context.Context, id int, homeGoals, awayGoals int) (*models.Match, error) {
	if err := validateGoals(homeGoals, awayGoals); err != nil {
		return nil, err
	}

	var updated *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return s.mapMatchErr(id, err)
		}
		if match.ScoredAt != nil {
			return fmt.Errorf("%w: match %d", ErrMatchAlreadyScored, id)
		}
		switch match.Status {
		case models.MatchStatusScheduled, models.MatchStatusLive, models.MatchStatusFinished:
		default:
			return fmt.Errorf("%w: cannot record a result for a %s match", ErrMatchInvalidStatus, match.Status)
		}

		if err := s.matchRepo.UpdateResult(ctx, exec, id, homeGoals, awayGoals); err != nil {
			return storageError("update result", err)
		}
		match.HomeGoals = intPtr(homeGoals)
		match.AwayGoals = intPtr(awayGoals)
		match.Status = models.MatchStatusFinished
		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match result recorded", slog.Int("match_id", id), slog.Int("home_goals", homeGoals), slog.Int("away_goals", awayGoals))
	s.broadcast(updated)
	return updated, nil
}

func (s *matchService) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) (*models.Match, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrMatchInvalidStatus, status)
	}
	if status == models.MatchStatusFinished {
		return nil, fmt.Errorf("%w: use the result endpoint to finish a match", ErrMatchInvalidStatusTransition)
	}

	var updated *models.Match
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return s.mapMatchErr(id, err)
		}
		if !isValidStatusTransition(match.Status, status) {
			return fmt.Errorf("%w: from %s to %s", ErrMatchInvalidStatusTransition, match.Status, status)
		}
		if match.Status != status {
			if err := s.matchRepo.UpdateStatus(ctx, exec, id, status); err != nil {
				return storageError("update status", err)
			}
			match.Status = status
		}
		updated = match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match status updated", slog.Int("match_id", id), slog.String("status", string(status)))
	s.broadcast(updated)
	return updated, nil
}

func (s *matchService) broadcast(match *models.Match) {
	if s.hub == nil {
		return
	}
	room := MatchRoomID(match.ID)
	s.hub.BroadcastToRoom(room, LiveMessage{Type: MessageMatchUpdated, Payload: match, RoomID: room})
}

func (s *matchService) mapMatchErr(id int, err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return fmt.Errorf("%w: id %d", ErrMatchNotFound, id)
	}
	return storageError("load match", err)
}
