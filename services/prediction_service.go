package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type SubmitPredictionInput struct {
	MatchID       int `json:"match_id"`
	ContestantID  int `json:"contestant_id"`
	PredictedHome int `json:"predicted_home"`
	PredictedAway int `json:"predicted_away"`
}

type PredictionService interface {
	// Submit stores a pending prediction. Predictions are accepted only for
	// scheduled matches before kickoff and only from active contestants.
	Submit(ctx context.Context, input SubmitPredictionInput) (*models.Prediction, error)
	ListByContestant(ctx context.Context, contestantID int, limit int) ([]*models.Prediction, error)
}

type predictionService struct {
	predictionRepo repositories.PredictionRepository
	matchRepo      repositories.MatchRepository
	contestantRepo repositories.ContestantRepository
	logger         *slog.Logger
	now            func() time.Time
}

func NewPredictionService(
	predictionRepo repositories.PredictionRepository,
	matchRepo repositories.MatchRepository,
	contestantRepo repositories.ContestantRepository,
	logger *slog.Logger,
) PredictionService {
	return &predictionService{
		predictionRepo: predictionRepo,
		matchRepo:      matchRepo,
		contestantRepo: contestantRepo,
		logger:         logger.With(slog.String("service", "prediction")),
		now:            time.Now,
	}
}

func (s *predictionService) Submit(ctx context.Context, input SubmitPredictionInput) (*models.Prediction, error) {
	if input.MatchID <= 0 || input.ContestantID <= 0 {
		return nil, fmt.Errorf("%w: match_id and contestant_id are required", ErrValidationFailed)
	}
	if err := validateGoals(input.PredictedHome, input.PredictedAway); err != nil {
		return nil, err
	}

	match, err := s.matchRepo.GetByID(ctx, nil, input.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, input.MatchID)
		}
		return nil, storageError("load match", err)
	}
	if match.Status != models.MatchStatusScheduled || !s.now().Before(match.KickoffAt) {
		return nil, fmt.Errorf("%w: match %d kicked off at %s", ErrPredictionWindowClosed, match.ID, match.KickoffAt.Format(time.RFC3339))
	}

	contestant, err := s.contestantRepo.GetByID(ctx, nil, input.ContestantID)
	if err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrContestantNotFound, input.ContestantID)
		}
		return nil, storageError("load contestant", err)
	}
	if !contestant.Active {
		return nil, fmt.Errorf("%w: %s", ErrContestantInactive, contestant.Slug)
	}

	prediction := &models.Prediction{
		MatchID:       match.ID,
		ContestantID:  contestant.ID,
		PredictedHome: input.PredictedHome,
		PredictedAway: input.PredictedAway,
	}
	if err := s.predictionRepo.Create(ctx, nil, prediction); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPredictionConflict):
			return nil, ErrPredictionConflict
		case errors.Is(err, repositories.ErrPredictionMatchInvalid):
			return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, input.MatchID)
		}
		return nil, storageError("create prediction", err)
	}

	s.logger.Info("prediction submitted",
		slog.Int("prediction_id", prediction.ID),
		slog.Int("match_id", prediction.MatchID),
		slog.String("contestant", contestant.Slug),
	)
	prediction.Contestant = contestant
	return prediction, nil
}

func (s *predictionService) ListByContestant(ctx context.Context, contestantID int, limit int) ([]*models.Prediction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if _, err := s.contestantRepo.GetByID(ctx, nil, contestantID); err != nil {
		if errors.Is(err, repositories.ErrContestantNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrContestantNotFound, contestantID)
		}
		return nil, storageError("load contestant", err)
	}
	predictions, err := s.predictionRepo.ListByContestant(ctx, contestantID, limit)
	if err != nil {
		return nil, storageError("list predictions", err)
	}
	if predictions == nil {
		return []*models.Prediction{}, nil
	}
	return predictions, nil
}
