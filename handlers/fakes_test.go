package handlers

import (
	"context"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
	"github.com/Dosada05/prediction-league/services"
)

type fakeMatchService struct {
	match      *models.Match
	detail     *services.MatchDetail
	matches    []*models.Match
	err        error
	lastFilter repositories.MatchFilter
	lastResult [2]int
	lastStatus models.MatchStatus
}

func (f *fakeMatchService) CreateMatch(_ context.Context, input services.CreateMatchInput) (*models.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Match{ID: 1, HomeTeam: input.HomeTeam, AwayTeam: input.AwayTeam, KickoffAt: input.KickoffAt, Status: models.MatchStatusScheduled}, nil
}

func (f *fakeMatchService) GetMatch(_ context.Context, _ int) (*services.MatchDetail, error) {
	return f.detail, f.err
}

func (f *fakeMatchService) ListMatches(_ context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	f.lastFilter = filter
	return f.matches, f.err
}

func (f *fakeMatchService) RecordResult(_ context.Context, _ int, home, away int) (*models.Match, error) {
	f.lastResult = [2]int{home, away}
	return f.match, f.err
}

func (f *fakeMatchService) UpdateStatus(_ context.Context, _ int, status models.MatchStatus) (*models.Match, error) {
	f.lastStatus = status
	return f.match, f.err
}

type fakeScoringService struct {
	report *services.ScoringReport
	err    error
	calls  int
}

func (f *fakeScoringService) ScoreMatch(_ context.Context, matchID int) (*services.ScoringReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	report := *f.report
	report.MatchID = matchID
	return &report, nil
}

func (f *fakeScoringService) ScorePendingMatches(context.Context) (int, error) {
	return 0, nil
}

type fakeContestantService struct {
	contestant  *models.Contestant
	contestants []*models.Contestant
	err         error
	activeOnly  bool
	deactivated int
}

func (f *fakeContestantService) Register(_ context.Context, input services.RegisterContestantInput) (*models.Contestant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Contestant{ID: 1, Slug: input.Slug, DisplayName: input.DisplayName, Active: true}, nil
}

func (f *fakeContestantService) GetContestant(context.Context, int) (*models.Contestant, error) {
	return f.contestant, f.err
}

func (f *fakeContestantService) ListContestants(_ context.Context, activeOnly bool) ([]*models.Contestant, error) {
	f.activeOnly = activeOnly
	return f.contestants, f.err
}

func (f *fakeContestantService) Deactivate(_ context.Context, id int) error {
	if f.err != nil {
		return f.err
	}
	f.deactivated = id
	return nil
}

type fakePredictionService struct {
	predictions []*models.Prediction
	err         error
	lastInput   services.SubmitPredictionInput
	lastLimit   int
}

func (f *fakePredictionService) Submit(_ context.Context, input services.SubmitPredictionInput) (*models.Prediction, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &models.Prediction{
		ID:            10,
		MatchID:       input.MatchID,
		ContestantID:  input.ContestantID,
		PredictedHome: input.PredictedHome,
		PredictedAway: input.PredictedAway,
		Status:        models.PredictionStatusPending,
	}, nil
}

func (f *fakePredictionService) ListByContestant(_ context.Context, _ int, limit int) ([]*models.Prediction, error) {
	f.lastLimit = limit
	return f.predictions, f.err
}

type fakeLeaderboardService struct {
	lb  *models.Leaderboard
	err error
}

func (f *fakeLeaderboardService) GetLeaderboard(context.Context) (*models.Leaderboard, error) {
	return f.lb, f.err
}

func (f *fakeLeaderboardService) Refresh(context.Context) error { return f.err }
