package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
	"github.com/Dosada05/prediction-league/storage"
)

const (
	snapshotLatestKey   = "leaderboards/latest.json"
	snapshotArchiveKey  = "leaderboards/2006/01/02/150405.json"
	snapshotContentType = "application/json"
)

// LeaderboardCache is implemented by cache.RedisLeaderboardCache.
type LeaderboardCache interface {
	Get(ctx context.Context) (*models.Leaderboard, bool, error)
	Set(ctx context.Context, lb *models.Leaderboard) error
	Invalidate(ctx context.Context) error
}

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context) (*models.Leaderboard, error)
	// Refresh drops the cached leaderboard, rebuilds it and publishes a
	// snapshot when an uploader is configured.
	Refresh(ctx context.Context) error
}

type leaderboardService struct {
	repo     repositories.LeaderboardRepository
	cache    LeaderboardCache     // nil без Redis
	uploader storage.FileUploader // nil без R2
	logger   *slog.Logger
	now      func() time.Time
}

func NewLeaderboardService(
	repo repositories.LeaderboardRepository,
	cache LeaderboardCache,
	uploader storage.FileUploader,
	logger *slog.Logger,
) LeaderboardService {
	return &leaderboardService{
		repo:     repo,
		cache:    cache,
		uploader: uploader,
		logger:   logger.With(slog.String("service", "leaderboard")),
		now:      time.Now,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context) (*models.Leaderboard, error) {
	if s.cache != nil {
		lb, ok, err := s.cache.Get(ctx)
		if err != nil {
			// Кэш не критичен: идём в БД.
			s.logger.Warn("leaderboard cache read failed", slog.Any("error", err))
		} else if ok {
			return lb, nil
		}
	}

	lb, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, lb); err != nil {
			s.logger.Warn("leaderboard cache write failed", slog.Any("error", err))
		}
	}
	return lb, nil
}

func (s *leaderboardService) Refresh(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("leaderboard cache invalidation failed", slog.Any("error", err))
		}
	}
	if s.uploader == nil {
		return nil
	}

	lb, err := s.build(ctx)
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, lb); err != nil {
			s.logger.Warn("leaderboard cache write failed", slog.Any("error", err))
		}
	}
	return s.publishSnapshot(ctx, lb)
}

func (s *leaderboardService) build(ctx context.Context) (*models.Leaderboard, error) {
	entries, err := s.repo.Aggregate(ctx, true)
	if err != nil {
		return nil, storageError("aggregate leaderboard", err)
	}
	return RankLeaderboard(entries, s.now().UTC()), nil
}

func (s *leaderboardService) publishSnapshot(ctx context.Context, lb *models.Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard snapshot: %w", err)
	}
	keys := []string{lb.GeneratedAt.Format(snapshotArchiveKey), snapshotLatestKey}
	for _, key := range keys {
		result, err := s.uploader.Upload(ctx, key, snapshotContentType, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to publish leaderboard snapshot: %w", err)
		}
		s.logger.Info("leaderboard snapshot published", slog.String("key", result.Key), slog.String("location", result.Location))
	}
	return nil
}

// RankLeaderboard fills derived fields and orders entries by total points,
// then average points, then contestant id. Entries level on both points
// and average share a rank.
func RankLeaderboard(entries []*models.LeaderboardEntry, generatedAt time.Time) *models.Leaderboard {
	ranked := make([]models.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		entry := *e
		if entry.ScoredPredictions > 0 {
			n := float64(entry.ScoredPredictions)
			entry.AveragePoints = round(float64(entry.TotalPoints)/n, 2)
			entry.Accuracy = round(float64(entry.CorrectTendencies)*100/n, 1)
		} else {
			entry.AveragePoints = 0
			entry.Accuracy = 0
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.AveragePoints != b.AveragePoints {
			return a.AveragePoints > b.AveragePoints
		}
		return a.ContestantID < b.ContestantID
	})

	for i := range ranked {
		if i > 0 && ranked[i].TotalPoints == ranked[i-1].TotalPoints && ranked[i].AveragePoints == ranked[i-1].AveragePoints {
			ranked[i].Rank = ranked[i-1].Rank
			continue
		}
		ranked[i].Rank = i + 1
	}

	return &models.Leaderboard{Entries: ranked, GeneratedAt: generatedAt}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
