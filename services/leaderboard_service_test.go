package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/prediction-league/models"
)

func TestRankLeaderboard(t *testing.T) {
	at := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	entries := []*models.LeaderboardEntry{
		{ContestantID: 4, TotalPoints: 20, ScoredPredictions: 5, CorrectTendencies: 3},
		{ContestantID: 2, TotalPoints: 20, ScoredPredictions: 4, CorrectTendencies: 4},
		{ContestantID: 3, TotalPoints: 20, ScoredPredictions: 4, CorrectTendencies: 2},
		{ContestantID: 1, TotalPoints: 0, ScoredPredictions: 0},
		{ContestantID: 5, TotalPoints: 31, ScoredPredictions: 6, CorrectTendencies: 5},
	}

	lb := RankLeaderboard(entries, at)

	want := []struct {
		id   int
		rank int
		avg  float64
		acc  float64
	}{
		{5, 1, 5.17, 83.3},
		{2, 2, 5, 100},
		{3, 2, 5, 50},
		{4, 4, 4, 60},
		{1, 5, 0, 0},
	}
	if len(lb.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(lb.Entries), len(want))
	}
	for i, w := range want {
		got := lb.Entries[i]
		if got.ContestantID != w.id || got.Rank != w.rank || got.AveragePoints != w.avg || got.Accuracy != w.acc {
			t.Errorf("Entries[%d] = {id %d rank %d avg %v acc %v}, want %+v", i, got.ContestantID, got.Rank, got.AveragePoints, got.Accuracy, w)
		}
	}
	if !lb.GeneratedAt.Equal(at) {
		t.Errorf("GeneratedAt = %v, want %v", lb.GeneratedAt, at)
	}
	if entries[0].Rank != 0 {
		t.Error("RankLeaderboard mutated its input")
	}
}

func TestLeaderboardService_GetUsesCache(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []*models.LeaderboardEntry{{ContestantID: 1, TotalPoints: 7, ScoredPredictions: 1, CorrectTendencies: 1}}}
	cache := &fakeCache{}
	svc := NewLeaderboardService(repo, cache, nil, discardLogger())

	for i := 0; i < 3; i++ {
		lb, err := svc.GetLeaderboard(context.Background())
		if err != nil {
			t.Fatalf("GetLeaderboard() error = %v", err)
		}
		if len(lb.Entries) != 1 || lb.Entries[0].Rank != 1 {
			t.Fatalf("entries = %+v", lb.Entries)
		}
	}
	if repo.calls != 1 {
		t.Errorf("repository calls = %d, want 1", repo.calls)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestLeaderboardService_CacheErrorFallsBack(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []*models.LeaderboardEntry{}}
	cache := &fakeCache{getErr: errors.New("redis: connection refused")}
	svc := NewLeaderboardService(repo, cache, nil, discardLogger())

	if _, err := svc.GetLeaderboard(context.Background()); err != nil {
		t.Fatalf("GetLeaderboard() error = %v", err)
	}
	if repo.calls != 1 {
		t.Errorf("repository calls = %d, want 1", repo.calls)
	}
}

func TestLeaderboardService_StorageError(t *testing.T) {
	repo := &fakeLeaderboardRepo{err: errors.New("pq: too many connections")}
	svc := NewLeaderboardService(repo, nil, nil, discardLogger())

	if _, err := svc.GetLeaderboard(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("GetLeaderboard() error = %v, want %v", err, ErrStorageUnavailable)
	}
}

func TestLeaderboardService_RefreshWithoutUploader(t *testing.T) {
	repo := &fakeLeaderboardRepo{}
	cache := &fakeCache{lb: &models.Leaderboard{}}
	svc := NewLeaderboardService(repo, cache, nil, discardLogger())

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if cache.invalidated != 1 || cache.lb != nil {
		t.Errorf("cache not invalidated: %+v", cache)
	}
	if repo.calls != 0 {
		t.Errorf("repository calls = %d, want 0", repo.calls)
	}
}

func TestLeaderboardService_RefreshPublishesSnapshot(t *testing.T) {
	repo := &fakeLeaderboardRepo{entries: []*models.LeaderboardEntry{{ContestantID: 9, Slug: "x/y", TotalPoints: 3, ScoredPredictions: 1, CorrectTendencies: 1}}}
	cache := &fakeCache{}
	uploader := &fakeUploader{}
	svc := NewLeaderboardService(repo, cache, uploader, discardLogger()).(*leaderboardService)
	svc.now = func() time.Time { return time.Date(2026, 5, 2, 21, 4, 5, 0, time.UTC) }

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	for _, key := range []string{"leaderboards/latest.json", "leaderboards/2026/05/02/210405.json"} {
		data, ok := uploader.objects[key]
		if !ok {
			t.Fatalf("object %s not uploaded; have %v", key, uploader.objects)
		}
		var lb models.Leaderboard
		if err := json.Unmarshal(data, &lb); err != nil {
			t.Fatalf("snapshot %s is not JSON: %v", key, err)
		}
		if len(lb.Entries) != 1 || lb.Entries[0].Slug != "x/y" {
			t.Errorf("snapshot %s entries = %+v", key, lb.Entries)
		}
	}
	if cache.lb == nil {
		t.Error("cache not refilled after refresh")
	}

	uploader.err = errors.New("403 Forbidden")
	if err := svc.Refresh(context.Background()); err == nil {
		t.Error("Refresh() succeeded with failing uploader")
	}
}
