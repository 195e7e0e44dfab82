package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
	"github.com/Dosada05/prediction-league/scoring"
	"github.com/Dosada05/prediction-league/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore keeps rows by value so a transaction snapshot is a map clone.
type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	matches     map[int]models.Match
	predictions map[int]models.Prediction
	contestants map[int]models.Contestant
	streaks     map[int]models.ContestantStreak

	applyScoresErr error
	upsertErr      error
	applyCalls     int
	quotaWrites    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches:     make(map[int]models.Match),
		predictions: make(map[int]models.Prediction),
		contestants: make(map[int]models.Contestant),
		streaks:     make(map[int]models.ContestantStreak),
	}
}

type storeSnapshot struct {
	matches     map[int]models.Match
	predictions map[int]models.Prediction
	contestants map[int]models.Contestant
	streaks     map[int]models.ContestantStreak
}

func (s *fakeStore) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		matches:     maps.Clone(s.matches),
		predictions: maps.Clone(s.predictions),
		contestants: maps.Clone(s.contestants),
		streaks:     maps.Clone(s.streaks),
	}
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = snap.matches
	s.predictions = snap.predictions
	s.contestants = snap.contestants
	s.streaks = snap.streaks
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addContestant(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.contestants[id] = models.Contestant{ID: id, Slug: slug, DisplayName: slug, Active: true}
	return id
}

func (s *fakeStore) addMatch(m models.Match) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	if m.Status == "" {
		m.Status = models.MatchStatusScheduled
	}
	s.matches[m.ID] = m
	return m.ID
}

func (s *fakeStore) addFinishedMatch(home, away int) int {
	return s.addMatch(models.Match{
		HomeTeam:  "Home",
		AwayTeam:  "Away",
		KickoffAt: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		Status:    models.MatchStatusFinished,
		HomeGoals: intPtr(home),
		AwayGoals: intPtr(away),
	})
}

func (s *fakeStore) addPrediction(matchID, contestantID, home, away int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.predictions[id] = models.Prediction{
		ID:            id,
		MatchID:       matchID,
		ContestantID:  contestantID,
		PredictedHome: home,
		PredictedAway: away,
		Status:        models.PredictionStatusPending,
	}
	return id
}

func (s *fakeStore) match(id int) models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[id]
}

func (s *fakeStore) prediction(id int) models.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.predictions[id]
}

func (s *fakeStore) streak(contestantID int) (models.ContestantStreak, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streaks[contestantID]
	return st, ok
}

// fakeTx only marks that a call runs inside a transaction.
type fakeTx struct{}

func (fakeTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("fakeTx: no SQL")
}

func (fakeTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("fakeTx: no SQL")
}

func (fakeTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

// fakeTransactor serializes transactions the way a row lock would and
// restores the store snapshot on error or panic.
type fakeTransactor struct {
	store      *fakeStore
	txMu       sync.Mutex
	begun      int
	rolledBack int
}

func (t *fakeTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) (err error) {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	t.begun++
	snap := t.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snap)
			t.rolledBack++
			panic(p)
		}
		if err != nil {
			t.store.restore(snap)
			t.rolledBack++
		}
	}()
	return fn(fakeTx{})
}

type fakeMatchRepo struct{ s *fakeStore }

func (r fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ExternalID != nil {
		for _, existing := range r.s.matches {
			if existing.ExternalID != nil && *existing.ExternalID == *m.ExternalID {
				return repositories.ErrMatchExternalIDConflict
			}
		}
	}
	m.ID = r.s.id()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.s.matches[m.ID] = *m
	return nil
}

func (r fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r fakeMatchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		return nil, errors.New("GetForUpdate: transaction is required")
	}
	return r.GetByID(ctx, exec, id)
}

func (r fakeMatchRepo) List(_ context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.s.matches {
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeMatchRepo) update(id int, fn func(m *models.Match)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	fn(&m)
	r.s.matches[id] = m
	return nil
}

func (r fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, homeGoals, awayGoals int) error {
	return r.update(id, func(m *models.Match) {
		m.HomeGoals = intPtr(homeGoals)
		m.AwayGoals = intPtr(awayGoals)
		m.Status = models.MatchStatusFinished
	})
}

func (r fakeMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	return r.update(id, func(m *models.Match) { m.Status = status })
}

func (r fakeMatchRepo) SaveQuotas(_ context.Context, _ repositories.SQLExecutor, id int, q scoring.Quotas) error {
	return r.update(id, func(m *models.Match) {
		if m.QuotaHome != nil {
			return
		}
		r.s.quotaWrites++
		m.QuotaHome, m.QuotaDraw, m.QuotaAway = intPtr(q.Home), intPtr(q.Draw), intPtr(q.Away)
	})
}

func (r fakeMatchRepo) MarkScored(_ context.Context, _ repositories.SQLExecutor, id int, scoredAt time.Time) error {
	return r.update(id, func(m *models.Match) { m.ScoredAt = &scoredAt })
}

func (r fakeMatchRepo) ListAwaitingScoring(_ context.Context, limit int) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pending := make(map[int]bool)
	for _, p := range r.s.predictions {
		if p.Status == models.PredictionStatusPending {
			pending[p.MatchID] = true
		}
	}
	ids := make([]int, 0)
	for id, m := range r.s.matches {
		if m.Status == models.MatchStatusFinished && m.HasResult() && pending[id] {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type fakePredictionRepo struct{ s *fakeStore }

func (r fakePredictionRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Prediction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.matches[p.MatchID]; !ok {
		return repositories.ErrPredictionMatchInvalid
	}
	for _, existing := range r.s.predictions {
		if existing.MatchID == p.MatchID && existing.ContestantID == p.ContestantID {
			return repositories.ErrPredictionConflict
		}
	}
	p.ID = r.s.id()
	p.Status = models.PredictionStatusPending
	p.CreatedAt = time.Now()
	r.s.predictions[p.ID] = *p
	return nil
}

func (r fakePredictionRepo) list(keep func(p models.Prediction) bool) []*models.Prediction {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Prediction, 0)
	for _, p := range r.s.predictions {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakePredictionRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.Prediction, error) {
	return r.list(func(p models.Prediction) bool { return p.MatchID == matchID }), nil
}

func (r fakePredictionRepo) ListByContestant(_ context.Context, contestantID int, limit int) ([]*models.Prediction, error) {
	out := r.list(func(p models.Prediction) bool { return p.ContestantID == contestantID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakePredictionRepo) ApplyScores(_ context.Context, _ repositories.SQLExecutor, updates []repositories.ScoreUpdate, scoredAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.applyCalls++
	if r.s.applyScoresErr != nil {
		return 0, r.s.applyScoresErr
	}
	var n int64
	for _, u := range updates {
		p, ok := r.s.predictions[u.PredictionID]
		if !ok || p.Status != models.PredictionStatusPending {
			continue
		}
		p.Status = models.PredictionStatusScored
		p.TendencyPoints = intPtr(u.Breakdown.TendencyPoints)
		p.GoalDiffBonus = intPtr(u.Breakdown.GoalDiffBonus)
		p.ExactScoreBonus = intPtr(u.Breakdown.ExactScoreBonus)
		p.TotalPoints = intPtr(u.Breakdown.TotalPoints)
		p.ScoredAt = &scoredAt
		r.s.predictions[p.ID] = p
		n++
	}
	return n, nil
}

type fakeContestantRepo struct{ s *fakeStore }

func (r fakeContestantRepo) Create(_ context.Context, _ repositories.SQLExecutor, c *models.Contestant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.contestants {
		if existing.Slug == c.Slug {
			return repositories.ErrContestantSlugConflict
		}
	}
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.contestants[c.ID] = *c
	return nil
}

func (r fakeContestantRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contestants[id]
	if !ok {
		return nil, repositories.ErrContestantNotFound
	}
	return &c, nil
}

func (r fakeContestantRepo) List(_ context.Context, activeOnly bool) ([]*models.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Contestant, 0)
	for _, c := range r.s.contestants {
		if activeOnly && !c.Active {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeContestantRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.Contestant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Contestant, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.contestants[id]; ok {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeContestantRepo) SetActive(_ context.Context, _ repositories.SQLExecutor, id int, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contestants[id]
	if !ok {
		return repositories.ErrContestantNotFound
	}
	c.Active = active
	r.s.contestants[id] = c
	return nil
}

type fakeStreakRepo struct{ s *fakeStore }

func (r fakeStreakRepo) ListByContestants(_ context.Context, _ repositories.SQLExecutor, ids []int) (map[int]*models.ContestantStreak, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[int]*models.ContestantStreak, len(ids))
	for _, id := range ids {
		if st, ok := r.s.streaks[id]; ok {
			out[id] = &st
		}
	}
	return out, nil
}

func (r fakeStreakRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, st *models.ContestantStreak) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.upsertErr != nil {
		return r.s.upsertErr
	}
	r.s.streaks[st.ContestantID] = *st
	return nil
}

type fakeLeaderboardRepo struct {
	entries []*models.LeaderboardEntry
	err     error
	calls   int
}

func (r *fakeLeaderboardRepo) Aggregate(context.Context, bool) ([]*models.LeaderboardEntry, error) {
	r.calls++
	return r.entries, r.err
}

type fakeHub struct {
	mu       sync.Mutex
	messages map[string][]LiveMessage
}

func (h *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.messages == nil {
		h.messages = make(map[string][]LiveMessage)
	}
	h.messages[roomID] = append(h.messages[roomID], message.(LiveMessage))
}

func (h *fakeHub) count(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages[roomID])
}

type fakeLeaderboardService struct {
	mu       sync.Mutex
	refreshes int
	err      error
}

func (f *fakeLeaderboardService) GetLeaderboard(context.Context) (*models.Leaderboard, error) {
	return &models.Leaderboard{}, nil
}

func (f *fakeLeaderboardService) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.err
}

func (f *fakeLeaderboardService) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

type fakeCache struct {
	lb          *models.Leaderboard
	getErr      error
	sets        int
	invalidated int
}

func (c *fakeCache) Get(context.Context) (*models.Leaderboard, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.lb, c.lb != nil, nil
}

func (c *fakeCache) Set(_ context.Context, lb *models.Leaderboard) error {
	c.sets++
	c.lb = lb
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.lb = nil
	return nil
}

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	delete(u.objects, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example/" + key
}
