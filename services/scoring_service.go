package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/repositories"
	"github.com/Dosada05/prediction-league/scoring"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	MessageMatchScored  = "MATCH_SCORED"
	MessageMatchUpdated = "MATCH_UPDATED"
	LeaderboardRoomID   = "leaderboard"
	matchRoomPrefix     = "match_"
)

const (
	maxRecordedFailures   = 50
	afterCommitTimeout    = 15 * time.Second
	defaultScoringBatch   = 100
	defaultScoringTimeout = 30 * time.Second
)

// MatchRoomID is the live hub room for one match.
func MatchRoomID(matchID int) string {
	return fmt.Sprintf("%s%d", matchRoomPrefix, matchID)
}

// Broadcaster is satisfied by *live.Hub.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type LiveMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

type RowFailure struct {
	PredictionID int    `json:"prediction_id"`
	ContestantID int    `json:"contestant_id"`
	Reason       string `json:"reason"`
}

// ScoringReport describes one ScoreMatch run.
type ScoringReport struct {
	RunID         string         `json:"run_id"`
	MatchID       int            `json:"match_id"`
	Quotas        scoring.Quotas `json:"quotas"`
	QuotasReused  bool           `json:"quotas_reused"`
	Scored        int            `json:"scored"`
	AlreadyScored int            `json:"already_scored"`
	Failed        int            `json:"failed"`
	Failures      []RowFailure   `json:"failures,omitempty"` // capped at maxRecordedFailures
	StartedAt     time.Time      `json:"started_at"`
	Duration      time.Duration  `json:"duration_ns"`
}

func (r *ScoringReport) recordFailure(p *models.Prediction, err error) {
	r.Failed++
	if len(r.Failures) >= maxRecordedFailures {
		return
	}
	r.Failures = append(r.Failures, RowFailure{
		PredictionID: p.ID,
		ContestantID: p.ContestantID,
		Reason:       err.Error(),
	})
}

type ScoringService interface {
	// ScoreMatch scores every pending prediction of a finished match inside
	// one transaction holding the match row lock. Re-running it is safe.
	ScoreMatch(ctx context.Context, matchID int) (*ScoringReport, error)
	// ScorePendingMatches scores finished matches that still have pending
	// predictions and returns how many matches got new points.
	ScorePendingMatches(ctx context.Context) (int, error)
}

type ScoringOptions struct {
	Timeout time.Duration
	Workers int
	Batch   int
}

type scoringService struct {
	tx             repositories.Transactor
	matchRepo      repositories.MatchRepository
	predictionRepo repositories.PredictionRepository
	contestantRepo repositories.ContestantRepository
	streakRepo     repositories.StreakRepository
	leaderboard    LeaderboardService
	hub            Broadcaster
	rules          scoring.Rules
	opts           ScoringOptions
	logger         *slog.Logger
	now            func() time.Time
}

func NewScoringService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	predictionRepo repositories.PredictionRepository,
	contestantRepo repositories.ContestantRepository,
	streakRepo repositories.StreakRepository,
	leaderboard LeaderboardService, // may be nil
	hub Broadcaster, // may be nil
	rules scoring.Rules,
	opts ScoringOptions,
	logger *slog.Logger,
) ScoringService {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultScoringTimeout
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Batch < 1 {
		opts.Batch = defaultScoringBatch
	}
	return &scoringService{
		tx:             tx,
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		contestantRepo: contestantRepo,
		streakRepo:     streakRepo,
		leaderboard:    leaderboard,
		hub:            hub,
		rules:          rules,
		opts:           opts,
		logger:         logger.With(slog.String("service", "scoring")),
		now:            time.Now,
	}
}

func (s *scoringService) ScoreMatch(ctx context.Context, matchID int) (*ScoringReport, error) {
	started := s.now()
	report := &ScoringReport{RunID: uuid.NewString(), MatchID: matchID, StartedAt: started.UTC()}
	log := s.logger.With(slog.String("run_id", report.RunID), slog.Int("match_id", matchID))

	txCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	err := s.tx.WithinTx(txCtx, func(exec repositories.SQLExecutor) error {
		return s.scoreLocked(txCtx, exec, report)
	})
	report.Duration = s.now().Sub(started)
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) || errors.Is(err, ErrMatchNotFound) {
			log.Warn("match not scorable", slog.Any("error", err))
			return nil, err
		}
		err = storageError("score match", err)
		log.Error("scoring attempt aborted, no points written", slog.Any("error", err))
		return nil, err
	}

	log.Info("match scoring finished",
		slog.Int("scored", report.Scored),
		slog.Int("already_scored", report.AlreadyScored),
		slog.Int("failed", report.Failed),
		slog.Bool("quotas_reused", report.QuotasReused),
		slog.Duration("duration", report.Duration),
	)
	for _, f := range report.Failures {
		log.Warn("prediction skipped", slog.Int("prediction_id", f.PredictionID), slog.Int("contestant_id", f.ContestantID), slog.String("reason", f.Reason))
	}

	if report.Scored > 0 {
		s.afterCommit(ctx, report, log)
	}
	return report, nil
}

// scoreLocked runs inside the transaction. Quotas are fixed from the full
// prediction snapshot before any prediction is scored.
func (s *scoringService) scoreLocked(ctx context.Context, exec repositories.SQLExecutor, report *ScoringReport) error {
	match, err := s.matchRepo.GetForUpdate(ctx, exec, report.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return fmt.Errorf("%w: id %d", ErrMatchNotFound, report.MatchID)
		}
		return storageError("lock match", err)
	}
	if match.Status != models.MatchStatusFinished || !match.HasResult() {
		return fmt.Errorf("%w: match %d is %s", ErrPreconditionFailed, match.ID, match.Status)
	}
	actual := scoring.Pick{Home: *match.HomeGoals, Away: *match.AwayGoals}

	predictions, err := s.predictionRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return storageError("list predictions", err)
	}

	// Фаза 1: квоты.
	quotas, reused := s.quotasFor(match, predictions)
	report.Quotas = quotas
	report.QuotasReused = reused
	if !reused {
		if err := s.matchRepo.SaveQuotas(ctx, exec, match.ID, quotas); err != nil {
			return storageError("save quotas", err)
		}
	}

	known, err := s.existingContestants(ctx, exec, predictions)
	if err != nil {
		return err
	}

	// Фаза 2: очки по зафиксированным квотам.
	updates := make([]repositories.ScoreUpdate, 0, len(predictions))
	byContestant := make(map[int]scoring.Breakdown, len(predictions))
	for _, p := range predictions {
		if err := checkScorable(p, known); err != nil {
			switch {
			case errors.Is(err, ErrAlreadyScored):
				report.AlreadyScored++
			default:
				report.recordFailure(p, err)
			}
			continue
		}
		b := s.rules.Score(scoring.Pick{Home: p.PredictedHome, Away: p.PredictedAway}, actual, quotas)
		updates = append(updates, repositories.ScoreUpdate{PredictionID: p.ID, Breakdown: b})
		byContestant[p.ContestantID] = b
	}
	if len(updates) == 0 {
		return nil
	}

	scoredAt := s.now().UTC()
	affected, err := s.predictionRepo.ApplyScores(ctx, exec, updates, scoredAt)
	if err != nil {
		return storageError("apply scores", err)
	}
	if int(affected) != len(updates) {
		// Под блокировкой матча такого быть не должно; откатываем всё.
		return storageError("apply scores", fmt.Errorf("expected %d rows to change, got %d", len(updates), affected))
	}
	report.Scored = len(updates)

	if err := s.advanceStreaks(ctx, exec, match.ID, byContestant, scoredAt); err != nil {
		return err
	}
	if err := s.matchRepo.MarkScored(ctx, exec, match.ID, scoredAt); err != nil {
		return storageError("mark match scored", err)
	}
	return nil
}

// quotasFor reuses quotas persisted by an earlier run so a retry never
// recomputes them from a different snapshot.
func (s *scoringService) quotasFor(match *models.Match, predictions []*models.Prediction) (scoring.Quotas, bool) {
	if match.HasQuotas() {
		return scoring.Quotas{Home: *match.QuotaHome, Draw: *match.QuotaDraw, Away: *match.QuotaAway}, true
	}
	picks := make([]scoring.Pick, len(predictions))
	for i, p := range predictions {
		picks[i] = scoring.Pick{Home: p.PredictedHome, Away: p.PredictedAway}
	}
	return s.rules.ComputeQuotas(picks), false
}

func (s *scoringService) existingContestants(ctx context.Context, exec repositories.SQLExecutor, predictions []*models.Prediction) (map[int]bool, error) {
	ids := make([]int, 0, len(predictions))
	seen := make(map[int]bool, len(predictions))
	for _, p := range predictions {
		if p.IsScored() || seen[p.ContestantID] {
			continue
		}
		seen[p.ContestantID] = true
		ids = append(ids, p.ContestantID)
	}
	contestants, err := s.contestantRepo.ListByIDs(ctx, exec, ids)
	if err != nil {
		return nil, storageError("load contestants", err)
	}
	known := make(map[int]bool, len(contestants))
	for _, c := range contestants {
		known[c.ID] = true
	}
	return known, nil
}

func checkScorable(p *models.Prediction, knownContestants map[int]bool) error {
	if p.IsScored() {
		return ErrAlreadyScored
	}
	if !knownContestants[p.ContestantID] {
		return fmt.Errorf("%w: contestant %d", ErrReferenceMissing, p.ContestantID)
	}
	return nil
}

func (s *scoringService) advanceStreaks(ctx context.Context, exec repositories.SQLExecutor, matchID int, byContestant map[int]scoring.Breakdown, at time.Time) error {
	ids := make([]int, 0, len(byContestant))
	for id := range byContestant {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	current, err := s.streakRepo.ListByContestants(ctx, exec, ids)
	if err != nil {
		return storageError("load streaks", err)
	}
	for _, id := range ids {
		prev := scoring.Streak{}
		if st, ok := current[id]; ok {
			prev = scoring.Streak{Current: st.Current, Best: st.Best}
		}
		next := prev.Advance(byContestant[id].CorrectTendency())
		err := s.streakRepo.Upsert(ctx, exec, &models.ContestantStreak{
			ContestantID: id,
			Current:      next.Current,
			Best:         next.Best,
			LastMatchID:  intPtr(matchID),
			UpdatedAt:    at,
		})
		if err != nil {
			return storageError("save streak", err)
		}
	}
	return nil
}

// afterCommit runs best-effort side effects once points are durable.
func (s *scoringService) afterCommit(ctx context.Context, report *ScoringReport, log *slog.Logger) {
	if s.hub != nil {
		msg := LiveMessage{Type: MessageMatchScored, Payload: report, RoomID: MatchRoomID(report.MatchID)}
		s.hub.BroadcastToRoom(msg.RoomID, msg)
		s.hub.BroadcastToRoom(LeaderboardRoomID, LiveMessage{Type: MessageMatchScored, Payload: report, RoomID: LeaderboardRoomID})
	}
	if s.leaderboard == nil {
		return
	}
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
	defer cancel()
	if err := s.leaderboard.Refresh(refreshCtx); err != nil {
		log.Warn("leaderboard refresh after scoring failed", slog.Any("error", err))
	}
}

func (s *scoringService) ScorePendingMatches(ctx context.Context) (int, error) {
	ids, err := s.matchRepo.ListAwaitingScoring(ctx, s.opts.Batch)
	if err != nil {
		return 0, storageError("list matches awaiting scoring", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	s.logger.Info("scoring matches", slog.Int("count", len(ids)), slog.Int("workers", s.opts.Workers))

	var (
		g      errgroup.Group
		mu     sync.Mutex
		scored int
		errs   []error
	)
	g.SetLimit(s.opts.Workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			report, err := s.ScoreMatch(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// отмена контекста попадет в errs один раз ниже
				if !(isContextError(err) && ctx.Err() != nil) {
					errs = append(errs, fmt.Errorf("match %d: %w", id, err))
				}
				return nil
			}
			if report.Scored > 0 {
				scored++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return scored, errors.Join(errs...)
}
