package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/prediction-league/models"
)

const maxGoals = 99

func validateGoals(home, away int) error {
	if home < 0 || away < 0 || home > maxGoals || away > maxGoals {
		return fmt.Errorf("%w: got %d-%d", ErrInvalidScore, home, away)
	}
	return nil
}

func isValidStatusTransition(current, next models.MatchStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.MatchStatus][]models.MatchStatus{
		models.MatchStatusScheduled: {models.MatchStatusLive, models.MatchStatusPostponed, models.MatchStatusCancelled},
		models.MatchStatusLive:      {models.MatchStatusPostponed, models.MatchStatusCancelled},
		models.MatchStatusPostponed: {models.MatchStatusScheduled, models.MatchStatusCancelled},
		models.MatchStatusFinished:  {},
		models.MatchStatusCancelled: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// storageError wraps an unexpected repository failure. Context deadline
// and cancellation end up here too: the caller may retry from scratch.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func intPtr(v int) *int {
	return &v
}
