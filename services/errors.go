package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrValidationFailed = errors.New("validation failed")

	ErrMatchNotFound      = errors.New("match not found")
	ErrContestantNotFound = errors.New("contestant not found")

	// Ошибки скоринга
	ErrPreconditionFailed = errors.New("match has no final score yet")
	ErrAlreadyScored      = errors.New("prediction is already scored")
	ErrReferenceMissing   = errors.New("prediction references a missing match or contestant")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Ошибки бизнес-правил
	ErrInvalidScore                 = errors.New("goals must be between 0 and 99")
	ErrMatchInvalidStatus           = errors.New("invalid match status provided")
	ErrMatchInvalidStatusTransition = errors.New("invalid match status transition")
	ErrMatchAlreadyScored           = errors.New("match has already been scored")
	ErrPredictionWindowClosed       = errors.New("predictions are closed for this match")
	ErrContestantInactive           = errors.New("contestant is not active")

	// Ошибки конфликтов
	ErrPredictionConflict     = errors.New("contestant already submitted a prediction for this match")
	ErrContestantSlugConflict = errors.New("contestant slug is already in use")
	ErrMatchConflict          = errors.New("match with this external id already exists")
)
