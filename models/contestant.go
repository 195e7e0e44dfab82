package models

import "time"

// Contestant - LLM-модель, чьи прогнозы отслеживаются.
type Contestant struct {
	ID          int       `json:"id" db:"id"`
	Slug        string    `json:"slug" db:"slug"` // e.g. "openai/gpt-4o"
	DisplayName string    `json:"display_name" db:"display_name"`
	Provider    string    `json:"provider" db:"provider"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type ContestantStreak struct {
	ContestantID int       `json:"contestant_id" db:"contestant_id"`
	Current      int       `json:"current" db:"current_streak"`
	Best         int       `json:"best" db:"best_streak"`
	LastMatchID  *int      `json:"last_match_id,omitempty" db:"last_match_id"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
