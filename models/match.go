package models

import "time"

// MatchStatus представляет статусы матча, соответствующие ENUM в БД.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
	MatchStatusPostponed MatchStatus = "postponed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusLive, MatchStatusFinished, MatchStatusPostponed, MatchStatusCancelled:
		return true
	}
	return false
}

// Match представляет матч с фактическим результатом и квотами.
type Match struct {
	ID          int         `json:"id" db:"id"`
	ExternalID  *string     `json:"external_id,omitempty" db:"external_id"`
	Competition string      `json:"competition" db:"competition"`
	HomeTeam    string      `json:"home_team" db:"home_team"`
	AwayTeam    string      `json:"away_team" db:"away_team"`
	KickoffAt   time.Time   `json:"kickoff_at" db:"kickoff_at"`
	Status      MatchStatus `json:"status" db:"status"`
	HomeGoals   *int        `json:"home_goals,omitempty" db:"home_goals"`
	AwayGoals   *int        `json:"away_goals,omitempty" db:"away_goals"`
	QuotaHome   *int        `json:"quota_home,omitempty" db:"quota_home"`
	QuotaDraw   *int        `json:"quota_draw,omitempty" db:"quota_draw"`
	QuotaAway   *int        `json:"quota_away,omitempty" db:"quota_away"`
	ScoredAt    *time.Time  `json:"scored_at,omitempty" db:"scored_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// HasResult is true once both final goal counts are recorded.
func (m *Match) HasResult() bool {
	return m.HomeGoals != nil && m.AwayGoals != nil
}

func (m *Match) HasQuotas() bool {
	return m.QuotaHome != nil && m.QuotaDraw != nil && m.QuotaAway != nil
}
