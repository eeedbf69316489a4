package models

import "time"

// RawMatch is one match row as extracted from a league results page, before
// any entity resolution. CountrySlug always comes from the source URL path,
// never from display text.
type RawMatch struct {
	Link        string     `json:"link"`
	CountryName string     `json:"country_name"`
	CountrySlug string     `json:"country_slug"`
	LeagueName  string     `json:"league_name"`
	SeasonLabel string     `json:"season_label"`
	Phase       string     `json:"phase,omitempty"`
	Matchday    string     `json:"matchday,omitempty"`
	KickoffRaw  string     `json:"kickoff_raw,omitempty"`
	HomeTeam    string     `json:"home_team"`
	AwayTeam    string     `json:"away_team"`
	HomeGoals   *int       `json:"home_goals,omitempty"`
	AwayGoals   *int       `json:"away_goals,omitempty"`
	SpecialTag  string     `json:"special_tag,omitempty"`
	CapturedAt  time.Time  `json:"captured_at"`
}

// Finalized reports whether both final scores are known.
func (m *RawMatch) Finalized() bool {
	return m.HomeGoals != nil && m.AwayGoals != nil
}

// RawGoalEvent is one goal incident from a match detail page.
type RawGoalEvent struct {
	MatchLink   string    `json:"match_link"`
	IsHome      bool      `json:"is_home"`
	Minute      int       `json:"minute"`
	MinuteRaw   string    `json:"minute_raw,omitempty"`
	PeriodLabel string    `json:"period_label,omitempty"`
	ScorerName  string    `json:"scorer_name,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}
