package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks store errors caused by the backend being unreachable.
// Callers treat these as fatal for the whole operation; any other store error
// is scoped to the record that triggered it.
var ErrUnavailable = errors.New("store unavailable")

// SeasonRow carries the derived season fields for get-or-create. StartDate
// and EndDate are computed from the label, never scraped.
type SeasonRow struct {
	LeagueID  int64
	Label     string
	Type      string // "annual" or "calendar"
	StartDate *time.Time
	EndDate   *time.Time
}

// MatchRow is one row of the matches table, with entity references resolved.
type MatchRow struct {
	Link         string     `db:"link"`
	SeasonID     int64      `db:"season_id"`
	StatusID     int64      `db:"status_id"`
	PhaseID      *int64     `db:"phase_id"`
	MatchdayID   *int64     `db:"matchday_id"`
	SpecialTagID *int64     `db:"special_tag_id"`
	HomeTeamID   int64      `db:"home_team_id"`
	AwayTeamID   int64      `db:"away_team_id"`
	KickoffAt    *time.Time `db:"kickoff_at"`
	KickoffRaw   string     `db:"kickoff_raw"`
	HomeGoals    *int       `db:"home_goals"`
	AwayGoals    *int       `db:"away_goals"`
	ScrapedAt    time.Time  `db:"scraped_at"`
}

// GoalEventRow is one row of the goal_events table, keyed by the match link.
type GoalEventRow struct {
	MatchLink string    `db:"match_link"`
	IsHome    bool      `db:"is_home"`
	Minute    int       `db:"minute"`
	MinuteRaw string    `db:"minute_raw"`
	Period    string    `db:"period"`
	Scorer    string    `db:"scorer"`
	ScrapedAt time.Time `db:"scraped_at"`
}

type Country struct {
	ID   int64  `db:"id" json:"id"`
	Slug string `db:"slug" json:"slug"`
	Name string `db:"name" json:"name"`
}

type League struct {
	ID        int64  `db:"id" json:"id"`
	CountryID int64  `db:"country_id" json:"country_id"`
	Slug      string `db:"slug" json:"slug"`
	Name      string `db:"name" json:"name"`
}

type Phase struct {
	ID       int64  `db:"id" json:"id"`
	SeasonID int64  `db:"season_id" json:"season_id"`
	Slug     string `db:"slug" json:"slug"`
	Name     string `db:"name" json:"name"`
}

type Season struct {
	ID       int64  `db:"id" json:"id"`
	LeagueID int64  `db:"league_id" json:"league_id"`
	Label    string `db:"label" json:"label"`
	Type     string `db:"type" json:"type"`
}

type Team struct {
	ID   int64  `db:"id" json:"id"`
	Slug string `db:"slug" json:"slug"`
	Name string `db:"name" json:"name"`
}

// MatchFacts is the minimal finished-match view used by the prediction
// consumer.
type MatchFacts struct {
	HomeTeam  string `db:"home_team"`
	AwayTeam  string `db:"away_team"`
	HomeGoals int    `db:"home_goals"`
	AwayGoals int    `db:"away_goals"`
}

// Store is the normalized relational backend. Every Ensure* call is a
// get-or-create on the entity's natural key; uniqueness is enforced by the
// schema, so concurrent runs resolving the same key cannot create duplicates.
type Store interface {
	EnsureCountry(ctx context.Context, slug, name string) (int64, error)
	EnsureLeague(ctx context.Context, countryID int64, slug, name string) (int64, error)
	EnsureSeason(ctx context.Context, row SeasonRow) (int64, error)
	EnsureTeam(ctx context.Context, slug, name string) (int64, error)
	EnsureStatus(ctx context.Context, name string) (int64, error)
	EnsurePhase(ctx context.Context, seasonID int64, slug, name string) (int64, error)
	EnsureMatchday(ctx context.Context, seasonID int64, slug, name string) (int64, error)
	EnsureSpecialTag(ctx context.Context, name string) (int64, error)

	// ExistingMatchLinks returns the subset of links already present.
	ExistingMatchLinks(ctx context.Context, links []string) (map[string]bool, error)
	// InsertMatches returns the links actually inserted. A row that lost an
	// insert race against a concurrent run is absent from the result.
	InsertMatches(ctx context.Context, rows []MatchRow) ([]string, error)
	UpsertMatches(ctx context.Context, rows []MatchRow) (int, error)
	InsertGoalEvents(ctx context.Context, rows []GoalEventRow) (int, error)

	ListCountries(ctx context.Context) ([]Country, error)
	ListLeagues(ctx context.Context, countrySlug string) ([]League, error)
	ListSeasons(ctx context.Context, leagueID int64) ([]Season, error)
	ListPhases(ctx context.Context, seasonID int64) ([]Phase, error)
	ListTeams(ctx context.Context) ([]Team, error)
	GetTeam(ctx context.Context, id int64) (Team, bool, error)
	SeasonMatchFacts(ctx context.Context, seasonID int64) ([]MatchFacts, error)

	Close() error
}
