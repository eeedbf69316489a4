package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ligastats/ligastats/internal/pkg/config"
)

// Ensure Postgres implements Store
var _ Store = (*Postgres)(nil)

// Postgres stores the normalized football schema in PostgreSQL.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens the connection, verifies it and initializes the schema.
func NewPostgres(cfg *config.PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Postgres{db: db}

	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL storage initialized")
	return s, nil
}

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS countries (
		id SERIAL PRIMARY KEY,
		slug VARCHAR(200) NOT NULL UNIQUE,
		name VARCHAR(200) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leagues (
		id SERIAL PRIMARY KEY,
		country_id INTEGER NOT NULL REFERENCES countries(id),
		slug VARCHAR(200) NOT NULL,
		name VARCHAR(200) NOT NULL,
		UNIQUE (country_id, slug)
	);

	CREATE TABLE IF NOT EXISTS seasons (
		id SERIAL PRIMARY KEY,
		league_id INTEGER NOT NULL REFERENCES leagues(id),
		label VARCHAR(100) NOT NULL,
		type VARCHAR(20) NOT NULL,
		start_date DATE,
		end_date DATE,
		UNIQUE (league_id, label)
	);

	CREATE TABLE IF NOT EXISTS teams (
		id SERIAL PRIMARY KEY,
		slug VARCHAR(200) NOT NULL UNIQUE,
		name VARCHAR(200) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS statuses (
		id SERIAL PRIMARY KEY,
		name VARCHAR(50) NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS phases (
		id SERIAL PRIMARY KEY,
		season_id INTEGER NOT NULL REFERENCES seasons(id),
		slug VARCHAR(200) NOT NULL,
		name VARCHAR(200) NOT NULL,
		UNIQUE (season_id, slug)
	);

	CREATE TABLE IF NOT EXISTS matchdays (
		id SERIAL PRIMARY KEY,
		season_id INTEGER NOT NULL REFERENCES seasons(id),
		slug VARCHAR(200) NOT NULL,
		name VARCHAR(200) NOT NULL,
		UNIQUE (season_id, slug)
	);

	CREATE TABLE IF NOT EXISTS special_tags (
		id SERIAL PRIMARY KEY,
		name VARCHAR(200) NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		link VARCHAR(500) NOT NULL UNIQUE,
		season_id INTEGER NOT NULL REFERENCES seasons(id),
		status_id INTEGER NOT NULL REFERENCES statuses(id),
		phase_id INTEGER REFERENCES phases(id),
		matchday_id INTEGER REFERENCES matchdays(id),
		special_tag_id INTEGER REFERENCES special_tags(id),
		home_team_id INTEGER NOT NULL REFERENCES teams(id),
		away_team_id INTEGER NOT NULL REFERENCES teams(id),
		kickoff_at TIMESTAMPTZ,
		kickoff_raw VARCHAR(100) NOT NULL DEFAULT '',
		home_goals INTEGER,
		away_goals INTEGER,
		scraped_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_season ON matches(season_id);
	CREATE INDEX IF NOT EXISTS idx_matches_teams ON matches(home_team_id, away_team_id);

	CREATE TABLE IF NOT EXISTS goal_events (
		id SERIAL PRIMARY KEY,
		match_link VARCHAR(500) NOT NULL,
		is_home BOOLEAN NOT NULL,
		minute INTEGER NOT NULL,
		minute_raw VARCHAR(20) NOT NULL DEFAULT '',
		period VARCHAR(100) NOT NULL DEFAULT '',
		scorer VARCHAR(200) NOT NULL DEFAULT '',
		scraped_at TIMESTAMPTZ NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_goal_events_natural
		ON goal_events(match_link, is_home, minute, minute_raw, scorer);
	CREATE INDEX IF NOT EXISTS idx_goal_events_match ON goal_events(match_link);
	`

func (s *Postgres) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	return err
}

// connErr tags backend-unreachable failures so callers can tell them apart
// from per-record errors.
func connErr(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// ensure runs an insert-on-conflict-do-nothing and falls back to a select
// when the row already exists. The conflict path is the normal case under
// concurrent runs; pre-check-then-insert would race.
func (s *Postgres) ensure(ctx context.Context, insertQ string, insertArgs []interface{}, selectQ string, selectArgs []interface{}) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, insertQ, insertArgs...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, connErr(err)
	}
	if err := s.db.QueryRowxContext(ctx, selectQ, selectArgs...).Scan(&id); err != nil {
		return 0, connErr(err)
	}
	return id, nil
}

func (s *Postgres) EnsureCountry(ctx context.Context, slug, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO countries (slug, name) VALUES ($1, $2) ON CONFLICT (slug) DO NOTHING RETURNING id`,
		[]interface{}{slug, name},
		`SELECT id FROM countries WHERE slug = $1`,
		[]interface{}{slug},
	)
}

func (s *Postgres) EnsureLeague(ctx context.Context, countryID int64, slug, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO leagues (country_id, slug, name) VALUES ($1, $2, $3) ON CONFLICT (country_id, slug) DO NOTHING RETURNING id`,
		[]interface{}{countryID, slug, name},
		`SELECT id FROM leagues WHERE country_id = $1 AND slug = $2`,
		[]interface{}{countryID, slug},
	)
}

func (s *Postgres) EnsureSeason(ctx context.Context, row SeasonRow) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO seasons (league_id, label, type, start_date, end_date) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (league_id, label) DO NOTHING RETURNING id`,
		[]interface{}{row.LeagueID, row.Label, row.Type, row.StartDate, row.EndDate},
		`SELECT id FROM seasons WHERE league_id = $1 AND label = $2`,
		[]interface{}{row.LeagueID, row.Label},
	)
}

func (s *Postgres) EnsureTeam(ctx context.Context, slug, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO teams (slug, name) VALUES ($1, $2) ON CONFLICT (slug) DO NOTHING RETURNING id`,
		[]interface{}{slug, name},
		`SELECT id FROM teams WHERE slug = $1`,
		[]interface{}{slug},
	)
}

func (s *Postgres) EnsureStatus(ctx context.Context, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO statuses (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id`,
		[]interface{}{name},
		`SELECT id FROM statuses WHERE name = $1`,
		[]interface{}{name},
	)
}

func (s *Postgres) EnsurePhase(ctx context.Context, seasonID int64, slug, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO phases (season_id, slug, name) VALUES ($1, $2, $3) ON CONFLICT (season_id, slug) DO NOTHING RETURNING id`,
		[]interface{}{seasonID, slug, name},
		`SELECT id FROM phases WHERE season_id = $1 AND slug = $2`,
		[]interface{}{seasonID, slug},
	)
}

func (s *Postgres) EnsureMatchday(ctx context.Context, seasonID int64, slug, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO matchdays (season_id, slug, name) VALUES ($1, $2, $3) ON CONFLICT (season_id, slug) DO NOTHING RETURNING id`,
		[]interface{}{seasonID, slug, name},
		`SELECT id FROM matchdays WHERE season_id = $1 AND slug = $2`,
		[]interface{}{seasonID, slug},
	)
}

func (s *Postgres) EnsureSpecialTag(ctx context.Context, name string) (int64, error) {
	return s.ensure(ctx,
		`INSERT INTO special_tags (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id`,
		[]interface{}{name},
		`SELECT id FROM special_tags WHERE name = $1`,
		[]interface{}{name},
	)
}

func (s *Postgres) ExistingMatchLinks(ctx context.Context, links []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(links))
	if len(links) == 0 {
		return existing, nil
	}

	query, args, err := sqlx.In(`SELECT link FROM matches WHERE link IN (?)`, links)
	if err != nil {
		return nil, fmt.Errorf("failed to build link query: %w", err)
	}
	query = s.db.Rebind(query)

	var found []string
	if err := s.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, connErr(err)
	}
	for _, link := range found {
		existing[link] = true
	}
	return existing, nil
}

const insertMatchesQuery = `
	INSERT INTO matches (
		link, season_id, status_id, phase_id, matchday_id, special_tag_id,
		home_team_id, away_team_id, kickoff_at, kickoff_raw,
		home_goals, away_goals, scraped_at
	) VALUES (
		:link, :season_id, :status_id, :phase_id, :matchday_id, :special_tag_id,
		:home_team_id, :away_team_id, :kickoff_at, :kickoff_raw,
		:home_goals, :away_goals, :scraped_at
	)
	ON CONFLICT (link) DO NOTHING
	RETURNING link`

// InsertMatches returns the links the database actually inserted. RETURNING
// only yields rows that did not hit the link conflict, so race losers against
// a concurrent run are excluded.
func (s *Postgres) InsertMatches(ctx context.Context, rows []MatchRow) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	res, err := sqlx.NamedQueryContext(ctx, s.db, insertMatchesQuery, rows)
	if err != nil {
		return nil, connErr(err)
	}
	defer res.Close()

	var links []string
	for res.Next() {
		var link string
		if err := res.Scan(&link); err != nil {
			return links, connErr(err)
		}
		links = append(links, link)
	}
	return links, connErr(res.Err())
}

const upsertMatchesQuery = `
	INSERT INTO matches (
		link, season_id, status_id, phase_id, matchday_id, special_tag_id,
		home_team_id, away_team_id, kickoff_at, kickoff_raw,
		home_goals, away_goals, scraped_at
	) VALUES (
		:link, :season_id, :status_id, :phase_id, :matchday_id, :special_tag_id,
		:home_team_id, :away_team_id, :kickoff_at, :kickoff_raw,
		:home_goals, :away_goals, :scraped_at
	)
	ON CONFLICT (link) DO UPDATE SET
		status_id = EXCLUDED.status_id,
		home_goals = EXCLUDED.home_goals,
		away_goals = EXCLUDED.away_goals,
		kickoff_at = COALESCE(EXCLUDED.kickoff_at, matches.kickoff_at),
		kickoff_raw = EXCLUDED.kickoff_raw,
		scraped_at = EXCLUDED.scraped_at`

func (s *Postgres) UpsertMatches(ctx context.Context, rows []MatchRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res, err := s.db.NamedExecContext(ctx, upsertMatchesQuery, rows)
	if err != nil {
		return 0, connErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(rows), nil
	}
	return int(n), nil
}

const insertGoalEventsQuery = `
	INSERT INTO goal_events (match_link, is_home, minute, minute_raw, period, scorer, scraped_at)
	VALUES (:match_link, :is_home, :minute, :minute_raw, :period, :scorer, :scraped_at)
	ON CONFLICT DO NOTHING`

func (s *Postgres) InsertGoalEvents(ctx context.Context, rows []GoalEventRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res, err := s.db.NamedExecContext(ctx, insertGoalEventsQuery, rows)
	if err != nil {
		return 0, connErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(rows), nil
	}
	return int(n), nil
}

func (s *Postgres) ListCountries(ctx context.Context) ([]Country, error) {
	var out []Country
	err := s.db.SelectContext(ctx, &out, `SELECT id, slug, name FROM countries ORDER BY name`)
	return out, connErr(err)
}

func (s *Postgres) ListLeagues(ctx context.Context, countrySlug string) ([]League, error) {
	var out []League
	if countrySlug == "" {
		err := s.db.SelectContext(ctx, &out, `SELECT id, country_id, slug, name FROM leagues ORDER BY name`)
		return out, connErr(err)
	}
	err := s.db.SelectContext(ctx, &out, `
		SELECT l.id, l.country_id, l.slug, l.name
		FROM leagues l
		JOIN countries c ON c.id = l.country_id
		WHERE c.slug = $1
		ORDER BY l.name`, countrySlug)
	return out, connErr(err)
}

func (s *Postgres) ListSeasons(ctx context.Context, leagueID int64) ([]Season, error) {
	var out []Season
	if leagueID <= 0 {
		err := s.db.SelectContext(ctx, &out, `SELECT id, league_id, label, type FROM seasons ORDER BY label DESC`)
		return out, connErr(err)
	}
	err := s.db.SelectContext(ctx, &out, `SELECT id, league_id, label, type FROM seasons WHERE league_id = $1 ORDER BY label DESC`, leagueID)
	return out, connErr(err)
}

func (s *Postgres) ListPhases(ctx context.Context, seasonID int64) ([]Phase, error) {
	var out []Phase
	if seasonID <= 0 {
		err := s.db.SelectContext(ctx, &out, `SELECT id, season_id, slug, name FROM phases ORDER BY name`)
		return out, connErr(err)
	}
	err := s.db.SelectContext(ctx, &out, `SELECT id, season_id, slug, name FROM phases WHERE season_id = $1 ORDER BY name`, seasonID)
	return out, connErr(err)
}

func (s *Postgres) ListTeams(ctx context.Context) ([]Team, error) {
	var out []Team
	err := s.db.SelectContext(ctx, &out, `SELECT id, slug, name FROM teams ORDER BY name`)
	return out, connErr(err)
}

func (s *Postgres) GetTeam(ctx context.Context, id int64) (Team, bool, error) {
	var t Team
	err := s.db.GetContext(ctx, &t, `SELECT id, slug, name FROM teams WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Team{}, false, nil
	}
	if err != nil {
		return Team{}, false, connErr(err)
	}
	return t, true, nil
}

// SeasonMatchFacts returns the finished matches of a season with team names
// resolved, for expected-goals statistics.
func (s *Postgres) SeasonMatchFacts(ctx context.Context, seasonID int64) ([]MatchFacts, error) {
	var out []MatchFacts
	err := s.db.SelectContext(ctx, &out, `
		SELECT ht.name AS home_team, vt.name AS away_team, m.home_goals, m.away_goals
		FROM matches m
		JOIN teams ht ON ht.id = m.home_team_id
		JOIN teams vt ON vt.id = m.away_team_id
		WHERE m.season_id = $1
		  AND m.home_goals IS NOT NULL
		  AND m.away_goals IS NOT NULL
		ORDER BY m.kickoff_at NULLS LAST, m.id`, seasonID)
	return out, connErr(err)
}

func (s *Postgres) Close() error {
	return s.db.Close()
}
