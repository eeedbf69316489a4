package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ligastats/ligastats/internal/pkg/config"
	"github.com/ligastats/ligastats/internal/pkg/models"
	"github.com/ligastats/ligastats/internal/pkg/storage"
)

// fakeSession replays canned extraction results.
type fakeSession struct {
	matches []models.RawMatch
	goals   map[string][]models.RawGoalEvent
}

func (f *fakeSession) ExtractLeague(string, bool) []models.RawMatch { return f.matches }
func (f *fakeSession) ExtractGoals(link string) []models.RawGoalEvent {
	return f.goals[link]
}
func (f *fakeSession) Close() {}

// runStore is a minimal in-memory Store for runner tests.
type runStore struct {
	storage.Store // unused methods panic

	nextID   int64
	inserted []storage.MatchRow
	goalRows []storage.GoalEventRow
}

func (s *runStore) ensure() (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *runStore) EnsureCountry(context.Context, string, string) (int64, error) { return s.ensure() }
func (s *runStore) EnsureLeague(context.Context, int64, string, string) (int64, error) {
	return s.ensure()
}
func (s *runStore) EnsureSeason(context.Context, storage.SeasonRow) (int64, error) {
	return s.ensure()
}
func (s *runStore) EnsureTeam(context.Context, string, string) (int64, error)   { return s.ensure() }
func (s *runStore) EnsureStatus(context.Context, string) (int64, error)         { return s.ensure() }
func (s *runStore) EnsureSpecialTag(context.Context, string) (int64, error)     { return s.ensure() }
func (s *runStore) EnsurePhase(context.Context, int64, string, string) (int64, error) {
	return s.ensure()
}
func (s *runStore) EnsureMatchday(context.Context, int64, string, string) (int64, error) {
	return s.ensure()
}

func (s *runStore) ExistingMatchLinks(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (s *runStore) InsertMatches(_ context.Context, rows []storage.MatchRow) ([]string, error) {
	s.inserted = append(s.inserted, rows...)
	links := make([]string, 0, len(rows))
	for _, r := range rows {
		links = append(links, r.Link)
	}
	return links, nil
}

func (s *runStore) UpsertMatches(_ context.Context, rows []storage.MatchRow) (int, error) {
	return len(rows), nil
}

func (s *runStore) InsertGoalEvents(_ context.Context, rows []storage.GoalEventRow) (int, error) {
	s.goalRows = append(s.goalRows, rows...)
	return len(rows), nil
}

func testRunner(store storage.Store, session extractor, goalWorkers int) *Runner {
	cfg := &config.Config{}
	cfg.Scraper.GoalWorkers = goalWorkers
	r := NewRunner(cfg, store, nil)
	r.newSession = func(context.Context, config.ScraperConfig) (extractor, error) {
		return session, nil
	}
	return r
}

func finalizedRaw(link string) models.RawMatch {
	two, one := 2, 1
	return models.RawMatch{
		Link:        link,
		CountryName: "Espana",
		CountrySlug: "espana",
		LeagueName:  "LaLiga",
		SeasonLabel: "2024/2025",
		HomeTeam:    "Real Madrid",
		AwayTeam:    "Betis",
		HomeGoals:   &two,
		AwayGoals:   &one,
		CapturedAt:  time.Now().UTC(),
	}
}

func TestRunEmptyExtractionCompletesWithZeroCounts(t *testing.T) {
	store := &runStore{}
	r := testRunner(store, &fakeSession{}, 0)

	m, err := r.Run(context.Background(), "https://www.flashscore.es/futbol/espana/laliga/")
	if err != nil {
		t.Fatalf("empty results page must not fail the run: %v", err)
	}
	if m.Inserted != 0 || m.Updated != 0 || m.Errors != 0 {
		t.Errorf("metrics = %+v, want all zero", m)
	}
	if len(store.inserted) != 0 {
		t.Error("empty extraction must not write to the store")
	}
}

func TestRunIngestsAndScrapesGoals(t *testing.T) {
	store := &runStore{}
	session := &fakeSession{
		matches: []models.RawMatch{finalizedRaw("/match/1")},
		goals: map[string][]models.RawGoalEvent{
			"/match/1": {
				{MatchLink: "/match/1", IsHome: true, Minute: 12, MinuteRaw: "12'", ScorerName: "Vinicius"},
				{MatchLink: "/match/1", IsHome: false, Minute: 88, MinuteRaw: "88'", ScorerName: "Isco"},
			},
		},
	}
	r := testRunner(store, session, 1)

	m, err := r.Run(context.Background(), "https://www.flashscore.es/futbol/espana/laliga/")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if m.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", m.Inserted)
	}
	if m.EventsInserted != 2 {
		t.Errorf("events inserted = %d, want 2", m.EventsInserted)
	}
	if len(store.goalRows) != 2 {
		t.Errorf("stored goal rows = %d, want 2", len(store.goalRows))
	}
}

func TestRunSessionFailure(t *testing.T) {
	r := testRunner(&runStore{}, nil, 0)
	r.newSession = func(context.Context, config.ScraperConfig) (extractor, error) {
		return nil, errors.New("chrome not found")
	}

	if _, err := r.Run(context.Background(), "url"); err == nil {
		t.Error("expected error when the browser cannot start")
	}
}
