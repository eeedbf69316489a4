package etl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ligastats/ligastats/internal/pkg/models"
	"github.com/ligastats/ligastats/internal/pkg/storage"
)

// fakeStore is an in-memory Store for ingester tests.
type fakeStore struct {
	nextID      int64
	ids         map[string]int64
	existing    map[string]bool
	conflicting map[string]bool // links that lose the insert race
	inserted    []storage.MatchRow
	updated     []storage.MatchRow
	goalRows    []storage.GoalEventRow
	ensureCalls map[string]int
	linksErr    error
}

var _ storage.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		ids:         make(map[string]int64),
		existing:    make(map[string]bool),
		conflicting: make(map[string]bool),
		ensureCalls: make(map[string]int),
	}
}

func (f *fakeStore) ensure(kind, key string) (int64, error) {
	full := kind + ":" + key
	f.ensureCalls[full]++
	if id, ok := f.ids[full]; ok {
		return id, nil
	}
	f.nextID++
	f.ids[full] = f.nextID
	return f.nextID, nil
}

func (f *fakeStore) EnsureCountry(_ context.Context, slug, _ string) (int64, error) {
	return f.ensure("country", slug)
}

func (f *fakeStore) EnsureLeague(_ context.Context, countryID int64, slug, _ string) (int64, error) {
	return f.ensure("league", fmt.Sprintf("%d/%s", countryID, slug))
}

func (f *fakeStore) EnsureSeason(_ context.Context, row storage.SeasonRow) (int64, error) {
	return f.ensure("season", fmt.Sprintf("%d/%s", row.LeagueID, row.Label))
}

func (f *fakeStore) EnsureTeam(_ context.Context, slug, _ string) (int64, error) {
	return f.ensure("team", slug)
}

func (f *fakeStore) EnsureStatus(_ context.Context, name string) (int64, error) {
	return f.ensure("status", name)
}

func (f *fakeStore) EnsurePhase(_ context.Context, seasonID int64, slug, _ string) (int64, error) {
	return f.ensure("phase", fmt.Sprintf("%d/%s", seasonID, slug))
}

func (f *fakeStore) EnsureMatchday(_ context.Context, seasonID int64, slug, _ string) (int64, error) {
	return f.ensure("matchday", fmt.Sprintf("%d/%s", seasonID, slug))
}

func (f *fakeStore) EnsureSpecialTag(_ context.Context, name string) (int64, error) {
	return f.ensure("tag", name)
}

func (f *fakeStore) ExistingMatchLinks(_ context.Context, links []string) (map[string]bool, error) {
	if f.linksErr != nil {
		return nil, f.linksErr
	}
	out := make(map[string]bool)
	for _, l := range links {
		if f.existing[l] {
			out[l] = true
		}
	}
	return out, nil
}

func (f *fakeStore) InsertMatches(_ context.Context, rows []storage.MatchRow) ([]string, error) {
	var links []string
	for _, r := range rows {
		if f.conflicting[r.Link] {
			continue
		}
		f.inserted = append(f.inserted, r)
		links = append(links, r.Link)
	}
	return links, nil
}

func (f *fakeStore) UpsertMatches(_ context.Context, rows []storage.MatchRow) (int, error) {
	f.updated = append(f.updated, rows...)
	return len(rows), nil
}

func (f *fakeStore) InsertGoalEvents(_ context.Context, rows []storage.GoalEventRow) (int, error) {
	f.goalRows = append(f.goalRows, rows...)
	return len(rows), nil
}

func (f *fakeStore) ListCountries(context.Context) ([]storage.Country, error) { return nil, nil }
func (f *fakeStore) ListLeagues(context.Context, string) ([]storage.League, error) {
	return nil, nil
}
func (f *fakeStore) ListSeasons(context.Context, int64) ([]storage.Season, error) { return nil, nil }
func (f *fakeStore) ListPhases(context.Context, int64) ([]storage.Phase, error)   { return nil, nil }
func (f *fakeStore) ListTeams(context.Context) ([]storage.Team, error)            { return nil, nil }
func (f *fakeStore) GetTeam(context.Context, int64) (storage.Team, bool, error) {
	return storage.Team{}, false, nil
}
func (f *fakeStore) SeasonMatchFacts(context.Context, int64) ([]storage.MatchFacts, error) {
	return nil, nil
}
func (f *fakeStore) Close() error { return nil }

func intPtr(v int) *int { return &v }

func rawMatch(link string, homeGoals, awayGoals *int) models.RawMatch {
	return models.RawMatch{
		Link:        link,
		CountryName: "Espana",
		CountrySlug: "espana",
		LeagueName:  "LaLiga",
		SeasonLabel: "2024/2025",
		Phase:       "LaLiga",
		Matchday:    "Jornada 1",
		KickoffRaw:  "15.08. 21:00",
		HomeTeam:    "Real Madrid",
		AwayTeam:    "Betis",
		HomeGoals:   homeGoals,
		AwayGoals:   awayGoals,
		CapturedAt:  time.Now().UTC(),
	}
}

func TestIngestNewMatches(t *testing.T) {
	store := newFakeStore()
	ing := NewIngester(store)

	raws := []models.RawMatch{
		rawMatch("/match/1", intPtr(2), intPtr(1)),
		rawMatch("/match/2", nil, nil),
	}

	rep, err := ing.Ingest(context.Background(), raws)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if rep.Inserted != 2 || rep.Updated != 0 || rep.Skipped != 0 || rep.Rejected != 0 {
		t.Errorf("unexpected report: %+v", rep)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("expected 2 inserted rows, got %d", len(store.inserted))
	}
	if len(rep.InsertedLinks) != 2 {
		t.Errorf("expected 2 inserted links, got %v", rep.InsertedLinks)
	}

	finalized := store.inserted[0]
	scheduled := store.inserted[1]
	if finalized.HomeGoals == nil || *finalized.HomeGoals != 2 {
		t.Errorf("finalized row lost its score: %+v", finalized)
	}
	if scheduled.HomeGoals != nil {
		t.Errorf("scheduled row has a score: %+v", scheduled)
	}
	if finalized.StatusID == scheduled.StatusID {
		t.Error("finalized and scheduled rows share a status id")
	}
	if finalized.KickoffAt == nil {
		t.Error("kickoff was not parsed")
	}
}

func TestIngestSkipsExistingUnfinished(t *testing.T) {
	store := newFakeStore()
	store.existing["/match/1"] = true
	ing := NewIngester(store)

	rep, err := ing.Ingest(context.Background(), []models.RawMatch{
		rawMatch("/match/1", nil, nil),
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if rep.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %+v", rep)
	}
	if len(store.inserted) != 0 || len(store.updated) != 0 {
		t.Error("skipped match must not touch the store")
	}
}

func TestIngestUpdatesExistingFinalized(t *testing.T) {
	store := newFakeStore()
	store.existing["/match/1"] = true
	ing := NewIngester(store)

	rep, err := ing.Ingest(context.Background(), []models.RawMatch{
		rawMatch("/match/1", intPtr(3), intPtr(0)),
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if rep.Updated != 1 || rep.Inserted != 0 {
		t.Errorf("expected 1 updated, got %+v", rep)
	}
	if len(store.updated) != 1 {
		t.Fatalf("expected 1 upserted row, got %d", len(store.updated))
	}
	if len(rep.InsertedLinks) != 0 {
		t.Errorf("updates must not feed goal extraction: %v", rep.InsertedLinks)
	}
}

func TestIngestRejectsInvalidRecords(t *testing.T) {
	store := newFakeStore()
	ing := NewIngester(store)

	noSlug := rawMatch("/match/1", intPtr(1), intPtr(1))
	noSlug.CountrySlug = ""
	noLink := rawMatch("", nil, nil)

	rep, err := ing.Ingest(context.Background(), []models.RawMatch{
		noSlug,
		noLink,
		rawMatch("/match/2", intPtr(0), intPtr(0)),
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if rep.Rejected != 2 || rep.Inserted != 1 {
		t.Errorf("expected 2 rejected and 1 inserted, got %+v", rep)
	}
}

func TestIngestResolvesEntitiesOnce(t *testing.T) {
	store := newFakeStore()
	ing := NewIngester(store)

	raws := []models.RawMatch{
		rawMatch("/match/1", intPtr(1), intPtr(0)),
		rawMatch("/match/2", intPtr(2), intPtr(2)),
		rawMatch("/match/3", intPtr(0), intPtr(3)),
	}
	if _, err := ing.Ingest(context.Background(), raws); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if n := store.ensureCalls["country:espana"]; n != 1 {
		t.Errorf("country resolved %d times, want 1", n)
	}
	if n := store.ensureCalls["team:real-madrid"]; n != 1 {
		t.Errorf("team resolved %d times, want 1", n)
	}
}

func TestIngestExcludesInsertRaceLosers(t *testing.T) {
	store := newFakeStore()
	store.conflicting["/match/2"] = true
	ing := NewIngester(store)

	rep, err := ing.Ingest(context.Background(), []models.RawMatch{
		rawMatch("/match/1", intPtr(1), intPtr(0)),
		rawMatch("/match/2", intPtr(2), intPtr(2)),
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if rep.Inserted != 1 {
		t.Errorf("inserted = %d, want 1 (race loser must not count)", rep.Inserted)
	}
	if len(rep.InsertedLinks) != 1 || rep.InsertedLinks[0] != "/match/1" {
		t.Errorf("inserted links = %v, race loser must not be goal-scraped again", rep.InsertedLinks)
	}
}

func TestIngestAbortsWhenStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	store.linksErr = fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	ing := NewIngester(store)

	_, err := ing.Ingest(context.Background(), []models.RawMatch{
		rawMatch("/match/1", intPtr(1), intPtr(1)),
	})
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestIngestGoals(t *testing.T) {
	store := newFakeStore()
	ing := NewIngester(store)

	n, err := ing.IngestGoals(context.Background(), []models.RawGoalEvent{
		{MatchLink: "/match/1", IsHome: true, Minute: 12, MinuteRaw: "12'", ScorerName: "Vinicius"},
		{MatchLink: "", Minute: 30}, // dropped, no link
		{MatchLink: "/match/1", IsHome: false, Minute: 88, MinuteRaw: "88'", ScorerName: "Isco"},
	})
	if err != nil {
		t.Fatalf("IngestGoals failed: %v", err)
	}

	if n != 2 {
		t.Errorf("expected 2 inserted events, got %d", n)
	}
	if len(store.goalRows) != 2 {
		t.Errorf("expected 2 stored rows, got %d", len(store.goalRows))
	}
}
