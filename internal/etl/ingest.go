package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ligastats/ligastats/internal/pkg/models"
	"github.com/ligastats/ligastats/internal/pkg/storage"
)

// Match status names as stored in the statuses table.
const (
	StatusScheduled = "Programado"
	StatusFinalized = "Finalizado"
)

const (
	// linkChunkSize bounds how many candidate links go into one
	// existing-match lookup round-trip.
	linkChunkSize = 400
	// writeBatchSize bounds how many rows go into one insert/upsert
	// round-trip.
	writeBatchSize = 100
)

// Report summarizes one Ingest call. Counts reflect rows actually submitted
// to the store, not validated input size.
type Report struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`  // existing, still-unfinished: left untouched
	Rejected int `json:"rejected"` // dropped by validation or per-record failures

	// InsertedLinks are the links submitted as new rows, for follow-up
	// goal extraction.
	InsertedLinks []string `json:"-"`
}

// Ingester resolves raw matches into the normalized entity hierarchy and
// persists them with idempotent, non-clobbering semantics.
type Ingester struct {
	store storage.Store
}

func NewIngester(store storage.Store) *Ingester {
	return &Ingester{store: store}
}

// resolveCache memoizes natural key -> id per entity type for one Ingest
// call. Not shared across calls.
type resolveCache struct {
	countries map[string]int64
	leagues   map[string]int64
	seasons   map[string]int64
	teams     map[string]int64
	statuses  map[string]int64
	phases    map[string]int64
	matchdays map[string]int64
	tags      map[string]int64
}

func newResolveCache() *resolveCache {
	return &resolveCache{
		countries: make(map[string]int64),
		leagues:   make(map[string]int64),
		seasons:   make(map[string]int64),
		teams:     make(map[string]int64),
		statuses:  make(map[string]int64),
		phases:    make(map[string]int64),
		matchdays: make(map[string]int64),
		tags:      make(map[string]int64),
	}
}

// Ingest runs the full resolution and write pipeline for one batch.
//
// Disposition per record: existing and not finalized -> skip (a stored match
// is never overwritten with a less complete one); existing and finalized ->
// update; new -> insert. Per-record failures drop only that record; a store
// connectivity failure aborts the call.
func (ing *Ingester) Ingest(ctx context.Context, raws []models.RawMatch) (Report, error) {
	var rep Report
	if len(raws) == 0 {
		return rep, nil
	}

	valid := make([]models.RawMatch, 0, len(raws))
	for _, rm := range raws {
		if reason := validateRaw(&rm); reason != "" {
			rep.Rejected++
			slog.Warn("Rejecting raw match", "link", rm.Link, "reason", reason)
			continue
		}
		valid = append(valid, rm)
	}
	if len(valid) == 0 {
		return rep, nil
	}

	existing, err := ing.existingLinks(ctx, valid)
	if err != nil {
		return rep, fmt.Errorf("failed to look up existing matches: %w", err)
	}

	cache := newResolveCache()
	var inserts, updates []storage.MatchRow

	for _, rm := range valid {
		exists := existing[rm.Link]
		final := rm.Finalized()

		if exists && !final {
			rep.Skipped++
			continue
		}

		row, err := ing.buildRow(ctx, cache, &rm, final)
		if err != nil {
			if isFatal(ctx, err) {
				return rep, fmt.Errorf("failed to resolve entities for %s: %w", rm.Link, err)
			}
			rep.Rejected++
			slog.Error("Dropping raw match after resolution failure", "link", rm.Link, "error", err)
			continue
		}

		if exists {
			updates = append(updates, row)
		} else {
			inserts = append(inserts, row)
		}
	}

	insertedLinks, err := ing.insertBatches(ctx, inserts)
	if err != nil {
		return rep, err
	}
	rep.Inserted = len(insertedLinks)
	rep.InsertedLinks = insertedLinks

	updated, err := ing.updateBatches(ctx, updates)
	if err != nil {
		return rep, err
	}
	rep.Updated = updated

	slog.Info("Ingest finished",
		"input", len(raws), "inserted", rep.Inserted, "updated", rep.Updated,
		"skipped", rep.Skipped, "rejected", rep.Rejected)
	return rep, nil
}

// IngestGoals persists goal events for already ingested matches.
func (ing *Ingester) IngestGoals(ctx context.Context, events []models.RawGoalEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	rows := make([]storage.GoalEventRow, 0, len(events))
	for _, ev := range events {
		if ev.MatchLink == "" {
			continue
		}
		rows = append(rows, storage.GoalEventRow{
			MatchLink: ev.MatchLink,
			IsHome:    ev.IsHome,
			Minute:    ev.Minute,
			MinuteRaw: ev.MinuteRaw,
			Period:    ev.PeriodLabel,
			Scorer:    ev.ScorerName,
			ScrapedAt: ev.CapturedAt,
		})
	}

	total := 0
	for start := 0; start < len(rows); start += writeBatchSize {
		end := min(start+writeBatchSize, len(rows))
		n, err := ing.store.InsertGoalEvents(ctx, rows[start:end])
		if err != nil {
			if isFatal(ctx, err) {
				return total, fmt.Errorf("failed to insert goal events: %w", err)
			}
			slog.Error("Goal event batch failed, continuing", "batch_size", end-start, "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

// validateRaw returns a rejection reason, or "" for a valid record. All
// missing required fields are per-record rejections, including the country
// slug (uniform policy; the rejection is reported, not raised).
func validateRaw(rm *models.RawMatch) string {
	switch {
	case rm.Link == "":
		return "missing link"
	case rm.CountrySlug == "":
		return "missing country slug"
	case rm.LeagueName == "":
		return "missing league"
	case rm.SeasonLabel == "":
		return "missing season label"
	case rm.HomeTeam == "":
		return "missing home team"
	case rm.AwayTeam == "":
		return "missing away team"
	}
	return ""
}

// existingLinks fetches the subset of candidate links already stored, in
// bounded chunks.
func (ing *Ingester) existingLinks(ctx context.Context, valid []models.RawMatch) (map[string]bool, error) {
	seen := make(map[string]bool, len(valid))
	links := make([]string, 0, len(valid))
	for _, rm := range valid {
		if !seen[rm.Link] {
			seen[rm.Link] = true
			links = append(links, rm.Link)
		}
	}

	existing := make(map[string]bool, len(links))
	for start := 0; start < len(links); start += linkChunkSize {
		end := min(start+linkChunkSize, len(links))
		chunk, err := ing.store.ExistingMatchLinks(ctx, links[start:end])
		if err != nil {
			return nil, err
		}
		for link := range chunk {
			existing[link] = true
		}
	}
	return existing, nil
}

// buildRow runs the resolution cascade for one record: country -> league ->
// season -> teams -> status -> optional phase/matchday/tag.
func (ing *Ingester) buildRow(ctx context.Context, cache *resolveCache, rm *models.RawMatch, final bool) (storage.MatchRow, error) {
	var row storage.MatchRow

	countryID, err := ing.resolve(ctx, cache.countries, rm.CountrySlug, func() (int64, error) {
		return ing.store.EnsureCountry(ctx, rm.CountrySlug, rm.CountryName)
	})
	if err != nil {
		return row, fmt.Errorf("country %q: %w", rm.CountrySlug, err)
	}

	leagueSlug := Slugify(rm.LeagueName)
	leagueID, err := ing.resolve(ctx, cache.leagues, scopedKey(countryID, leagueSlug), func() (int64, error) {
		return ing.store.EnsureLeague(ctx, countryID, leagueSlug, rm.LeagueName)
	})
	if err != nil {
		return row, fmt.Errorf("league %q: %w", leagueSlug, err)
	}

	seasonID, err := ing.resolve(ctx, cache.seasons, scopedKey(leagueID, rm.SeasonLabel), func() (int64, error) {
		typ, from, to := SeasonSpan(rm.SeasonLabel)
		return ing.store.EnsureSeason(ctx, storage.SeasonRow{
			LeagueID:  leagueID,
			Label:     rm.SeasonLabel,
			Type:      typ,
			StartDate: from,
			EndDate:   to,
		})
	})
	if err != nil {
		return row, fmt.Errorf("season %q: %w", rm.SeasonLabel, err)
	}

	homeSlug := Slugify(rm.HomeTeam)
	homeID, err := ing.resolve(ctx, cache.teams, homeSlug, func() (int64, error) {
		return ing.store.EnsureTeam(ctx, homeSlug, rm.HomeTeam)
	})
	if err != nil {
		return row, fmt.Errorf("home team %q: %w", homeSlug, err)
	}

	awaySlug := Slugify(rm.AwayTeam)
	awayID, err := ing.resolve(ctx, cache.teams, awaySlug, func() (int64, error) {
		return ing.store.EnsureTeam(ctx, awaySlug, rm.AwayTeam)
	})
	if err != nil {
		return row, fmt.Errorf("away team %q: %w", awaySlug, err)
	}

	statusName := StatusScheduled
	if final {
		statusName = StatusFinalized
	}
	statusID, err := ing.resolve(ctx, cache.statuses, statusName, func() (int64, error) {
		return ing.store.EnsureStatus(ctx, statusName)
	})
	if err != nil {
		return row, fmt.Errorf("status %q: %w", statusName, err)
	}

	var phaseID *int64
	if rm.Phase != "" {
		phaseSlug := Slugify(rm.Phase)
		id, err := ing.resolve(ctx, cache.phases, scopedKey(seasonID, phaseSlug), func() (int64, error) {
			return ing.store.EnsurePhase(ctx, seasonID, phaseSlug, rm.Phase)
		})
		if err != nil {
			return row, fmt.Errorf("phase %q: %w", phaseSlug, err)
		}
		phaseID = &id
	}

	var matchdayID *int64
	if rm.Matchday != "" {
		mdSlug := Slugify(rm.Matchday)
		id, err := ing.resolve(ctx, cache.matchdays, scopedKey(seasonID, mdSlug), func() (int64, error) {
			return ing.store.EnsureMatchday(ctx, seasonID, mdSlug, rm.Matchday)
		})
		if err != nil {
			return row, fmt.Errorf("matchday %q: %w", mdSlug, err)
		}
		matchdayID = &id
	}

	var tagID *int64
	if rm.SpecialTag != "" {
		id, err := ing.resolve(ctx, cache.tags, rm.SpecialTag, func() (int64, error) {
			return ing.store.EnsureSpecialTag(ctx, rm.SpecialTag)
		})
		if err != nil {
			return row, fmt.Errorf("special tag %q: %w", rm.SpecialTag, err)
		}
		tagID = &id
	}

	var kickoff *time.Time
	if t, ok := ParseMatchTime(rm.KickoffRaw, rm.SeasonLabel); ok {
		kickoff = &t
	}

	return storage.MatchRow{
		Link:         rm.Link,
		SeasonID:     seasonID,
		StatusID:     statusID,
		PhaseID:      phaseID,
		MatchdayID:   matchdayID,
		SpecialTagID: tagID,
		HomeTeamID:   homeID,
		AwayTeamID:   awayID,
		KickoffAt:    kickoff,
		KickoffRaw:   rm.KickoffRaw,
		HomeGoals:    rm.HomeGoals,
		AwayGoals:    rm.AwayGoals,
		ScrapedAt:    rm.CapturedAt,
	}, nil
}

// resolve consults the per-run cache before hitting the store.
func (ing *Ingester) resolve(ctx context.Context, cache map[string]int64, key string, ensure func() (int64, error)) (int64, error) {
	if id, ok := cache[key]; ok {
		return id, nil
	}
	id, err := ensure()
	if err != nil {
		return 0, err
	}
	cache[key] = id
	return id, nil
}

// insertBatches submits new rows in bounded batches and returns the links the
// store reports as actually inserted. A row that lost an insert race against
// a concurrent run is excluded, so it is neither counted nor scraped for
// goals a second time. A failed batch is logged and skipped unless the store
// itself became unreachable; already-written batches stay committed either way.
func (ing *Ingester) insertBatches(ctx context.Context, rows []storage.MatchRow) ([]string, error) {
	var links []string
	for start := 0; start < len(rows); start += writeBatchSize {
		end := min(start+writeBatchSize, len(rows))
		batch := rows[start:end]
		inserted, err := ing.store.InsertMatches(ctx, batch)
		if err != nil {
			if isFatal(ctx, err) {
				return links, fmt.Errorf("failed to insert matches: %w", err)
			}
			slog.Error("Match batch failed, continuing", "batch_size", len(batch), "error", err)
			continue
		}
		links = append(links, inserted...)
	}
	return links, nil
}

// updateBatches submits finalized rows for existing matches, with the same
// per-batch error policy as insertBatches.
func (ing *Ingester) updateBatches(ctx context.Context, rows []storage.MatchRow) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += writeBatchSize {
		end := min(start+writeBatchSize, len(rows))
		batch := rows[start:end]
		n, err := ing.store.UpsertMatches(ctx, batch)
		if err != nil {
			if isFatal(ctx, err) {
				return total, fmt.Errorf("failed to update matches: %w", err)
			}
			slog.Error("Match batch failed, continuing", "batch_size", len(batch), "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

func scopedKey(parentID int64, key string) string {
	return fmt.Sprintf("%d/%s", parentID, key)
}

// isFatal reports whether a store error must abort the whole call instead of
// dropping one record.
func isFatal(ctx context.Context, err error) bool {
	return errors.Is(err, storage.ErrUnavailable) || ctx.Err() != nil
}
