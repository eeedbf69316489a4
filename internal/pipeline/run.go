package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/ligastats/ligastats/internal/etl"
	"github.com/ligastats/ligastats/internal/pkg/config"
	"github.com/ligastats/ligastats/internal/pkg/jobs"
	"github.com/ligastats/ligastats/internal/pkg/models"
	"github.com/ligastats/ligastats/internal/pkg/notify"
	"github.com/ligastats/ligastats/internal/pkg/storage"
	"github.com/ligastats/ligastats/internal/scraper"
)

// extractor is the browser surface the runner drives. Tests substitute it;
// production uses a scraper.Session.
type extractor interface {
	ExtractLeague(rawURL string, onlyFinished bool) []models.RawMatch
	ExtractGoals(matchLink string) []models.RawGoalEvent
	Close()
}

// Runner drives one league URL through scrape, ingest and goal enrichment.
type Runner struct {
	cfg      *config.Config
	store    storage.Store
	notifier *notify.Notifier

	newSession func(ctx context.Context, cfg config.ScraperConfig) (extractor, error)
}

func NewRunner(cfg *config.Config, store storage.Store, notifier *notify.Notifier) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		newSession: func(ctx context.Context, cfg config.ScraperConfig) (extractor, error) {
			return scraper.NewSession(ctx, cfg)
		},
	}
}

// Run executes the full pipeline for one league URL and returns run metrics.
// Panics from the browser layer are converted into errors so a bad page never
// takes the service down.
func (r *Runner) Run(ctx context.Context, url string) (m jobs.Metrics, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
		}
		if err != nil {
			slog.Error("Pipeline run failed", "url", url, "error", err)
			r.notifier.RunFailed(url, err)
		} else {
			slog.Info("Pipeline run completed", "url", url,
				"inserted", m.Inserted, "updated", m.Updated,
				"skipped", m.Skipped, "events", m.EventsInserted, "errors", m.Errors)
			r.notifier.RunCompleted(url, m)
		}
	}()

	session, err := r.newSession(ctx, r.cfg.Scraper)
	if err != nil {
		return m, fmt.Errorf("failed to open browser session: %w", err)
	}
	raws := session.ExtractLeague(url, true)
	session.Close()
	if len(raws) == 0 {
		// A results page with nothing finished yet is a valid outcome; the
		// run completes with zero counts. Hard page failures land here too
		// and were already logged by the extractor.
		slog.Warn("No matches extracted", "url", url)
		return m, nil
	}

	ing := etl.NewIngester(r.store)
	rep, err := ing.Ingest(ctx, raws)
	m = jobs.Metrics{
		Inserted: rep.Inserted,
		Updated:  rep.Updated,
		Skipped:  rep.Skipped,
		Errors:   rep.Rejected,
	}
	if err != nil {
		return m, err
	}

	if r.cfg.Scraper.GoalWorkers > 0 && len(rep.InsertedLinks) > 0 {
		events := r.scrapeGoals(ctx, rep.InsertedLinks)
		n, err := ing.IngestGoals(ctx, events)
		m.EventsInserted = n
		if err != nil {
			return m, err
		}
	}

	return m, nil
}

// RunMatch scrapes and persists goal events for a single stored match.
func (r *Runner) RunMatch(ctx context.Context, link string) (int, error) {
	session, err := r.newSession(ctx, r.cfg.Scraper)
	if err != nil {
		return 0, fmt.Errorf("failed to open browser session: %w", err)
	}
	events := session.ExtractGoals(link)
	session.Close()

	return etl.NewIngester(r.store).IngestGoals(ctx, events)
}

// scrapeGoals visits match detail pages on a bounded worker pool. Browser
// sessions are not concurrency safe, so each task gets its own. Failures are
// logged and skipped; goal enrichment is best effort.
func (r *Runner) scrapeGoals(ctx context.Context, links []string) []models.RawGoalEvent {
	p := pool.NewWithResults[[]models.RawGoalEvent]().WithMaxGoroutines(r.cfg.Scraper.GoalWorkers)
	for _, link := range links {
		p.Go(func() []models.RawGoalEvent {
			if ctx.Err() != nil {
				return nil
			}
			session, err := r.newSession(ctx, r.cfg.Scraper)
			if err != nil {
				slog.Error("Goal session failed", "link", link, "error", err)
				return nil
			}
			defer session.Close()
			return session.ExtractGoals(link)
		})
	}

	var out []models.RawGoalEvent
	for _, events := range p.Wait() {
		out = append(out, events...)
	}
	return out
}
