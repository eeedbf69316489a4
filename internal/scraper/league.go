package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/ligastats/ligastats/internal/pkg/models"
)

const (
	sectionRowsSelector = "div.sportName.soccer > div"
	matchRowSelector    = ".event__match"
	loadMoreSelector    = `span[data-testid="wcl-scores-caption-05"]`
	teamNameSelector    = `[data-testid="wcl-scores-simple-text-01"]`
)

// leagueMeta is the page-level context every match row inherits.
type leagueMeta struct {
	countryName string
	countrySlug string
	leagueName  string
	seasonLabel string
}

// ExtractLeague scrapes every match row of a league page into raw records.
// With onlyFinished the URL is first rewritten to the results listing. A nil
// return means the page could not be reached or identified; partial pages
// still return whatever rows were readable.
func (s *Session) ExtractLeague(rawURL string, onlyFinished bool) []models.RawMatch {
	slug, err := CountrySlugFromURL(rawURL)
	if err != nil {
		slog.Error("League extraction aborted", "url", rawURL, "error", err)
		return nil
	}

	target := rawURL
	if onlyFinished {
		target = normalizeResultsURL(rawURL)
	}
	if err := s.navigate(target, s.cfg.NavTimeout); err != nil {
		slog.Error("League navigation failed", "url", target, "error", err)
		return nil
	}

	// The site sometimes bounces a results URL back to the fixtures tab.
	if onlyFinished {
		if loc := s.location(); loc != "" {
			if forced := forceResultsURL(loc); forced != loc {
				if err := s.navigate(forced, s.cfg.NavTimeout); err != nil {
					slog.Error("Results navigation failed", "url", forced, "error", err)
					return nil
				}
			}
		}
	}

	s.waitReady(sectionRowsSelector, s.cfg.NavTimeout)

	meta := leagueMeta{
		countryName: s.countryName(slug),
		countrySlug: slug,
		leagueName:  s.text("div.heading__name", "Unknown League"),
		seasonLabel: s.text("div.heading__info", "Unknown Season"),
	}

	s.expandPagination()

	nodes := s.listNodes(sectionRowsSelector)
	capturedAt := time.Now().UTC()

	var out []models.RawMatch
	var phase, matchday string
	for _, node := range nodes {
		class := node.AttributeValue("class")
		switch {
		case strings.Contains(class, "headerLeague__wrapper"):
			phase = s.text(".headerLeague__title-text", "", chromedp.FromNode(node))
			matchday = ""
		case strings.Contains(class, "event__round"):
			matchday = s.nodeText(node, "")
		case strings.Contains(class, "event__match"):
			if m, ok := s.matchFromNode(node, meta, phase, matchday, capturedAt); ok {
				out = append(out, m)
			}
		}
	}

	slog.Info("League extracted",
		"country", meta.countrySlug, "league", meta.leagueName,
		"season", meta.seasonLabel, "matches", len(out))
	return out
}

// matchFromNode reads one .event__match row. Rows missing a link or a team
// name are dropped here so downstream stages only see addressable matches.
func (s *Session) matchFromNode(node *cdp.Node, meta leagueMeta, phase, matchday string, capturedAt time.Time) (models.RawMatch, bool) {
	from := chromedp.FromNode(node)

	link := s.attr(".eventRowLink", "href", "", from)
	home := s.text(".event__homeParticipant "+teamNameSelector, "", from)
	away := s.text(".event__awayParticipant "+teamNameSelector, "", from)
	if link == "" || home == "" || away == "" {
		slog.Debug("Skipping malformed match row", "link", link, "home", home, "away", away)
		return models.RawMatch{}, false
	}

	m := models.RawMatch{
		Link:        link,
		CountryName: meta.countryName,
		CountrySlug: meta.countrySlug,
		LeagueName:  meta.leagueName,
		SeasonLabel: meta.seasonLabel,
		Phase:       phase,
		Matchday:    matchday,
		KickoffRaw:  s.firstTextNode(node, ".event__time", ""),
		HomeTeam:    home,
		AwayTeam:    away,
		SpecialTag:  s.text(".event__stage--block", "", from),
		CapturedAt:  capturedAt,
	}

	homeScore := s.text(".event__score--home", "", from)
	awayScore := s.text(".event__score--away", "", from)
	if isFinalScore(homeScore, awayScore) {
		hg, _ := strconv.Atoi(homeScore)
		ag, _ := strconv.Atoi(awayScore)
		m.HomeGoals, m.AwayGoals = &hg, &ag
	}

	return m, true
}

// isFinalScore reports whether both score cells hold plain integers. Dashes,
// empty cells and live annotations all mean the match is not final.
func isFinalScore(home, away string) bool {
	if _, err := strconv.Atoi(home); err != nil {
		return false
	}
	_, err := strconv.Atoi(away)
	return err == nil
}

// countryName reads the country from the breadcrumb, trying the slug-matched
// link first, then the second breadcrumb entry, then the slug itself.
func (s *Session) countryName(slug string) string {
	sel := fmt.Sprintf("a.breadcrumb__link[href^='/futbol/%s/']", slug)
	if name := s.text(sel, ""); name != "" {
		return name
	}
	name := s.evalString(
		`(() => { const els = document.querySelectorAll("a.breadcrumb__link[href^='/futbol/']"); return els.length > 1 ? els[1].textContent.trim() : ""; })()`,
		"")
	if name != "" {
		return name
	}
	return countryNameFromSlug(slug)
}

// expandPagination clicks "show more matches" until the button disappears,
// the row count stops growing, or the click bound is hit.
func (s *Session) expandPagination() {
	for clicks := 0; clicks < s.cfg.MaxPaginationClicks; clicks++ {
		if s.count(loadMoreSelector) == 0 {
			return
		}
		before := s.count(matchRowSelector)
		if err := s.click(loadMoreSelector, queryTimeout); err != nil {
			slog.Debug("Pagination click failed", "clicks", clicks, "error", err)
			return
		}
		if !s.waitForMoreRows(before) {
			return
		}
	}
	slog.Warn("Pagination click bound reached", "max", s.cfg.MaxPaginationClicks)
}

// waitForMoreRows blocks until the match row count exceeds before, or the
// pagination wait elapses.
func (s *Session) waitForMoreRows(before int) bool {
	tctx, cancel := context.WithTimeout(s.ctx, s.cfg.PaginationWait)
	defer cancel()

	var grew bool
	expr := fmt.Sprintf("document.querySelectorAll(%q).length > %d", matchRowSelector, before)
	err := chromedp.Run(tctx, chromedp.Poll(expr, &grew, chromedp.WithPollingTimeout(s.cfg.PaginationWait)))
	return err == nil && grew
}
