package scraper

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ligastats/ligastats/internal/pkg/models"
)

const (
	incidentRootSelector = "div.smv__verticalSections.section"
	incidentRowsSelector = incidentRootSelector + " > div"
	periodCellSelector   = ".wcl-cell_1y2-p"
	goalIconSelector     = `[data-testid="wcl-icon-incidents-goal-soccer"]`
)

// ExtractGoals scrapes the incident timeline of a match detail page into goal
// events. Rows whose side cannot be told apart are dropped; a missing timeline
// yields an empty result, not an error.
func (s *Session) ExtractGoals(matchLink string) []models.RawGoalEvent {
	if err := s.navigate(matchLink, s.cfg.DetailTimeout); err != nil {
		slog.Error("Match navigation failed", "link", matchLink, "error", err)
		return nil
	}
	if !s.waitReady(incidentRootSelector, s.cfg.DetailTimeout) {
		slog.Warn("Incident timeline not found", "link", matchLink)
		return nil
	}

	nodes := s.listNodes(incidentRowsSelector)
	capturedAt := time.Now().UTC()

	var out []models.RawGoalEvent
	var period string
	for _, node := range nodes {
		from := chromedp.FromNode(node)
		switch {
		case s.has(node, periodCellSelector):
			period = s.text(periodCellSelector, period, from)
		case s.has(node, goalIconSelector):
			var isHome bool
			switch {
			case s.has(node, ".smv__incidentHomeScore"):
				isHome = true
			case s.has(node, ".smv__incidentAwayScore"):
				isHome = false
			default:
				slog.Debug("Goal row with no side marker", "link", matchLink)
				continue
			}
			minuteRaw := s.text(".smv__timeBox", "", from)
			out = append(out, models.RawGoalEvent{
				MatchLink:   matchLink,
				IsHome:      isHome,
				Minute:      parseMinute(minuteRaw),
				MinuteRaw:   minuteRaw,
				PeriodLabel: period,
				ScorerName:  s.text(".smv__participantName", "", from),
				CapturedAt:  capturedAt,
			})
		}
	}

	slog.Info("Goals extracted", "link", matchLink, "events", len(out))
	return out
}

// parseMinute reduces timeline minute text to its base minute: "45+2'"
// becomes 45, "90'" becomes 90. Unparseable text maps to 0.
func parseMinute(raw string) int {
	v := strings.TrimSpace(raw)
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "'")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
