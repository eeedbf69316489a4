package etl

import (
	"strconv"
	"strings"
	"time"
)

// Season types as stored in the seasons table. An annual season spans two
// calendar years ("2024/2025"), a calendar season is a single year ("2025").
const (
	SeasonTypeAnnual   = "annual"
	SeasonTypeCalendar = "calendar"
)

// SeasonSpan derives the season type and boundary dates from its raw label.
// Annual seasons run July 1 of the first year through June 30 of the second;
// calendar seasons cover the whole year. Dates are nil when the label carries
// no usable year.
func SeasonSpan(label string) (string, *time.Time, *time.Time) {
	label = strings.TrimSpace(label)

	if m := seasonSpanRe.FindStringSubmatch(label); m != nil {
		start, _ := strconv.Atoi(m[1])
		end := expandEndYear(start, m[2])
		from := time.Date(start, time.July, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(end, time.June, 30, 0, 0, 0, 0, time.UTC)
		return SeasonTypeAnnual, &from, &to
	}

	typ := SeasonTypeCalendar
	if strings.Contains(label, "/") {
		// Label has a separator but no parseable span; keep the type honest.
		typ = SeasonTypeAnnual
	}

	if y := bareYearRe.FindString(label); y != "" {
		year, _ := strconv.Atoi(y)
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		return typ, &from, &to
	}

	return typ, nil, nil
}

// Slugify builds the natural-key slug for leagues, teams, phases and
// matchdays: lowercase, trimmed, spaces replaced by hyphens.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(name)), " ", "-")
}
