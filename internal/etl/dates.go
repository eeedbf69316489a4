package etl

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seasonSpanRe = regexp.MustCompile(`(\d{4})\s*/\s*(\d{2,4})`)
	bareYearRe   = regexp.MustCompile(`\b\d{4}\b`)
)

// ParseMatchTime converts results-page date text like "02.02. 18:20" or
// "2.2.2025 18:20:00" into a UTC timestamp. When the text carries no year it
// is inferred from the season label: for a "2024/2025" style season, months
// July onwards belong to the first year, the rest to the second. The second
// value is false when the text cannot be parsed; callers treat that as "date
// unknown", not as an error.
func ParseMatchTime(raw, seasonLabel string) (time.Time, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 2 {
		return time.Time{}, false
	}

	datePart := strings.TrimSuffix(fields[0], ".")
	dateTokens := strings.Split(datePart, ".")
	if len(dateTokens) < 2 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(dateTokens[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(dateTokens[1])
	if err != nil {
		return time.Time{}, false
	}

	year := 0
	if len(dateTokens) >= 3 && dateTokens[2] != "" {
		year, err = strconv.Atoi(dateTokens[2])
		if err != nil {
			return time.Time{}, false
		}
	}
	if year == 0 {
		year = inferYear(month, seasonLabel)
	}

	timeTokens := strings.Split(fields[1], ":")
	hour, err := strconv.Atoi(timeTokens[0])
	if err != nil {
		return time.Time{}, false
	}
	minute := 0
	if len(timeTokens) > 1 {
		minute, err = strconv.Atoi(timeTokens[1])
		if err != nil {
			return time.Time{}, false
		}
	}
	second := 0
	if len(timeTokens) > 2 {
		second, err = strconv.Atoi(timeTokens[2])
		if err != nil {
			return time.Time{}, false
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}

// inferYear picks the year for a day.month date with no explicit year.
func inferYear(month int, seasonLabel string) int {
	if m := seasonSpanRe.FindStringSubmatch(seasonLabel); m != nil {
		start, _ := strconv.Atoi(m[1])
		if month >= 7 {
			return start
		}
		return expandEndYear(start, m[2])
	}
	if y := bareYearRe.FindString(seasonLabel); y != "" {
		year, _ := strconv.Atoi(y)
		return year
	}
	return time.Now().UTC().Year()
}

// expandEndYear turns the end token of a season span into a full year,
// carrying the start year's century for 2-digit tokens. Known approximation:
// century boundaries are only handled by the roll-forward below.
func expandEndYear(start int, token string) int {
	end, _ := strconv.Atoi(token)
	if len(token) >= 4 {
		return end
	}
	end = start - start%100 + end
	if end < start {
		end += 100
	}
	return end
}
