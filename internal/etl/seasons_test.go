package etl

import (
	"testing"
	"time"
)

func TestSeasonSpan(t *testing.T) {
	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name     string
		label    string
		wantType string
		wantFrom *time.Time
		wantTo   *time.Time
	}{
		{
			name:     "annual",
			label:    "2024/2025",
			wantType: SeasonTypeAnnual,
			wantFrom: date(2024, time.July, 1),
			wantTo:   date(2025, time.June, 30),
		},
		{
			name:     "annual with short end year",
			label:    "2024/25",
			wantType: SeasonTypeAnnual,
			wantFrom: date(2024, time.July, 1),
			wantTo:   date(2025, time.June, 30),
		},
		{
			name:     "calendar",
			label:    "2025",
			wantType: SeasonTypeCalendar,
			wantFrom: date(2025, time.January, 1),
			wantTo:   date(2025, time.December, 31),
		},
		{
			name:     "no year",
			label:    "Clausura",
			wantType: SeasonTypeCalendar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, from, to := SeasonSpan(tt.label)
			if typ != tt.wantType {
				t.Errorf("SeasonSpan(%q) type = %q, want %q", tt.label, typ, tt.wantType)
			}
			if !datesEqual(from, tt.wantFrom) {
				t.Errorf("SeasonSpan(%q) from = %v, want %v", tt.label, from, tt.wantFrom)
			}
			if !datesEqual(to, tt.wantTo) {
				t.Errorf("SeasonSpan(%q) to = %v, want %v", tt.label, to, tt.wantTo)
			}
		})
	}
}

func datesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Real Madrid", "real-madrid"},
		{"  LaLiga  ", "laliga"},
		{"Jornada 12", "jornada-12"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
