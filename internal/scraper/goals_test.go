package scraper

import "testing"

func TestParseMinute(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"23'", 23},
		{"45+2'", 45},
		{"90+5'", 90},
		{"7", 7},
		{" 12' ", 12},
		{"", 0},
		{"'", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		if got := parseMinute(tt.raw); got != tt.want {
			t.Errorf("parseMinute(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
