package analysis

import (
	"math"
	"testing"
)

// evenFacts builds a league where every home side wins homeGoals-awayGoals,
// so all strength factors collapse to 1 and the expected totals are exact.
func evenFacts(homeGoals, awayGoals int) []MatchFact {
	var facts []MatchFact
	for i := 0; i < 3; i++ {
		facts = append(facts,
			MatchFact{HomeTeam: "Madrid", AwayTeam: "Betis", HomeGoals: homeGoals, AwayGoals: awayGoals},
			MatchFact{HomeTeam: "Betis", AwayTeam: "Madrid", HomeGoals: homeGoals, AwayGoals: awayGoals},
		)
	}
	return facts
}

func TestPredictOver(t *testing.T) {
	p, err := Predict(evenFacts(2, 1), "Madrid", "Betis", 2.5)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if p.ExpectedHome != 2 || p.ExpectedAway != 1 || p.ExpectedTotal != 3 {
		t.Errorf("expected goals = %v/%v/%v, want 2/1/3", p.ExpectedHome, p.ExpectedAway, p.ExpectedTotal)
	}
	if p.Pick != "OVER 2.5" {
		t.Errorf("pick = %q, want OVER 2.5", p.Pick)
	}
	// P(X > 2) for Poisson(3) is about 0.577.
	if p.OverProb < 0.55 || p.OverProb > 0.6 {
		t.Errorf("over probability = %v", p.OverProb)
	}
	if p.SampleSize != 6 {
		t.Errorf("sample size = %d, want 6", p.SampleSize)
	}
}

func TestPredictUnder(t *testing.T) {
	p, err := Predict(evenFacts(1, 1), "Madrid", "Betis", 2.5)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if p.Pick != "UNDER 2.5" {
		t.Errorf("pick = %q, want UNDER 2.5", p.Pick)
	}
	// P(X > 2) for Poisson(2) is about 0.323.
	if p.OverProb < 0.3 || p.OverProb > 0.35 {
		t.Errorf("over probability = %v", p.OverProb)
	}
}

func TestPredictErrors(t *testing.T) {
	if _, err := Predict(nil, "Madrid", "Betis", 2.5); err == nil {
		t.Error("expected error for empty facts")
	}
	if _, err := Predict(evenFacts(2, 1), "Sevilla", "Betis", 2.5); err == nil {
		t.Error("expected error for unknown home team")
	}

	thin := []MatchFact{
		{HomeTeam: "Madrid", AwayTeam: "Betis", HomeGoals: 1, AwayGoals: 0},
	}
	if _, err := Predict(thin, "Madrid", "Betis", 2.5); err == nil {
		t.Error("expected error for insufficient sample")
	}
}

func TestPoissonCDF(t *testing.T) {
	tests := []struct {
		lambda float64
		k      int
		want   float64
	}{
		{1, 0, 0.3679},
		{2, 2, 0.6767},
		{3, 2, 0.4232},
	}

	for _, tt := range tests {
		if got := poissonCDF(tt.lambda, tt.k); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("poissonCDF(%v, %d) = %v, want %v", tt.lambda, tt.k, got, tt.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		prob float64
		want string
	}{
		{0.9, "HIGH"},
		{0.25, "HIGH"},
		{0.62, "MEDIUM"},
		{0.52, "LOW"},
	}

	for _, tt := range tests {
		if got := confidence(tt.prob); got != tt.want {
			t.Errorf("confidence(%v) = %q, want %q", tt.prob, got, tt.want)
		}
	}
}
