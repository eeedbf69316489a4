package analysis

import (
	"fmt"
	"math"
)

// MatchFact is one finished match, as read from storage.
type MatchFact struct {
	HomeTeam  string
	AwayTeam  string
	HomeGoals int
	AwayGoals int
}

// Prediction is a Poisson estimate for the total goals of a fixture.
type Prediction struct {
	HomeTeam      string  `json:"homeTeam"`
	AwayTeam      string  `json:"awayTeam"`
	ExpectedHome  float64 `json:"expectedHomeGoals"`
	ExpectedAway  float64 `json:"expectedAwayGoals"`
	ExpectedTotal float64 `json:"expectedTotalGoals"`
	GoalLine      float64 `json:"goalLine"`
	OverProb      float64 `json:"overProbability"`
	Pick          string  `json:"pick"`
	Confidence    string  `json:"confidence"`
	SampleSize    int     `json:"sampleSize"`
}

// minTeamMatches is the smallest per-team sample the model accepts. Below it
// the strength factors are noise.
const minTeamMatches = 3

type teamRecord struct {
	homeScored, homeConceded, homePlayed int
	awayScored, awayConceded, awayPlayed int
}

// Predict estimates total goals for home vs away from a season's finished
// matches, using league-relative attack and defence strengths as the Poisson
// rates. goalLine is the market line, typically 2.5.
func Predict(facts []MatchFact, home, away string, goalLine float64) (Prediction, error) {
	if len(facts) == 0 {
		return Prediction{}, fmt.Errorf("no finished matches to model")
	}

	records := make(map[string]*teamRecord)
	record := func(name string) *teamRecord {
		r, ok := records[name]
		if !ok {
			r = &teamRecord{}
			records[name] = r
		}
		return r
	}

	var totalHomeGoals, totalAwayGoals int
	for _, f := range facts {
		h, a := record(f.HomeTeam), record(f.AwayTeam)
		h.homeScored += f.HomeGoals
		h.homeConceded += f.AwayGoals
		h.homePlayed++
		a.awayScored += f.AwayGoals
		a.awayConceded += f.HomeGoals
		a.awayPlayed++
		totalHomeGoals += f.HomeGoals
		totalAwayGoals += f.AwayGoals
	}

	hr, ok := records[home]
	if !ok || hr.homePlayed < minTeamMatches {
		return Prediction{}, fmt.Errorf("not enough home matches for %q", home)
	}
	ar, ok := records[away]
	if !ok || ar.awayPlayed < minTeamMatches {
		return Prediction{}, fmt.Errorf("not enough away matches for %q", away)
	}

	leagueHomeAvg := float64(totalHomeGoals) / float64(len(facts))
	leagueAwayAvg := float64(totalAwayGoals) / float64(len(facts))
	if leagueHomeAvg == 0 || leagueAwayAvg == 0 {
		return Prediction{}, fmt.Errorf("degenerate league averages")
	}

	homeAttack := (float64(hr.homeScored) / float64(hr.homePlayed)) / leagueHomeAvg
	homeDefence := (float64(hr.homeConceded) / float64(hr.homePlayed)) / leagueAwayAvg
	awayAttack := (float64(ar.awayScored) / float64(ar.awayPlayed)) / leagueAwayAvg
	awayDefence := (float64(ar.awayConceded) / float64(ar.awayPlayed)) / leagueHomeAvg

	expectedHome := homeAttack * awayDefence * leagueHomeAvg
	expectedAway := awayAttack * homeDefence * leagueAwayAvg
	total := expectedHome + expectedAway

	overProb := 1 - poissonCDF(total, int(math.Floor(goalLine)))

	p := Prediction{
		HomeTeam:      home,
		AwayTeam:      away,
		ExpectedHome:  round2(expectedHome),
		ExpectedAway:  round2(expectedAway),
		ExpectedTotal: round2(total),
		GoalLine:      goalLine,
		OverProb:      round2(overProb),
		SampleSize:    len(facts),
	}
	if overProb >= 0.5 {
		p.Pick = fmt.Sprintf("OVER %.1f", goalLine)
	} else {
		p.Pick = fmt.Sprintf("UNDER %.1f", goalLine)
	}
	p.Confidence = confidence(overProb)
	return p, nil
}

// poissonCDF is P(X <= k) for X ~ Poisson(lambda).
func poissonCDF(lambda float64, k int) float64 {
	term := math.Exp(-lambda)
	sum := term
	for i := 1; i <= k; i++ {
		term *= lambda / float64(i)
		sum += term
	}
	return sum
}

func confidence(overProb float64) string {
	edge := math.Abs(overProb - 0.5)
	switch {
	case edge >= 0.2:
		return "HIGH"
	case edge >= 0.1:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
