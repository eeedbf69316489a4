package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ligastats/ligastats/internal/pkg/analysis"
)

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListCountries(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrapeLeagueRequest struct {
	URL string `json:"url"`
}

// handleScrapeLeague accepts a league URL and runs the pipeline in the
// background; the caller polls the returned job id.
func (s *Server) handleScrapeLeague(w http.ResponseWriter, r *http.Request) {
	var req scrapeLeagueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"url\": \"...\"}")
		return
	}

	id := s.jobs.Create(req.URL)
	go func() {
		s.jobs.Start(id)
		metrics, err := s.runner.Run(s.baseCtx, req.URL)
		if err != nil {
			s.jobs.Fail(id, err)
			return
		}
		s.jobs.Finish(id, metrics)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": id})
}

type scrapeMatchRequest struct {
	Link string `json:"link"`
}

// handleScrapeMatch scrapes goal events for one match synchronously.
func (s *Server) handleScrapeMatch(w http.ResponseWriter, r *http.Request) {
	var req scrapeMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Link == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"link\": \"...\"}")
		return
	}

	n, err := s.runner.RunMatch(r.Context(), req.Link)
	if err != nil {
		slog.Error("Match scrape failed", "link", req.Link, "error", err)
		writeError(w, http.StatusInternalServerError, "match scrape failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"eventsInserted": n})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleJobClear(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.jobs.Clear()})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.store.ListCountries(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := s.store.ListLeagues(r.Context(), r.URL.Query().Get("country"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leagues)
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	leagueID, err := strconv.ParseInt(r.URL.Query().Get("league_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "league_id must be an integer")
		return
	}

	seasons, err := s.store.ListSeasons(r.Context(), leagueID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

func (s *Server) handlePhases(w http.ResponseWriter, r *http.Request) {
	var seasonID int64
	if v := r.URL.Query().Get("season_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "season_id must be an integer")
			return
		}
		seasonID = id
	}

	phases, err := s.store.ListPhases(r.Context(), seasonID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, phases)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

type poissonRequest struct {
	SeasonID int64   `json:"seasonId"`
	HomeTeam string  `json:"homeTeam"`
	AwayTeam string  `json:"awayTeam"`
	GoalLine float64 `json:"goalLine"`
}

func (s *Server) handlePoisson(w http.ResponseWriter, r *http.Request) {
	var req poissonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SeasonID == 0 || req.HomeTeam == "" || req.AwayTeam == "" {
		writeError(w, http.StatusBadRequest, "seasonId, homeTeam and awayTeam are required")
		return
	}
	if req.GoalLine == 0 {
		req.GoalLine = 2.5
	}

	rows, err := s.store.SeasonMatchFacts(r.Context(), req.SeasonID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	facts := make([]analysis.MatchFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, analysis.MatchFact{
			HomeTeam:  row.HomeTeam,
			AwayTeam:  row.AwayTeam,
			HomeGoals: row.HomeGoals,
			AwayGoals: row.AwayGoals,
		})
	}

	prediction, err := analysis.Predict(facts, req.HomeTeam, req.AwayTeam, req.GoalLine)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	slog.Error("Store query failed", "error", err)
	writeError(w, http.StatusInternalServerError, "database query failed")
}
