package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/prediction-league/models"
	"github.com/Dosada05/prediction-league/scoring"
	"github.com/Dosada05/prediction-league/services"
	"github.com/go-chi/chi/v5"
)

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a JSON object: %v\n%s", err, rec.Body.String())
	}
	return out
}

func matchRouter(ms *fakeMatchService, ss *fakeScoringService) http.Handler {
	h := NewMatchHandler(ms, ss)
	r := chi.NewRouter()
	r.Post("/matches", h.CreateHandler)
	r.Get("/matches", h.ListHandler)
	r.Get("/matches/{matchID}", h.GetByIDHandler)
	r.Put("/matches/{matchID}/result", h.RecordResultHandler)
	r.Patch("/matches/{matchID}/status", h.UpdateStatusHandler)
	r.Post("/matches/{matchID}/score", h.ScoreHandler)
	return r
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrMatchNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: id 7", services.ErrContestantNotFound), http.StatusNotFound},
		{services.ErrPredictionConflict, http.StatusConflict},
		{services.ErrMatchAlreadyScored, http.StatusConflict},
		{services.ErrPreconditionFailed, http.StatusConflict},
		{services.ErrInvalidScore, http.StatusUnprocessableEntity},
		{services.ErrValidationFailed, http.StatusUnprocessableEntity},
		{services.ErrPredictionWindowClosed, http.StatusForbidden},
		{services.ErrContestantInactive, http.StatusForbidden},
		{fmt.Errorf("%w: apply scores: %w", services.ErrStorageUnavailable, context.DeadlineExceeded), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Error("Retry-After header missing")
			}
			if _, ok := decode(t, rec)["error"]; !ok {
				t.Error("error key missing")
			}
		})
	}
}

func TestMatchHandler_Create(t *testing.T) {
	router := matchRouter(&fakeMatchService{}, &fakeScoringService{})

	rec := do(t, router, http.MethodPost, "/matches",
		`{"competition":"BL1","home_team":"Bayern","away_team":"Dortmund","kickoff_at":"2026-08-22T13:30:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var m models.Match
	if err := json.Unmarshal(decode(t, rec)["match"], &m); err != nil {
		t.Fatal(err)
	}
	if m.HomeTeam != "Bayern" || !m.KickoffAt.Equal(time.Date(2026, 8, 22, 13, 30, 0, 0, time.UTC)) {
		t.Errorf("match = %+v", m)
	}

	if rec := do(t, router, http.MethodPost, "/matches", `{"home_team":"A","venue":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestMatchHandler_List(t *testing.T) {
	ms := &fakeMatchService{matches: []*models.Match{{ID: 1}}}
	router := matchRouter(ms, &fakeScoringService{})

	rec := do(t, router, http.MethodGet, "/matches?status=finished&limit=10&offset=20", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ms.lastFilter.Status == nil || *ms.lastFilter.Status != models.MatchStatusFinished || ms.lastFilter.Limit != 10 || ms.lastFilter.Offset != 20 {
		t.Errorf("filter = %+v", ms.lastFilter)
	}

	do(t, router, http.MethodGet, "/matches?limit=100000", "")
	if ms.lastFilter.Limit != maxPageSize {
		t.Errorf("limit = %d, want %d", ms.lastFilter.Limit, maxPageSize)
	}

	if rec := do(t, router, http.MethodGet, "/matches?offset=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative offset status = %d, want 400", rec.Code)
	}
}

func TestMatchHandler_GetByID(t *testing.T) {
	ms := &fakeMatchService{detail: &services.MatchDetail{Match: &models.Match{ID: 5}}}
	router := matchRouter(ms, &fakeScoringService{})

	if rec := do(t, router, http.MethodGet, "/matches/5", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/matches/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	ms.err = services.ErrMatchNotFound
	if rec := do(t, router, http.MethodGet, "/matches/6", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing match status = %d, want 404", rec.Code)
	}
}

func TestMatchHandler_RecordResult(t *testing.T) {
	ms := &fakeMatchService{match: &models.Match{ID: 3, Status: models.MatchStatusFinished}}
	router := matchRouter(ms, &fakeScoringService{})

	rec := do(t, router, http.MethodPut, "/matches/3/result", `{"home_goals":0,"away_goals":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ms.lastResult != [2]int{0, 2} {
		t.Errorf("result = %v", ms.lastResult)
	}

	if rec := do(t, router, http.MethodPut, "/matches/3/result", `{"home_goals":1}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing away_goals status = %d, want 422", rec.Code)
	}

	ms.err = services.ErrMatchAlreadyScored
	if rec := do(t, router, http.MethodPut, "/matches/3/result", `{"home_goals":1,"away_goals":1}`); rec.Code != http.StatusConflict {
		t.Errorf("scored match status = %d, want 409", rec.Code)
	}
}

func TestMatchHandler_UpdateStatus(t *testing.T) {
	ms := &fakeMatchService{match: &models.Match{ID: 3, Status: models.MatchStatusLive}}
	router := matchRouter(ms, &fakeScoringService{})

	if rec := do(t, router, http.MethodPatch, "/matches/3/status", `{"status":"live"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ms.lastStatus != models.MatchStatusLive {
		t.Errorf("status passed = %q", ms.lastStatus)
	}
}

func TestMatchHandler_Score(t *testing.T) {
	ss := &fakeScoringService{report: &services.ScoringReport{
		RunID:  "run-1",
		Quotas: scoring.Quotas{Home: 3, Draw: 4, Away: 6},
		Scored: 4,
	}}
	router := matchRouter(&fakeMatchService{}, ss)

	rec := do(t, router, http.MethodPost, "/matches/42/score", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var report services.ScoringReport
	if err := json.Unmarshal(decode(t, rec)["report"], &report); err != nil {
		t.Fatal(err)
	}
	if report.MatchID != 42 || report.Scored != 4 || report.Quotas.Away != 6 {
		t.Errorf("report = %+v", report)
	}

	ss.err = fmt.Errorf("%w: match 42 is live", services.ErrPreconditionFailed)
	if rec := do(t, router, http.MethodPost, "/matches/42/score", ""); rec.Code != http.StatusConflict {
		t.Errorf("unfinished match status = %d, want 409", rec.Code)
	}
	ss.err = fmt.Errorf("%w: begin tx: %w", services.ErrStorageUnavailable, errors.New("pq: connection refused"))
	if rec := do(t, router, http.MethodPost, "/matches/42/score", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("storage failure status = %d, want 503", rec.Code)
	}
}

func contestantRouter(cs *fakeContestantService, ps *fakePredictionService) http.Handler {
	h := NewContestantHandler(cs, ps)
	r := chi.NewRouter()
	r.Post("/contestants", h.RegisterHandler)
	r.Get("/contestants", h.ListHandler)
	r.Get("/contestants/{contestantID}", h.GetByIDHandler)
	r.Delete("/contestants/{contestantID}", h.DeactivateHandler)
	r.Get("/contestants/{contestantID}/predictions", h.ListPredictionsHandler)
	return r
}

func TestContestantHandler(t *testing.T) {
	cs := &fakeContestantService{contestant: &models.Contestant{ID: 2, Slug: "openai/gpt-4o"}}
	ps := &fakePredictionService{predictions: []*models.Prediction{{ID: 1}}}
	router := contestantRouter(cs, ps)

	if rec := do(t, router, http.MethodPost, "/contestants", `{"slug":"openai/gpt-4o"}`); rec.Code != http.StatusCreated {
		t.Errorf("register status = %d", rec.Code)
	}

	do(t, router, http.MethodGet, "/contestants", "")
	if !cs.activeOnly {
		t.Error("default listing should hide inactive contestants")
	}
	do(t, router, http.MethodGet, "/contestants?all=true", "")
	if cs.activeOnly {
		t.Error("all=true should include inactive contestants")
	}

	if rec := do(t, router, http.MethodDelete, "/contestants/2", ""); rec.Code != http.StatusNoContent || cs.deactivated != 2 {
		t.Errorf("deactivate status = %d, id = %d", rec.Code, cs.deactivated)
	}

	rec := do(t, router, http.MethodGet, "/contestants/2/predictions?limit=25", "")
	if rec.Code != http.StatusOK || ps.lastLimit != 25 {
		t.Errorf("predictions status = %d, limit = %d", rec.Code, ps.lastLimit)
	}

	cs.err = services.ErrContestantSlugConflict
	if rec := do(t, router, http.MethodPost, "/contestants", `{"slug":"openai/gpt-4o"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestPredictionHandler_Submit(t *testing.T) {
	ps := &fakePredictionService{}
	h := NewPredictionHandler(ps)
	router := chi.NewRouter()
	router.Post("/predictions", h.SubmitHandler)

	rec := do(t, router, http.MethodPost, "/predictions", `{"match_id":1,"contestant_id":2,"predicted_home":2,"predicted_away":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := services.SubmitPredictionInput{MatchID: 1, ContestantID: 2, PredictedHome: 2, PredictedAway: 1}
	if ps.lastInput != want {
		t.Errorf("input = %+v, want %+v", ps.lastInput, want)
	}

	if rec := do(t, router, http.MethodPost, "/predictions", `{"match_id":"one"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d, want 400", rec.Code)
	}

	ps.err = services.ErrPredictionWindowClosed
	if rec := do(t, router, http.MethodPost, "/predictions", `{"match_id":1,"contestant_id":2}`); rec.Code != http.StatusForbidden {
		t.Errorf("closed window status = %d, want 403", rec.Code)
	}
}

func TestLeaderboardHandler_Get(t *testing.T) {
	ls := &fakeLeaderboardService{lb: &models.Leaderboard{
		Entries: []models.LeaderboardEntry{{Rank: 1, ContestantID: 3, TotalPoints: 17}},
	}}
	h := NewLeaderboardHandler(ls)

	rec := httptest.NewRecorder()
	h.GetHandler(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var lb models.Leaderboard
	if err := json.Unmarshal(rec.Body.Bytes(), &lb); err != nil {
		t.Fatal(err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].TotalPoints != 17 {
		t.Errorf("leaderboard = %+v", lb)
	}
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name   string
		checks map[string]HealthCheck
		want   int
	}{
		{"all up", map[string]HealthCheck{"postgres": ok, "redis": ok}, http.StatusOK},
		{"redis down", map[string]HealthCheck{"postgres": ok, "redis": down}, http.StatusServiceUnavailable},
		{"no checks", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks).GetHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
