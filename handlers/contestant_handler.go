package handlers

import (
	"net/http"

	"github.com/Dosada05/prediction-league/services"
)

type ContestantHandler struct {
	contestantService services.ContestantService
	predictionService services.PredictionService
}

func NewContestantHandler(cs services.ContestantService, ps services.PredictionService) *ContestantHandler {
	return &ContestantHandler{contestantService: cs, predictionService: ps}
}

func (h *ContestantHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterContestantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contestant, err := h.contestantService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /api/contestants; ?all=true включает неактивных.
func (h *ContestantHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	contestants, err := h.contestantService.ListContestants(r.Context(), activeOnly)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contestants": contestants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestantHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "contestantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contestant, err := h.contestantService.GetContestant(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestantHandler) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "contestantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.contestantService.Deactivate(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPredictionsHandler обрабатывает GET /api/contestants/{contestantID}/predictions?limit=
func (h *ContestantHandler) ListPredictionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "contestantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	predictions, err := h.predictionService.ListByContestant(r.Context(), id, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"predictions": predictions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
