package handlers

import (
	"net/http"

	"github.com/Dosada05/prediction-league/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	lb, err := h.leaderboardService.GetLeaderboard(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, lb, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
