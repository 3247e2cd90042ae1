package handler

import (
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(ls *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// Routes are public: anonymous viewers get the frozen view while a
// freeze is in effect, staff tokens get live standings.
func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{contestID}/leaderboard", h.getLeaderboard)
	r.Get("/{contestID}/leaderboard/{memberID}/{problemID}", h.getCell)
}

func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.leaderboardService.Build(r.Context(), chi.URLParam(r, "contestID"), middleware.ViewerRole(r))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, board)
}

func (h *LeaderboardHandler) getCell(w http.ResponseWriter, r *http.Request) {
	cell, err := h.leaderboardService.BuildCell(
		r.Context(),
		chi.URLParam(r, "contestID"),
		chi.URLParam(r, "memberID"),
		chi.URLParam(r, "problemID"),
		middleware.ViewerRole(r),
	)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, cell)
}
