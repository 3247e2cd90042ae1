package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/common/security"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService     *service.ContestService
	leaderboardService *service.LeaderboardService
}

func NewContestHandler(cs *service.ContestService, ls *service.LeaderboardService) *ContestHandler {
	return &ContestHandler{contestService: cs, leaderboardService: ls}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{contestID}", h.getContest)
	r.Get("/slug/{contestSlug}", h.getContestBySlug)
	r.Get("/{contestID}/problems", h.listProblems)

	r.Group(func(staff chi.Router) {
		staff.Use(middleware.Authenticator)
		staff.With(middleware.Require(security.ResourceContestManage)).Post("/", h.createContest)
		staff.With(middleware.Require(security.ResourceContestManage)).Post("/{contestID}/problems", h.addProblem)
		staff.With(middleware.Require(security.ResourceContestFreeze)).Post("/{contestID}/freeze", h.freeze)
		staff.With(middleware.Require(security.ResourceContestFreeze)).Post("/{contestID}/unfreeze", h.unfreeze)
		staff.With(middleware.Require(security.ResourceContestFreeze)).Put("/{contestID}/auto-freeze", h.setAutoFreeze)
	})
}

func (h *ContestHandler) createContest(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req service.CreateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	contest, err := h.contestService.CreateContest(r.Context(), role, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contestService.GetContest(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) getContestBySlug(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contestService.GetContestBySlug(r.Context(), chi.URLParam(r, "contestSlug"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.contestService.ListProblems(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *ContestHandler) addProblem(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req service.AddProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	problem, err := h.contestService.AddProblem(r.Context(), role, chi.URLParam(r, "contestID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ContestHandler) freeze(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	if err := h.leaderboardService.Freeze(r.Context(), chi.URLParam(r, "contestID"), role); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "leaderboard frozen"})
}

func (h *ContestHandler) unfreeze(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	if err := h.leaderboardService.Unfreeze(r.Context(), chi.URLParam(r, "contestID"), role); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "leaderboard unfrozen"})
}

func (h *ContestHandler) setAutoFreeze(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetRoleFromContext(r.Context())

	var req struct {
		AutoFreezeAt *time.Time `json:"auto_freeze_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.contestService.SetAutoFreeze(r.Context(), role, chi.URLParam(r, "contestID"), req.AutoFreezeAt); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "auto freeze updated"})
}
