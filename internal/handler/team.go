package handler

import (
	"context"
	"net/http"

	"github.com/aidar/challenge-portal/internal/domain"
)

// TeamLister список команд для шага выбора команды
type TeamLister interface {
	ListTeams(ctx context.Context) ([]*domain.TeamSummary, error)
}

// TeamHandler обрабатывает эндпоинты команд
type TeamHandler struct {
	teamService TeamLister
}

// NewTeamHandler создает новый TeamHandler
func NewTeamHandler(teamService TeamLister) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// ListTeamsResponse представляет ответ со списком команд
type ListTeamsResponse struct {
	Teams []*domain.TeamSummary `json:"teams"`
}

// ListTeams обрабатывает GET /teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListTeams(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, ListTeamsResponse{Teams: teams})
}
