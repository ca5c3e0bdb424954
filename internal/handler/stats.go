package handler

import (
	"context"
	"net/http"

	"github.com/aidar/challenge-portal/internal/service"
)

// StatsProvider статистика регистраций
type StatsProvider interface {
	GetStats(ctx context.Context) (*service.Stats, error)
}

// StatsHandler обрабатывает эндпоинты статистики
type StatsHandler struct {
	statsService StatsProvider
}

// NewStatsHandler создает новый StatsHandler
func NewStatsHandler(statsService StatsProvider) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetStats обрабатывает GET /admin/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetStats(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, stats)
}
