package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aidar/challenge-portal/internal/catalog"
	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/service"
)

// RouteCatalog данные маршрутов и GPX треков
type RouteCatalog interface {
	List() []catalog.RouteInfo
	Describe(ctx context.Context, route domain.Route) (*service.RouteView, error)
	OpenGPX(route domain.Route) (*os.File, error)
}

// RouteHandler обрабатывает эндпоинты маршрутов
type RouteHandler struct {
	routes RouteCatalog
}

// NewRouteHandler создает новый RouteHandler
func NewRouteHandler(routes RouteCatalog) *RouteHandler {
	return &RouteHandler{routes: routes}
}

// ListRoutesResponse список маршрутов в порядке отображения
type ListRoutesResponse struct {
	Routes []catalog.RouteInfo `json:"routes"`
}

// List обрабатывает GET /routes
func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, http.StatusOK, ListRoutesResponse{Routes: h.routes.List()})
}

// Get обрабатывает GET /routes/{route}
func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.routes.Describe(r.Context(), domain.Route(chi.URLParam(r, "route")))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, view)
}

// GPX обрабатывает GET /routes/{route}/gpx (скачивание трека)
func (h *RouteHandler) GPX(w http.ResponseWriter, r *http.Request) {
	route := domain.Route(chi.URLParam(r, "route"))
	if !route.Valid() {
		HandleError(w, r, domain.ErrUnknownRoute)
		return
	}

	f, err := h.routes.OpenGPX(route)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.gpx"`, strings.ToLower(string(route))))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}
