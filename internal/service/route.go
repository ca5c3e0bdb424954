package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aidar/challenge-portal/internal/catalog"
	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/geotrack"
)

const (
	outlierQuantile  = 0.01
	boundsMarginFrac = 0.08
)

// RouteView is the route step presentation of a catalog entry
type RouteView struct {
	catalog.RouteInfo
	Available bool                  `json:"available"`
	Stats     *geotrack.Statistics  `json:"stats,omitempty"`
	AscentM   float64               `json:"ascent_m"`
	Bounds    *geotrack.BoundingBox `json:"bounds,omitempty"`
	CenterLat float64               `json:"center_lat"`
	CenterLon float64               `json:"center_lon"`
	Track     geotrack.Track        `json:"track,omitempty"`
}

// RouteService describes routes from the catalog and their GPX tracks
type RouteService struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewRouteService creates a new RouteService
func NewRouteService(c *catalog.Catalog, logger *slog.Logger) *RouteService {
	return &RouteService{catalog: c, logger: logger}
}

// List returns catalog metadata in display order
func (s *RouteService) List() []catalog.RouteInfo {
	return s.catalog.Routes()
}

// DefaultRoute picks the route preselected on the route step for a draft
func (s *RouteService) DefaultRoute(draft domain.Draft) domain.Route {
	var teamRoute domain.Route
	if draft.TeamRoute != nil {
		teamRoute = *draft.TeamRoute
	}
	return s.catalog.Default(teamRoute, draft.PreferredRoute)
}

// Describe parses the route track and computes the statistics shown on the
// route step. Distance and ascent come from the raw track; the map centre is
// taken from the outlier-trimmed track. A track that cannot be read yields a
// view with Available=false.
func (s *RouteService) Describe(_ context.Context, route domain.Route) (*RouteView, error) {
	info, err := s.catalog.Get(route)
	if err != nil {
		return nil, err
	}

	view := &RouteView{
		RouteInfo: info,
		AscentM:   info.AscentHintM,
		CenterLat: geotrack.DefaultLat,
		CenterLon: geotrack.DefaultLon,
	}

	track, err := geotrack.ParseFile(info.GPXPath)
	if err != nil {
		s.logger.Warn("Route track unavailable", "route", route, "error", err)
		return view, nil
	}

	raw := geotrack.ComputeStatistics(track)
	trimmed := geotrack.TrimOutliers(track, outlierQuantile)
	trimmedStats := geotrack.ComputeStatistics(trimmed)
	bounds := geotrack.ExpandedBounds(track, boundsMarginFrac)

	view.Available = true
	view.Stats = &raw
	view.Bounds = &bounds
	view.Track = track
	view.CenterLat, view.CenterLon = geotrack.MidRouteCenter(trimmed, trimmedStats.CumulativeDistanceKm)
	if raw.AscentM > 0 {
		view.AscentM = raw.AscentM
	}

	return view, nil
}

// OpenGPX opens the route GPX file for download. The caller closes it.
func (s *RouteService) OpenGPX(route domain.Route) (*os.File, error) {
	info, err := s.catalog.Get(route)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(info.GPXPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTrackUnavailable, err)
	}
	return f, nil
}
