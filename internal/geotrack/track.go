// Package geotrack parses GPX tracks and computes distance, elevation and
// bounding statistics used by the route selection step.
package geotrack

import (
	"errors"
	"fmt"
	"io"

	"github.com/tkrajina/gpxgo/gpx"
)

// ErrParse is returned when a track source is missing, unreadable or has no points
var ErrParse = errors.New("track parse failure")

// Point is a single track point. Elevation is nil when the source omits it.
type Point struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Elevation *float64 `json:"ele,omitempty"`
}

// Track is an ordered sequence of points
type Track []Point

// ParseFile reads a GPX file from disk
func ParseFile(path string) (Track, error) {
	doc, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return fromDocument(doc)
}

// Parse decodes GPX from r. Track segment points are preferred; route points
// are used only when the document has no track segment points.
func Parse(r io.Reader) (Track, error) {
	doc, err := gpx.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc *gpx.GPX) (Track, error) {
	var points Track
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				points = append(points, toPoint(p))
			}
		}
	}

	if len(points) == 0 {
		for _, rte := range doc.Routes {
			for _, p := range rte.Points {
				points = append(points, toPoint(p))
			}
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no track or route points", ErrParse)
	}

	return points, nil
}

func toPoint(p gpx.GPXPoint) Point {
	point := Point{Lat: p.Latitude, Lon: p.Longitude}
	if p.Elevation.NotNull() {
		ele := p.Elevation.Value()
		point.Elevation = &ele
	}
	return point
}
