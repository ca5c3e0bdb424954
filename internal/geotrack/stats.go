package geotrack

import (
	"math"
	"sort"
)

// EarthRadiusMeters is the mean Earth radius used by HaversineMeters
const EarthRadiusMeters = 6371000.0

// Default reference point used when a track has no points
const (
	DefaultLat = 54.46
	DefaultLon = -3.02
)

const zeroSpanEpsilon = 0.001

// Statistics holds derived values for a track. CumulativeDistanceKm and
// ElevationProfile are aligned 1:1 with the input points.
type Statistics struct {
	DistanceKm           float64    `json:"distance_km"`
	AscentM              float64    `json:"ascent_m"`
	DescentM             float64    `json:"descent_m"`
	CumulativeDistanceKm []float64  `json:"cumulative_distance_km"`
	ElevationProfile     []*float64 `json:"elevation_profile"`
}

// BoundingBox is a lat/lon rectangle
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// HaversineMeters returns the great-circle distance between two points in meters
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ComputeStatistics walks consecutive point pairs accumulating distance and
// elevation gain/loss. Tracks with fewer than 2 points yield zero statistics.
func ComputeStatistics(track Track) Statistics {
	if len(track) < 2 {
		return Statistics{
			CumulativeDistanceKm: []float64{},
			ElevationProfile:     []*float64{},
		}
	}

	stats := Statistics{
		CumulativeDistanceKm: make([]float64, 0, len(track)),
		ElevationProfile:     make([]*float64, 0, len(track)),
	}
	stats.CumulativeDistanceKm = append(stats.CumulativeDistanceKm, 0)
	stats.ElevationProfile = append(stats.ElevationProfile, copyFloat(track[0].Elevation))

	var distanceM float64
	for i := 1; i < len(track); i++ {
		prev, cur := track[i-1], track[i]

		distanceM += HaversineMeters(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
		stats.CumulativeDistanceKm = append(stats.CumulativeDistanceKm, distanceM/1000)

		// Elevation gaps skip the delta but not the distance
		if prev.Elevation == nil || cur.Elevation == nil {
			stats.ElevationProfile = append(stats.ElevationProfile, nil)
			continue
		}

		delta := *cur.Elevation - *prev.Elevation
		if delta > 0 {
			stats.AscentM += delta
		} else if delta < 0 {
			stats.DescentM -= delta
		}
		stats.ElevationProfile = append(stats.ElevationProfile, copyFloat(cur.Elevation))
	}

	stats.DistanceKm = distanceM / 1000
	return stats
}

// TrimOutliers drops points whose latitude or longitude falls outside the
// [q, 1-q] quantile band of that axis. Tracks with fewer than 10 points are
// returned as is, as is the original track when fewer than 2 points would remain.
func TrimOutliers(track Track, q float64) Track {
	n := len(track)
	if n < 10 {
		return track
	}

	lats := make([]float64, n)
	lons := make([]float64, n)
	for i, p := range track {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	sort.Float64s(lats)
	sort.Float64s(lons)

	lowIdx := max(0, int(float64(n)*q))
	highIdx := min(n-1, int(float64(n)*(1-q))-1)
	if highIdx < lowIdx {
		return track
	}

	lowLat, highLat := lats[lowIdx], lats[highIdx]
	lowLon, highLon := lons[lowIdx], lons[highIdx]

	trimmed := make(Track, 0, n)
	for _, p := range track {
		if p.Lat >= lowLat && p.Lat <= highLat && p.Lon >= lowLon && p.Lon <= highLon {
			trimmed = append(trimmed, p)
		}
	}

	if len(trimmed) < 2 {
		return track
	}
	return trimmed
}

// ExpandedBounds returns the bounding box of the track grown by marginFrac of
// each axis span. A zero span is widened by a fixed epsilon instead.
func ExpandedBounds(track Track, marginFrac float64) BoundingBox {
	if len(track) == 0 {
		return BoundingBox{
			MinLat: DefaultLat - zeroSpanEpsilon,
			MinLon: DefaultLon - zeroSpanEpsilon,
			MaxLat: DefaultLat + zeroSpanEpsilon,
			MaxLon: DefaultLon + zeroSpanEpsilon,
		}
	}

	box := BoundingBox{
		MinLat: track[0].Lat, MaxLat: track[0].Lat,
		MinLon: track[0].Lon, MaxLon: track[0].Lon,
	}
	for _, p := range track[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLon = math.Min(box.MinLon, p.Lon)
		box.MaxLon = math.Max(box.MaxLon, p.Lon)
	}

	epsLat := margin(box.MaxLat-box.MinLat, marginFrac)
	epsLon := margin(box.MaxLon-box.MinLon, marginFrac)

	box.MinLat -= epsLat
	box.MaxLat += epsLat
	box.MinLon -= epsLon
	box.MaxLon += epsLon
	return box
}

func margin(span, frac float64) float64 {
	if span > 0 {
		return span * frac
	}
	return zeroSpanEpsilon
}

// MidRouteCenter returns the point whose cumulative distance is closest to
// half of the total. The first minimal difference wins ties.
func MidRouteCenter(track Track, cumulativeKm []float64) (lat, lon float64) {
	if len(track) == 0 {
		return DefaultLat, DefaultLon
	}
	if len(cumulativeKm) == 0 {
		return track[0].Lat, track[0].Lon
	}

	target := cumulativeKm[len(cumulativeKm)-1] / 2
	best := 0
	bestDiff := math.Abs(cumulativeKm[0] - target)
	for i := 1; i < len(cumulativeKm) && i < len(track); i++ {
		if diff := math.Abs(cumulativeKm[i] - target); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}

	return track[best].Lat, track[best].Lon
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
