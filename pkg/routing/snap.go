package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"parcel_router/pkg/geo"
	"parcel_router/pkg/graph"
)

// DefaultMaxSnapDistanceKm bounds how far a coordinate may be from the
// location it snaps to.
const DefaultMaxSnapDistanceKm = 50.0

const kmPerDegreeLat = 111.32

var (
	// ErrPointTooFar is returned when no location lies within the snap radius.
	ErrPointTooFar = errors.New("point too far from any location")
	// ErrSnapUnavailable is returned when the graph carries no coordinates.
	ErrSnapUnavailable = errors.New("graph has no coordinates to snap against")
)

// SnapResult is a coordinate resolved to its nearest location.
type SnapResult struct {
	Node       uint32
	Name       string
	DistanceKm float64
}

// Snapper resolves coordinates to the nearest location using an R-tree over
// location points.
type Snapper struct {
	tr        rtree.RTreeG[uint32]
	g         *graph.Graph
	maxDistKm float64
}

// NewSnapper indexes every location of g. maxDistKm <= 0 disables the
// distance bound.
func NewSnapper(g *graph.Graph, maxDistKm float64) (*Snapper, error) {
	if !g.HasCoordinates() {
		return nil, ErrSnapUnavailable
	}
	s := &Snapper{g: g, maxDistKm: maxDistKm}
	for u := uint32(0); u < g.NumNodes; u++ {
		p := [2]float64{g.NodeLon[u], g.NodeLat[u]}
		s.tr.Insert(p, p, u)
	}
	return s, nil
}

// Snap finds the nearest location to lat/lng. Candidates from the R-tree are
// ranked by equirectangular distance; the winner's distance is reported as
// great-circle kilometres. Ties go to the lower node index.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	min, max := s.searchBox(lat, lng)

	best, bestDist := uint32(0), math.Inf(1)
	s.tr.Search(min, max, func(_, _ [2]float64, u uint32) bool {
		d := geo.EquirectangularDist(lat, lng, s.g.NodeLat[u], s.g.NodeLon[u])
		if d < bestDist || (d == bestDist && u < best) {
			best, bestDist = u, d
		}
		return true
	})
	if math.IsInf(bestDist, 1) {
		return SnapResult{}, ErrPointTooFar
	}

	km := geo.HaversineKm(lat, lng, s.g.NodeLat[best], s.g.NodeLon[best])
	if s.maxDistKm > 0 && km > s.maxDistKm {
		return SnapResult{}, ErrPointTooFar
	}
	return SnapResult{Node: best, Name: s.g.Name(best), DistanceKm: km}, nil
}

// searchBox returns a lon/lat box covering the snap radius around a point.
func (s *Snapper) searchBox(lat, lng float64) (min, max [2]float64) {
	if s.maxDistKm <= 0 {
		return [2]float64{-180, -90}, [2]float64{180, 90}
	}
	dLat := s.maxDistKm / kmPerDegreeLat
	cos := math.Cos(lat * math.Pi / 180)
	dLon := 180.0
	if cos > 1e-6 {
		dLon = math.Min(180, s.maxDistKm/(kmPerDegreeLat*cos))
	}
	return [2]float64{lng - dLon, lat - dLat}, [2]float64{lng + dLon, lat + dLat}
}
