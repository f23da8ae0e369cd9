package heuristic

import (
	"errors"
	"fmt"
	"math"

	"parcel_router/pkg/geo"
	"parcel_router/pkg/graph"
)

var (
	// ErrUnknownLocation is returned when a location is absent from the table.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrIncompleteTable is returned when a (goal, location) pair has no estimate.
	ErrIncompleteTable = errors.New("estimate table is incomplete")
	// ErrBadEstimate is returned for negative, NaN or infinite estimates.
	ErrBadEstimate = errors.New("estimate must be a finite non-negative number")
	// ErrVertexMismatch is returned when a table and a graph cover different vertex sets.
	ErrVertexMismatch = errors.New("estimate table and graph cover different locations")
	// ErrNoCoordinates is returned when a coordinate table is built on a graph without coordinates.
	ErrNoCoordinates = errors.New("graph has no coordinates")
)

// Source is a read-only estimated-distance lookup over a graph's node indices.
// Implementations must be safe for concurrent reads.
type Source interface {
	// Estimate returns the estimated distance between goal and location.
	// Both indices are < NumNodes.
	Estimate(goal, location uint32) float64
	NumNodes() uint32
}

// Matrix is a dense precomputed estimate table, row-major by goal.
type Matrix struct {
	n   uint32
	est []float64
}

// NewMatrix wraps a row-major n×n estimate slice (est[goal*n+location]).
func NewMatrix(n uint32, est []float64) (*Matrix, error) {
	if len(est) != int(n)*int(n) {
		return nil, fmt.Errorf("%w: have %d entries, want %d", ErrIncompleteTable, len(est), int(n)*int(n))
	}
	for i, v := range est {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: entry %d = %v", ErrBadEstimate, i, v)
		}
	}
	return &Matrix{n: n, est: est}, nil
}

// MatrixFromMap builds a Matrix from nested goal → location → estimate maps
// keyed by location name. Every pair over g's locations must be present;
// a goal's entry for itself defaults to 0 when omitted.
func MatrixFromMap(g *graph.Graph, m map[string]map[string]float64) (*Matrix, error) {
	for goal, row := range m {
		if _, ok := g.Index(goal); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, goal)
		}
		for loc := range row {
			if _, ok := g.Index(loc); !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, loc)
			}
		}
	}

	n := g.NumNodes
	est := make([]float64, int(n)*int(n))
	for gi := uint32(0); gi < n; gi++ {
		row := m[g.Name(gi)]
		for li := uint32(0); li < n; li++ {
			v, ok := row[g.Name(li)]
			if !ok {
				if gi == li {
					continue
				}
				return nil, fmt.Errorf("%w: no estimate from %q to %q", ErrIncompleteTable, g.Name(gi), g.Name(li))
			}
			est[gi*n+li] = v
		}
	}
	return NewMatrix(n, est)
}

// Estimate implements Source.
func (m *Matrix) Estimate(goal, location uint32) float64 {
	return m.est[goal*m.n+location]
}

// NumNodes implements Source.
func (m *Matrix) NumNodes() uint32 { return m.n }

// Values returns the backing row-major slice. Callers must not modify it.
func (m *Matrix) Values() []float64 { return m.est }

// CoordinateTable estimates distance as great-circle kilometres between node
// coordinates. It backs imported road graphs where a dense matrix is too large.
type CoordinateTable struct {
	g *graph.Graph
}

// NewCoordinateTable returns a CoordinateTable over g.
func NewCoordinateTable(g *graph.Graph) (*CoordinateTable, error) {
	if !g.HasCoordinates() {
		return nil, ErrNoCoordinates
	}
	return &CoordinateTable{g: g}, nil
}

// Estimate implements Source.
func (c *CoordinateTable) Estimate(goal, location uint32) float64 {
	return geo.HaversineKm(c.g.NodeLat[goal], c.g.NodeLon[goal], c.g.NodeLat[location], c.g.NodeLon[location])
}

// NumNodes implements Source.
func (c *CoordinateTable) NumNodes() uint32 { return c.g.NumNodes }
