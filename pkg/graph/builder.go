package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmptyName is returned when a location has an empty identifier.
	ErrEmptyName = errors.New("location name is empty")
	// ErrDuplicateLocation is returned when two locations share an identifier.
	ErrDuplicateLocation = errors.New("duplicate location")
	// ErrUnknownEndpoint is returned when an edge references an undeclared location.
	ErrUnknownEndpoint = errors.New("edge endpoint is not a declared location")
	// ErrBadCost is returned for negative, NaN or infinite edge costs.
	ErrBadCost = errors.New("edge cost must be a finite non-negative number")
)

// Location is a named vertex, optionally placed on the map.
type Location struct {
	Name string
	Lat  float64
	Lon  float64
}

// Edge is a directed connection between two named locations.
type Edge struct {
	From string
	To   string
	Cost float64
}

// Input is the raw material for Build.
type Input struct {
	Locations []Location
	Edges     []Edge

	// WithCoordinates keeps Location.Lat/Lon on the built graph.
	WithCoordinates bool
}

// Mirror returns edges plus the reverse of each edge, for undirected sources.
func Mirror(edges []Edge) []Edge {
	out := make([]Edge, 0, 2*len(edges))
	for _, e := range edges {
		out = append(out, e, Edge{From: e.To, To: e.From, Cost: e.Cost})
	}
	return out
}

// Build creates a CSR Graph. Node indices follow the declaration order of
// in.Locations; edges are sorted by (source, target) for a stable layout.
func Build(in *Input) (*Graph, error) {
	// Step 1: Assign node indices.
	numNodes := uint32(len(in.Locations))
	names := make([]string, numNodes)
	nodeSet := make(map[string]uint32, numNodes)
	for i, loc := range in.Locations {
		if loc.Name == "" {
			return nil, fmt.Errorf("location %d: %w", i, ErrEmptyName)
		}
		if _, dup := nodeSet[loc.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLocation, loc.Name)
		}
		nodeSet[loc.Name] = uint32(i)
		names[i] = loc.Name
	}

	// Step 2: Build compact edge list with remapped indices.
	type compactEdge struct {
		from   uint32
		to     uint32
		weight float64
	}

	compact := make([]compactEdge, len(in.Edges))
	for i, e := range in.Edges {
		from, ok := nodeSet[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, e.From)
		}
		to, ok := nodeSet[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, e.To)
		}
		if e.Cost < 0 || math.IsNaN(e.Cost) || math.IsInf(e.Cost, 0) {
			return nil, fmt.Errorf("%w: %s→%s cost=%v", ErrBadCost, e.From, e.To, e.Cost)
		}
		compact[i] = compactEdge{from: from, to: to, weight: e.Cost}
	}

	// Step 3: Sort edges by source node.
	sort.SliceStable(compact, func(i, j int) bool {
		if compact[i].from != compact[j].from {
			return compact[i].from < compact[j].from
		}
		return compact[i].to < compact[j].to
	})

	// Step 4: Build CSR arrays.
	numEdges := uint32(len(compact))
	firstOut := make([]uint32, numNodes+1)
	head := make([]uint32, numEdges)
	weight := make([]float64, numEdges)

	for i, e := range compact {
		head[i] = e.to
		weight[i] = e.weight
		firstOut[e.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	g := &Graph{
		NumNodes: numNodes,
		NumEdges: numEdges,
		FirstOut: firstOut,
		Head:     head,
		Weight:   weight,
		Names:    names,
	}

	// Step 5: Copy coordinates.
	if in.WithCoordinates && numNodes > 0 {
		g.NodeLat = make([]float64, numNodes)
		g.NodeLon = make([]float64, numNodes)
		for i, loc := range in.Locations {
			g.NodeLat[i] = loc.Lat
			g.NodeLon[i] = loc.Lon
		}
	}

	g.buildIndex()
	return g, nil
}
