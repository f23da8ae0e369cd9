package api

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
	"parcel_router/pkg/routing"
)

// Describe builds the stats and location listing served for a loaded graph.
func Describe(dataset string, g *graph.Graph, src heuristic.Source) (StatsResponse, []LocationJSON) {
	stats := StatsResponse{
		Dataset:      dataset,
		NumLocations: g.NumNodes,
		NumEdges:     g.NumEdges,
		Components:   graph.CountComponents(g),
	}
	switch src.(type) {
	case *heuristic.Matrix:
		stats.HeuristicTable = "matrix"
	case *heuristic.CoordinateTable:
		stats.HeuristicTable = "coordinates"
	default:
		stats.HeuristicTable = "custom"
	}

	locs := make([]LocationJSON, g.NumNodes)
	for u := uint32(0); u < g.NumNodes; u++ {
		locs[u] = LocationJSON{Name: g.Name(u)}
		if g.HasCoordinates() {
			locs[u].Coord = &LatLngJSON{Lat: g.NodeLat[u], Lng: g.NodeLon[u]}
		}
	}
	return stats, locs
}

// Fingerprint returns a short hex digest of everything besides the query
// that shapes a route: the graph, its estimates, and the evaluator and
// engine settings. It is stored in StatsResponse.Variant and keys the cache.
func Fingerprint(g *graph.Graph, src heuristic.Source, cfg heuristic.Config, ec routing.EngineConfig) string {
	h := crc32.NewIEEE()
	le := binary.LittleEndian

	binary.Write(h, le, g.NumNodes)
	for _, name := range g.Names {
		binary.Write(h, le, uint32(len(name)))
		io.WriteString(h, name)
	}
	binary.Write(h, le, g.FirstOut)
	binary.Write(h, le, g.Head)
	binary.Write(h, le, g.Weight)

	switch s := src.(type) {
	case *heuristic.Matrix:
		binary.Write(h, le, s.Values())
	case *heuristic.CoordinateTable:
		// Estimates derive from the coordinates alone.
		binary.Write(h, le, g.NodeLat)
		binary.Write(h, le, g.NodeLon)
	default:
		n := src.NumNodes()
		for goal := uint32(0); goal < n; goal++ {
			for loc := uint32(0); loc < n; loc++ {
				binary.Write(h, le, src.Estimate(goal, loc))
			}
		}
	}

	binary.Write(h, le, []float64{
		cfg.AverageDurationPerUnitDistance,
		cfg.SpeedReductionPerPackage,
		ec.MaxSnapDistanceKm,
	})
	binary.Write(h, le, int64(ec.MaxExpansions))
	binary.Write(h, le, ec.ReportOptimal)

	return fmt.Sprintf("%08x", h.Sum32())
}
