package routing

import (
	"context"
	"errors"
	"fmt"

	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
)

// ErrMissingEndpoint is returned when an endpoint carries neither a name nor
// a coordinate.
var ErrMissingEndpoint = errors.New("endpoint needs a location name or a coordinate")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Endpoint names a location directly or by a coordinate that is snapped to
// the nearest location. Name wins when both are set.
type Endpoint struct {
	Name  string
	Coord *LatLng
}

// Query is the input of Router.Route.
type Query struct {
	Start       Endpoint
	Goal        Endpoint
	NumPackages int
	Weights     heuristic.Weights
}

// Leg is one edge of a found route.
type Leg struct {
	From string
	To   string
	Cost float64
}

// RouteResult is the output of a route query.
type RouteResult struct {
	Path      []string
	Legs      []Leg
	TotalCost float64
	Expanded  int

	// OptimalCost is the plain shortest-path cost between the same
	// endpoints, set only when EngineConfig.ReportOptimal is on.
	OptimalCost *float64
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, q Query) (*RouteResult, error)
}

// EngineConfig tunes an Engine.
type EngineConfig struct {
	MaxExpansions     int     // 0 = unbounded
	MaxSnapDistanceKm float64 // <= 0 disables the bound
	ReportOptimal     bool
}

// Engine implements Router on top of Search.
type Engine struct {
	g       *graph.Graph
	ev      *heuristic.Evaluator
	snapper *Snapper // nil when the graph has no coordinates
	cfg     EngineConfig
}

// NewEngine creates a routing engine. The evaluator must be bound to g.
func NewEngine(g *graph.Graph, ev *heuristic.Evaluator, cfg EngineConfig) (*Engine, error) {
	if ev.Graph() != g {
		return nil, ErrGraphMismatch
	}
	e := &Engine{g: g, ev: ev, cfg: cfg}
	if g.HasCoordinates() {
		s, err := NewSnapper(g, cfg.MaxSnapDistanceKm)
		if err != nil {
			return nil, err
		}
		e.snapper = s
	}
	return e, nil
}

// Graph returns the graph the engine routes on.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Route resolves both endpoints and runs a weighted best-first search.
// A cancelled or expired ctx aborts the search with ctx.Err().
func (e *Engine) Route(ctx context.Context, q Query) (*RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1: Resolve endpoints to location names.
	start, err := e.resolve(q.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	goal, err := e.resolve(q.Goal)
	if err != nil {
		return nil, fmt.Errorf("goal: %w", err)
	}

	// Step 2: Search.
	res, err := Search(e.g, e.ev, Request{
		Start:       start,
		Goal:        goal,
		NumPackages: q.NumPackages,
		Weights:     q.Weights,
	},
		WithMaxExpansions(e.cfg.MaxExpansions),
		WithInterrupt(func() bool { return ctx.Err() != nil }),
	)
	if errors.Is(err, ErrInterrupted) {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	// Step 3: Break the path into legs.
	out := &RouteResult{
		Path:      res.Path,
		TotalCost: res.Cost,
		Expanded:  res.Expanded,
		Legs:      make([]Leg, 0, len(res.Nodes)),
	}
	for i := 0; i+1 < len(res.Nodes); i++ {
		u, v := res.Nodes[i], res.Nodes[i+1]
		cost, _ := e.g.EdgeCost(u, v)
		out.Legs = append(out.Legs, Leg{From: e.g.Name(u), To: e.g.Name(v), Cost: cost})
	}

	if e.cfg.ReportOptimal {
		if opt, ok := ShortestCost(e.g, res.Nodes[0], res.Nodes[len(res.Nodes)-1]); ok {
			out.OptimalCost = &opt
		}
	}
	return out, nil
}

func (e *Engine) resolve(ep Endpoint) (string, error) {
	if ep.Name != "" {
		return ep.Name, nil
	}
	if ep.Coord == nil {
		return "", ErrMissingEndpoint
	}
	if e.snapper == nil {
		return "", ErrSnapUnavailable
	}
	snap, err := e.snapper.Snap(ep.Coord.Lat, ep.Coord.Lng)
	if err != nil {
		return "", err
	}
	return snap.Name, nil
}
