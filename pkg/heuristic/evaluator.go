package heuristic

import (
	"fmt"
	"math"

	"parcel_router/pkg/graph"
)

// Config holds the tuning constants of the composite heuristic.
type Config struct {
	// AverageDurationPerUnitDistance scales the duration term.
	AverageDurationPerUnitDistance float64
	// SpeedReductionPerPackage is the load penalty added per carried package.
	SpeedReductionPerPackage float64
}

// DefaultConfig returns the stock tuning: duration factor 1, 0.1 per package.
func DefaultConfig() Config {
	return Config{
		AverageDurationPerUnitDistance: 1,
		SpeedReductionPerPackage:       0.1,
	}
}

// Weights blends the three heuristic terms. The evaluator does not check
// them; callers taking weights from users should check Valid first.
type Weights struct {
	Distance float64 // w1
	Duration float64 // w2
	Load     float64 // w3
}

// Sum returns w1+w2+w3.
func (w Weights) Sum() float64 { return w.Distance + w.Duration + w.Load }

// Valid reports whether every weight is finite and the sum lies in [0, 1].
// Individual weights may be negative.
func (w Weights) Valid() bool {
	for _, v := range []float64{w.Distance, w.Duration, w.Load} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	sum := w.Sum()
	return sum >= 0 && sum <= 1
}

// Evaluator computes the composite heuristic over a graph's locations.
// It is immutable and safe for concurrent use.
type Evaluator struct {
	g   *graph.Graph
	src Source
	cfg Config
}

// NewEvaluator binds a Source to the graph whose locations it covers.
func NewEvaluator(g *graph.Graph, src Source, cfg Config) (*Evaluator, error) {
	if src.NumNodes() != g.NumNodes {
		return nil, fmt.Errorf("%w: table has %d, graph has %d", ErrVertexMismatch, src.NumNodes(), g.NumNodes)
	}
	return &Evaluator{g: g, src: src, cfg: cfg}, nil
}

// Config returns the evaluator's tuning constants.
func (e *Evaluator) Config() Config { return e.cfg }

// Graph returns the graph the evaluator is bound to.
func (e *Evaluator) Graph() *graph.Graph { return e.g }

// Estimate returns the heuristic cost from location to goal:
//
//	base = table[goal][location]
//	w1*base + w2*duration*base + w3*(speedReduction*numPackages)*base
func (e *Evaluator) Estimate(location, goal string, numPackages int, w Weights) (float64, error) {
	li, ok := e.g.Index(location)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, location)
	}
	gi, ok := e.g.Index(goal)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, goal)
	}
	return e.estimate(li, gi, numPackages, w), nil
}

// EstimateIndex is Estimate over node indices.
func (e *Evaluator) EstimateIndex(location, goal uint32, numPackages int, w Weights) (float64, error) {
	n := e.src.NumNodes()
	if location >= n {
		return 0, fmt.Errorf("%w: node %d", ErrUnknownLocation, location)
	}
	if goal >= n {
		return 0, fmt.Errorf("%w: node %d", ErrUnknownLocation, goal)
	}
	return e.estimate(location, goal, numPackages, w), nil
}

func (e *Evaluator) estimate(location, goal uint32, numPackages int, w Weights) float64 {
	base := e.src.Estimate(goal, location)
	duration := e.cfg.AverageDurationPerUnitDistance
	load := e.cfg.SpeedReductionPerPackage * float64(numPackages)
	return w.Distance*base + w.Duration*duration*base + w.Load*load*base
}
