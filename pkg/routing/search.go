package routing

import (
	"errors"
	"fmt"

	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
)

var (
	// ErrNoRoute is returned when the frontier empties before reaching the goal.
	ErrNoRoute = errors.New("no route found")
	// ErrUnknownLocation is returned when start or goal is not a known location.
	ErrUnknownLocation = heuristic.ErrUnknownLocation
	// ErrGraphMismatch is returned when the evaluator is bound to another graph.
	ErrGraphMismatch = errors.New("evaluator is bound to a different graph")
	// ErrExpansionLimit is returned when WithMaxExpansions is exhausted.
	ErrExpansionLimit = errors.New("expansion limit reached")
	// ErrInterrupted is returned when the WithInterrupt callback fires.
	ErrInterrupted = errors.New("search interrupted")
)

// interruptEvery is how many expansions pass between interrupt polls.
const interruptEvery = 64

// noParent marks the start record in the arena.
const noParent = -1

// SearchNode is an immutable arena record. Parent is the arena index of the
// record that generated it, or -1 for the start.
type SearchNode struct {
	Location uint32
	Parent   int32
	G        float64
	H        float64
}

// F is the priority key g + h.
func (n SearchNode) F() float64 { return n.G + n.H }

// Request is a single route query over location names.
type Request struct {
	Start       string
	Goal        string
	NumPackages int
	Weights     heuristic.Weights
}

// Result is a found route.
type Result struct {
	Path     []string
	Nodes    []uint32
	Cost     float64 // sum of edge costs along Path
	Expanded int     // locations popped from the frontier, goal included
}

// Expansion describes one popped location, reported to WithObserver.
type Expansion struct {
	Step     int
	Location string
	Index    uint32
	G        float64
	H        float64
}

type searchOptions struct {
	maxExpansions int
	interrupt     func() bool
	observer      func(Expansion)
}

// Option tunes a single Search call.
type Option func(*searchOptions)

// WithMaxExpansions aborts the search with ErrExpansionLimit after n
// expansions. n <= 0 means unbounded.
func WithMaxExpansions(n int) Option {
	return func(o *searchOptions) { o.maxExpansions = n }
}

// WithInterrupt polls stop every 64 expansions and aborts with
// ErrInterrupted once it returns true.
func WithInterrupt(stop func() bool) Option {
	return func(o *searchOptions) { o.interrupt = stop }
}

// WithObserver calls fn for each expanded location, in expansion order.
func WithObserver(fn func(Expansion)) Option {
	return func(o *searchOptions) { o.observer = fn }
}

// Search runs a weighted best-first search from req.Start to req.Goal.
//
// The frontier is ordered by f = g + h where h comes from ev; equal f is
// served first-in first-out. Expanded locations are never reopened, even if
// a cheaper path to them turns up later, so the route is only guaranteed
// optimal when the heuristic is consistent.
//
// Search reads g and ev but never modifies them; concurrent calls are safe.
func Search(g *graph.Graph, ev *heuristic.Evaluator, req Request, opts ...Option) (*Result, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	if ev.Graph() != g {
		return nil, ErrGraphMismatch
	}
	start, ok := g.Index(req.Start)
	if !ok {
		return nil, fmt.Errorf("start: %w: %q", ErrUnknownLocation, req.Start)
	}
	goal, ok := g.Index(req.Goal)
	if !ok {
		return nil, fmt.Errorf("goal: %w: %q", ErrUnknownLocation, req.Goal)
	}

	if start == goal {
		return &Result{Path: []string{req.Start}, Nodes: []uint32{start}}, nil
	}

	h, err := ev.EstimateIndex(start, goal, req.NumPackages, req.Weights)
	if err != nil {
		return nil, err
	}

	s := &search{
		g:        g,
		ev:       ev,
		req:      req,
		goal:     goal,
		opts:     o,
		arena:    make([]SearchNode, 0, g.NumNodes),
		visited:  make([]bool, g.NumNodes),
		frontier: newFrontier(g.NumNodes),
	}
	s.open(SearchNode{Location: start, Parent: noParent, G: 0, H: h})
	return s.run()
}

// search holds the state owned by one Search call.
type search struct {
	g        *graph.Graph
	ev       *heuristic.Evaluator
	req      Request
	goal     uint32
	opts     searchOptions
	arena    []SearchNode
	visited  []bool
	frontier *frontier
	expanded int
}

// open appends n to the arena and inserts it, or replaces the location's
// existing frontier entry with it.
func (s *search) open(n SearchNode) {
	idx := int32(len(s.arena))
	s.arena = append(s.arena, n)
	if _, ok := s.frontier.lookup(n.Location); ok {
		s.frontier.replace(n.Location, idx, n.F())
		return
	}
	s.frontier.push(n.Location, idx, n.F())
}

func (s *search) run() (*Result, error) {
	for s.frontier.Len() > 0 {
		if s.opts.maxExpansions > 0 && s.expanded >= s.opts.maxExpansions {
			return nil, ErrExpansionLimit
		}
		if s.opts.interrupt != nil && s.expanded%interruptEvery == 0 && s.opts.interrupt() {
			return nil, ErrInterrupted
		}

		entry := s.frontier.pop()
		current := s.arena[entry.node]
		s.visited[current.Location] = true
		s.expanded++

		if s.opts.observer != nil {
			s.opts.observer(Expansion{
				Step:     s.expanded,
				Location: s.g.Name(current.Location),
				Index:    current.Location,
				G:        current.G,
				H:        current.H,
			})
		}

		if current.Location == s.goal {
			return s.reconstruct(entry.node), nil
		}

		if err := s.expand(entry.node); err != nil {
			return nil, err
		}
	}
	return nil, ErrNoRoute
}

// expand relaxes every edge out of the arena record at idx.
func (s *search) expand(idx int32) error {
	current := s.arena[idx]
	start, end := s.g.EdgesFrom(current.Location)
	for e := start; e < end; e++ {
		v := s.g.Head[e]
		if s.visited[v] {
			continue
		}

		gCand := current.G + s.g.Weight[e]
		hCand, err := s.ev.EstimateIndex(v, s.goal, s.req.NumPackages, s.req.Weights)
		if err != nil {
			return err
		}

		if existing, ok := s.frontier.lookup(v); ok && gCand >= s.arena[existing].G {
			continue
		}
		s.open(SearchNode{Location: v, Parent: idx, G: gCand, H: hCand})
	}
	return nil
}

// reconstruct follows parent links from the goal record back to the start.
func (s *search) reconstruct(idx int32) *Result {
	var nodes []uint32
	for i := idx; i != noParent; i = s.arena[i].Parent {
		nodes = append(nodes, s.arena[i].Location)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	path := make([]string, len(nodes))
	for i, u := range nodes {
		path[i] = s.g.Name(u)
	}
	return &Result{
		Path:     path,
		Nodes:    nodes,
		Cost:     s.arena[idx].G,
		Expanded: s.expanded,
	}
}
