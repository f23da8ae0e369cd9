package routing

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel_router/pkg/dataset"
	"parcel_router/pkg/graph"
	"parcel_router/pkg/heuristic"
)

// eastJava returns the six-city network and an evaluator over its
// estimated-distance table.
func eastJava(t *testing.T) (*graph.Graph, *heuristic.Evaluator) {
	t.Helper()
	g, src, err := dataset.Builtin().Build()
	require.NoError(t, err)
	ev, err := heuristic.NewEvaluator(g, src, heuristic.DefaultConfig())
	require.NoError(t, err)
	return g, ev
}

// exactEvaluator returns an evaluator whose base estimate is the true
// shortest-path cost, which makes the distance term consistent.
func exactEvaluator(t *testing.T, g *graph.Graph) *heuristic.Evaluator {
	t.Helper()
	n := g.NumNodes
	est := make([]float64, int(n)*int(n))
	for goal := uint32(0); goal < n; goal++ {
		for loc := uint32(0); loc < n; loc++ {
			if d, ok := ShortestCost(g, loc, goal); ok {
				est[int(goal)*int(n)+int(loc)] = d
			}
		}
	}
	m, err := heuristic.NewMatrix(n, est)
	require.NoError(t, err)
	ev, err := heuristic.NewEvaluator(g, m, heuristic.DefaultConfig())
	require.NoError(t, err)
	return ev
}

// zeroEvaluator returns an evaluator whose estimates are all zero.
func zeroEvaluator(t *testing.T, g *graph.Graph) *heuristic.Evaluator {
	t.Helper()
	m, err := heuristic.NewMatrix(g.NumNodes, make([]float64, int(g.NumNodes)*int(g.NumNodes)))
	require.NoError(t, err)
	ev, err := heuristic.NewEvaluator(g, m, heuristic.DefaultConfig())
	require.NoError(t, err)
	return ev
}

func buildGraph(t *testing.T, names []string, edges []graph.Edge) *graph.Graph {
	t.Helper()
	locs := make([]graph.Location, len(names))
	for i, n := range names {
		locs[i] = graph.Location{Name: n}
	}
	g, err := graph.Build(&graph.Input{Locations: locs, Edges: edges})
	require.NoError(t, err)
	return g
}

func distanceOnly() heuristic.Weights { return heuristic.Weights{Distance: 1} }

// assertValidPath checks endpoints, adjacency and the reported cost.
func assertValidPath(t *testing.T, g *graph.Graph, res *Result, start, goal string) {
	t.Helper()
	require.NotEmpty(t, res.Path)
	assert.Equal(t, start, res.Path[0])
	assert.Equal(t, goal, res.Path[len(res.Path)-1])
	require.Len(t, res.Nodes, len(res.Path))

	var sum float64
	for i := 0; i+1 < len(res.Nodes); i++ {
		cost, ok := g.EdgeCost(res.Nodes[i], res.Nodes[i+1])
		require.True(t, ok, "no edge %s -> %s", res.Path[i], res.Path[i+1])
		sum += cost
	}
	assert.InDelta(t, sum, res.Cost, 1e-9)
}

func TestSearchSixCityExactEstimates(t *testing.T) {
	g, _ := eastJava(t)
	ev := exactEvaluator(t, g)

	res, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG", Weights: distanceOnly()})
	require.NoError(t, err)
	assert.Equal(t, []string{"SURABAYA", "MOJOKERTO", "GRESIK", "MALANG"}, res.Path)
	assert.Equal(t, 9.0, res.Cost)
	assertValidPath(t, g, res, "SURABAYA", "MALANG")
}

func TestSearchSixCityZeroWeights(t *testing.T) {
	g, ev := eastJava(t)

	// With every weight at zero the search is uniform-cost.
	res, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SURABAYA", "MOJOKERTO", "GRESIK", "MALANG"}, res.Path)
	assert.Equal(t, 9.0, res.Cost)
	assert.Equal(t, 5, res.Expanded)
}

func TestSearchSixCityTableEstimatesAreSatisficing(t *testing.T) {
	g, ev := eastJava(t)

	// The table estimates are in kilometres while edge costs are not, so the
	// distance term overestimates and MALANG is reached through MOJOKERTO
	// before the cheaper detour through GRESIK is explored.
	res, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG", Weights: distanceOnly()})
	require.NoError(t, err)
	assert.Equal(t, []string{"SURABAYA", "MOJOKERTO", "MALANG"}, res.Path)
	assert.Equal(t, 12.0, res.Cost)
	assert.Equal(t, 3, res.Expanded)
	assertValidPath(t, g, res, "SURABAYA", "MALANG")

	opt, ok := ShortestCost(g, 0, 5)
	require.True(t, ok)
	assert.Equal(t, 9.0, opt)
}

func TestSearchSameStartAndGoal(t *testing.T) {
	g, ev := eastJava(t)
	for _, name := range g.Names {
		res, err := Search(g, ev, Request{Start: name, Goal: name, NumPackages: 3, Weights: distanceOnly()})
		require.NoError(t, err)
		assert.Equal(t, []string{name}, res.Path)
		assert.Zero(t, res.Cost)
		assert.Zero(t, res.Expanded)
	}
}

func TestSearchUnknownLocation(t *testing.T) {
	g, ev := eastJava(t)

	_, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "ATLANTIS", Weights: distanceOnly()})
	require.ErrorIs(t, err, ErrUnknownLocation)
	assert.NotErrorIs(t, err, ErrNoRoute)
	assert.Contains(t, err.Error(), "ATLANTIS")

	_, err = Search(g, ev, Request{Start: "atlantis", Goal: "MALANG"})
	require.ErrorIs(t, err, heuristic.ErrUnknownLocation)
}

func TestSearchNoRoute(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, graph.Mirror([]graph.Edge{{From: "A", To: "B", Cost: 1}}))
	ev := zeroEvaluator(t, g)

	_, err := Search(g, ev, Request{Start: "A", Goal: "C", Weights: distanceOnly()})
	require.ErrorIs(t, err, ErrNoRoute)
	assert.NotErrorIs(t, err, ErrUnknownLocation)
}

func TestSearchRespectsEdgeDirection(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, []graph.Edge{{From: "A", To: "B", Cost: 2}})
	ev := zeroEvaluator(t, g)

	res, err := Search(g, ev, Request{Start: "A", Goal: "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Path)

	_, err = Search(g, ev, Request{Start: "B", Goal: "A"})
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestSearchGraphMismatch(t *testing.T) {
	g, _ := eastJava(t)
	other, ev := eastJava(t)
	require.NotSame(t, g, other)

	_, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG"})
	require.ErrorIs(t, err, ErrGraphMismatch)
}

func TestSearchDeterministic(t *testing.T) {
	g, ev := eastJava(t)
	req := Request{
		Start:       "GRESIK",
		Goal:        "JOMBANG",
		NumPackages: 4,
		Weights:     heuristic.Weights{Distance: 0.4, Duration: 0.3, Load: 0.3},
	}

	first, err := Search(g, ev, req)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Search(g, ev, req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchEqualCostKeepsFirstParent(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C", "D"}, []graph.Edge{
		{From: "A", To: "B", Cost: 1},
		{From: "A", To: "C", Cost: 1},
		{From: "B", To: "D", Cost: 1},
		{From: "C", To: "D", Cost: 1},
	})
	ev := zeroEvaluator(t, g)

	// B is expanded before C, and C's equally cheap path to D must not
	// replace the entry B already queued.
	res, err := Search(g, ev, Request{Start: "A", Goal: "D", Weights: distanceOnly()})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D"}, res.Path)
	assert.Equal(t, 2.0, res.Cost)
}

func TestSearchNeverExpandsTwice(t *testing.T) {
	g, ev := eastJava(t)

	for _, start := range g.Names {
		for _, goal := range g.Names {
			seen := make(map[string]bool)
			var steps []int
			_, err := Search(g, ev, Request{Start: start, Goal: goal, NumPackages: 2, Weights: heuristic.Weights{Distance: 0.5, Load: 0.5}},
				WithObserver(func(x Expansion) {
					assert.False(t, seen[x.Location], "%s expanded twice (%s -> %s)", x.Location, start, goal)
					seen[x.Location] = true
					steps = append(steps, x.Step)
				}))
			require.NoError(t, err)
			for i, s := range steps {
				assert.Equal(t, i+1, s)
			}
		}
	}
}

func TestSearchObserverSeesStartFirst(t *testing.T) {
	g, ev := eastJava(t)
	var order []string
	res, err := Search(g, ev, Request{Start: "SIDOARJO", Goal: "MALANG", Weights: distanceOnly()},
		WithObserver(func(x Expansion) { order = append(order, x.Location) }))
	require.NoError(t, err)
	require.NotEmpty(t, order)
	assert.Equal(t, "SIDOARJO", order[0])
	assert.Equal(t, "MALANG", order[len(order)-1])
	assert.Len(t, order, res.Expanded)
}

func TestSearchExpansionLimit(t *testing.T) {
	g, ev := eastJava(t)
	_, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG"}, WithMaxExpansions(1))
	require.ErrorIs(t, err, ErrExpansionLimit)

	res, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG"}, WithMaxExpansions(100))
	require.NoError(t, err)
	assert.Equal(t, 9.0, res.Cost)
}

func TestSearchInterrupt(t *testing.T) {
	g, ev := eastJava(t)
	_, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG"},
		WithInterrupt(func() bool { return true }))
	require.ErrorIs(t, err, ErrInterrupted)

	calls := 0
	_, err = Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG"},
		WithInterrupt(func() bool { calls++; return false }))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSearchLoadWeightChangesPriorities(t *testing.T) {
	g, ev := eastJava(t)

	// With only the load weight set and no packages h is zero, so the result
	// matches uniform-cost search.
	res, err := Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG", Weights: heuristic.Weights{Load: 1}})
	require.NoError(t, err)
	assert.Equal(t, 9.0, res.Cost)

	// Heavier loads inflate h and push the search toward greedier routes.
	res, err = Search(g, ev, Request{Start: "SURABAYA", Goal: "MALANG", NumPackages: 20, Weights: heuristic.Weights{Load: 1}})
	require.NoError(t, err)
	assertValidPath(t, g, res, "SURABAYA", "MALANG")
	assert.GreaterOrEqual(t, res.Cost, 9.0)
}

// randomGraph builds a connected-ish directed graph with n nodes.
func randomGraph(t *testing.T, rng *rand.Rand, n, extra int) *graph.Graph {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("L%02d", i)
	}
	var edges []graph.Edge
	for i := 1; i < n; i++ {
		j := rng.Intn(i)
		edges = append(edges, graph.Edge{From: names[j], To: names[i], Cost: float64(1 + rng.Intn(20))})
	}
	for k := 0; k < extra; k++ {
		a, b := rng.Intn(n), rng.Intn(n)
		if a == b {
			continue
		}
		edges = append(edges, graph.Edge{From: names[a], To: names[b], Cost: float64(rng.Intn(20))})
	}
	return buildGraph(t, names, edges)
}

func TestSearchMatchesDijkstraWithConsistentEstimates(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		g := randomGraph(t, rng, 25, 60)
		ev := exactEvaluator(t, g)
		zero := zeroEvaluator(t, g)

		for q := 0; q < 20; q++ {
			s, d := uint32(rng.Intn(int(g.NumNodes))), uint32(rng.Intn(int(g.NumNodes)))
			req := Request{Start: g.Name(s), Goal: g.Name(d), Weights: distanceOnly()}

			want, reachable := ShortestCost(g, s, d)
			for _, e := range []*heuristic.Evaluator{ev, zero} {
				res, err := Search(g, e, req)
				if !reachable {
					require.ErrorIs(t, err, ErrNoRoute)
					continue
				}
				require.NoError(t, err)
				assertValidPath(t, g, res, req.Start, req.Goal)
				assert.InDelta(t, want, res.Cost, 1e-9, "trial %d %s -> %s", trial, req.Start, req.Goal)
			}
		}
	}
}

func TestSearchPathsValidWithArbitraryEstimates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		g := randomGraph(t, rng, 20, 40)
		n := g.NumNodes
		est := make([]float64, int(n)*int(n))
		for i := range est {
			est[i] = rng.Float64() * 100
		}
		m, err := heuristic.NewMatrix(n, est)
		require.NoError(t, err)
		ev, err := heuristic.NewEvaluator(g, m, heuristic.DefaultConfig())
		require.NoError(t, err)

		for q := 0; q < 20; q++ {
			s, d := uint32(rng.Intn(int(n))), uint32(rng.Intn(int(n)))
			req := Request{
				Start:       g.Name(s),
				Goal:        g.Name(d),
				NumPackages: rng.Intn(10),
				Weights:     heuristic.Weights{Distance: 0.5, Duration: 0.25, Load: 0.25},
			}
			want, reachable := ShortestCost(g, s, d)
			res, err := Search(g, ev, req)
			if !reachable {
				require.ErrorIs(t, err, ErrNoRoute)
				continue
			}
			require.NoError(t, err)
			assertValidPath(t, g, res, req.Start, req.Goal)
			assert.GreaterOrEqual(t, res.Cost+1e-9, want)
			assert.False(t, math.IsInf(res.Cost, 0))
		}
	}
}

func BenchmarkSearchSixCity(b *testing.B) {
	g, src, err := dataset.Builtin().Build()
	if err != nil {
		b.Fatal(err)
	}
	ev, err := heuristic.NewEvaluator(g, src, heuristic.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	req := Request{Start: "SURABAYA", Goal: "MALANG", NumPackages: 2, Weights: heuristic.Weights{Distance: 0.6, Duration: 0.2, Load: 0.2}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(g, ev, req); err != nil {
			b.Fatal(err)
		}
	}
}
