package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	for i := range uint32(5) {
		assert.Equal(t, i, uf.Find(i))
	}
	assert.Equal(t, uint32(5), uf.Sets())

	assert.True(t, uf.Union(0, 1))
	assert.True(t, uf.Union(2, 3))
	assert.Equal(t, uf.Find(0), uf.Find(1))
	assert.Equal(t, uf.Find(2), uf.Find(3))
	assert.NotEqual(t, uf.Find(0), uf.Find(2))

	assert.True(t, uf.Union(1, 3))
	assert.False(t, uf.Union(0, 2), "already joined")
	assert.Equal(t, uf.Find(0), uf.Find(3))
	assert.NotEqual(t, uf.Find(0), uf.Find(4))
	assert.Equal(t, uint32(2), uf.Sets())
}

// twoIslands: {A,B,C} connected, {D,E} connected, no link between them.
func twoIslands(t *testing.T) *Graph {
	t.Helper()
	g, err := Build(&Input{
		Locations: []Location{
			{Name: "A", Lat: 1}, {Name: "B", Lat: 2}, {Name: "C", Lat: 3},
			{Name: "D", Lat: 4}, {Name: "E", Lat: 5},
		},
		Edges: Mirror([]Edge{
			{From: "A", To: "B", Cost: 1},
			{From: "B", To: "C", Cost: 2},
			{From: "D", To: "E", Cost: 3},
		}),
		WithCoordinates: true,
	})
	require.NoError(t, err)
	return g
}

func TestCountComponents(t *testing.T) {
	assert.Equal(t, 2, CountComponents(twoIslands(t)))

	empty, err := Build(&Input{})
	require.NoError(t, err)
	assert.Equal(t, 0, CountComponents(empty))
}

func TestLargestComponent(t *testing.T) {
	g := twoIslands(t)
	assert.Equal(t, []uint32{0, 1, 2}, LargestComponent(g))
}

func TestFilterToComponent(t *testing.T) {
	g := twoIslands(t)
	f := FilterToComponent(g, LargestComponent(g))

	require.Equal(t, uint32(3), f.NumNodes)
	assert.Equal(t, uint32(4), f.NumEdges)
	assert.Equal(t, []string{"A", "B", "C"}, f.Names)
	assert.Equal(t, []float64{1, 2, 3}, f.NodeLat)

	_, ok := f.Index("D")
	assert.False(t, ok)
	c, ok := f.Index("C")
	require.True(t, ok)
	cost, ok := f.EdgeCost(1, c)
	require.True(t, ok)
	assert.Equal(t, 2.0, cost)
}

func TestFilterToComponentEmpty(t *testing.T) {
	f := FilterToComponent(twoIslands(t), nil)
	assert.Equal(t, uint32(0), f.NumNodes)
	assert.Equal(t, 0, CountComponents(f))
}
