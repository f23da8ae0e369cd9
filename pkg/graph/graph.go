package graph

// Graph represents a directed location graph in CSR (Compressed Sparse Row) format.
// A Graph is never mutated after Build or ReadBinary and may be shared by
// concurrent searches.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	FirstOut []uint32  // len: NumNodes + 1; FirstOut[i]..FirstOut[i+1] are edges from node i
	Head     []uint32  // len: NumEdges; target node for each edge
	Weight   []float64 // len: NumEdges; non-negative edge cost
	Names    []string  // len: NumNodes; location identifier per node

	// Optional coordinates. Either both are len NumNodes or both are nil.
	NodeLat []float64
	NodeLon []float64

	index map[string]uint32
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Index returns the node index of the named location.
func (g *Graph) Index(name string) (uint32, bool) {
	u, ok := g.index[name]
	return u, ok
}

// Name returns the location identifier of node u.
func (g *Graph) Name(u uint32) string {
	return g.Names[u]
}

// HasCoordinates reports whether every node carries a lat/lon pair.
func (g *Graph) HasCoordinates() bool {
	return g.NumNodes > 0 && len(g.NodeLat) == int(g.NumNodes) && len(g.NodeLon) == int(g.NumNodes)
}

// EdgeCost returns the cheapest cost of an edge u→v, or false if none exists.
func (g *Graph) EdgeCost(u, v uint32) (float64, bool) {
	start, end := g.EdgesFrom(u)
	best, found := 0.0, false
	for e := start; e < end; e++ {
		if g.Head[e] != v {
			continue
		}
		if !found || g.Weight[e] < best {
			best, found = g.Weight[e], true
		}
	}
	return best, found
}

// buildIndex (re)creates the name lookup table.
func (g *Graph) buildIndex() {
	g.index = make(map[string]uint32, len(g.Names))
	for i, name := range g.Names {
		g.index[name] = uint32(i)
	}
}
