package routing

// frontierEntry is one open-set slot: the arena record it points at plus the
// priority captured when the record was created.
type frontierEntry struct {
	loc  uint32
	node int32   // index into the search arena
	f    float64 // g + h of the arena record
	seq  uint64  // insertion order; breaks ties in f (FIFO)
}

// frontier is an indexed binary min-heap keyed by (f, seq). pos maps a
// location to its heap slot so lookup, replacement and removal by location
// are O(1) / O(log n) instead of a linear scan.
type frontier struct {
	items []frontierEntry
	pos   []int32 // len: NumNodes; -1 = not in frontier
	seq   uint64
}

func newFrontier(numNodes uint32) *frontier {
	pos := make([]int32, numNodes)
	for i := range pos {
		pos[i] = -1
	}
	return &frontier{
		items: make([]frontierEntry, 0, 16),
		pos:   pos,
	}
}

func (q *frontier) Len() int { return len(q.items) }

// lookup reports whether loc has an open entry and returns its arena index.
func (q *frontier) lookup(loc uint32) (node int32, ok bool) {
	i := q.pos[loc]
	if i < 0 {
		return 0, false
	}
	return q.items[i].node, true
}

// push inserts a location that is not yet in the frontier.
func (q *frontier) push(loc uint32, node int32, f float64) {
	q.seq++
	q.items = append(q.items, frontierEntry{loc: loc, node: node, f: f, seq: q.seq})
	i := len(q.items) - 1
	q.pos[loc] = int32(i)
	q.siftUp(i)
}

// replace swaps loc's entry for a new arena record. The entry gets a fresh
// sequence number, exactly as if it had been removed and pushed again.
func (q *frontier) replace(loc uint32, node int32, f float64) {
	i := int(q.pos[loc])
	q.seq++
	q.items[i].node = node
	q.items[i].f = f
	q.items[i].seq = q.seq
	if !q.siftUp(i) {
		q.siftDown(i)
	}
}

// pop removes and returns the entry with the smallest (f, seq).
func (q *frontier) pop() frontierEntry {
	top := q.items[0]
	last := len(q.items) - 1
	q.swap(0, last)
	q.items = q.items[:last]
	q.pos[top.loc] = -1
	if last > 0 {
		q.siftDown(0)
	}
	return top
}

func (q *frontier) less(i, j int) bool {
	a, b := &q.items[i], &q.items[j]
	if a.f != b.f {
		return a.f < b.f
	}
	return a.seq < b.seq
}

func (q *frontier) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.pos[q.items[i].loc] = int32(i)
	q.pos[q.items[j].loc] = int32(j)
}

// siftUp reports whether the entry moved.
func (q *frontier) siftUp(i int) bool {
	moved := false
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.swap(i, parent)
		i = parent
		moved = true
	}
	return moved
}

func (q *frontier) siftDown(i int) {
	n := len(q.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && q.less(left, smallest) {
			smallest = left
		}
		if right < n && q.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		q.swap(i, smallest)
		i = smallest
	}
}
