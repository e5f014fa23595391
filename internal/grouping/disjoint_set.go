package grouping

// DisjointSet is the default Grouper: a union-find forest per relation with
// union by size and path halving.
//
// Identifiers map to indices in an arena of nodes, so a merged group has a
// single canonical root and extraction never has to de-duplicate aliases.
type DisjointSet[K comparable] struct {
	parts [2]forest[K]
}

// NewDisjointSet creates an empty disjoint-set grouper.
func NewDisjointSet[K comparable]() *DisjointSet[K] {
	return &DisjointSet[K]{
		parts: [2]forest[K]{newForest[K](), newForest[K]()},
	}
}

// Insert implements Grouper.
func (d *DisjointSet[K]) Insert(id1, id2 K, same bool) {
	f := &d.parts[RelationFor(same)]
	f.union(f.add(id1), f.add(id2))
}

// Groups implements Grouper. Groups are ordered by the first time any of
// their members was seen; members keep insertion order.
func (d *DisjointSet[K]) Groups(rel Relation) [][]K {
	return d.parts[rel].groups()
}

type forest[K comparable] struct {
	index  map[K]int
	keys   []K
	parent []int
	size   []int
}

func newForest[K comparable]() forest[K] {
	return forest[K]{index: make(map[K]int)}
}

func (f *forest[K]) add(k K) int {
	if i, ok := f.index[k]; ok {
		return i
	}
	i := len(f.keys)
	f.index[k] = i
	f.keys = append(f.keys, k)
	f.parent = append(f.parent, i)
	f.size = append(f.size, 1)
	return i
}

func (f *forest[K]) find(i int) int {
	for f.parent[i] != i {
		f.parent[i] = f.parent[f.parent[i]]
		i = f.parent[i]
	}
	return i
}

func (f *forest[K]) union(a, b int) {
	ra, rb := f.find(a), f.find(b)
	if ra == rb {
		return
	}
	if f.size[ra] < f.size[rb] {
		ra, rb = rb, ra
	}
	f.parent[rb] = ra
	f.size[ra] += f.size[rb]
}

func (f *forest[K]) groups() [][]K {
	slot := make(map[int]int)
	var out [][]K
	for i, k := range f.keys {
		root := f.find(i)
		s, ok := slot[root]
		if !ok {
			s = len(out)
			slot[root] = s
			out = append(out, make([]K, 0, f.size[root]))
		}
		out[s] = append(out[s], k)
	}
	return out
}
