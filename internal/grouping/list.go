package grouping

// ListGrouper keeps each partition as a plain list of groups and scans it
// linearly to locate an identifier. It is quadratic and only suited to
// small inputs and cross-checking the other strategies.
type ListGrouper[K comparable] struct {
	parts [2][]listGroup[K]
}

type listGroup[K comparable] struct {
	set     map[K]struct{}
	members []K
}

// NewListGrouper creates an empty list-scan grouper.
func NewListGrouper[K comparable]() *ListGrouper[K] {
	return &ListGrouper[K]{}
}

func (l *ListGrouper[K]) find(rel Relation, id K) int {
	for i, g := range l.parts[rel] {
		if _, ok := g.set[id]; ok {
			return i
		}
	}
	return -1
}

// Insert implements Grouper.
func (l *ListGrouper[K]) Insert(id1, id2 K, same bool) {
	rel := RelationFor(same)
	i1, i2 := l.find(rel, id1), l.find(rel, id2)
	groups := l.parts[rel]

	switch {
	case i1 == -1 && i2 == -1:
		g := listGroup[K]{set: make(map[K]struct{})}
		g.add(id1)
		g.add(id2)
		l.parts[rel] = append(groups, g)
	case i1 == -1:
		groups[i2].add(id1)
	case i2 == -1:
		groups[i1].add(id2)
	case i1 != i2:
		for _, id := range groups[i2].members {
			groups[i1].add(id)
		}
		l.parts[rel] = append(groups[:i2], groups[i2+1:]...)
	}
}

func (g *listGroup[K]) add(id K) {
	if _, ok := g.set[id]; ok {
		return
	}
	g.set[id] = struct{}{}
	g.members = append(g.members, id)
}

// Groups implements Grouper.
func (l *ListGrouper[K]) Groups(rel Relation) [][]K {
	out := make([][]K, 0, len(l.parts[rel]))
	for _, g := range l.parts[rel] {
		out = append(out, append([]K(nil), g.members...))
	}
	return out
}
