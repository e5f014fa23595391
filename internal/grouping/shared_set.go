package grouping

// SharedSetGrouper maps every identifier to a shared group object.
//
// A merge copies the smaller group into the larger and re-points each
// absorbed member, so a merge costs O(size of the smaller group).
type SharedSetGrouper[K comparable] struct {
	parts [2]sharedPartition[K]
}

type sharedGroup[K comparable] struct {
	members []K
}

type sharedPartition[K comparable] struct {
	owner map[K]*sharedGroup[K]
	seen  []K
}

// NewSharedSetGrouper creates an empty hash-map backed grouper.
func NewSharedSetGrouper[K comparable]() *SharedSetGrouper[K] {
	return &SharedSetGrouper[K]{
		parts: [2]sharedPartition[K]{
			{owner: make(map[K]*sharedGroup[K])},
			{owner: make(map[K]*sharedGroup[K])},
		},
	}
}

// Insert implements Grouper.
func (s *SharedSetGrouper[K]) Insert(id1, id2 K, same bool) {
	p := &s.parts[RelationFor(same)]
	g1, has1 := p.owner[id1]
	g2, has2 := p.owner[id2]

	switch {
	case has1 && has2:
		if g1 == g2 {
			return
		}
		p.merge(g1, g2)
	case has1:
		p.join(g1, id2)
	case has2:
		p.join(g2, id1)
	default:
		g := &sharedGroup[K]{members: []K{id1}}
		p.owner[id1] = g
		p.seen = append(p.seen, id1)
		if id2 != id1 {
			p.join(g, id2)
		}
	}
}

func (p *sharedPartition[K]) join(g *sharedGroup[K], id K) {
	g.members = append(g.members, id)
	p.owner[id] = g
	p.seen = append(p.seen, id)
}

func (p *sharedPartition[K]) merge(a, b *sharedGroup[K]) {
	if len(a.members) < len(b.members) {
		a, b = b, a
	}
	for _, id := range b.members {
		p.owner[id] = a
	}
	a.members = append(a.members, b.members...)
	b.members = nil
}

// Groups implements Grouper. Each shared group object is emitted once, in
// the order its first member was seen.
func (s *SharedSetGrouper[K]) Groups(rel Relation) [][]K {
	p := &s.parts[rel]
	emitted := make(map[*sharedGroup[K]]bool)
	var out [][]K
	for _, id := range p.seen {
		g := p.owner[id]
		if emitted[g] {
			continue
		}
		emitted[g] = true
		out = append(out, append([]K(nil), g.members...))
	}
	return out
}
