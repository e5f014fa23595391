package grouping

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strategiesUnderTest(t *testing.T) map[Strategy]func() Grouper[int] {
	t.Helper()
	return map[Strategy]func() Grouper[int]{
		StrategyDisjointSet: func() Grouper[int] { return NewDisjointSet[int]() },
		StrategySharedSet:   func() Grouper[int] { return NewSharedSetGrouper[int]() },
		StrategyList:        func() Grouper[int] { return NewListGrouper[int]() },
	}
}

func canon(g Grouper[int], rel Relation) [][]int {
	return Canonical(g.Groups(rel))
}

func TestGrouper_NewPairCreatesGroup(t *testing.T) {
	for name, mk := range strategiesUnderTest(t) {
		t.Run(string(name), func(t *testing.T) {
			g := mk()
			g.Insert(1, 2, true)

			assert.Equal(t, [][]int{{1, 2}}, canon(g, Same))
			assert.Empty(t, g.Groups(Different))
		})
	}
}

func TestGrouper_Idempotence(t *testing.T) {
	for name, mk := range strategiesUnderTest(t) {
		t.Run(string(name), func(t *testing.T) {
			once, twice := mk(), mk()
			once.Insert(1, 2, true)
			twice.Insert(1, 2, true)
			twice.Insert(1, 2, true)
			twice.Insert(2, 1, true)

			assert.Equal(t, canon(once, Same), canon(twice, Same))
		})
	}
}

func TestGrouper_Transitivity(t *testing.T) {
	orders := map[string][][2]int{
		"ab then bc": {{1, 2}, {2, 3}},
		"bc then ab": {{2, 3}, {1, 2}},
		"ca then ab": {{3, 1}, {1, 2}},
	}
	for name, mk := range strategiesUnderTest(t) {
		for orderName, pairs := range orders {
			t.Run(string(name)+"/"+orderName, func(t *testing.T) {
				g := mk()
				for _, p := range pairs {
					g.Insert(p[0], p[1], true)
				}
				assert.Equal(t, [][]int{{1, 2, 3}}, canon(g, Same))
			})
		}
	}
}

func TestGrouper_MergesTwoExistingGroups(t *testing.T) {
	for name, mk := range strategiesUnderTest(t) {
		t.Run(string(name), func(t *testing.T) {
			g := mk()
			g.Insert(1, 2, false)
			g.Insert(3, 4, false)
			g.Insert(5, 6, false)
			g.Insert(4, 7, false)
			require.Len(t, g.Groups(Different), 3)

			g.Insert(2, 4, false)

			assert.Equal(t, [][]int{{1, 2, 3, 4, 7}, {5, 6}}, canon(g, Different))

			// Members of the absorbed group must resolve to the survivor.
			g.Insert(7, 6, false)
			assert.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7}}, canon(g, Different))
		})
	}
}

func TestGrouper_PartitionIndependence(t *testing.T) {
	for name, mk := range strategiesUnderTest(t) {
		t.Run(string(name), func(t *testing.T) {
			g := mk()
			g.Insert(1, 2, true)
			g.Insert(1, 3, false)

			assert.Equal(t, [][]int{{1, 2}}, canon(g, Same))
			assert.Equal(t, [][]int{{1, 3}}, canon(g, Different))
		})
	}
}

func TestGrouper_SelfPair(t *testing.T) {
	for name, mk := range strategiesUnderTest(t) {
		t.Run(string(name), func(t *testing.T) {
			g := mk()
			g.Insert(9, 9, true)
			assert.Equal(t, [][]int{{9}}, canon(g, Same))

			g.Insert(9, 10, true)
			assert.Equal(t, [][]int{{9, 10}}, canon(g, Same))
		})
	}
}

// reference computes components by flood fill over the observed edges.
func reference(obs []Observation[int], rel Relation) [][]int {
	adj := make(map[int][]int)
	for _, o := range obs {
		if RelationFor(o.Same) != rel {
			continue
		}
		adj[o.ID1] = append(adj[o.ID1], o.ID2)
		adj[o.ID2] = append(adj[o.ID2], o.ID1)
	}
	seen := make(map[int]bool)
	var out [][]int
	for start := range adj {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, n)
			for _, m := range adj[n] {
				if !seen[m] {
					seen[m] = true
					stack = append(stack, m)
				}
			}
		}
		out = append(out, comp)
	}
	return Canonical(out)
}

func TestGrouper_CompletenessAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	obs := make([]Observation[int], 2000)
	for i := range obs {
		obs[i] = Observation[int]{
			ID1:  rng.IntN(600),
			ID2:  rng.IntN(600),
			Same: rng.IntN(2) == 0,
		}
	}

	for name, mk := range strategiesUnderTest(t) {
		t.Run(string(name), func(t *testing.T) {
			g := mk()
			for _, o := range obs {
				g.Insert(o.ID1, o.ID2, o.Same)
			}

			for _, rel := range []Relation{Same, Different} {
				got := canon(g, rel)
				assert.Equal(t, reference(obs, rel), got, "relation %s", rel)

				members := make(map[int]int)
				for i, grp := range got {
					for _, id := range grp {
						prev, dup := members[id]
						assert.False(t, dup, "id %d in groups %d and %d", id, prev, i)
						members[id] = i
					}
				}
				for _, o := range obs {
					if RelationFor(o.Same) == rel {
						assert.Equal(t, members[o.ID1], members[o.ID2])
					}
				}
			}
		})
	}
}

func TestDisjointSet_GroupOrderFollowsFirstSeen(t *testing.T) {
	d := NewDisjointSet[int]()
	d.Insert(50, 51, true)
	d.Insert(10, 11, true)
	d.Insert(11, 51, true)
	d.Insert(70, 71, true)

	assert.Equal(t, [][]int{{50, 51, 10, 11}, {70, 71}}, d.Groups(Same))
}

func TestLocked_ConcurrentInsert(t *testing.T) {
	g := NewLocked[int](NewDisjointSet[int]())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				g.Insert(i, i+1, true)
				g.Insert(offset*1000+i, offset*1000+i+1, false)
			}
		}(w)
	}
	wg.Wait()

	same := g.Groups(Same)
	require.Len(t, same, 1)
	assert.Len(t, same[0], 101)
	assert.Len(t, g.Groups(Different), 8)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyDisjointSet, false},
		{"disjoint-set", StrategyDisjointSet, false},
		{" Shared-Set ", StrategySharedSet, false},
		{"list", StrategyList, false},
		{"tree", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := New[int]("tree")
	assert.Error(t, err)
}

func TestGroupObservations(t *testing.T) {
	obs := []Observation[int64]{
		{ID1: 1, ID2: 2, Same: true},
		{ID1: 2, ID2: 3, Same: true},
		{ID1: 1, ID2: 4, Same: false},
		{ID1: 5, ID2: 4, Same: false},
		{ID1: 6, ID2: 7, Same: true},
	}

	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Strategy = s
			opts.ProgressEvery = 2

			res, err := GroupObservations(context.Background(), obs, opts)
			require.NoError(t, err)

			res = CanonicalResult(res)
			assert.Equal(t, 5, res.Observations)
			assert.Equal(t, [][]int64{{1, 2, 3}, {6, 7}}, res.Same)
			assert.Equal(t, [][]int64{{1, 4, 5}}, res.Different)
		})
	}
}

func TestGroupObservations_Empty(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Strategy = s

			res, err := GroupObservations[int64](context.Background(), nil, opts)
			require.NoError(t, err)
			assert.NotNil(t, res.Same)
			assert.NotNil(t, res.Different)

			data, err := json.Marshal(res)
			require.NoError(t, err)
			assert.JSONEq(t, `{"same":[],"different":[],"observations":0}`, string(data))
		})
	}
}

func TestGroupObservations_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs := make([]Observation[int], 10)
	for i := range obs {
		obs[i] = Observation[int]{ID1: i, ID2: i + 1, Same: true}
	}

	_, err := GroupObservations(ctx, obs, Options{ProgressEvery: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelationString(t *testing.T) {
	assert.Equal(t, "same", Same.String())
	assert.Equal(t, "different", Different.String())
	assert.Equal(t, Same, RelationFor(true))
	assert.Equal(t, Different, RelationFor(false))
}
