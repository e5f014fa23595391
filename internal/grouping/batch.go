package grouping

import (
	"cmp"
	"context"
	"slices"

	"github.com/ricesearch/matcheval/internal/pkg/logger"
)

// Options configures GroupObservations.
type Options struct {
	// Strategy selects the Grouper implementation.
	Strategy Strategy

	// ProgressEvery logs progress after this many observations. Zero disables it.
	ProgressEvery int

	// Log receives progress messages. Nil uses a discarding logger.
	Log *logger.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Strategy:      StrategyDisjointSet,
		ProgressEvery: 100000,
	}
}

// Result holds both partitions after a grouping run.
type Result[K comparable] struct {
	Same         [][]K `json:"same" yaml:"same"`
	Different    [][]K `json:"different" yaml:"different"`
	Observations int   `json:"observations" yaml:"observations"`
}

// GroupObservations feeds every observation through a fresh grouper and
// extracts both partitions. The context is checked between progress chunks.
func GroupObservations[K comparable](ctx context.Context, obs []Observation[K], opts Options) (Result[K], error) {
	g, err := New[K](opts.Strategy)
	if err != nil {
		return Result[K]{}, err
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	for i, o := range obs {
		g.Insert(o.ID1, o.ID2, o.Same)

		if opts.ProgressEvery > 0 && (i+1)%opts.ProgressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result[K]{}, err
			}
			log.Debug("Grouping progress", "done", i+1, "total", len(obs))
		}
	}

	res := Result[K]{
		Same:         g.Groups(Same),
		Different:    g.Groups(Different),
		Observations: len(obs),
	}
	// Empty partitions encode as [] rather than null.
	if res.Same == nil {
		res.Same = [][]K{}
	}
	if res.Different == nil {
		res.Different = [][]K{}
	}
	log.Info("Grouping finished",
		"observations", len(obs),
		"same_groups", len(res.Same),
		"different_groups", len(res.Different),
	)
	return res, nil
}

// Canonical returns a copy of groups with members sorted ascending and
// groups ordered by their smallest member.
func Canonical[K cmp.Ordered](groups [][]K) [][]K {
	out := make([][]K, len(groups))
	for i, g := range groups {
		c := slices.Clone(g)
		slices.Sort(c)
		out[i] = c
	}
	slices.SortFunc(out, func(a, b []K) int {
		if len(a) == 0 || len(b) == 0 {
			return cmp.Compare(len(a), len(b))
		}
		return cmp.Compare(a[0], b[0])
	})
	return out
}

// CanonicalResult returns r with both partitions in canonical order.
func CanonicalResult[K cmp.Ordered](r Result[K]) Result[K] {
	r.Same = Canonical(r.Same)
	r.Different = Canonical(r.Different)
	return r
}
