// Package grouping consolidates pairwise same-product / different-product
// judgments into disjoint groups of identifiers.
//
// Each relation keeps its own partition. An identifier can sit in one
// same-product group and, independently, in one different-product group.
// Groups only grow or merge; nothing is ever split or retracted.
package grouping

import (
	"fmt"
	"strings"
)

// Relation selects one of the two partitions a grouper maintains.
type Relation int

const (
	// Same groups identifiers judged to be the same product.
	Same Relation = iota
	// Different groups identifiers judged to be different products.
	Different
)

// RelationFor maps a pair label to the partition it feeds.
func RelationFor(same bool) Relation {
	if same {
		return Same
	}
	return Different
}

func (r Relation) String() string {
	switch r {
	case Same:
		return "same"
	case Different:
		return "different"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// Observation is one labeled pair.
type Observation[K comparable] struct {
	ID1  K    `json:"id1" yaml:"id1"`
	ID2  K    `json:"id2" yaml:"id2"`
	Same bool `json:"same" yaml:"same"`
}

// Grouper maintains the two relation partitions.
//
// Implementations are not safe for concurrent use; wrap them with Locked
// when several goroutines insert.
type Grouper[K comparable] interface {
	// Insert records that id1 and id2 stand in the relation selected by same.
	Insert(id1, id2 K, same bool)

	// Groups returns the current groups of one partition. Every group is
	// listed exactly once and groups are pairwise disjoint.
	Groups(rel Relation) [][]K
}

// SameProductGroups returns the same-product partition of g.
func SameProductGroups[K comparable](g Grouper[K]) [][]K {
	return g.Groups(Same)
}

// DifferentProductGroups returns the different-product partition of g.
func DifferentProductGroups[K comparable](g Grouper[K]) [][]K {
	return g.Groups(Different)
}

// Strategy names a Grouper implementation.
type Strategy string

const (
	StrategyDisjointSet Strategy = "disjoint-set"
	StrategySharedSet   Strategy = "shared-set"
	StrategyList        Strategy = "list"
)

// Strategies lists the accepted strategy names.
func Strategies() []Strategy {
	return []Strategy{StrategyDisjointSet, StrategySharedSet, StrategyList}
}

// StrategyNames joins the accepted strategy names for messages and help text.
func StrategyNames() string {
	names := make([]string, 0, len(Strategies()))
	for _, s := range Strategies() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// ParseStrategy validates a strategy name. Empty selects the disjoint set.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyDisjointSet:
		return StrategyDisjointSet, nil
	case StrategySharedSet:
		return StrategySharedSet, nil
	case StrategyList:
		return StrategyList, nil
	default:
		return "", fmt.Errorf("unknown grouping strategy %q (must be one of %s)", s, StrategyNames())
	}
}

// New returns an empty grouper using the given strategy.
func New[K comparable](strategy Strategy) (Grouper[K], error) {
	switch strategy {
	case "", StrategyDisjointSet:
		return NewDisjointSet[K](), nil
	case StrategySharedSet:
		return NewSharedSetGrouper[K](), nil
	case StrategyList:
		return NewListGrouper[K](), nil
	default:
		return nil, fmt.Errorf("unknown grouping strategy %q", strategy)
	}
}
