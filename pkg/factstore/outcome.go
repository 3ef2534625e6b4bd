package factstore

import (
	"slices"
)

// Outcome classifies the result of adding a fact.
type Outcome int

const (
	// New means the fact was inserted.
	New Outcome = iota
	// Duplicate means the identical triple was already present.
	Duplicate
	// FunClash means the relation is functional and the subject already has a different object.
	FunClash
)

func (o Outcome) String() string {
	switch o {
	case New:
		return "NEW"
	case Duplicate:
		return "DUPLICATE"
	case FunClash:
		return "FUNCLASH"
	default:
		return "UNKNOWN"
	}
}

// RelationSet is a set of relation names, used for the functional relations.
type RelationSet map[string]struct{}

// NewRelationSet creates a set holding the given relations.
func NewRelationSet(relations ...string) RelationSet {
	rs := make(RelationSet, len(relations))
	for _, r := range relations {
		rs[r] = struct{}{}
	}
	return rs
}

// Has reports membership. A nil set holds nothing.
func (rs RelationSet) Has(relation string) bool {
	_, ok := rs[relation]
	return ok
}

// Add inserts relations into the set.
func (rs RelationSet) Add(relations ...string) {
	for _, r := range relations {
		rs[r] = struct{}{}
	}
}

// Len returns the number of relations.
func (rs RelationSet) Len() int {
	return len(rs)
}

// Sorted returns the relations in lexical order.
func (rs RelationSet) Sorted() []string {
	out := make([]string, 0, len(rs))
	for r := range rs {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}
