package merge

import (
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

// RelationFilter selects the facts that belong to a merge.
type RelationFilter func(f fact.Fact) bool

// AcceptAll keeps every fact.
func AcceptAll(fact.Fact) bool { return true }

// schemaRelations are written by dedicated mergers, not the general one.
var schemaRelations = factstore.NewRelationSet(
	fact.Type, fact.SubClassOf, fact.Domain, fact.Range, fact.SubPropertyOf,
	fact.Label, fact.PrefLabel, fact.PreferredMeaning, fact.GivenName,
	fact.FamilyName, fact.Gloss, fact.RedirectedFrom,
)

// EntityFacts keeps facts between entities: no internal "<_" relations, no
// schema or label relations, no meta-facts and no literal objects.
func EntityFacts(f fact.Fact) bool {
	switch {
	case strings.HasPrefix(f.Relation, "<_"):
		return false
	case schemaRelations.Has(f.Relation):
		return false
	case fact.IsFactID(f.Subject):
		return false
	case fact.IsLiteral(f.Object):
		return false
	}
	return true
}

// DefaultRelationFilter is the filter of a general facts merger. Literal
// objects are kept only when literals is set.
func DefaultRelationFilter(literals bool) RelationFilter {
	if !literals {
		return EntityFacts
	}
	return func(f fact.Fact) bool {
		return EntityFacts(f) || LiteralFacts(f)
	}
}

// LiteralFacts keeps facts about entities whose object is a literal.
func LiteralFacts(f fact.Fact) bool {
	return !strings.HasPrefix(f.Relation, "<_") &&
		!schemaRelations.Has(f.Relation) &&
		!fact.IsFactID(f.Subject) &&
		fact.IsLiteral(f.Object)
}

// Relations keeps only the listed relations.
func Relations(relations ...string) RelationFilter {
	set := factstore.NewRelationSet(relations...)
	return func(f fact.Fact) bool { return set.Has(f.Relation) }
}

// SourceFacts keeps the provenance of extracted facts, as collected from the
// source themes of extractors into one sources theme.
var SourceFacts = Relations(fact.ExtractionSrc, fact.ExtractionTech)

// FilterByName resolves a filter name used in pipeline files.
func FilterByName(name string) (RelationFilter, bool) {
	switch name {
	case "", "all":
		return AcceptAll, true
	case "entities":
		return EntityFacts, true
	case "facts":
		return DefaultRelationFilter(true), true
	case "literals":
		return LiteralFacts, true
	case "sources":
		return SourceFacts, true
	default:
		return nil, false
	}
}

// FunctionalRelations derives the relations that allow one object per subject
// from a schema. Functions in time count as functions. A nil schema yields
// the empty set.
func FunctionalRelations(schema *factstore.Store) factstore.RelationSet {
	out := factstore.NewRelationSet()
	if schema == nil {
		return out
	}
	out.Add(schema.SeekSubjects(fact.Type, fact.Function)...)
	out.Add(schema.SeekSubjects(fact.Type, fact.FunctionInTime)...)
	return out
}
