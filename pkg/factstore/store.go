package factstore

import (
	"iter"

	"github.com/yago-naga/yago3-sub001/pkg/dict"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

type triple [3]dict.ID

type pair [2]dict.ID

type slot struct {
	fact  fact.Fact
	key   triple
	alive bool
}

// Store is the indexed working set of one evaluation or merge pass.
// Facts are kept in insertion order, so every scan is deterministic.
// It is not safe for concurrent use.
type Store struct {
	syms  *dict.Memory
	slots []slot
	index map[triple]int

	bySubject  map[dict.ID][]int
	byRelation map[dict.ID][]int
	bySR       map[pair][]int
	relations  []dict.ID

	live int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		syms:       dict.NewMemory(),
		index:      make(map[triple]int),
		bySubject:  make(map[dict.ID][]int),
		byRelation: make(map[dict.ID][]int),
		bySR:       make(map[pair][]int),
	}
}

// FromFacts creates a store holding the given facts, without functional checks.
func FromFacts(facts ...fact.Fact) *Store {
	s := NewStore()
	for _, f := range facts {
		s.Add(f, nil)
	}
	return s
}

// Len returns the number of facts.
func (s *Store) Len() int {
	return s.live
}

// Add inserts f unless it is a duplicate or would break a functional relation.
func (s *Store) Add(f fact.Fact, functional RelationSet) Outcome {
	k := s.intern(f)
	if _, ok := s.index[k]; ok {
		return Duplicate
	}
	if functional.Has(f.Relation) {
		for _, pos := range s.bySR[pair{k[0], k[1]}] {
			if s.slots[pos].alive && s.slots[pos].key[2] != k[2] {
				return FunClash
			}
		}
	}

	pos := len(s.slots)
	s.slots = append(s.slots, slot{fact: f, key: k, alive: true})
	s.index[k] = pos
	s.bySubject[k[0]] = append(s.bySubject[k[0]], pos)
	if _, seen := s.byRelation[k[1]]; !seen {
		s.relations = append(s.relations, k[1])
	}
	s.byRelation[k[1]] = append(s.byRelation[k[1]], pos)
	s.bySR[pair{k[0], k[1]}] = append(s.bySR[pair{k[0], k[1]}], pos)
	s.live++
	return New
}

// AddAll inserts every fact of the sequence and returns how many were new.
func (s *Store) AddAll(facts iter.Seq[fact.Fact], functional RelationSet) int {
	n := 0
	for f := range facts {
		if s.Add(f, functional) == New {
			n++
		}
	}
	return n
}

// Remove deletes f if present, together with every meta-fact about it.
// It reports whether f itself was present.
func (s *Store) Remove(f fact.Fact) bool {
	k, ok := s.lookup(f)
	if !ok {
		return false
	}
	pos, ok := s.index[k]
	if !ok {
		return false
	}
	stored := s.slots[pos].fact
	s.slots[pos].alive = false
	delete(s.index, k)
	s.live--

	for _, id := range metaSubjects(stored) {
		for _, m := range s.BySubject(id) {
			s.Remove(m)
		}
	}
	return true
}

// metaSubjects lists the identifiers under which meta-facts about f may be stored.
func metaSubjects(f fact.Fact) []string {
	derived := fact.MakeID(f.Subject, f.Relation, f.Object)
	if f.ID == "" || f.ID == derived {
		return []string{derived}
	}
	return []string{f.ID, derived}
}

// Contains reports whether the triple of f is present.
func (s *Store) Contains(f fact.Fact) bool {
	k, ok := s.lookup(f)
	if !ok {
		return false
	}
	_, ok = s.index[k]
	return ok
}

// Get returns the stored fact with the triple of f, including its identifier.
func (s *Store) Get(f fact.Fact) (fact.Fact, bool) {
	k, ok := s.lookup(f)
	if !ok {
		return fact.Fact{}, false
	}
	pos, ok := s.index[k]
	if !ok {
		return fact.Fact{}, false
	}
	return s.slots[pos].fact, true
}

// BySubjectRelation returns the facts with the given subject and relation.
func (s *Store) BySubjectRelation(subject, relation string) []fact.Fact {
	return collect(s.Scan(subject, relation))
}

// ByRelation returns the facts with the given relation.
func (s *Store) ByRelation(relation string) []fact.Fact {
	return collect(s.Scan("", relation))
}

// BySubject returns the facts with the given subject.
func (s *Store) BySubject(subject string) []fact.Fact {
	return collect(s.Scan(subject, ""))
}

// Facts returns all facts in insertion order.
func (s *Store) Facts() []fact.Fact {
	return collect(s.All())
}

// All iterates over all facts in insertion order.
func (s *Store) All() iter.Seq[fact.Fact] {
	slots := s.slots
	return func(yield func(fact.Fact) bool) {
		for i := range slots {
			if slots[i].alive && !yield(slots[i].fact) {
				return
			}
		}
	}
}

// Scan iterates over the facts matching a subject and relation, where "" is a
// wildcard. It picks the most specific index: subject and relation, then
// relation, then subject, and falls back to a full scan.
func (s *Store) Scan(subject, relation string) iter.Seq[fact.Fact] {
	var positions []int
	switch {
	case subject != "" && relation != "":
		sid, ok1 := s.syms.Lookup(subject)
		rid, ok2 := s.syms.Lookup(relation)
		if !ok1 || !ok2 {
			return empty
		}
		positions = s.bySR[pair{sid, rid}]
	case relation != "":
		rid, ok := s.syms.Lookup(relation)
		if !ok {
			return empty
		}
		positions = s.byRelation[rid]
	case subject != "":
		sid, ok := s.syms.Lookup(subject)
		if !ok {
			return empty
		}
		positions = s.bySubject[sid]
	default:
		return s.All()
	}
	slots := s.slots
	return func(yield func(fact.Fact) bool) {
		for _, pos := range positions {
			if slots[pos].alive && !yield(slots[pos].fact) {
				return
			}
		}
	}
}

// CollectObjects returns the objects recorded for a subject and relation.
func (s *Store) CollectObjects(subject, relation string) []string {
	var out []string
	for f := range s.Scan(subject, relation) {
		out = append(out, f.Object)
	}
	return out
}

// Object returns the first object recorded for a subject and relation.
func (s *Store) Object(subject, relation string) (string, bool) {
	for f := range s.Scan(subject, relation) {
		return f.Object, true
	}
	return "", false
}

// SeekSubjects returns the subjects that have the given object for a relation.
func (s *Store) SeekSubjects(relation, object string) []string {
	var out []string
	seen := make(map[string]struct{})
	for f := range s.Scan("", relation) {
		if f.Object != object {
			continue
		}
		if _, dup := seen[f.Subject]; dup {
			continue
		}
		seen[f.Subject] = struct{}{}
		out = append(out, f.Subject)
	}
	return out
}

// Relations returns the distinct relations in first-seen order.
func (s *Store) Relations() []string {
	out := make([]string, 0, len(s.relations))
	for _, rid := range s.relations {
		if s.hasLive(s.byRelation[rid]) {
			out = append(out, s.syms.String(rid))
		}
	}
	return out
}

// Clone returns an independent copy holding the same facts in the same order.
func (s *Store) Clone() *Store {
	c := NewStore()
	for f := range s.All() {
		c.Add(f, nil)
	}
	return c
}

func (s *Store) hasLive(positions []int) bool {
	for _, pos := range positions {
		if s.slots[pos].alive {
			return true
		}
	}
	return false
}

func (s *Store) intern(f fact.Fact) triple {
	return triple{s.syms.Intern(f.Subject), s.syms.Intern(f.Relation), s.syms.Intern(f.Object)}
}

func (s *Store) lookup(f fact.Fact) (triple, bool) {
	sid, ok := s.syms.Lookup(f.Subject)
	if !ok {
		return triple{}, false
	}
	rid, ok := s.syms.Lookup(f.Relation)
	if !ok {
		return triple{}, false
	}
	oid, ok := s.syms.Lookup(f.Object)
	if !ok {
		return triple{}, false
	}
	return triple{sid, rid, oid}, true
}

func empty(func(fact.Fact) bool) {}

func collect(seq iter.Seq[fact.Fact]) []fact.Fact {
	var out []fact.Fact
	for f := range seq {
		out = append(out, f)
	}
	return out
}
