package rules

import (
	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

// wildcard is the bucket key for a variable slot.
const wildcard = "$"

func indexKey(c string) string {
	if IsVariable(c) {
		return wildcard
	}
	return c
}

// RuleSet groups rules by the relation and subject of their first body atom.
type RuleSet struct {
	byRelSubj map[string]map[string][]*Rule
	order     []*Rule
}

// NewRuleSet creates a set holding the given rules.
func NewRuleSet(rules ...*Rule) *RuleSet {
	rs := &RuleSet{byRelSubj: make(map[string]map[string][]*Rule)}
	for _, r := range rules {
		rs.Add(r)
	}
	return rs
}

// Add indexes a rule. Ready rules have no first atom and are indexed under
// the wildcards, so they match every fact.
func (rs *RuleSet) Add(r *Rule) {
	rel, subj := wildcard, wildcard
	if !r.Ready() {
		rel = indexKey(r.First().Relation)
		subj = indexKey(r.First().Subject)
	}
	bySubj, ok := rs.byRelSubj[rel]
	if !ok {
		bySubj = make(map[string][]*Rule)
		rs.byRelSubj[rel] = bySubj
	}
	bySubj[subj] = append(bySubj[subj], r)
	rs.order = append(rs.order, r)
}

// PotentialMatches returns the rules whose first atom may match f.
func (rs *RuleSet) PotentialMatches(f fact.Fact) []*Rule {
	var out []*Rule
	for _, rel := range keys(f.Relation) {
		bySubj, ok := rs.byRelSubj[rel]
		if !ok {
			continue
		}
		for _, subj := range keys(f.Subject) {
			out = append(out, bySubj[subj]...)
		}
	}
	return out
}

func keys(value string) []string {
	if value == wildcard {
		return []string{wildcard}
	}
	return []string{wildcard, value}
}

// All returns the rules in insertion order.
func (rs *RuleSet) All() []*Rule {
	return rs.order
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.order)
}

// Empty reports whether the set holds no rules.
func (rs *RuleSet) Empty() bool {
	return len(rs.order) == 0
}

// Split partitions rules into sets of at most max rules each; max 0 means one set.
func Split(rules []*Rule, max int) []*RuleSet {
	if max <= 0 || len(rules) <= max {
		return []*RuleSet{NewRuleSet(rules...)}
	}
	var out []*RuleSet
	for start := 0; start < len(rules); start += max {
		end := min(start+max, len(rules))
		out = append(out, NewRuleSet(rules[start:end]...))
	}
	return out
}

// FromFacts builds rules from every implication fact, in order.
func FromFacts(facts []fact.Fact) ([]*Rule, error) {
	var out []*Rule
	for _, f := range facts {
		if f.Relation != fact.Implies {
			continue
		}
		r, err := FromImplies(f)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
