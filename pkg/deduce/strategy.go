package deduce

import (
	"context"

	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

// FireFunc receives a rule whose body has been fully resolved.
type FireFunc func(r *rules.Rule)

// Strategy resolves the bodies of a rule set against a loaded store.
// The store is read only for the duration of Evaluate.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, store *factstore.Store, rs *rules.RuleSet, fire FireFunc) error
}

// Indexed resolves each rule on its own by a recursive join in body order,
// looking up candidates for the first atom through the store indices.
type Indexed struct{}

func (Indexed) Name() string { return "indexed" }

func (Indexed) Evaluate(ctx context.Context, store *factstore.Store, rs *rules.RuleSet, fire FireFunc) error {
	for _, r := range rs.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		instantiate(store, r, fire)
	}
	return nil
}

func instantiate(store *factstore.Store, r *rules.Rule, fire FireFunc) {
	if r.Ready() {
		fire(r)
		return
	}
	subject, relation := boundKeys(r.First())
	for f := range store.Scan(subject, relation) {
		if b, ok := r.MapFirstTo(f); ok {
			instantiate(store, r.Rest(b, f.Reified()), fire)
		}
	}
}

// boundKeys returns the constant subject and relation of an atom, "" if variable.
func boundKeys(t rules.Template) (subject, relation string) {
	if rules.IsConstant(t.Subject) {
		subject = t.Subject
	}
	if rules.IsConstant(t.Relation) {
		relation = t.Relation
	}
	return subject, relation
}

// Naive scans the whole store once per body position and asks the rule set
// which rules each fact may advance. It is slow and serves as a reference.
type Naive struct{}

func (Naive) Name() string { return "naive" }

func (Naive) Evaluate(ctx context.Context, store *factstore.Store, rs *rules.RuleSet, fire FireFunc) error {
	working := rules.NewRuleSet()
	for _, r := range rs.All() {
		if r.Ready() {
			fire(r)
		} else {
			working.Add(r)
		}
	}

	for !working.Empty() {
		if err := ctx.Err(); err != nil {
			return err
		}
		surviving := rules.NewRuleSet()
		for f := range store.All() {
			for _, r := range working.PotentialMatches(f) {
				b, ok := r.MapFirstTo(f)
				if !ok {
					continue
				}
				next := r.Rest(b, f.Reified())
				if next.Ready() {
					fire(next)
				} else {
					surviving.Add(next)
				}
			}
		}
		working = surviving
	}
	return nil
}

// StrategyByName returns the strategy with the given name.
func StrategyByName(name string) (Strategy, bool) {
	switch name {
	case "", "indexed":
		return Indexed{}, true
	case "naive":
		return Naive{}, true
	default:
		return nil, false
	}
}
