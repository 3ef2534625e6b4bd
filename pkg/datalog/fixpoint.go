package datalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	mangle "github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

const (
	triplePredicate = "triple"

	// MaxCreatedFacts bounds one fixpoint evaluation.
	MaxCreatedFacts = 5_000_000
)

// Program renders rules and facts as a Mangle program over triple/3.
// Rules with fact references or formatters, and rules whose head uses a
// variable the body does not bind, have no counterpart and are rejected.
func Program(rs []*rules.Rule, facts []fact.Fact) (string, error) {
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "%s(%s, %s, %s).\n", triplePredicate,
			strconv.Quote(f.Subject), strconv.Quote(f.Relation), strconv.Quote(f.Object))
	}
	for _, r := range rs {
		if err := writeRule(&b, r); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func writeRule(b *strings.Builder, r *rules.Rule) error {
	if r.HasReferences() {
		return fmt.Errorf("%w: fact references in %s", ErrUnsupported, r)
	}
	vars := map[string]string{}
	term := func(c string, head bool) (string, error) {
		switch {
		case rules.IsFormatter(c):
			return "", fmt.Errorf("%w: formatter %s in %s", ErrUnsupported, c, r)
		case rules.IsVariable(c):
			v, ok := vars[c]
			if !ok {
				if head {
					return "", fmt.Errorf("%w: head variable %s of %s is unbound", ErrUnsupported, c, r)
				}
				v = "V" + strconv.Itoa(len(vars))
				vars[c] = v
			}
			return v, nil
		default:
			return strconv.Quote(c), nil
		}
	}
	atom := func(t rules.Template, head bool) (string, error) {
		args := make([]string, 3)
		for i, c := range [3]string{t.Subject, t.Relation, t.Object} {
			a, err := term(c, head)
			if err != nil {
				return "", err
			}
			args[i] = a
		}
		return triplePredicate + "(" + strings.Join(args, ", ") + ")", nil
	}

	body := make([]string, len(r.Body))
	for i, t := range r.Body {
		a, err := atom(t, false)
		if err != nil {
			return err
		}
		body[i] = a
	}
	for _, t := range r.Head {
		h, err := atom(t, true)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "%s :- %s.\n", h, strings.Join(body, ", "))
	}
	return nil
}

// Fixpoint computes the least fixpoint of the rules over the facts with the
// Mangle engine and returns the derived facts that were not part of the
// input, ordered.
func Fixpoint(ctx context.Context, rs []*rules.Rule, facts []fact.Fact) ([]fact.Fact, error) {
	src, err := Program(rs, facts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analysis error: %w", err)
	}
	store := mangle.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, store,
		engine.WithCreatedFactLimit(MaxCreatedFacts)); err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := make(map[fact.Fact]bool, len(facts))
	for _, f := range facts {
		input[f.Triple()] = true
	}
	var out []fact.Fact
	pred := ast.PredicateSym{Symbol: triplePredicate, Arity: 3}
	err = store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
		var c [3]string
		for i, arg := range a.Args {
			k, ok := arg.(ast.Constant)
			if !ok || i > 2 {
				return fmt.Errorf("unexpected term %v in %v", arg, a)
			}
			c[i] = k.Symbol
		}
		if f := fact.New(c[0], c[1], c[2]); !input[f] {
			out = append(out, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, fact.Compare)
	return out, nil
}
