package datalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

var ErrUnsupported = errors.New("unsupported datalog construct")

// DefaultLimit caps the rows of a query without an explicit limit.
const DefaultLimit = 1000

// Row maps query variables to values.
type Row map[string]string

// Query is a compiled conjunctive query: triple atoms joined in order, then
// filtered.
type Query struct {
	Body    []rules.Template
	Vars    []string
	filters []func(rules.Bindings) bool
}

func variable(name string) string { return "?" + name }

func component(t Term) string {
	if t.Var {
		return variable(t.Value)
	}
	return t.Value
}

// Compile parses and compiles a query. Supported atoms are triple/3 (also
// spelled triples), neq/2 and regex/2.
func Compile(query string) (*Query, error) {
	atoms, err := Parse(query)
	if err != nil {
		return nil, err
	}
	q := &Query{}
	bound := map[string]bool{}
	anonymous := 0
	for _, a := range atoms {
		switch a.Predicate {
		case "triple", "triples":
			if len(a.Args) != 3 {
				return nil, fmt.Errorf("%w: %s needs 3 arguments", ErrSyntax, a.Predicate)
			}
			args := slices.Clone(a.Args)
			for i, t := range args {
				if !t.Var {
					continue
				}
				if t.Value == "_" {
					args[i].Value = fmt.Sprintf("_%d", anonymous)
					anonymous++
					continue
				}
				if !bound[t.Value] {
					bound[t.Value] = true
					q.Vars = append(q.Vars, t.Value)
				}
			}
			q.Body = append(q.Body, rules.NewTemplate(component(args[0]), component(args[1]), component(args[2])))
		case "neq":
			if len(a.Args) != 2 {
				return nil, fmt.Errorf("%w: neq needs 2 arguments", ErrSyntax)
			}
			l, r := a.Args[0], a.Args[1]
			q.filters = append(q.filters, func(b rules.Bindings) bool {
				return value(b, l) != value(b, r)
			})
		case "regex":
			if len(a.Args) != 2 || a.Args[1].Var {
				return nil, fmt.Errorf("%w: regex needs a term and a constant pattern", ErrSyntax)
			}
			re, err := regexp.Compile(a.Args[1].Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			arg := a.Args[0]
			q.filters = append(q.filters, func(b rules.Bindings) bool {
				return re.MatchString(value(b, arg))
			})
		default:
			return nil, fmt.Errorf("%w: predicate %s", ErrUnsupported, a.Predicate)
		}
	}
	if len(q.Body) == 0 {
		return nil, fmt.Errorf("%w: query has no triple atom", ErrSyntax)
	}
	for _, a := range atoms {
		if a.Predicate == "neq" || a.Predicate == "regex" {
			for _, t := range a.Args {
				if t.Var && !bound[t.Value] {
					return nil, fmt.Errorf("%w: variable %s is not bound by a triple", ErrSyntax, t.Value)
				}
			}
		}
	}
	return q, nil
}

func value(b rules.Bindings, t Term) string {
	if t.Var {
		return b[variable(t.Value)]
	}
	return t.Value
}

// Run evaluates the query against the store and returns at most limit rows;
// a limit of 0 means DefaultLimit.
func (q *Query) Run(ctx context.Context, store *factstore.Store, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var rows []Row
	seen := make(map[string]bool)
	err := deduce.Solve(ctx, store, q.Body, func(b rules.Bindings) bool {
		for _, keep := range q.filters {
			if !keep(b) {
				return true
			}
		}
		row := make(Row, len(q.Vars))
		values := make([]string, len(q.Vars))
		for i, v := range q.Vars {
			row[v] = b[variable(v)]
			values[i] = row[v]
		}
		if key := strings.Join(values, "\x00"); !seen[key] {
			seen[key] = true
			rows = append(rows, row)
		}
		return len(rows) < limit
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
