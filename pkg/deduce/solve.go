package deduce

import (
	"context"

	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

// Solve enumerates the variable assignments that satisfy a conjunction of
// templates, joining in the given order. fn returning false stops the search.
func Solve(ctx context.Context, store *factstore.Store, body []rules.Template, fn func(rules.Bindings) bool) error {
	_, err := solve(ctx, store, body, rules.Bindings{}, fn)
	return err
}

func solve(ctx context.Context, store *factstore.Store, body []rules.Template, acc rules.Bindings, fn func(rules.Bindings) bool) (bool, error) {
	if len(body) == 0 {
		return fn(acc), nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	first := body[0].Instantiate(acc)
	subject, relation := boundKeys(first)
	for f := range store.Scan(subject, relation) {
		b, ok := first.Match(f)
		if !ok {
			continue
		}
		next := make(rules.Bindings, len(acc)+len(b))
		for k, v := range acc {
			next[k] = v
		}
		for k, v := range b {
			next[k] = v
		}
		more, err := solve(ctx, store, body[1:], next, fn)
		if err != nil || !more {
			return more, err
		}
	}
	return true, nil
}
