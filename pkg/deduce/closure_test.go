package deduce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
)

func chain() *factstore.Store {
	return factstore.FromFacts(
		fact.New("<a>", "<isLocatedIn>", "<b>"),
		fact.New("<b>", "<isLocatedIn>", "<c>"),
		fact.New("<c>", "<isLocatedIn>", "<d>"),
	)
}

var transitive = rules.MustRule("?x <isLocatedIn> ?y; ?y <isLocatedIn> ?z", "?x <isLocatedIn> ?z")

func closureAt(t *testing.T, depth int) []fact.Fact {
	t.Helper()
	res, err := newEvaluator(t, nil, nil).Closure(context.Background(), chain(), []*rules.Rule{transitive}, ClosureOptions{Depth: depth})
	require.NoError(t, err)
	assert.Equal(t, depth, res.Stats.Rounds)
	return triples(res.Facts)
}

func TestClosureDepth(t *testing.T) {
	ad := fact.New("<a>", "<isLocatedIn>", "<d>")

	one := closureAt(t, 1)
	assert.Equal(t, []fact.Fact{
		fact.New("<a>", "<isLocatedIn>", "<c>"),
		fact.New("<b>", "<isLocatedIn>", "<d>"),
	}, one)
	assert.NotContains(t, one, ad)

	two := closureAt(t, 2)
	assert.Contains(t, two, ad)
	assert.Subset(t, two, one)
	assert.Greater(t, len(two), len(one))

	three := closureAt(t, 3)
	assert.Equal(t, two, three)
}

func TestClosureStopsAtFixpoint(t *testing.T) {
	e := newEvaluator(t, nil, nil)
	res, err := e.Closure(context.Background(), chain(), []*rules.Rule{transitive}, ClosureOptions{Depth: 10, StopAtFixpoint: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Rounds)
	assert.Equal(t, closureAt(t, 2), triples(res.Facts))
}

func TestClosureLeavesBaseUntouched(t *testing.T) {
	base := chain()
	_, err := newEvaluator(t, nil, nil).Closure(context.Background(), base, []*rules.Rule{transitive}, ClosureOptions{Depth: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, base.Len())

	_, err = newEvaluator(t, nil, nil).Closure(context.Background(), base, nil, ClosureOptions{Depth: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSolve(t *testing.T) {
	store := chain()
	body := []rules.Template{
		rules.NewTemplate("?x", "<isLocatedIn>", "?y"),
		rules.NewTemplate("?y", "<isLocatedIn>", "?z"),
	}

	var got []rules.Bindings
	require.NoError(t, Solve(context.Background(), store, body, func(b rules.Bindings) bool {
		got = append(got, b)
		return true
	}))
	assert.Equal(t, []rules.Bindings{
		{"?x": "<a>", "?y": "<b>", "?z": "<c>"},
		{"?x": "<b>", "?y": "<c>", "?z": "<d>"},
	}, got)

	count := 0
	require.NoError(t, Solve(context.Background(), store, body, func(rules.Bindings) bool {
		count++
		return false
	}))
	assert.Equal(t, 1, count)
}
