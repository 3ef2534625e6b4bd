package datalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

func family() *factstore.Store {
	return factstore.FromFacts(
		fact.New("<Ann>", "<hasChild>", "<Bob>"),
		fact.New("<Bob>", "<hasChild>", "<Cid>"),
		fact.New("<Bob>", "<hasChild>", "<Dan>"),
		fact.New("<Cid>", "rdfs:label", fact.ForString("Cid")),
	)
}

func TestQueryJoin(t *testing.T) {
	q, err := Compile(`triple(X, "<hasChild>", Y), triple(Y, "<hasChild>", Z)`)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, q.Vars)

	rows, err := q.Run(context.Background(), family(), 0)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"X": "<Ann>", "Y": "<Bob>", "Z": "<Cid>"},
		{"X": "<Ann>", "Y": "<Bob>", "Z": "<Dan>"},
	}, rows)
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()

	q, err := Compile(`triple(<Bob>, <hasChild>, X), X != <Cid>`)
	require.NoError(t, err)
	rows, err := q.Run(ctx, family(), 0)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"X": "<Dan>"}}, rows)

	q, err = Compile(`triple(X, rdfs:label, L), regex(L, "^.Cid.$")`)
	require.NoError(t, err)
	rows, err = q.Run(ctx, family(), 0)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"X": "<Cid>", "L": `"Cid"`}}, rows)
}

func TestQueryAnonymousAndLimit(t *testing.T) {
	q, err := Compile(`triple(_, "<hasChild>", _)`)
	require.NoError(t, err)
	assert.Empty(t, q.Vars)
	rows, err := q.Run(context.Background(), family(), 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "rows without variables collapse to one")

	q, err = Compile(`triple(P, "<hasChild>", _)`)
	require.NoError(t, err)
	rows, err = q.Run(context.Background(), family(), 1)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"P": "<Ann>"}}, rows)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(`foo(X)`)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = Compile(`triple(X, Y)`)
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = Compile(`X != Y`)
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = Compile(`triple(X, "<p>", Y), Z != Y`)
	assert.ErrorIs(t, err, ErrSyntax)
	_, err = Compile(`triple(X, "<p>", Y), regex(X, "[")`)
	assert.ErrorIs(t, err, ErrSyntax)
}
