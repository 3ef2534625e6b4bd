package stage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

func implies(body, head string) fact.Fact {
	return fact.New(fact.ForString(body), fact.Implies, fact.ForString(head))
}

func writeInput(t *testing.T, dir, name string, facts ...fact.Fact) {
	t.Helper()
	w, err := theme.New(name, "").Create(dir, false)
	require.NoError(t, err)
	require.NoError(t, w.WriteAll(facts))
	require.NoError(t, w.Close())
}

func readOutput(t *testing.T, dir, name string) []fact.Fact {
	t.Helper()
	facts, err := theme.New(name, "").Reader(dir).Facts(context.Background())
	require.NoError(t, err)
	out := make([]fact.Fact, len(facts))
	for i, f := range facts {
		out[i] = f.Triple()
	}
	return out
}

func TestRuleStage(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInput(t, in, "rules", implies("?x rdf:type <Person>", "?x <hasKind> <Human>"))
	writeInput(t, in, "people",
		fact.New("<A>", fact.Type, "<Person>"),
		fact.New("<B>", fact.Type, "<Person>"),
		fact.New("<C>", fact.Type, "<Animal>"),
	)

	st := &RuleStage{StageName: "kinds", Rules: "rules", Facts: []string{"people", "missing"}, Result: "kinds", Sources: "kindSources"}
	require.NoError(t, st.Run(context.Background(), NewEnv(in, out, "test")))

	assert.Equal(t, []fact.Fact{
		fact.New("<A>", "<hasKind>", "<Human>"),
		fact.New("<B>", "<hasKind>", "<Human>"),
	}, readOutput(t, out, "kinds"))

	sources := readOutput(t, out, "kindSources")
	assert.Contains(t, sources, fact.Meta(fact.MakeID("<A>", "<hasKind>", "<Human>"), fact.ExtractionSrc, fact.ForTheme("rules")))
	assert.Len(t, sources, 4)
}

func TestRuleStageOutputIsReproducible(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "rules", implies("?x rdf:type <Person>", "?x <hasKind> <Human>"))
	writeInput(t, in, "people",
		fact.New("<B>", fact.Type, "<Person>"),
		fact.New("<A>", fact.Type, "<Person>"),
	)

	runOnce := func() string {
		out := t.TempDir()
		st := &RuleStage{StageName: "kinds", Rules: "rules", Facts: []string{"people"}, Result: "kinds", Sources: "kindSources"}
		require.NoError(t, st.Run(context.Background(), NewEnv(in, out, "test")))
		return out
	}
	first, second := runOnce(), runOnce()

	for _, name := range []string{"kinds", "kindSources"} {
		a, err := os.ReadFile(theme.New(name, "").File(first, false))
		require.NoError(t, err)
		b, err := os.ReadFile(theme.New(name, "").File(second, false))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), name)
	}
}

func TestRuleStageNeedsRules(t *testing.T) {
	st := &RuleStage{StageName: "s", Rules: "absent", Result: "r"}
	err := st.Run(context.Background(), NewEnv(t.TempDir(), t.TempDir(), "test"))
	assert.ErrorIs(t, err, theme.ErrNotAvailable)

	err = (&RuleStage{StageName: "s"}).Run(context.Background(), NewEnv(t.TempDir(), t.TempDir(), "test"))
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestClosureStage(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInput(t, in, "rules", implies("?x <isLocatedIn> ?y; ?y <isLocatedIn> ?z", "?x <isLocatedIn> ?z"))
	writeInput(t, in, "places",
		fact.New("<a>", "<isLocatedIn>", "<b>"),
		fact.New("<b>", "<isLocatedIn>", "<c>"),
		fact.New("<c>", "<isLocatedIn>", "<d>"),
	)
	st := &ClosureStage{
		RuleStage: &RuleStage{StageName: "loc", Rules: "rules", Facts: []string{"places"}, Result: "loc"},
		Depth:     2,
	}
	require.NoError(t, st.Run(context.Background(), NewEnv(in, out, "test")))
	assert.Contains(t, readOutput(t, out, "loc"), fact.New("<a>", "<isLocatedIn>", "<d>"))
}

func TestMergeStage(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInput(t, in, "schema", fact.New("<hasCapital>", fact.Type, fact.Function))
	writeInput(t, in, "theme1", fact.New("<France>", "<hasCapital>", "<Paris>"))
	writeInput(t, in, "theme2", fact.New("<France>", "<hasCapital>", "<Lyon>"))

	st := &MergeStage{
		StageName: "capitals",
		Authority: []string{"theme1", "theme2"},
		Schema:    "schema",
		Output:    "capitals",
		Conflicts: "conflicts",
	}
	require.NoError(t, st.Run(context.Background(), NewEnv(in, out, "test")))

	assert.Equal(t, []fact.Fact{fact.New("<France>", "<hasCapital>", "<Paris>")}, readOutput(t, out, "capitals"))
	lyon := fact.New("<France>", "<hasCapital>", "<Lyon>")
	assert.Equal(t, []fact.Fact{
		lyon,
		fact.Meta(lyon.Reified(), fact.ExtractionSrc, fact.ForTheme("theme2")),
	}, readOutput(t, out, "conflicts"))
}

func TestSchedulerOrdersStages(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInput(t, in, "rules", implies("?x rdf:type <Person>", "?x <hasKind> <Human>"))
	writeInput(t, in, "people", fact.New("<A>", fact.Type, "<Person>"))

	stages := []Stage{
		&MergeStage{StageName: "final", Authority: []string{"people", "derived"}, Output: "yagoFacts"},
		&RuleStage{StageName: "derive", Rules: "rules", Facts: []string{"people"}, Result: "derived", Strategy: deduce.Naive{}},
	}
	env := NewEnv(in, out, "test")
	waves, err := (&Scheduler{}).Plan(env, stages)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"derive"}, {"final"}}, waves)

	env = NewEnv(in, out, "test")
	require.NoError(t, (&Scheduler{Concurrency: 2}).Run(context.Background(), env, stages))
	assert.Equal(t, []fact.Fact{
		fact.New("<A>", fact.Type, "<Person>"),
		fact.New("<A>", "<hasKind>", "<Human>"),
	}, readOutput(t, out, "yagoFacts"))
}

func TestSchedulerRejectsBadGraphs(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "rules")

	typo := []Stage{
		&RuleStage{StageName: "ok", Rules: "rules", Result: "other"},
		&RuleStage{StageName: "s", Rules: "rulez", Result: "out"},
	}
	_, err := (&Scheduler{}).Plan(NewEnv(in, t.TempDir(), "test"), typo)
	require.ErrorIs(t, err, theme.ErrUnknownTheme)
	assert.Contains(t, err.Error(), `did you mean "rules"`)

	cycle := []Stage{
		&RuleStage{StageName: "a", Rules: "rules", Facts: []string{"bOut"}, Result: "aOut"},
		&RuleStage{StageName: "b", Rules: "rules", Facts: []string{"aOut"}, Result: "bOut"},
	}
	_, err = (&Scheduler{}).Plan(NewEnv(in, t.TempDir(), "test"), cycle)
	assert.ErrorIs(t, err, theme.ErrCycle)

	twice := []Stage{
		&RuleStage{StageName: "a", Rules: "rules", Result: "same"},
		&RuleStage{StageName: "b", Rules: "rules", Result: "same"},
	}
	_, err = (&Scheduler{}).Plan(NewEnv(in, t.TempDir(), "test"), twice)
	assert.ErrorIs(t, err, theme.ErrDuplicateTheme)
}
