package merge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

func capitalSchema() *factstore.Store {
	return factstore.FromFacts(fact.New("<hasCapital>", fact.Type, fact.Function))
}

func triples(facts []fact.Fact) []fact.Fact {
	out := make([]fact.Fact, len(facts))
	for i, f := range facts {
		out[i] = f.Triple()
	}
	return out
}

func TestFunctionalRelations(t *testing.T) {
	schema := factstore.FromFacts(
		fact.New("<hasCapital>", fact.Type, fact.Function),
		fact.New("<wasBornIn>", fact.Type, fact.FunctionInTime),
		fact.New("<livesIn>", fact.Type, "rdf:Property"),
	)
	got := FunctionalRelations(schema)
	assert.Equal(t, []string{"<hasCapital>", "<wasBornIn>"}, got.Sorted())
	assert.Equal(t, 0, FunctionalRelations(nil).Len())
}

func TestHighestAuthorityWins(t *testing.T) {
	paris := fact.New("<France>", "<hasCapital>", "<Paris>")
	lyon := fact.New("<France>", "<hasCapital>", "<Lyon>")

	conflicts := &Collect{}
	out := &Collect{}
	m := &Merger{
		Name:      "capitals",
		Inputs:    []Source{FromFacts("theme1", paris), FromFacts("theme2", lyon)},
		Schema:    capitalSchema(),
		Conflicts: conflicts,
		Output:    out,
	}
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []fact.Fact{paris.WithID()}, out.Facts)
	assert.Equal(t, []fact.Fact{
		lyon.WithID(),
		fact.Meta(lyon.WithID().ID, fact.ExtractionSrc, fact.ForTheme("theme2")),
	}, conflicts.Facts)

	require.Len(t, res.Stats, 2)
	assert.Equal(t, Stats{Theme: "theme1", New: 1}, res.Stats[0])
	assert.Equal(t, Stats{Theme: "theme2", FunClash: 1}, res.Stats[1])
}

func TestOrderSensitivity(t *testing.T) {
	paris := FromFacts("a", fact.New("<France>", "<hasCapital>", "<Paris>"))
	lyon := FromFacts("b", fact.New("<France>", "<hasCapital>", "<Lyon>"))

	run := func(inputs ...Source) []fact.Fact {
		m := &Merger{Name: "m", Inputs: inputs, Schema: capitalSchema()}
		res, err := m.Run(context.Background())
		require.NoError(t, err)
		return triples(res.Facts())
	}

	assert.Equal(t, []fact.Fact{fact.New("<France>", "<hasCapital>", "<Paris>")}, run(paris, lyon))
	assert.Equal(t, []fact.Fact{fact.New("<France>", "<hasCapital>", "<Lyon>")}, run(lyon, paris))
}

func TestNoSchemaNeverClashes(t *testing.T) {
	m := &Merger{
		Name: "m",
		Inputs: []Source{
			FromFacts("a", fact.New("<France>", "<hasCapital>", "<Paris>")),
			FromFacts("b", fact.New("<France>", "<hasCapital>", "<Lyon>")),
		},
	}
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Store.Len())
}

func TestExclusionCompleteness(t *testing.T) {
	xy := fact.New("<X>", fact.Type, "<Y>")
	keep := fact.New("<X>", fact.Type, "<Z>")
	m := &Merger{
		Name: "types",
		Inputs: []Source{
			FromFacts("first", xy, keep),
			FromFacts("second", xy.WithID()),
		},
		Exclusions: []Source{FromFacts("falseFacts", xy)},
	}
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []fact.Fact{keep}, triples(res.Facts()))
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, 1, res.Stats[1].Duplicate)
}

func TestMissingInputIsSkipped(t *testing.T) {
	m := &Merger{
		Name: "m",
		Inputs: []Source{
			Missing("notYetProduced"),
			FromFacts("present", fact.New("<A>", "<r>", "<B>")),
		},
	}
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Stats[0].Skipped)
	assert.Equal(t, 1, res.Store.Len())
}

func TestNoInputs(t *testing.T) {
	_, err := (&Merger{Name: "m"}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestAcceptFilter(t *testing.T) {
	facts := []fact.Fact{
		fact.New("<A>", "<livesIn>", "<B>"),
		fact.New("<A>", "<_internal>", "<B>"),
		fact.New("<A>", fact.Label, fact.ForString("a")),
		fact.Meta(fact.MakeID("<A>", "<livesIn>", "<B>"), fact.ExtractionSrc, "<x>"),
		fact.New("<A>", "<hasAge>", `"42"^^xsd:decimal`),
	}
	m := &Merger{Name: "m", Inputs: []Source{FromFacts("in", facts...)}, Accept: DefaultRelationFilter(false)}
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []fact.Fact{facts[0]}, triples(res.Facts()))
	assert.Equal(t, 4, res.Stats[0].Rejected)

	m.Accept = DefaultRelationFilter(true)
	res, err = m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []fact.Fact{facts[0], facts[4]}, triples(res.Facts()))
}

func TestSourcesFilterCollectsProvenance(t *testing.T) {
	born := fact.MakeID("<Elvis>", "<wasBornIn>", "<Tupelo>")
	died := fact.MakeID("<Elvis>", "<diedIn>", "<Memphis>")
	src := fact.Meta(born, fact.ExtractionSrc, "<http://en.wikipedia.org/wiki/Elvis>")
	tech := fact.Meta(born, fact.ExtractionTech, fact.ForString("InfoboxExtractor"))
	other := fact.Meta(died, fact.ExtractionTech, fact.ForString("CategoryExtractor"))

	accept, ok := FilterByName("sources")
	require.True(t, ok)
	m := &Merger{
		Name: "yagoSources",
		Inputs: []Source{
			FromFacts("infoboxSources", src, tech, fact.New("<Elvis>", "<wasBornIn>", "<Tupelo>")),
			FromFacts("categorySources", other, fact.Meta(died, "<occursSince>", `"1977"`)),
		},
		Accept: accept,
	}
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []fact.Fact{src, tech, other}, triples(res.Facts()))

	_, ok = FilterByName("nonsense")
	assert.False(t, ok)
}

func TestThemesAndStatistics(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	write := func(th theme.Theme, facts ...fact.Fact) {
		w, err := th.Create(dir, false)
		require.NoError(t, err)
		require.NoError(t, w.WriteAll(facts))
		require.NoError(t, w.Close())
	}
	first := theme.New("first", "")
	second := theme.New("second", "")
	write(first, fact.New("<France>", "<hasCapital>", "<Paris>"))
	write(second,
		fact.New("<France>", "<hasCapital>", "<Lyon>"),
		fact.New("<France>", "<hasCapital>", "<Paris>"),
	)

	out := theme.New("merged", "")
	ow, err := out.Create(dir, true)
	require.NoError(t, err)
	m := &Merger{
		Name:     "merged",
		Inputs:   []Source{FromTheme(first, dir), FromTheme(second, dir), FromTheme(theme.New("absent", ""), dir)},
		Schema:   capitalSchema(),
		Output:   ow,
		StatsDir: dir,
	}
	_, err = m.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, ow.Close())

	got, err := out.Reader(dir).Facts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []fact.Fact{fact.New("<France>", "<hasCapital>", "<Paris>").WithID()}, got)

	stats, err := os.ReadFile(filepath.Join(dir, "_factStatistics_merged.tsv"))
	require.NoError(t, err)
	assert.Equal(t,
		"first\tNEW\t1\tDUPLICATE\t0\tFUNCLASH\t0\n"+
			"second\tNEW\t0\tDUPLICATE\t1\tFUNCLASH\t1\n",
		string(stats))
}
