package stage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

const samplePipeline = `
name: sample
compress: true
stages:
  - name: kinds
    kind: rules
    rules: rules
    inputs: [people]
    output: kinds
    sources: kindSources
  - name: located
    kind: closure
    rules: locRules
    inputs: [places]
    output: located
    depth: 3
    stopAtFixpoint: true
  - name: facts
    kind: merge
    accept: entities
    inputs: [people, kinds, located]
    schema: schema
    exclusions: [falseFacts]
    output: yagoFacts
    conflicts: conflicts
`

func TestParsePipeline(t *testing.T) {
	p, err := ParsePipeline([]byte(samplePipeline))
	require.NoError(t, err)
	assert.Equal(t, "sample", p.Name)
	assert.True(t, p.Compress)
	assert.Equal(t, DefaultConcurrency, p.Concurrency)

	stages, err := p.Build()
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.IsType(t, &RuleStage{}, stages[0])
	assert.IsType(t, &ClosureStage{}, stages[1])
	assert.IsType(t, &MergeStage{}, stages[2])
	assert.Equal(t, []string{"yagoFacts", "conflicts"}, stages[2].Outputs())
}

func TestParsePipelineErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "name: x\n"},
		{"unknown kind", "stages:\n  - {name: a, kind: magic, output: o}\n"},
		{"no output", "stages:\n  - {name: a, kind: rules, rules: r}\n"},
		{"bad strategy", "stages:\n  - {name: a, kind: rules, rules: r, output: o, strategy: fast}\n"},
		{"bad filter", "stages:\n  - {name: a, kind: merge, inputs: [x], output: o, accept: some}\n"},
		{"merge without inputs", "stages:\n  - {name: a, kind: merge, output: o}\n"},
		{"duplicate", "stages:\n  - {name: a, kind: rules, rules: r, output: o}\n  - {name: a, kind: rules, rules: r, output: p}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePipeline([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidPipeline)
		})
	}
}

func TestPipelineRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInput(t, in, "rules", implies("?x rdf:type <Person>", "?x <hasKind> <Human>"))
	writeInput(t, in, "locRules", implies("?x <isLocatedIn> ?y; ?y <isLocatedIn> ?z", "?x <isLocatedIn> ?z"))
	writeInput(t, in, "people",
		fact.New("<A>", fact.Type, "<Person>"),
		fact.New("<A>", "<livesIn>", "<a>"),
	)
	writeInput(t, in, "places",
		fact.New("<a>", "<isLocatedIn>", "<b>"),
		fact.New("<b>", "<isLocatedIn>", "<c>"),
	)
	writeInput(t, in, "schema")
	writeInput(t, in, "falseFacts", fact.New("<a>", "<isLocatedIn>", "<c>"))

	p, err := ParsePipeline([]byte(samplePipeline))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background(), in, out, "r1"))

	got := readOutput(t, filepath.Join(out, "r1"), "yagoFacts")
	assert.Equal(t, []fact.Fact{
		fact.New("<A>", "<livesIn>", "<a>"),
		fact.New("<A>", "<hasKind>", "<Human>"),
	}, got)
	assert.FileExists(t, filepath.Join(out, "r1", "yagoFacts.tsv.s2"))
	assert.FileExists(t, filepath.Join(out, "r1", "_factStatistics_yagoFacts.tsv"))
}
