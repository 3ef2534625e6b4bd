package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

func TestD3Transformer(t *testing.T) {
	s := factstore.FromFacts(
		fact.New("<Paris>", fact.Type, "<city>"),
		fact.New("<Paris>", fact.Label, fact.ForString("Paris")),
		fact.New("<Paris>", "<isLocatedIn>", "<France>"),
		fact.New("<Paris>", "<hasPopulation>", `"2100000"^^xsd:decimal`),
	)
	ctx := context.Background()

	rows := []datalog.Row{
		{"S": "<Paris>", "R": "<isLocatedIn>", "O": "<France>"},
		{"S": "<Paris>", "R": "<hasPopulation>", "O": `"2100000"^^xsd:decimal`},
		{"S": "<Paris>", "R": "<isLocatedIn>", "O": "<France>"},
	}
	graph, err := NewD3Transformer(s).Transform(ctx, `triple(S, R, O)`, rows)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if len(graph.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(graph.Nodes))
	}
	if len(graph.Links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(graph.Links))
	}

	paris, france := graph.Nodes[0], graph.Nodes[1]
	if paris.Name != "Paris" || paris.Kind != "<city>" || paris.Group != "city" {
		t.Errorf("Paris not enriched: %+v", paris)
	}
	if paris.Metadata["<hasPopulation>"] != "2100000" {
		t.Errorf("Expected population metadata, got %v", paris.Metadata)
	}
	if france.Name != "France" || france.Group != "unknown" {
		t.Errorf("France should fall back to its entity name: %+v", france)
	}
	if graph.Links[0].FactID != fact.MakeID("<Paris>", "<isLocatedIn>", "<France>") {
		t.Errorf("Unexpected fact id %s", graph.Links[0].FactID)
	}
}

func TestD3TransformerIgnoresProvenance(t *testing.T) {
	rows := []datalog.Row{{"X": "<id_1>", "S": "<theme_a>"}}
	graph, err := NewD3Transformer(nil).Transform(context.Background(), `triple(X, <extractionSource>, S)`, rows)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(graph.Nodes) != 0 || len(graph.Links) != 0 {
		t.Errorf("Expected empty graph, got %+v", graph)
	}

	if _, err := NewD3Transformer(nil).Transform(context.Background(), `neq(A, B)`, rows); err == nil {
		t.Error("Expected an error for a query without triple atoms")
	}
}

func TestExportD3AndSave(t *testing.T) {
	s := factstore.FromFacts(
		fact.New("<Ann>", "<hasChild>", "<Bob>"),
		fact.New("<Bob>", "<hasChild>", "<Cid>"),
	)
	graph, err := ExportD3(context.Background(), s, `triple(A, <hasChild>, B), triple(B, <hasChild>, C)`, 0)
	if err != nil {
		t.Fatalf("ExportD3 failed: %v", err)
	}
	if len(graph.Nodes) != 3 || len(graph.Links) != 2 {
		t.Errorf("Expected 3 nodes and 2 links, got %d and %d", len(graph.Nodes), len(graph.Links))
	}
	if err := SaveD3Graph(graph, filepath.Join(t.TempDir(), "graph.json")); err != nil {
		t.Errorf("SaveD3Graph failed: %v", err)
	}
}

func TestFindPath(t *testing.T) {
	s := factstore.FromFacts(
		fact.New("<Elvis>", "<wasBornIn>", "<Tupelo>"),
		fact.New("<Tupelo>", "<isLocatedIn>", "<Mississippi>"),
		fact.New("<Memphis>", "<isLocatedIn>", "<Tennessee>"),
		fact.New("<Elvis>", "<diedIn>", "<Memphis>"),
		fact.New("<Elvis>", fact.Label, fact.ForString("Elvis Presley")),
		fact.Meta(fact.MakeID("<Elvis>", "<diedIn>", "<Memphis>"), fact.ExtractionSrc, fact.ForTheme("a")),
	)
	tr := NewD3Transformer(s)

	graph, err := tr.FindPath(context.Background(), "<Mississippi>", "<Tennessee>")
	if err != nil {
		t.Fatalf("FindPath failed: %v", err)
	}
	var ids []string
	for _, n := range graph.Nodes {
		ids = append(ids, n.ID)
	}
	want := []string{"<Mississippi>", "<Tupelo>", "<Elvis>", "<Memphis>", "<Tennessee>"}
	if len(ids) != len(want) {
		t.Fatalf("Expected path %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected path %v, got %v", want, ids)
			break
		}
	}
	if len(graph.Links) != 4 || graph.Links[0].Relation != "<isLocatedIn>" || graph.Links[0].Source != "<Tupelo>" {
		t.Errorf("Unexpected links %+v", graph.Links)
	}
	if graph.Nodes[2].Name != "Elvis Presley" {
		t.Errorf("Expected labelled node, got %q", graph.Nodes[2].Name)
	}

	graph, err = tr.FindPath(context.Background(), "<Elvis>", "<Nowhere>")
	if err != nil {
		t.Fatalf("FindPath failed: %v", err)
	}
	if len(graph.Nodes) != 0 {
		t.Errorf("Expected no path, got %+v", graph.Nodes)
	}
}
