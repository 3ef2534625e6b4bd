package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

// D3Node represents a node in the D3 force-directed graph.
type D3Node struct {
	ID       string            `json:"id"`                 // Entity as stored
	Name     string            `json:"name"`               // Display name (label or entity without brackets)
	Kind     string            `json:"kind,omitempty"`     // First rdf:type
	Group    string            `json:"group,omitempty"`    // Grouping for visualization (uses Kind)
	Metadata map[string]string `json:"metadata,omitempty"` // Literal facts about the node
}

// D3Link represents a link/edge in the D3 force-directed graph.
type D3Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	FactID   string `json:"factId"`
}

// D3Graph represents the full graph structure for D3.js.
type D3Graph struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

// MaxNodeName caps the length of display names.
const MaxNodeName = 80

// D3Transformer handles the conversion of query results to D3 graph format.
type D3Transformer struct {
	IgnoredRelations map[string]bool
	// Store supplies labels and types of nodes; it may be nil.
	Store *factstore.Store
}

// NewD3Transformer creates a new transformer with reference to the store.
func NewD3Transformer(store *factstore.Store) *D3Transformer {
	return &D3Transformer{
		IgnoredRelations: map[string]bool{
			fact.ExtractionSrc:  true,
			fact.ExtractionTech: true,
		},
		Store: store,
	}
}

// Transform converts query rows into a graph: one link per binding of every
// triple atom. Literal objects become node metadata instead of nodes.
func (t *D3Transformer) Transform(ctx context.Context, query string, rows []datalog.Row) (*D3Graph, error) {
	if len(rows) == 0 {
		return &D3Graph{Nodes: []D3Node{}, Links: []D3Link{}}, nil
	}
	atoms, err := datalog.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query for export: %w", err)
	}
	var triples []datalog.Atom
	for _, a := range atoms {
		if (a.Predicate == "triple" || a.Predicate == "triples") && len(a.Args) == 3 {
			triples = append(triples, a)
		}
	}
	if len(triples) == 0 {
		return nil, fmt.Errorf("query must contain a triple atom to be exported")
	}

	resolve := func(arg datalog.Term, row datalog.Row) string {
		if arg.Var {
			return row[arg.Value]
		}
		return arg.Value
	}

	nodes := make(map[string]D3Node)
	var order []string
	node := func(id string) D3Node {
		n, ok := nodes[id]
		if !ok {
			n = t.createNode(id)
			nodes[id] = n
			order = append(order, id)
		}
		return n
	}
	linked := make(map[fact.Fact]bool)
	var links []D3Link

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, a := range triples {
			s, r, o := resolve(a.Args[0], row), resolve(a.Args[1], row), resolve(a.Args[2], row)
			if s == "" || o == "" || t.IgnoredRelations[r] {
				continue
			}
			if fact.IsLiteral(o) {
				n := node(s)
				if n.Metadata == nil {
					n.Metadata = make(map[string]string)
				}
				n.Metadata[r] = fact.StripQuotes(o)
				nodes[s] = n
				continue
			}
			f := fact.New(s, r, o)
			if linked[f] {
				continue
			}
			linked[f] = true
			node(s)
			node(o)
			links = append(links, D3Link{Source: s, Target: o, Relation: r, FactID: f.Reified()})
		}
	}

	out := &D3Graph{Nodes: make([]D3Node, 0, len(order)), Links: links}
	for _, id := range order {
		out.Nodes = append(out.Nodes, nodes[id])
	}
	if out.Links == nil {
		out.Links = []D3Link{}
	}
	return out, nil
}

// createNode builds a D3Node with its label and type from the store.
func (t *D3Transformer) createNode(id string) D3Node {
	n := D3Node{ID: id, Name: displayName(id), Group: "unknown"}
	if t.Store == nil {
		return n
	}
	for _, rel := range []string{fact.PrefLabel, fact.Label} {
		if labels := t.Store.CollectObjects(id, rel); len(labels) > 0 {
			slices.Sort(labels)
			n.Name = truncate(fact.StripQuotes(labels[0]))
			break
		}
	}
	if kinds := t.Store.CollectObjects(id, fact.Type); len(kinds) > 0 {
		n.Kind = kinds[0]
		n.Group = displayName(kinds[0])
	}
	return n
}

// displayName strips angle brackets and replaces underscores.
func displayName(id string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">")
	return truncate(strings.ReplaceAll(name, "_", " "))
}

func truncate(s string) string {
	if len(s) <= MaxNodeName {
		return s
	}
	return s[:MaxNodeName] + "…"
}

// ExportD3 runs a compiled query and converts the rows in one step.
func ExportD3(ctx context.Context, store *factstore.Store, query string, limit int) (*D3Graph, error) {
	q, err := datalog.Compile(query)
	if err != nil {
		return nil, err
	}
	rows, err := q.Run(ctx, store, limit)
	if err != nil {
		return nil, err
	}
	return NewD3Transformer(store).Transform(ctx, query, rows)
}

// SaveD3Graph writes the graph to a JSON file.
func SaveD3Graph(graph *D3Graph, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(graph)
}
