package export

import (
	"context"
	"log/slog"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

// Limits of the path search.
const (
	MaxPathDepth = 50
	MaxVisited   = 2000
	MaxNeighbors = 50
)

type step struct {
	node string
	via  fact.Fact
	prev *step
}

// FindPath searches the shortest chain of entity facts from one entity to
// another, breadth first. Facts are followed in both directions; literal
// objects and provenance facts are never followed. The path is returned as a
// graph, empty if none was found within the limits.
func (t *D3Transformer) FindPath(ctx context.Context, from, to string) (*D3Graph, error) {
	empty := &D3Graph{Nodes: []D3Node{}, Links: []D3Link{}}
	if t.Store == nil {
		return empty, nil
	}
	queue := []*step{{node: from}}
	visited := map[string]bool{from: true}
	depth := map[string]int{from: 1}

	var found *step
	for len(queue) > 0 && found == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.node == to {
			found = cur
			break
		}
		if len(visited) > MaxVisited {
			slog.Debug("path search limit reached", "from", from, "to", to, "visited", len(visited))
			break
		}
		if depth[cur.node] >= MaxPathDepth {
			continue
		}
		for _, f := range t.neighbors(t.Store, cur.node) {
			next := f.Object
			if next == cur.node {
				next = f.Subject
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			depth[next] = depth[cur.node] + 1
			queue = append(queue, &step{node: next, via: f, prev: cur})
		}
	}
	if found == nil {
		return empty, nil
	}

	var path []*step
	for s := found; s != nil; s = s.prev {
		path = append([]*step{s}, path...)
	}
	graph := &D3Graph{Nodes: make([]D3Node, 0, len(path)), Links: make([]D3Link, 0, len(path)-1)}
	for i, s := range path {
		graph.Nodes = append(graph.Nodes, t.createNode(s.node))
		if i > 0 {
			graph.Links = append(graph.Links, D3Link{
				Source:   s.via.Subject,
				Target:   s.via.Object,
				Relation: s.via.Relation,
				FactID:   s.via.Reified(),
			})
		}
	}
	return graph, nil
}

func (t *D3Transformer) neighbors(store *factstore.Store, node string) []fact.Fact {
	var out []fact.Fact
	follow := func(f fact.Fact) bool {
		if t.IgnoredRelations[f.Relation] || fact.IsLiteral(f.Object) || fact.IsFactID(f.Subject) {
			return true
		}
		out = append(out, f)
		return len(out) < MaxNeighbors
	}
	for _, f := range store.BySubject(node) {
		if !follow(f) {
			return out
		}
	}
	for _, rel := range store.Relations() {
		for _, s := range store.SeekSubjects(rel, node) {
			if !follow(fact.New(s, rel, node)) {
				return out
			}
		}
	}
	return out
}
