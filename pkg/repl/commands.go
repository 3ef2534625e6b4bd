package repl

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/yago-naga/yago3-sub001/pkg/export"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

// HandleShow prints the facts about an entity, outgoing then incoming.
func HandleShow(w io.Writer, s *factstore.Store, arg string) {
	if arg == "" {
		fmt.Fprintln(w, "Usage: show <entity>")
		return
	}
	out := s.BySubject(arg)
	for _, f := range out {
		fmt.Fprintf(w, "  %s %s\n", f.Relation, f.Object)
	}
	incoming := 0
	for _, rel := range s.Relations() {
		for _, subj := range s.SeekSubjects(rel, arg) {
			fmt.Fprintf(w, "  %s %s (incoming)\n", subj, rel)
			incoming++
		}
	}
	if len(out) == 0 && incoming == 0 {
		fmt.Fprintf(w, "No facts about %s\n", arg)
	}
}

// HandleRelations prints every relation with its number of facts.
func HandleRelations(w io.Writer, s *factstore.Store) {
	rels := s.Relations()
	slices.Sort(rels)
	for _, rel := range rels {
		fmt.Fprintf(w, "  %s\t%d\n", rel, len(s.ByRelation(rel)))
	}
}

// HandleExport saves the rows of a query as a D3 graph. The file name is
// the last word of the arguments.
func HandleExport(ctx context.Context, w io.Writer, s *factstore.Store, args string, limit int) error {
	i := strings.LastIndex(args, " ")
	if i == -1 {
		fmt.Fprintln(w, "Usage: export <query> <filename>")
		return nil
	}
	query, filename := strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:])
	graph, err := export.ExportD3(ctx, s, query, limit)
	if err != nil {
		return err
	}
	if err := export.SaveD3Graph(graph, filename); err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported %d nodes and %d links to %s\n", len(graph.Nodes), len(graph.Links), filename)
	return nil
}

// HandlePath prints the shortest chain of facts between two entities.
func HandlePath(ctx context.Context, w io.Writer, s *factstore.Store, args string) error {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		fmt.Fprintln(w, "Usage: path <from> <to>")
		return nil
	}
	graph, err := export.NewD3Transformer(s).FindPath(ctx, parts[0], parts[1])
	if err != nil {
		return err
	}
	if len(graph.Links) == 0 {
		fmt.Fprintln(w, "No path found.")
		return nil
	}
	for _, l := range graph.Links {
		fmt.Fprintf(w, "  %s %s %s\n", l.Source, l.Relation, l.Target)
	}
	return nil
}

// HandleLimit changes the row limit of the session.
func HandleLimit(w io.Writer, sess *Session, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		fmt.Fprintf(w, "Limit is %d. Usage: limit <positive number>\n", sess.Limit)
		return
	}
	sess.Limit = n
	fmt.Fprintf(w, "Limit set to %d\n", n)
}

// HandleHistory prints the remembered turns.
func HandleHistory(w io.Writer, sess *Session) {
	for i, t := range sess.History {
		if t.Err != "" {
			fmt.Fprintf(w, "%3d  %s  (error: %s)\n", i+1, t.Query, t.Err)
			continue
		}
		fmt.Fprintf(w, "%3d  %s  (%d rows)\n", i+1, t.Query, t.Rows)
	}
}
