package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
)

const help = `Commands:
  <query>                  e.g. triple(X, <isLocatedIn>, <France>)
  show <entity>            facts about an entity
  relations                relations with fact counts
  path <from> <to>         shortest chain of facts
  export <query> <file>    save the rows of a query as a D3 graph
  limit <n>                change the row limit
  history                  previous queries
  exit                     leave`

// Run reads lines from in until EOF or exit and answers them on out.
func Run(ctx context.Context, s *factstore.Store, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "--- Interactive Query Mode ---")
	fmt.Fprintf(out, "Total Facts: %d\n", s.Len())
	fmt.Fprintf(out, "Total Relations: %d\n", len(s.Relations()))
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' or 'quit' to stop.")

	sess := NewSession(datalog.DefaultLimit)
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch cmd {
		case "help":
			fmt.Fprintln(out, help)
		case "show":
			HandleShow(out, s, arg)
		case "relations":
			HandleRelations(out, s)
		case "path":
			err = HandlePath(ctx, out, s, arg)
		case "export":
			err = HandleExport(ctx, out, s, arg, sess.Limit)
		case "limit":
			HandleLimit(out, sess, arg)
		case "history":
			HandleHistory(out, sess)
		default:
			err = runQuery(ctx, out, s, sess, line)
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}

func runQuery(ctx context.Context, out io.Writer, s *factstore.Store, sess *Session, query string) error {
	q, err := datalog.Compile(query)
	if err == nil {
		var rows []datalog.Row
		rows, err = q.Run(ctx, s, sess.Limit)
		if err == nil {
			sess.AddTurn(Turn{Query: query, Rows: len(rows)})
			printRows(out, q.Vars, rows)
			return nil
		}
	}
	sess.AddTurn(Turn{Query: query, Err: err.Error()})
	return err
}

func printRows(out io.Writer, vars []string, rows []datalog.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No results.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(vars, "\t"))
	for _, row := range rows {
		values := make([]string, len(vars))
		for i, v := range vars {
			values[i] = row[v]
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(out, "%d rows\n", len(rows))
}
