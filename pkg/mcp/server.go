package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/export"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

// MaxScanResults caps the facts returned by one scan_facts call.
const MaxScanResults = 50

// MCPServer exposes the runs of a data directory to MCP clients.
type MCPServer struct {
	manager *manager.RunManager
}

// NewServer registers the resources and tools.
func NewServer(mgr *manager.RunManager) *server.MCPServer {
	s := server.NewMCPServer(
		"yago-facts",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithLogging(),
	)
	ms := &MCPServer{manager: mgr}

	s.AddResource(
		mcp.NewResource(
			"yago://runs",
			"Runs",
			mcp.WithResourceDescription("Runs of the data directory with their theme counts"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleRuns,
	)
	s.AddResource(
		mcp.NewResource(
			"yago://conventions",
			"Fact Conventions",
			mcp.WithResourceDescription("How entities, literals and fact identifiers are written"),
			mcp.WithMIMEType("text/markdown"),
		),
		ms.handleConventions,
	)

	s.AddTool(
		mcp.NewTool(
			"list_themes",
			mcp.WithDescription("List the themes of a run."),
			mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
		),
		ms.handleListThemes,
	)
	s.AddTool(
		mcp.NewTool(
			"scan_facts",
			mcp.WithDescription("Scan facts of a theme. Empty fields act as wildcards."),
			mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
			mcp.WithString("theme", mcp.Required(), mcp.Description("Theme name")),
			mcp.WithString("subject", mcp.Description("Subject filter, e.g. <Elvis_Presley>")),
			mcp.WithString("relation", mcp.Description("Relation filter, e.g. <wasBornIn>")),
			mcp.WithString("object", mcp.Description("Object filter")),
		),
		ms.handleScanFacts,
	)
	s.AddTool(
		mcp.NewTool(
			"query",
			mcp.WithDescription("Answer a conjunctive query such as triple(X, <isLocatedIn>, <France>) over themes of a run."),
			mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
			mcp.WithString("themes", mcp.Required(), mcp.Description("Comma separated theme names")),
			mcp.WithString("query", mcp.Required(), mcp.Description("The query")),
			mcp.WithNumber("limit", mcp.Description("Max number of rows (default 1000)")),
		),
		ms.handleQuery,
	)
	s.AddTool(
		mcp.NewTool(
			"trace_path",
			mcp.WithDescription("Find the shortest chain of facts between two entities."),
			mcp.WithString("run", mcp.Required(), mcp.Description("Run identifier")),
			mcp.WithString("themes", mcp.Required(), mcp.Description("Comma separated theme names")),
			mcp.WithString("from", mcp.Required(), mcp.Description("Start entity")),
			mcp.WithString("to", mcp.Required(), mcp.Description("End entity")),
		),
		ms.handleTracePath,
	)
	return s
}

// Run serves MCP on stdio until the client disconnects.
func Run(ctx context.Context, mgr *manager.RunManager) error {
	slog.Info("Starting MCP server on Stdio")
	return server.ServeStdio(NewServer(mgr))
}

// jsonResult renders v without escaping the angle brackets of entities.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func themeList(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// --- Resource Handlers ---

func (ms *MCPServer) handleRuns(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := ms.manager.ListRuns()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal runs: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (ms *MCPServer) handleConventions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	content := `
# Fact Conventions

## Components
- Entities are written in angle brackets: <Elvis_Presley>.
- Literals are quoted, with an optional datatype or language: "1935-01-08"^^xsd:date, "Paris"@fra.
- Fact identifiers look like <id_...> and are derived from the triple.

## Meta-facts
- <extractionSource> links a fact identifier to the theme it came from.
- <extractionTechnique> names the rule that derived it.

## Queries
- triple(S, R, O) matches facts; uppercase names are variables, _ is anonymous.
- X != Y and regex(X, "pattern") filter rows.
`
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     content,
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleListThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	run, ok := args["run"].(string)
	if !ok {
		return mcp.NewToolResultError("run argument required"), nil
	}
	themes, err := ms.manager.Themes(run)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (ms *MCPServer) handleScanFacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	run, ok1 := args["run"].(string)
	name, ok2 := args["theme"].(string)
	if !ok1 || !ok2 {
		return mcp.NewToolResultError("run and theme arguments required"), nil
	}
	s, _ := args["subject"].(string)
	r, _ := args["relation"].(string)
	o, _ := args["object"].(string)

	store, err := ms.manager.Load(ctx, run, []string{name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var formatted []string
	for f := range store.Scan(s, r) {
		if o != "" && f.Object != o {
			continue
		}
		formatted = append(formatted, fact.FormatLine(f.WithID()))
		if len(formatted) >= MaxScanResults {
			formatted = append(formatted, "... (truncated)")
			break
		}
	}
	if len(formatted) == 0 {
		return mcp.NewToolResultText("No facts found."), nil
	}
	return mcp.NewToolResultText(strings.Join(formatted, "\n")), nil
}

func (ms *MCPServer) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	run, ok1 := args["run"].(string)
	themes, ok2 := args["themes"].(string)
	query, ok3 := args["query"].(string)
	if !ok1 || !ok2 || !ok3 {
		return mcp.NewToolResultError("run, themes and query arguments required"), nil
	}
	limit := datalog.DefaultLimit
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	q, err := datalog.Compile(query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	store, err := ms.manager.Load(ctx, run, themeList(themes))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := q.Run(ctx, store, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("No rows."), nil
	}
	return jsonResult(rows)
}

func (ms *MCPServer) handleTracePath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	run, ok1 := args["run"].(string)
	themes, ok2 := args["themes"].(string)
	from, ok3 := args["from"].(string)
	to, ok4 := args["to"].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return mcp.NewToolResultError("run, themes, from and to arguments required"), nil
	}
	store, err := ms.manager.Load(ctx, run, themeList(themes))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	graph, err := export.NewD3Transformer(store).FindPath(ctx, from, to)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("path search failed: %v", err)), nil
	}
	return jsonResult(graph)
}
