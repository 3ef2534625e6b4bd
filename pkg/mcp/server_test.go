package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

func setup(t *testing.T) *MCPServer {
	base := t.TempDir()
	w, err := theme.New("yagoFacts", "").Create(filepath.Join(base, "run1"), false)
	require.NoError(t, err)
	require.NoError(t, w.WriteAll([]fact.Fact{
		fact.New("<Paris>", "<isLocatedIn>", "<France>"),
		fact.New("<France>", "<hasCapital>", "<Paris>"),
		fact.New("<Lyon>", "<isLocatedIn>", "<France>"),
	}))
	require.NoError(t, w.Close())
	mgr := manager.NewRunManager(base, manager.MemoryProfileLow, true)
	t.Cleanup(mgr.CloseAll)
	return &MCPServer{manager: mgr}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestTools(t *testing.T) {
	ms := setup(t)
	ctx := context.Background()

	res, err := ms.handleListThemes(ctx, call(map[string]any{"run": "run1"}))
	require.NoError(t, err)
	assert.Equal(t, "yagoFacts", text(t, res))

	res, err = ms.handleScanFacts(ctx, call(map[string]any{"run": "run1", "theme": "yagoFacts", "object": "<France>"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "<Lyon>\t<isLocatedIn>\t<France>")
	assert.NotContains(t, text(t, res), "<hasCapital>")

	res, err = ms.handleQuery(ctx, call(map[string]any{
		"run": "run1", "themes": "yagoFacts", "query": "triple(X, <isLocatedIn>, <France>)",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"X": "<Lyon>"`)

	res, err = ms.handleTracePath(ctx, call(map[string]any{
		"run": "run1", "themes": "yagoFacts", "from": "<Lyon>", "to": "<Paris>",
	}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "<hasCapital>")
}

func TestToolErrors(t *testing.T) {
	ms := setup(t)
	ctx := context.Background()

	res, err := ms.handleListThemes(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = ms.handleQuery(ctx, call(map[string]any{"run": "run1", "themes": "yagoFacts", "query": "triple(X"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = ms.handleScanFacts(ctx, call(map[string]any{"run": "nope", "theme": "yagoFacts"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(manager.NewRunManager(t.TempDir(), manager.MemoryProfileDefault, true)))
}
