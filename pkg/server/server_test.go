package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/archive"
	"github.com/yago-naga/yago3-sub001/pkg/export"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

func writeTheme(t *testing.T, dir, name string, facts ...fact.Fact) {
	t.Helper()
	w, err := theme.New(name, "").Create(dir, false)
	require.NoError(t, err)
	require.NoError(t, w.WriteAll(facts))
	require.NoError(t, w.Close())
}

func setupServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	base := t.TempDir()

	plain := filepath.Join(base, "plain")
	writeTheme(t, plain, "yagoFacts",
		fact.New("<Paris>", "<isLocatedIn>", "<France>"),
		fact.New("<Lyon>", "<isLocatedIn>", "<France>"),
		fact.New("<France>", "<hasCapital>", "<Paris>"),
	)
	writeTheme(t, plain, "yagoLabels",
		fact.New("<Paris>", fact.Label, fact.ForString("Paris")),
	)

	archived := filepath.Join(base, "archived")
	writeTheme(t, archived, "yagoFacts", fact.New("<Berlin>", "<isLocatedIn>", "<Germany>"))
	a, err := archive.Open(archive.DefaultConfig(filepath.Join(archived, manager.ArchiveDir)))
	require.NoError(t, err)
	_, err = a.Import(context.Background(), theme.New("yagoFacts", ""), archived)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	mgr := manager.NewRunManager(base, manager.MemoryProfileLow, true)
	t.Cleanup(mgr.CloseAll)
	return NewServer(mgr)
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := setupServer(t)
	w := do(srv, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunsAndThemes(t *testing.T) {
	srv := setupServer(t)

	w := do(srv, "GET", "/v1/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []manager.RunInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	w = do(srv, "GET", "/v1/runs/plain/themes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var themes []ThemeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &themes))
	assert.Equal(t, []ThemeResponse{{Name: "yagoFacts"}, {Name: "yagoLabels"}}, themes)

	w = do(srv, "GET", "/v1/runs/archived/themes", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &themes))
	assert.Equal(t, []ThemeResponse{{Name: "yagoFacts", Archived: true, Facts: 1}}, themes)

	w = do(srv, "GET", "/v1/runs/nope/themes", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFacts(t *testing.T) {
	srv := setupServer(t)

	w := do(srv, "GET", "/v1/runs/plain/themes/yagoFacts/facts?o=%3CFrance%3E", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp FactsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "theme", resp.Source)
	assert.Len(t, resp.Facts, 2)

	w = do(srv, "GET", "/v1/runs/archived/themes/yagoFacts/facts?s=%3CBerlin%3E", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "archive", resp.Source)
	require.Len(t, resp.Facts, 1)
	assert.Equal(t, fact.MakeID("<Berlin>", "<isLocatedIn>", "<Germany>"), resp.Facts[0].ID)

	w = do(srv, "GET", "/v1/runs/plain/themes/missing/facts", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(srv, "GET", "/v1/runs/plain/themes/yagoFacts/facts?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuery(t *testing.T) {
	srv := setupServer(t)

	body := `{"query": "triple(C, <isLocatedIn>, <France>)", "themes": ["yagoFacts"]}`
	w := do(srv, "POST", "/v1/runs/plain/query", body)
	require.Equal(t, http.StatusOK, w.Code)
	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	body = `{"query": "triple(X, <isLocatedIn>, Y)", "themes": ["yagoFacts", "yagoLabels"]}`
	w = do(srv, "POST", "/v1/runs/plain/query?format=d3", body)
	require.Equal(t, http.StatusOK, w.Code)
	var graph export.D3Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.Links, 2)
	names := map[string]string{}
	for _, n := range graph.Nodes {
		names[n.ID] = n.Name
	}
	assert.Equal(t, "Paris", names["<Paris>"])
	assert.Equal(t, "Lyon", names["<Lyon>"])

	w = do(srv, "POST", "/v1/runs/plain/query", `{"query": "triple(A, B", "themes": ["yagoFacts"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, "POST", "/v1/runs/plain/query", `{"query": "triple(A, B, C)"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPath(t *testing.T) {
	srv := setupServer(t)

	w := do(srv, "GET", "/v1/runs/plain/path?from=%3CLyon%3E&to=%3CParis%3E&themes=yagoFacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var graph export.D3Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	require.Len(t, graph.Nodes, 3)
	assert.Equal(t, "<France>", graph.Nodes[1].ID)

	w = do(srv, "GET", "/v1/runs/plain/path?from=%3CLyon%3E", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupServer(t)
	do(srv, "GET", "/health", "")
	w := do(srv, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "yago_http_requests_total")
}
