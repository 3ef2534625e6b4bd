package server

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/pkg/archive"
	"github.com/yago-naga/yago3-sub001/pkg/common/errors"
	"github.com/yago-naga/yago3-sub001/pkg/datalog"
	"github.com/yago-naga/yago3-sub001/pkg/export"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

// ThemeResponse lists a theme of a run.
type ThemeResponse struct {
	Name     string `json:"name"`
	Archived bool   `json:"archived"`
	Facts    uint64 `json:"facts,omitempty"`
}

// FactsResponse is the answer to a pattern lookup.
type FactsResponse struct {
	Theme  string      `json:"theme"`
	Source string      `json:"source"`
	Facts  []fact.Fact `json:"facts"`
}

// QueryRequest is the body of a query call.
type QueryRequest struct {
	Query  string   `json:"query"`
	Themes []string `json:"themes"`
	Limit  int      `json:"limit"`
}

// QueryResponse carries the rows of a query.
type QueryResponse struct {
	Rows  []datalog.Row `json:"rows"`
	Count int           `json:"count"`
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Error()})
}

func limitParam(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewAppError(http.StatusBadRequest, "Invalid limit", err)
	}
	return n, nil
}

// handleRuns returns the runs of the data directory.
func (s *Server) handleRuns(c *gin.Context) {
	runs, err := s.manager.ListRuns()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// handleThemes lists the theme files of a run, with archive counts when the
// run has an archive.
func (s *Server) handleThemes(c *gin.Context) {
	runID := c.Param("run")
	themes, err := s.manager.Themes(runID)
	if err != nil {
		handleError(c, err)
		return
	}
	archived := map[string]uint64{}
	if a, err := s.manager.Archive(runID); err == nil {
		infos, err := a.Themes()
		if err != nil {
			handleError(c, err)
			return
		}
		for _, info := range infos {
			archived[info.Name] = info.Facts
		}
	}

	out := make([]ThemeResponse, 0, len(themes))
	for _, t := range themes {
		n, ok := archived[t.Name]
		out = append(out, ThemeResponse{Name: t.Name, Archived: ok, Facts: n})
	}
	c.JSON(http.StatusOK, out)
}

// handleFacts looks up facts of a theme by subject, relation and object.
// Archived themes are scanned from the archive, others are loaded.
func (s *Server) handleFacts(c *gin.Context) {
	runID, name := c.Param("run"), c.Param("theme")
	subject, relation, object := c.Query("s"), c.Query("r"), c.Query("o")
	limit, err := limitParam(c, datalog.DefaultLimit)
	if err != nil {
		handleError(c, err)
		return
	}
	ctx := c.Request.Context()

	a, err := s.manager.Archive(runID)
	if err == nil {
		facts, err := a.Facts(ctx, name, subject, relation, object, limit)
		if err == nil {
			c.JSON(http.StatusOK, FactsResponse{Theme: name, Source: "archive", Facts: nonNil(facts)})
			return
		}
		if !stderrors.Is(err, archive.ErrUnknownTheme) {
			handleError(c, err)
			return
		}
	} else if !stderrors.Is(err, manager.ErrNotArchived) {
		handleError(c, err)
		return
	}

	store, err := s.manager.Load(ctx, runID, []string{name})
	if err != nil {
		handleError(c, err)
		return
	}
	var facts []fact.Fact
	for f := range store.Scan(subject, relation) {
		if object != "" && f.Object != object {
			continue
		}
		facts = append(facts, f)
		if limit > 0 && len(facts) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, FactsResponse{Theme: name, Source: "theme", Facts: nonNil(facts)})
}

// handleQuery runs a conjunctive query over themes of a run. With
// ?format=d3 the rows are returned as a graph.
func (s *Server) handleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing query", nil))
		return
	}
	if len(req.Themes) == 0 {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing themes", nil))
		return
	}
	if req.Limit <= 0 {
		req.Limit = datalog.DefaultLimit
	}

	q, err := datalog.Compile(req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	ctx := c.Request.Context()
	store, err := s.manager.Load(ctx, c.Param("run"), req.Themes)
	if err != nil {
		handleError(c, err)
		return
	}
	rows, err := q.Run(ctx, store, req.Limit)
	if err != nil {
		handleError(c, err)
		return
	}

	if c.Query("format") == "d3" {
		graph, err := export.NewD3Transformer(store).Transform(ctx, req.Query, rows)
		if err != nil {
			handleError(c, errors.NewAppError(http.StatusBadRequest, "Query cannot be drawn", err))
			return
		}
		c.JSON(http.StatusOK, graph)
		return
	}
	if rows == nil {
		rows = []datalog.Row{}
	}
	c.JSON(http.StatusOK, QueryResponse{Rows: rows, Count: len(rows)})
}

// handlePath returns the shortest chain of facts between two entities of
// the given themes.
func (s *Server) handlePath(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	themes := strings.Split(c.Query("themes"), ",")
	if from == "" || to == "" || themes[0] == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing from, to or themes parameter", nil))
		return
	}
	ctx := c.Request.Context()
	store, err := s.manager.Load(ctx, c.Param("run"), themes)
	if err != nil {
		handleError(c, err)
		return
	}
	graph, err := export.NewD3Transformer(store).FindPath(ctx, from, to)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func nonNil(facts []fact.Fact) []fact.Fact {
	if facts == nil {
		return []fact.Fact{}
	}
	return facts
}
