package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yago-naga/yago3-sub001/internal/manager"
	"github.com/yago-naga/yago3-sub001/internal/metrics"
)

// Server holds the state for the REST API server.
type Server struct {
	manager *manager.RunManager
	router  *gin.Engine
}

// NewServer creates a new Server instance.
func NewServer(mgr *manager.RunManager) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), countRequests())
	s := &Server{
		manager: mgr,
		router:  r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, e.g. for an http.Server with timeouts.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/runs", s.handleRuns)
	v1.GET("/runs/:run/themes", s.handleThemes)
	v1.GET("/runs/:run/themes/:theme/facts", s.handleFacts)
	v1.POST("/runs/:run/query", s.handleQuery)
	v1.GET("/runs/:run/path", s.handlePath)
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
