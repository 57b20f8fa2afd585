package vald

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/ratewalk/valuation-core/internal/metrics"
	"github.com/ratewalk/valuation-core/internal/store"
)

// HTTPServer exposes the run, minimize and calibrate operations over a
// gin router.
type HTTPServer struct {
	router    *gin.Engine
	cors      *cors.Cors
	store     *RunStore
	executor  *RunExecutor
	defaults  *Defaults
	collector *metrics.Collector
	archive   *store.Store // nil when persistence is disabled
}

// NewHTTPServer wires the routes. allowedOrigins restricts CORS; empty
// means allow all (development default).
func NewHTTPServer(runs *RunStore, executor *RunExecutor, defaults *Defaults, collector *metrics.Collector, archive *store.Store, allowedOrigins []string) *HTTPServer {
	s := &HTTPServer{
		router:    gin.New(),
		store:     runs,
		executor:  executor,
		defaults:  defaults,
		collector: collector,
		archive:   archive,
	}

	s.router.Use(gin.Recovery())
	if len(allowedOrigins) > 0 {
		s.cors = cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		})
	} else {
		s.cors = cors.AllowAll()
	}

	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", s.handleMetrics)

	v1 := s.router.Group("/v1")
	{
		v1.POST("/runs", s.handleCreateRun)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.POST("/runs/:id/stop", s.handleStopRun)
		v1.GET("/runs/:id/result", s.handleGetResult)
		v1.GET("/runs/:id/stats", s.handleGetStats)
		v1.GET("/archive/runs", s.handleListArchive)
		v1.POST("/minimize", s.handleMinimize)
		v1.POST("/calibrate", s.handleCalibrate)
	}

	return s
}

// Handler returns the router wrapped in the CORS middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.cors.Handler(s.router)
}
