// Package api exposes the worker's HTTP surface: starting syncs, polling
// progress and logs, and reading the grouped application timeline.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prachikotadia/jobpulse-worker/internal/service"
)

// Server wires the HTTP routes onto the sync services.
type Server struct {
	router    *gin.Engine
	control   *service.Controller
	processor *service.SyncProcessor
	jobs      service.SyncJobStore
	states    service.SyncStateStore
	apps      service.ApplicationStore

	httpServer *http.Server
}

func NewServer(
	control *service.Controller,
	processor *service.SyncProcessor,
	jobs service.SyncJobStore,
	states service.SyncStateStore,
	apps service.ApplicationStore,
) *Server {
	s := &Server{
		router:    gin.Default(),
		control:   control,
		processor: processor,
		jobs:      jobs,
		states:    states,
		apps:      apps,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	sync := s.router.Group("/sync")
	{
		sync.POST("/start", s.handleSyncStart)
		sync.GET("/status", s.handleSyncStatus)
		sync.GET("/progress/:job_id", s.handleSyncProgress)
		sync.GET("/logs/:job_id", s.handleSyncLogs)
		sync.POST("/cancel/:job_id", s.handleSyncCancel)
	}

	apps := s.router.Group("/applications")
	{
		apps.GET("/timeline", s.handleTimeline)
		apps.DELETE("", s.handleClearApplications)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on addr and blocks until the listener fails.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
