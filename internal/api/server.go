// Package api exposes the admin HTTP interface: triggering crawls,
// testing selectors, controlling schedules and searching indexed
// articles.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/harvester/internal/config"
	"github.com/jonesrussell/harvester/internal/crawl"
	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/logger"
	"github.com/jonesrussell/harvester/internal/search"
)

// Fallback server timeouts when the configured values fail to parse.
const (
	fallbackReadTimeout  = 15 * time.Second
	fallbackWriteTimeout = 15 * time.Second
	fallbackIdleTimeout  = 60 * time.Second
)

// CrawlRunner executes crawls and selector diagnostics. Implemented by
// the crawl engine.
type CrawlRunner interface {
	RunCrawl(ctx context.Context, sourceID string, opts crawl.Options) (domain.CrawlResult, error)
	TestSelector(ctx context.Context, kind domain.Backend, rawURL, expression string) (*crawl.DiagnosticResult, error)
}

// ScheduleController starts and stops recurring crawls. Implemented by
// the schedule manager.
type ScheduleController interface {
	StartSchedule(schedule *domain.Schedule) error
	StopSchedule(scheduleID string)
	NextRun(scheduleID string) (time.Time, error)
}

// ScheduleStore reads schedule rows for the start endpoint.
type ScheduleStore interface {
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
}

// SourceLister lists configured sources.
type SourceLister interface {
	List(ctx context.Context) ([]*domain.Source, error)
}

// RunLister reads recent crawl history for a source.
type RunLister interface {
	ListRecent(ctx context.Context, sourceID string, limit int) ([]*domain.CrawlRun, error)
}

// Searcher queries indexed articles. Nil when search is disabled.
type Searcher interface {
	Search(ctx context.Context, query string, size int) ([]search.Hit, error)
}

// Server is the admin HTTP server.
type Server struct {
	logger     logger.Interface
	engine     CrawlRunner
	schedules  ScheduleController
	store      ScheduleStore
	sources    SourceLister
	runs       RunLister
	searcher   Searcher
	httpServer *http.Server
}

// Params holds the dependencies for creating a server.
type Params struct {
	Config    config.ServerConfig
	Logger    logger.Interface
	Engine    CrawlRunner
	Schedules ScheduleController
	Store     ScheduleStore
	Sources   SourceLister
	Runs      RunLister
	Searcher  Searcher
}

// NewServer creates the admin server with its routes registered.
func NewServer(p Params) *Server {
	s := &Server{
		logger:    p.Logger,
		engine:    p.Engine,
		schedules: p.Schedules,
		store:     p.Store,
		sources:   p.Sources,
		runs:      p.Runs,
		searcher:  p.Searcher,
	}

	s.httpServer = &http.Server{
		Addr:         p.Config.Address,
		Handler:      s.router(),
		ReadTimeout:  parseTimeout(p.Config.ReadTimeout, fallbackReadTimeout),
		WriteTimeout: parseTimeout(p.Config.WriteTimeout, fallbackWriteTimeout),
		IdleTimeout:  parseTimeout(p.Config.IdleTimeout, fallbackIdleTimeout),
	}

	return s
}

// router builds the gin engine with all routes registered.
func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/sources", s.listSources)
		v1.POST("/sources/:id/crawl", s.crawlSource)
		v1.GET("/sources/:id/runs", s.listRuns)

		v1.POST("/selectors/test", s.testSelector)

		v1.POST("/schedules/:id/start", s.startSchedule)
		v1.POST("/schedules/:id/stop", s.stopSchedule)
		v1.GET("/schedules/:id/next", s.nextRun)

		v1.GET("/search", s.searchArticles)
	}

	return router
}

// Handler exposes the route tree without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Admin server listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func parseTimeout(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
