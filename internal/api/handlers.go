package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/harvester/internal/crawl"
	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/schedule"
)

const (
	defaultRunHistoryLimit = 20
	defaultSearchSize      = 10
	maxSearchSize          = 100
)

// CrawlRequest is the optional body of POST /sources/:id/crawl. Absent
// fields fall back to defaults; present fields are validated by the
// engine.
type CrawlRequest struct {
	Limit         *int  `json:"limit"`
	Depth         *int  `json:"crawl_depth"`
	FullContent   *bool `json:"full_content"`
	FollowLinks   *bool `json:"follow_links"`
	TimeoutMillis *int  `json:"timeout"`
	WaitMillis    *int  `json:"wait_time"`
}

// options merges the request over the default crawl options.
func (r *CrawlRequest) options() crawl.Options {
	opts := crawl.Defaults()
	if r.Limit != nil {
		opts.Limit = *r.Limit
	}
	if r.Depth != nil {
		opts.Depth = *r.Depth
	}
	if r.FullContent != nil {
		opts.FullContent = *r.FullContent
	}
	if r.FollowLinks != nil {
		opts.FollowLinks = *r.FollowLinks
	}
	if r.TimeoutMillis != nil {
		opts.TimeoutMillis = *r.TimeoutMillis
	}
	if r.WaitMillis != nil {
		opts.WaitMillis = *r.WaitMillis
	}
	return opts
}

// crawlSource handles POST /api/v1/sources/:id/crawl. The crawl runs
// synchronously; the response carries the run counters.
func (s *Server) crawlSource(c *gin.Context) {
	sourceID := c.Param("id")

	var req CrawlRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := s.engine.RunCrawl(c.Request.Context(), sourceID, req.options())
	if err != nil {
		var validationErr *crawl.ValidationError
		switch {
		case errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "invalid crawl options",
				"violations": validationErr.Violations,
			})
		case errors.Is(err, crawl.ErrSourceNotFound):
			respondNotFound(c, "source")
		case errors.Is(err, crawl.ErrNoListSelector):
			respondError(c, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("Crawl failed", "source_id", sourceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  err.Error(),
				"result": result,
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// listSources handles GET /api/v1/sources.
func (s *Server) listSources(c *gin.Context) {
	sources, err := s.sources.List(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list sources", "error", err)
		respondInternalError(c, "failed to list sources")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "total": len(sources)})
}

// listRuns handles GET /api/v1/sources/:id/runs.
func (s *Server) listRuns(c *gin.Context) {
	limit := parseLimit(c, defaultRunHistoryLimit)

	runs, err := s.runs.ListRecent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.logger.Error("Failed to list crawl runs", "error", err)
		respondInternalError(c, "failed to list crawl runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": len(runs)})
}

// SelectorTestRequest is the body of POST /selectors/test.
type SelectorTestRequest struct {
	URL        string `json:"url" binding:"required"`
	Backend    string `json:"backend"`
	Expression string `json:"expression" binding:"required"`
}

// testSelector handles POST /api/v1/selectors/test. Diagnostic failures
// come back as 200 with a category and suggestion; only malformed
// requests are client errors.
func (s *Server) testSelector(c *gin.Context) {
	var req SelectorTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	kind := domain.Backend(req.Backend)
	if req.Backend == "" {
		kind = domain.BackendStatic
	}

	result, err := s.engine.TestSelector(c.Request.Context(), kind, req.URL, req.Expression)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

// startSchedule handles POST /api/v1/schedules/:id/start. The schedule
// row is read fresh so the entry reflects the current cron expression.
func (s *Server) startSchedule(c *gin.Context) {
	id := c.Param("id")

	sched, err := s.store.GetByID(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("Failed to load schedule", "schedule_id", id, "error", err)
		respondInternalError(c, "failed to load schedule")
		return
	}
	if sched == nil {
		respondNotFound(c, "schedule")
		return
	}
	if !sched.Active {
		respondError(c, http.StatusConflict, "schedule is inactive")
		return
	}

	if startErr := s.schedules.StartSchedule(sched); startErr != nil {
		if errors.Is(startErr, schedule.ErrInvalidCronExpr) {
			respondError(c, http.StatusUnprocessableEntity, startErr.Error())
			return
		}
		s.logger.Error("Failed to start schedule", "schedule_id", id, "error", startErr)
		respondInternalError(c, "failed to start schedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started", "schedule_id": id})
}

// stopSchedule handles POST /api/v1/schedules/:id/stop.
func (s *Server) stopSchedule(c *gin.Context) {
	id := c.Param("id")
	s.schedules.StopSchedule(id)
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "schedule_id": id})
}

// nextRun handles GET /api/v1/schedules/:id/next.
func (s *Server) nextRun(c *gin.Context) {
	id := c.Param("id")

	next, err := s.schedules.NextRun(id)
	if err != nil {
		respondNotFound(c, "schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule_id": id, "next_run": next})
}

// searchArticles handles GET /api/v1/search?q=...&size=...
func (s *Server) searchArticles(c *gin.Context) {
	if s.searcher == nil {
		respondError(c, http.StatusServiceUnavailable, "search is not enabled")
		return
	}

	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "query parameter 'q' is required")
		return
	}

	size := parseSize(c, defaultSearchSize)

	hits, err := s.searcher.Search(c.Request.Context(), query, size)
	if err != nil {
		s.logger.Error("Search failed", "query", query, "error", err)
		respondInternalError(c, "search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"hits": hits, "total": len(hits)})
}

// parseLimit parses the limit query param with a default.
func parseLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

// parseSize parses the size query param, clamped to maxSearchSize.
func parseSize(c *gin.Context, fallback int) int {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(fallback)))
	if err != nil || size <= 0 {
		return fallback
	}
	if size > maxSearchSize {
		return maxSearchSize
	}
	return size
}

// respondError sends a JSON error response.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondNotFound sends a 404 with a resource-not-found message.
func respondNotFound(c *gin.Context, resource string) {
	respondError(c, http.StatusNotFound, resource+" not found")
}

// respondBadRequest sends a 400 with the message.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// respondInternalError sends a 500 with the message.
func respondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, message)
}
