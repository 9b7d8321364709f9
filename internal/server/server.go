// Package server exposes the HTTP API: sync triggers and status on
// the media side, crawl tasks and graph reads on the news side.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"mediagraph/internal/domain"
	"mediagraph/internal/queue"
	"mediagraph/internal/service"
	"mediagraph/internal/source/media"
)

type Server struct {
	sync    *service.SyncService
	crawl   *service.CrawlService
	query   *service.GraphQueryService
	jobs    service.JobQueue
	db      *sqlx.DB
	graphOK func(ctx context.Context) error
	logger  *slog.Logger
}

func New(
	syncSvc *service.SyncService,
	crawlSvc *service.CrawlService,
	querySvc *service.GraphQueryService,
	jobs service.JobQueue,
	db *sqlx.DB,
	graphPing func(ctx context.Context) error,
	logger *slog.Logger,
) *Server {
	return &Server{
		sync:    syncSvc,
		crawl:   crawlSvc,
		query:   querySvc,
		jobs:    jobs,
		db:      db,
		graphOK: graphPing,
		logger:  logger.With("component", "http"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.Health)

	api := r.Group("/api")
	{
		api.POST("/media/sync", s.TriggerMediaSync)
		api.GET("/media/sync/status", s.MediaSyncStatus)
		api.GET("/media/graph", s.MediaGraph)
		api.GET("/media/keywords", s.PopularKeywords)
		api.GET("/media/keywords/search", s.SearchKeywords)

		api.POST("/tasks", s.CreateTask)
		api.GET("/tasks", s.ListTasks)
		api.GET("/tasks/:id", s.GetTask)

		api.GET("/graph/task/:id", s.TaskGraph)
		api.GET("/graph/keywords", s.PopularTags)
		api.GET("/graph/search", s.SearchNodes)
	}

	return r
}

type syncRequest struct {
	Platform string `json:"platform"`
	Limit    int    `json:"limit"`
	Async    *bool  `json:"async"`
}

// TriggerMediaSync starts a media sync. By default the job is queued
// and 202 returned; async=false runs it inline.
func (s *Server) TriggerMediaSync(c *gin.Context) {
	// An empty body means "sync everything".
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if req.Platform != "" && !media.Supported(req.Platform) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "unsupported platform: " + req.Platform,
			"supported": media.SupportedPlatforms,
		})
		return
	}

	async := req.Async == nil || *req.Async
	if async {
		job := &queue.Job{Kind: queue.JobMediaSync, Platform: req.Platform, Limit: req.Limit}
		if err := s.jobs.Publish(c.Request.Context(), job); err != nil {
			s.logger.Error("failed to enqueue sync", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sync"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "platform": req.Platform})
		return
	}

	var result *domain.SyncResult
	var err error
	if req.Platform == "" {
		result, err = s.sync.SyncAll(c.Request.Context(), req.Limit)
	} else {
		result, err = s.sync.SyncPlatform(c.Request.Context(), req.Platform, req.Limit)
	}
	if err != nil {
		if errors.Is(err, domain.ErrSyncRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
			return
		}
		s.logger.Error("sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) MediaSyncStatus(c *gin.Context) {
	status, err := s.sync.Status(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to read sync status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sync status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) MediaGraph(c *gin.Context) {
	data := s.query.Subgraph(
		c.Request.Context(),
		c.Query("platform"),
		c.Query("keyword"),
		intQuery(c, "limit", 100),
	)
	c.JSON(http.StatusOK, data)
}

func (s *Server) PopularKeywords(c *gin.Context) {
	counts := s.query.PopularKeywords(
		c.Request.Context(),
		c.Query("platform"),
		intQuery(c, "limit", 20),
	)
	c.JSON(http.StatusOK, gin.H{"keywords": counts, "total": len(counts)})
}

func (s *Server) SearchKeywords(c *gin.Context) {
	q := c.Query("q")
	counts := s.query.SearchKeywords(c.Request.Context(), q, intQuery(c, "limit", 20))
	c.JSON(http.StatusOK, gin.H{"query": q, "keywords": counts, "total": len(counts)})
}

type createTaskRequest struct {
	TargetURL string `json:"target_url" binding:"required"`
	CrawlType string `json:"crawl_type"`
}

func (s *Server) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_url is required"})
		return
	}
	if req.CrawlType != "" && req.CrawlType != "channel" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported crawl_type, only channel crawls are available"})
		return
	}

	task, err := s.crawl.CreateTask(c.Request.Context(), req.TargetURL)
	if err != nil {
		s.logger.Error("failed to create task", "url", req.TargetURL, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, taskResponse(task))
}

func (s *Server) GetTask(c *gin.Context) {
	task, err := s.crawl.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		s.logger.Error("failed to load task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}
	c.JSON(http.StatusOK, taskResponse(task))
}

func (s *Server) ListTasks(c *gin.Context) {
	tasks, err := s.crawl.ListTasks(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}

	out := make([]gin.H, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (s *Server) TaskGraph(c *gin.Context) {
	data := s.query.TaskGraph(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, data)
}

func (s *Server) PopularTags(c *gin.Context) {
	counts := s.query.PopularTags(
		c.Request.Context(),
		c.Query("task_id"),
		intQuery(c, "limit", 20),
	)
	c.JSON(http.StatusOK, gin.H{"tags": counts, "total": len(counts)})
}

func (s *Server) SearchNodes(c *gin.Context) {
	q := c.Query("q")
	results := s.query.SearchNodes(c.Request.Context(), q, intQuery(c, "limit", 20))
	c.JSON(http.StatusOK, gin.H{"query": q, "results": results})
}

func (s *Server) Health(c *gin.Context) {
	health := gin.H{"status": "ok"}
	code := http.StatusOK

	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			health["postgres"] = err.Error()
			health["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if s.graphOK != nil {
		if err := s.graphOK(c.Request.Context()); err != nil {
			health["neo4j"] = err.Error()
			health["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, health)
}

func taskResponse(task *domain.CrawlTask) gin.H {
	return gin.H{
		"id":            task.ID,
		"target_url":    task.TargetURL,
		"crawl_type":    task.CrawlType,
		"status":        task.Status,
		"total_items":   task.TotalItems,
		"created_at":    task.CreatedAt,
		"started_at":    task.StartedAt,
		"finished_at":   task.FinishedAt,
		"error_message": task.ErrorMessage,
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
