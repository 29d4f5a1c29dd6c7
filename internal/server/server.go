// Package server exposes searches and the job store over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"go-jobscout/internal/filter"
	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"
	"go-jobscout/internal/notify"
	"go-jobscout/internal/store"
	"go-jobscout/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	//runs started over HTTP live on this context, not the request's
	ctx    context.Context
	runner *worker.Runner
	store  *store.Store
	hub    *notify.Hub
	log    *logrus.Entry
	//only this chat may drive searches over the webhook, 0 allows none
	chatID int64
}

type Option func(*Server)

// WithTelegramChat accepts webhook commands from chatID only.
func WithTelegramChat(chatID int64) Option {
	return func(s *Server) { s.chatID = chatID }
}

func New(ctx context.Context, runner *worker.Runner, st *store.Store, hub *notify.Hub, log *logrus.Entry, opts ...Option) *Server {
	s := &Server{ctx: ctx, runner: runner, store: st, hub: hub, log: logging.OrDiscard(log)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// searchForm is the body of POST /api/search.
type searchForm struct {
	Title      string `json:"title" binding:"max=200"`
	Location   string `json:"location" binding:"max=200"`
	Category   string `json:"category"`
	Experience string `json:"experience"`
	MaxPages   int    `json:"max_pages" binding:"gte=0,lte=100"`
}

func (f searchForm) request() models.SearchRequest {
	return models.SearchRequest{
		Title:      f.Title,
		Location:   f.Location,
		Category:   f.Category,
		Experience: f.Experience,
		MaxPages:   f.MaxPages,
	}
}

type statusForm struct {
	Status string `json:"status" binding:"required"`
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	//health check
	r.GET("/", s.health)
	r.GET("/healthz", s.health)
	r.POST("/webhook/telegram", s.telegramWebhook)

	api := r.Group("/api")
	api.POST("/search", s.startSearch)
	api.POST("/search/cancel", s.cancelSearch)
	api.GET("/search", s.searchState)
	api.GET("/events", s.events)

	jobs := api.Group("/jobs")
	jobs.GET("", s.listJobs)
	jobs.POST("", s.addJob)
	jobs.DELETE("", s.clearJobs)
	jobs.GET("/counts", s.statusCounts)
	jobs.GET("/export", s.exportJobs)
	jobs.GET("/:id", s.getJob)
	jobs.PATCH("/:id/status", s.updateStatus)
	jobs.DELETE("/:id", s.deleteJob)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("🌐 request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "LinkedIn job search is running!",
		"status":  "healthy",
		"running": s.runner.Running(),
		"jobs":    s.store.Len(),
	})
}

func (s *Server) startSearch(c *gin.Context) {
	var form searchForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := form.request().Normalize()
	runID, err := s.runner.Start(s.ctx, req)
	if errors.Is(err, worker.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run_id": s.runner.RunID()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.WithField("run_id", runID).Infof("🚀 Search requested: %s", req.Describe())
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "request": req})
}

func (s *Server) cancelSearch(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.runner.Cancel(), "run_id": s.runner.RunID()})
}

func (s *Server) searchState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": s.runner.Running(), "run_id": s.runner.RunID()})
}

// events streams run notifications as server-sent events until the client
// goes away. With ?until=finished the stream ends after the next finished event.
func (s *Server) events(c *gin.Context) {
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)
	untilFinished := c.Query("until") == "finished"

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case ev := <-sub.Events():
			c.SSEvent(string(ev.Kind), ev)
			c.Writer.Flush()
			if untilFinished && ev.Kind == notify.KindFinished {
				return
			}
		}
	}
}

type listQuery struct {
	filter.Criteria
	Q string `form:"q"`
}

func (s *Server) listJobs(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Status != "" && q.Status != models.FilterAll {
		st, err := models.ParseStatus(string(q.Status))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Status = st
	}

	jobs := s.store.Filter(q.Criteria)
	if q.Q != "" {
		matched := jobs[:0]
		for _, job := range jobs {
			if filter.MatchText(job, q.Q) {
				matched = append(matched, job)
			}
		}
		jobs = matched
	}
	c.JSON(http.StatusOK, gin.H{"count": len(jobs), "jobs": jobs})
}

func (s *Server) addJob(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := s.store.AddRaw(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": store.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) updateStatus(c *gin.Context) {
	var form statusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := models.ParseStatus(form.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.store.UpdateStatus(c.Param("id"), st)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, job)
	}
}

func (s *Server) deleteJob(c *gin.Context) {
	if !s.store.Remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": store.ErrNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clearJobs(c *gin.Context) {
	s.store.Clear()
	c.Status(http.StatusNoContent)
}

func (s *Server) statusCounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"total": s.store.Len(), "counts": s.store.StatusCounts()})
}

func (s *Server) exportJobs(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="jobs.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.store.WriteCSV(c.Writer); err != nil {
		s.log.Errorf("❌ CSV export failed: %v", err)
	}
}
