// Package server exposes fact-checking over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/factcheck/internal/model"
	"github.com/ppiankov/factcheck/internal/pipeline"
	"github.com/ppiankov/factcheck/internal/store"
)

// Runner runs one fact-check
type Runner interface {
	Run(ctx context.Context, text string, opts pipeline.RunOptions) (*model.Report, error)
}

// RunArchive reads archived runs
type RunArchive interface {
	Get(ctx context.Context, runID string) (*model.Report, error)
	List(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// Options configures a Server
type Options struct {
	Addr    string
	Archive RunArchive // optional; enables /v1/runs
	Metrics *Metrics   // optional; a fresh registry is created when nil
	Logger  *slog.Logger
}

// Server is the HTTP endpoint
type Server struct {
	runner  Runner
	archive RunArchive
	metrics *Metrics
	logger  *slog.Logger
	addr    string
	engine  *gin.Engine
}

// New creates a server and its routes
func New(runner Runner, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		runner:  runner,
		archive: opts.Archive,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		addr:    opts.Addr,
	}
	s.engine = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.metrics.middleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/check", s.check)
	if s.archive != nil {
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)
	}
	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// CheckRequest is the body of POST /v1/check
type CheckRequest struct {
	Text       string            `json:"text"`
	Workers    int               `json:"workers,omitempty"`
	Quotas     *model.TierQuotas `json:"quotas,omitempty"`
	Budget     int               `json:"budget,omitempty"`
	DeadlineMs int64             `json:"deadline_ms,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) check(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	opts := pipeline.RunOptions{
		Workers:  req.Workers,
		Budget:   req.Budget,
		Deadline: time.Duration(req.DeadlineMs) * time.Millisecond,
	}
	if req.Quotas != nil {
		opts.Quotas = *req.Quotas
	}

	report, err := s.runner.Run(c.Request.Context(), req.Text, opts)
	if err != nil {
		s.writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) writeRunError(c *gin.Context, err error) {
	var fatal *model.FatalPipelineError
	switch {
	case errors.Is(err, model.ErrEmptyInput), errors.Is(err, pipeline.ErrInvalidOptions):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &fatal):
		s.logger.Warn("server: run failed", "stage", fatal.Stage, "error", err)
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Stage: fatal.Stage})
	default:
		s.logger.Error("server: run error", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) getRun(c *gin.Context) {
	report, err := s.archive.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("server: get run", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) listRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 500"})
		return
	}
	runs, err := s.archive.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("server: list runs", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
