// Package server exposes export runs over a local HTTP API with a
// websocket progress stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"clipforge/internal/errs"
	"clipforge/internal/history"
	"clipforge/internal/model"
	"clipforge/internal/pipeline"
)

// Runs is the part of the pipeline service the API drives.
type Runs interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
	Cancel() bool
	Snapshot() (model.PipelineRun, bool)
}

// History lists finished runs.
type History interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Options configures a Server.
type Options struct {
	Runs    Runs
	History History // optional
	Hub     *Hub
	Logger  hclog.Logger
	// Defaults supplies OutDir and Encode for requests that omit them.
	Defaults pipeline.Job
}

// Server owns the gin engine and the runs it started.
type Server struct {
	opts     Options
	logger   hclog.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// RunRequest is the body of POST /api/runs.
type RunRequest struct {
	Source   string              `json:"source" binding:"required"`
	OutDir   string              `json:"out_dir"`
	Output   string              `json:"output"`
	Captions bool                `json:"captions"`
	Language string              `json:"language"`
	WriteSRT bool                `json:"srt"`
	Edit     json.RawMessage     `json:"edit"` // merged over the default edit
	Cues     []model.SubtitleCue `json:"cues"`
	CRF      int                 `json:"crf"`
	MaxSize  int                 `json:"max_size_mb"`
}

// RunView is the JSON form of a PipelineRun.
type RunView struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Output     string     `json:"output,omitempty"`
	Stage      string     `json:"stage"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Logger.Named("hub"))
	}
	gin.SetMode(gin.ReleaseMode)
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		engine: gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHostOrigin,
		},
		baseCtx: ctx,
		stop:    stop,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	api := s.engine.Group("/api")
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	api.POST("/runs", s.startRun)
	api.GET("/runs/current", s.currentRun)
	api.DELETE("/runs/current", s.cancelRun)
	api.GET("/history", s.listHistory)
	api.GET("/events", s.events)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the event hub; pass it to the pipeline as a reporter.
func (s *Server) Hub() *Hub { return s.opts.Hub }

// ListenAndServe serves on addr until ctx is done, then cancels the
// active run and shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close cancels the active run, waits for started runs and disconnects
// websocket clients.
func (s *Server) Close() {
	s.stop()
	s.opts.Runs.Cancel()
	s.wg.Wait()
	s.opts.Hub.Close()
}

func (s *Server) startRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.baseCtx.Err() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	job, err := s.jobFor(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.opts.Runs.Run(s.baseCtx, job); err != nil {
			s.logger.Info("run ended with error", "run_id", job.ID, "kind", errs.KindOf(err))
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func (s *Server) jobFor(req RunRequest) (pipeline.Job, error) {
	job := s.opts.Defaults
	job.ID = uuid.NewString()
	job.Source = req.Source
	job.Output = req.Output
	job.Captions = req.Captions
	job.Language = req.Language
	job.WriteSRT = req.WriteSRT
	job.Cues = req.Cues
	if req.OutDir != "" {
		job.OutDir = req.OutDir
	}
	job.Params = model.DefaultEditingParameters()
	if len(req.Edit) > 0 {
		if err := json.Unmarshal(req.Edit, &job.Params); err != nil {
			return job, fmt.Errorf("edit: %w", err)
		}
	}
	if req.CRF > 0 {
		job.Encode.CRF = req.CRF
	}
	if req.MaxSize > 0 {
		job.Encode.MaxSizeMB = req.MaxSize
	}
	return job, nil
}

func (s *Server) currentRun(c *gin.Context) {
	run, ok := s.opts.Runs.Snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run yet"})
		return
	}
	c.JSON(http.StatusOK, viewOf(run))
}

func (s *Server) cancelRun(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.opts.Runs.Cancel()})
}

func (s *Server) listHistory(c *gin.Context) {
	if s.opts.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "history is disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}
	entries, err := s.opts.History.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]RunView, 0, len(entries))
	for _, e := range entries {
		fin := e.FinishedAt
		out = append(out, RunView{
			ID: e.ID, Source: e.Source, Output: e.Output, Stage: string(e.Stage), Progress: e.Progress,
			Error: e.ErrorMsg, ErrorKind: string(e.ErrorKind), StartedAt: e.StartedAt, FinishedAt: &fin,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) events(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.opts.Hub.serve(conn)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request", "method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status(), "took", time.Since(start))
	}
}

func viewOf(run model.PipelineRun) RunView {
	v := RunView{
		ID:        run.ID,
		Source:    run.Source,
		Output:    run.Output,
		Stage:     string(run.Stage),
		Progress:  run.Progress,
		StartedAt: run.StartedAt,
	}
	if run.Err != nil {
		v.Error = run.Err.Error()
		v.ErrorKind = string(errs.KindOf(run.Err))
	}
	if !run.FinishedAt.IsZero() {
		fin := run.FinishedAt
		v.FinishedAt = &fin
	}
	return v
}

// sameHostOrigin accepts requests without an Origin header and those whose
// origin host matches the request host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://", "https://"} {
		if len(origin) > len(prefix) && origin[:len(prefix)] == prefix {
			return origin[len(prefix):] == r.Host
		}
	}
	return false
}
