// Package httpapi exposes the bot runtime as a small JSON API for web
// front-ends and integration tests.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/profilebot/internal/logging"
	"github.com/abhisek/profilebot/internal/session"
)

// Handler answers one inbound chat message.
type Handler interface {
	OnMessage(ctx context.Context, userID, text string) session.Reply
}

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Text   string `json:"text"`
}

// File is a downloadable attachment of a reply.
type File struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	URL  string `json:"url"`
}

// Reply is the JSON form of session.Reply.
type Reply struct {
	Text     string     `json:"text"`
	Keyboard [][]string `json:"keyboard,omitempty"`
	Files    []File     `json:"files,omitempty"`
}

type outboxResponse struct {
	Replies []Reply `json:"replies"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Options configures a Server.
type Options struct {
	Handler Handler
	Outbox  *Outbox
	// Gatherer backs /metrics. Default prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Debug    bool
}

// Server routes HTTP requests to the runtime.
type Server struct {
	handler Handler
	outbox  *Outbox
	engine  *gin.Engine
	started time.Time
	log     *slog.Logger
}

func New(opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Outbox == nil {
		opts.Outbox = NewOutbox()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		handler: opts.Handler,
		outbox:  opts.Outbox,
		engine:  gin.New(),
		started: time.Now(),
		log:     logging.New("httpapi"),
	}
	s.engine.Use(gin.Recovery(), s.requestLog())

	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/messages", s.postMessage)
		v1.GET("/outbox/:user_id", s.getOutbox)
		v1.GET("/files/:id", s.getFile)
	}
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Outbox returns the notifier replies are queued in.
func (s *Server) Outbox() *Outbox { return s.outbox }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) postMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	r := s.handler.OnMessage(c.Request.Context(), req.UserID, req.Text)
	c.JSON(http.StatusOK, s.toJSON(r))
}

func (s *Server) getOutbox(c *gin.Context) {
	queued := s.outbox.Drain(c.Param("user_id"))
	out := outboxResponse{Replies: make([]Reply, 0, len(queued))}
	for _, r := range queued {
		out.Replies = append(out.Replies, s.toJSON(r))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getFile(c *gin.Context) {
	a, ok := s.outbox.File(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "unknown file"})
		return
	}
	if _, err := os.Stat(a.Path); err != nil {
		c.JSON(http.StatusGone, errorResponse{Error: "file no longer available"})
		return
	}
	if a.MIME != "" {
		c.Header("Content-Type", a.MIME)
	}
	c.FileAttachment(a.Path, a.Name)
}

func (s *Server) toJSON(r session.Reply) Reply {
	out := Reply{Text: r.Text, Keyboard: r.Keyboard}
	for _, f := range r.Files {
		id := s.outbox.Register(f)
		out.Files = append(out.Files, File{Name: f.Name, MIME: f.MIME, URL: "/v1/files/" + id})
	}
	return out
}
