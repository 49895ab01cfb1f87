// Package server exposes the workflow, the standalone prompts and the
// retrieval index over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suka712/inyeon-upstream/internal/agent"
	"github.com/suka712/inyeon-upstream/internal/config"
	"github.com/suka712/inyeon-upstream/internal/engine"
	"github.com/suka712/inyeon-upstream/internal/retrieval"
)

// BackendSource resolves a backend by provider name; "" selects the default.
type BackendSource interface {
	Get(ctx context.Context, provider string) (engine.Backend, error)
}

// Deps are the process-lifetime objects shared by every request.
type Deps struct {
	Config   *config.Config
	Backends BackendSource
	Tools    *engine.ToolRegistry
	Index    *retrieval.Index // nil disables the /rag routes
	Hooks    []agent.Hook
	Logger   *zap.Logger
	Version  string
}

// Server is the HTTP surface.
type Server struct {
	deps   Deps
	log    *zap.Logger
	router *gin.Engine
}

// New builds the router.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	s := &Server{deps: d, log: d.Logger.Named("http")}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)

	api := r.Group("/api/v1")
	api.POST("/analyze", s.analyze)
	api.POST("/generate-commit", s.generateCommit)
	api.POST("/agent/run", s.runAgent)

	if d.Index != nil {
		rag := api.Group("/rag")
		rag.POST("/index", s.ragIndex)
		rag.POST("/search", s.ragSearch)
		rag.GET("/stats", s.ragStats)
		rag.DELETE("/clear", s.ragClear)
	}

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := c.Writer.Header().Get(runIDHeader); id != "" {
			fields = append(fields, zap.String("run_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Warn("request failed", fields...)
			return
		}
		s.log.Info("request", fields...)
	}
}
