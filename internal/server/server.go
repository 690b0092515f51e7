// Package server exposes the session's "Fetch Data" and "Ask Query" actions
// over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mwiater/jsonrag/internal/logging"
	"github.com/mwiater/jsonrag/internal/metrics"
	"github.com/mwiater/jsonrag/internal/session"
)

const (
	DefaultAddr     = ":8080"
	shutdownTimeout = 5 * time.Second
)

// Session is the part of session.Controller the API drives.
type Session interface {
	Ingest(ctx context.Context, endpoint string) (session.Summary, error)
	Ask(ctx context.Context, question string) (string, error)
	Snapshot() (session.State, bool)
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	Version        string
}

type Server struct {
	cfg     Config
	session Session
	metrics *metrics.Aggregator
	router  *gin.Engine
}

func New(s Session, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	srv := &Server{cfg: cfg, session: s, metrics: metrics.NewAggregator()}
	srv.router = srv.routes()
	return srv
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestID(), cors.New(corsConfig(s.cfg.AllowedOrigins)))

	r.GET("/health", s.health)
	api := r.Group("/api")
	api.POST("/fetch", s.fetch)
	api.POST("/ask", s.ask)
	api.GET("/status", s.status)
	api.GET("/metrics", s.metricsReport)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-Id"}
	cfg.ExposeHeaders = []string{"X-Request-Id"}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// requestID tags every request with an id and logs its outcome.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Writer.Header().Set("X-Request-Id", rid)

		start := time.Now()
		c.Next()

		logging.LogEvent("[HTTP] id=%s method=%s path=%s status=%d latency=%s",
			rid, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("[HTTP] listening on %s", s.cfg.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logging.LogEvent("[HTTP] shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
